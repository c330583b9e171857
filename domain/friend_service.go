package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const searchResultLimit = 10

// FriendService manages pairwise relationship records between users:
// a pending request either becomes accepted or is deleted on rejection.
type FriendService struct {
	friends FriendStorage
	users   UserStorage
	now     func() time.Time
}

func NewFriendService(friends FriendStorage, users UserStorage) *FriendService {
	return &FriendService{friends: friends, users: users, now: time.Now}
}

// SearchUsers finds users by email substring, excluding the actor and
// anyone already an accepted friend.
func (s *FriendService) SearchUsers(ctx context.Context, actorID, fragment string) ([]PublicUser, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, Invalid("Email query parameter is required")
	}

	candidates, err := s.users.SearchUsersByEmail(ctx, strings.ToLower(fragment), actorID, searchResultLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	accepted, err := s.friends.AcceptedFriendships(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}
	friendIDs := make(map[string]struct{}, len(accepted))
	for _, f := range accepted {
		friendIDs[f.OtherParty(actorID)] = struct{}{}
	}

	results := make([]PublicUser, 0, len(candidates))
	for _, u := range candidates {
		if _, isFriend := friendIDs[u.ID]; isFriend {
			continue
		}
		results = append(results, u.Public())
	}
	return results, nil
}

// SendRequest creates a pending record from the actor to recipientID.
// At most one record may exist per unordered pair: an existing pending or
// accepted record in either direction is a conflict, and concurrent sends
// are resolved by the storage uniqueness constraint.
func (s *FriendService) SendRequest(ctx context.Context, actorID, recipientID string) (FriendRequest, error) {
	if recipientID == "" {
		return FriendRequest{}, Invalid("Recipient ID is required")
	}
	if recipientID == actorID {
		return FriendRequest{}, Invalid("Cannot send friend request to yourself")
	}

	recipient, err := s.users.UserByID(ctx, recipientID)
	if err != nil {
		return FriendRequest{}, fmt.Errorf("lookup recipient: %w", err)
	}
	if recipient == nil {
		return FriendRequest{}, NotFound("User not found")
	}

	existing, err := s.friends.FriendshipBetween(ctx, actorID, recipientID)
	if err != nil {
		return FriendRequest{}, fmt.Errorf("lookup friendship: %w", err)
	}
	if existing != nil {
		if existing.Status == FriendshipAccepted {
			return FriendRequest{}, Conflict("Already friends")
		}
		return FriendRequest{}, Conflict("Friend request already sent")
	}

	now := s.now()
	created, err := s.friends.InsertFriendship(ctx, Friendship{
		RequesterID: actorID,
		RecipientID: recipientID,
		Status:      FriendshipPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err == ErrDuplicateKey {
		return FriendRequest{}, Conflict("Friend request already exists")
	}
	if err != nil {
		return FriendRequest{}, fmt.Errorf("insert friendship: %w", err)
	}
	return s.populate(ctx, created, actorID)
}

// Requests lists the actor's pending requests, newest first.
func (s *FriendService) Requests(ctx context.Context, actorID string, dir RequestDirection) ([]FriendRequest, error) {
	pending, err := s.friends.PendingRequests(ctx, actorID, dir)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	out := make([]FriendRequest, 0, len(pending))
	for _, f := range pending {
		req, err := s.populate(ctx, f, actorID)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// Accept transitions a pending request to accepted. Only the recipient may
// accept, and only while the record is still pending.
func (s *FriendService) Accept(ctx context.Context, actorID, requestID string) (FriendRequest, error) {
	f, err := s.friends.FriendshipByID(ctx, requestID)
	if err != nil {
		return FriendRequest{}, fmt.Errorf("lookup friendship: %w", err)
	}
	if f == nil {
		return FriendRequest{}, NotFound("Friend request not found")
	}
	if f.RecipientID != actorID {
		return FriendRequest{}, Forbidden("Unauthorized to accept this request")
	}
	if f.Status != FriendshipPending {
		return FriendRequest{}, Invalid("Friend request is not pending")
	}

	updated, err := s.friends.SetFriendshipStatus(ctx, f.ID, FriendshipAccepted, s.now())
	if err != nil {
		return FriendRequest{}, fmt.Errorf("update friendship: %w", err)
	}
	if updated == nil {
		return FriendRequest{}, NotFound("Friend request not found")
	}
	return s.populate(ctx, *updated, actorID)
}

// Reject deletes the request record entirely, so the pair may try again
// later. Only the recipient may reject; no pending-state check is applied.
func (s *FriendService) Reject(ctx context.Context, actorID, requestID string) error {
	f, err := s.friends.FriendshipByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("lookup friendship: %w", err)
	}
	if f == nil {
		return NotFound("Friend request not found")
	}
	if f.RecipientID != actorID {
		return Forbidden("Unauthorized to reject this request")
	}
	if err := s.friends.DeleteFriendship(ctx, f.ID); err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	return nil
}

// Friends lists accepted friendships resolved to the other party, most
// recently updated first.
func (s *FriendService) Friends(ctx context.Context, actorID string) ([]FriendEntry, error) {
	accepted, err := s.friends.AcceptedFriendships(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}
	out := make([]FriendEntry, 0, len(accepted))
	for _, f := range accepted {
		other, err := s.users.UserByID(ctx, f.OtherParty(actorID))
		if err != nil {
			return nil, fmt.Errorf("lookup friend: %w", err)
		}
		entry := FriendEntry{FriendshipID: f.ID, CreatedAt: f.CreatedAt}
		if other != nil {
			entry.ID = other.ID
			entry.Name = other.Name
			entry.Email = other.Email
		}
		out = append(out, entry)
	}
	return out, nil
}

// Remove deletes an accepted friendship. Either party may remove it; a
// record that is not accepted or does not involve the actor is reported as
// missing rather than forbidden.
func (s *FriendService) Remove(ctx context.Context, actorID, friendshipID string) error {
	f, err := s.friends.FriendshipByID(ctx, friendshipID)
	if err != nil {
		return fmt.Errorf("lookup friendship: %w", err)
	}
	if f == nil || f.Status != FriendshipAccepted || !f.Involves(actorID) {
		return NotFound("Friend relationship not found")
	}
	if err := s.friends.DeleteFriendship(ctx, f.ID); err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	return nil
}

func (s *FriendService) populate(ctx context.Context, f Friendship, actorID string) (FriendRequest, error) {
	req := FriendRequest{
		ID:        f.ID,
		Status:    f.Status,
		IsSent:    f.RequesterID == actorID,
		CreatedAt: f.CreatedAt,
	}
	requester, err := s.users.UserByID(ctx, f.RequesterID)
	if err != nil {
		return FriendRequest{}, fmt.Errorf("lookup requester: %w", err)
	}
	if requester != nil {
		req.Requester = requester.Public()
	}
	recipient, err := s.users.UserByID(ctx, f.RecipientID)
	if err != nil {
		return FriendRequest{}, fmt.Errorf("lookup recipient: %w", err)
	}
	if recipient != nil {
		req.Recipient = recipient.Public()
	}
	return req, nil
}
