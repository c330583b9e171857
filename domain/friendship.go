package domain

import "time"

// FriendshipStatus is a relationship record's state. Rejection deletes the
// record instead of storing a terminal status, so only two values are ever
// persisted.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship is a directional request record between two users. Once
// accepted it is treated as a symmetric relationship.
type Friendship struct {
	ID          string
	RequesterID string
	RecipientID string
	Status      FriendshipStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Involves reports whether userID is one of the two parties.
func (f Friendship) Involves(userID string) bool {
	return f.RequesterID == userID || f.RecipientID == userID
}

// OtherParty returns the id of the party that is not userID.
func (f Friendship) OtherParty(userID string) string {
	if f.RequesterID == userID {
		return f.RecipientID
	}
	return f.RequesterID
}

// PairKey canonicalizes an unordered user pair. Storage keeps a unique index
// on it, so at most one friendship record can exist per pair regardless of
// direction, and concurrent requests race the index rather than each other.
func PairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

// RequestDirection selects which pending requests to list.
type RequestDirection int

const (
	RequestsAll RequestDirection = iota
	RequestsSent
	RequestsReceived
)

// ParseRequestDirection maps the `type` query parameter to a direction.
// Unknown values fall back to listing both sides.
func ParseRequestDirection(s string) RequestDirection {
	switch s {
	case "sent":
		return RequestsSent
	case "received":
		return RequestsReceived
	default:
		return RequestsAll
	}
}

// FriendRequest is a friendship record with both parties resolved to their
// public profiles.
type FriendRequest struct {
	ID        string           `json:"id"`
	Requester PublicUser       `json:"requester"`
	Recipient PublicUser       `json:"recipient"`
	Status    FriendshipStatus `json:"status"`
	IsSent    bool             `json:"isSent"`
	CreatedAt time.Time        `json:"createdAt"`
}

// FriendEntry is an accepted friendship resolved to the other party.
type FriendEntry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	FriendshipID string    `json:"friendshipId"`
	CreatedAt    time.Time `json:"createdAt"`
}
