package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// In-memory storage fakes mirroring the Mongo implementation's contracts,
// including the unique pair index on friendships.

type fakeUsers struct {
	seq   int
	users map[string]User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: map[string]User{}} }

func (f *fakeUsers) nextID() string {
	f.seq++
	return fmt.Sprintf("%024x", f.seq)
}

func (f *fakeUsers) add(name, email string) User {
	u := User{ID: f.nextID(), Name: name, Email: NormalizeEmail(email)}
	f.users[u.ID] = u
	return u
}

func (f *fakeUsers) InsertUser(ctx context.Context, u User) (User, error) {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return User{}, ErrDuplicateKey
		}
	}
	u.ID = f.nextID()
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) UserByID(ctx context.Context, id string) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeUsers) UserByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) UserByGoogleID(ctx context.Context, googleID string) (*User, error) {
	for _, u := range f.users {
		if u.GoogleID != "" && u.GoogleID == googleID {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) SearchUsersByEmail(ctx context.Context, fragment, excludeID string, limit int) ([]User, error) {
	var out []User
	for _, u := range f.users {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(u.Email, strings.ToLower(fragment)) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUsers) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	u, ok := f.users[userID]
	if !ok {
		return fmt.Errorf("no such user %s", userID)
	}
	u.GoogleID = googleID
	f.users[userID] = u
	return nil
}

type fakeFriends struct {
	seq     int
	records map[string]Friendship
}

func newFakeFriends() *fakeFriends { return &fakeFriends{records: map[string]Friendship{}} }

func (f *fakeFriends) InsertFriendship(ctx context.Context, fr Friendship) (Friendship, error) {
	for _, existing := range f.records {
		if PairKey(existing.RequesterID, existing.RecipientID) == PairKey(fr.RequesterID, fr.RecipientID) {
			return Friendship{}, ErrDuplicateKey
		}
	}
	f.seq++
	fr.ID = fmt.Sprintf("f%023x", f.seq)
	f.records[fr.ID] = fr
	return fr, nil
}

func (f *fakeFriends) FriendshipByID(ctx context.Context, id string) (*Friendship, error) {
	fr, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	return &fr, nil
}

func (f *fakeFriends) FriendshipBetween(ctx context.Context, a, b string) (*Friendship, error) {
	key := PairKey(a, b)
	for _, fr := range f.records {
		if PairKey(fr.RequesterID, fr.RecipientID) == key {
			fr := fr
			return &fr, nil
		}
	}
	return nil, nil
}

func (f *fakeFriends) AcceptedBetween(ctx context.Context, a, b string) (*Friendship, error) {
	fr, err := f.FriendshipBetween(ctx, a, b)
	if err != nil || fr == nil || fr.Status != FriendshipAccepted {
		return nil, err
	}
	return fr, nil
}

func (f *fakeFriends) PendingRequests(ctx context.Context, userID string, dir RequestDirection) ([]Friendship, error) {
	var out []Friendship
	for _, fr := range f.records {
		if fr.Status != FriendshipPending {
			continue
		}
		switch dir {
		case RequestsSent:
			if fr.RequesterID != userID {
				continue
			}
		case RequestsReceived:
			if fr.RecipientID != userID {
				continue
			}
		default:
			if !fr.Involves(userID) {
				continue
			}
		}
		out = append(out, fr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeFriends) AcceptedFriendships(ctx context.Context, userID string) ([]Friendship, error) {
	var out []Friendship
	for _, fr := range f.records {
		if fr.Status == FriendshipAccepted && fr.Involves(userID) {
			out = append(out, fr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeFriends) SetFriendshipStatus(ctx context.Context, id string, status FriendshipStatus, updatedAt time.Time) (*Friendship, error) {
	fr, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	fr.Status = status
	fr.UpdatedAt = updatedAt
	f.records[id] = fr
	return &fr, nil
}

func (f *fakeFriends) DeleteFriendship(ctx context.Context, id string) error {
	delete(f.records, id)
	return nil
}

type fakeTasks struct {
	seq   int
	tasks map[string]Task
}

func newFakeTasks() *fakeTasks { return &fakeTasks{tasks: map[string]Task{}} }

func (f *fakeTasks) InsertTask(ctx context.Context, t Task) (Task, error) {
	f.seq++
	t.ID = fmt.Sprintf("t%023x", f.seq)
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeTasks) TaskByID(ctx context.Context, id, ownerID string) (*Task, error) {
	t, ok := f.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeTasks) UpdateTask(ctx context.Context, t Task) (*Task, error) {
	existing, ok := f.tasks[t.ID]
	if !ok || existing.OwnerID != t.OwnerID {
		return nil, nil
	}
	f.tasks[t.ID] = t
	return &t, nil
}

func (f *fakeTasks) DeleteTask(ctx context.Context, id, ownerID string) (bool, error) {
	t, ok := f.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return false, nil
	}
	delete(f.tasks, id)
	return true, nil
}

func matchesQuery(t Task, ownerID string, q TaskQuery) bool {
	if t.OwnerID != ownerID {
		return false
	}
	if q.Status != "" && t.Status != q.Status {
		return false
	}
	if q.NotCompleted && t.Status == StatusCompleted {
		return false
	}
	if q.Priority != "" && t.Priority != q.Priority {
		return false
	}
	if q.Flagged != nil && t.Flagged != *q.Flagged {
		return false
	}
	if q.Assigned && t.AssignedBy == "" {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	if q.DueAfter != nil && (t.DueDate == nil || !t.DueDate.After(*q.DueAfter)) {
		return false
	}
	if q.DueFrom != nil && (t.DueDate == nil || t.DueDate.Before(*q.DueFrom)) {
		return false
	}
	if q.DueBefore != nil && (t.DueDate == nil || !t.DueDate.Before(*q.DueBefore)) {
		return false
	}
	return true
}

func (f *fakeTasks) ListTasks(ctx context.Context, ownerID string, q TaskQuery) ([]Task, error) {
	var out []Task
	for _, t := range f.tasks {
		if matchesQuery(t, ownerID, q) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeTasks) CountTasks(ctx context.Context, ownerID string, q TaskQuery) (int64, error) {
	var n int64
	for _, t := range f.tasks {
		if matchesQuery(t, ownerID, q) {
			n++
		}
	}
	return n, nil
}
