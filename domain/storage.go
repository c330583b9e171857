package domain

import (
	"context"
	"time"
)

// UserStorage persists user accounts. Lookups return (nil, nil) when no
// record matches.
type UserStorage interface {
	InsertUser(ctx context.Context, u User) (User, error)
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByGoogleID(ctx context.Context, googleID string) (*User, error)
	// SearchUsersByEmail matches the fragment case-insensitively as a
	// substring, excluding excludeID, returning at most limit users.
	SearchUsersByEmail(ctx context.Context, fragment, excludeID string, limit int) ([]User, error)
	LinkGoogleID(ctx context.Context, userID, googleID string) error
}

// FriendStorage persists friendship records. The unordered pair of parties
// is unique; inserting a second record for the same pair fails with
// ErrDuplicateKey. Lookups return (nil, nil) when no record matches.
type FriendStorage interface {
	InsertFriendship(ctx context.Context, f Friendship) (Friendship, error)
	FriendshipByID(ctx context.Context, id string) (*Friendship, error)
	// FriendshipBetween matches any status, either direction.
	FriendshipBetween(ctx context.Context, a, b string) (*Friendship, error)
	// AcceptedBetween matches only accepted records, either direction.
	AcceptedBetween(ctx context.Context, a, b string) (*Friendship, error)
	// PendingRequests lists pending records for the user's side(s),
	// newest first.
	PendingRequests(ctx context.Context, userID string, dir RequestDirection) ([]Friendship, error)
	// AcceptedFriendships lists accepted records involving the user,
	// most recently updated first.
	AcceptedFriendships(ctx context.Context, userID string) ([]Friendship, error)
	SetFriendshipStatus(ctx context.Context, id string, status FriendshipStatus, updatedAt time.Time) (*Friendship, error)
	DeleteFriendship(ctx context.Context, id string) error
}

// TaskStorage persists tasks. List results are sorted by creation time,
// newest first; finer orderings are applied by the task service.
type TaskStorage interface {
	InsertTask(ctx context.Context, t Task) (Task, error)
	// TaskByID scopes the lookup to ownerID; a task owned by someone else
	// is (nil, nil).
	TaskByID(ctx context.Context, id, ownerID string) (*Task, error)
	UpdateTask(ctx context.Context, t Task) (*Task, error)
	DeleteTask(ctx context.Context, id, ownerID string) (bool, error)
	ListTasks(ctx context.Context, ownerID string, q TaskQuery) ([]Task, error)
	CountTasks(ctx context.Context, ownerID string, q TaskQuery) (int64, error)
}
