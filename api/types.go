package api

import (
	"context"
	"time"

	"taskzen-api/domain"
)

// Accounts abstracts account registration and lookup for handlers.
type Accounts interface {
	Register(ctx context.Context, name, email, password string) (domain.User, error)
	Authenticate(ctx context.Context, email, password string) (domain.User, error)
	ByID(ctx context.Context, id string) (domain.User, error)
	GoogleSignIn(ctx context.Context, p domain.GoogleProfile) (domain.User, error)
}

// FriendGraph abstracts the friendship state machine.
type FriendGraph interface {
	SearchUsers(ctx context.Context, actorID, emailFragment string) ([]domain.PublicUser, error)
	SendRequest(ctx context.Context, requesterID, recipientID string) (domain.FriendRequest, error)
	Requests(ctx context.Context, userID string, dir domain.RequestDirection) ([]domain.FriendRequest, error)
	Accept(ctx context.Context, userID, requestID string) (domain.FriendRequest, error)
	Reject(ctx context.Context, userID, requestID string) error
	Friends(ctx context.Context, userID string) ([]domain.FriendEntry, error)
	Remove(ctx context.Context, userID, friendshipID string) error
}

// TaskBoard abstracts owner-scoped task operations.
type TaskBoard interface {
	List(ctx context.Context, ownerID string, f domain.ListFilter) ([]domain.Task, error)
	View(ctx context.Context, ownerID string, view domain.TaskView, search string) ([]domain.Task, error)
	Assigned(ctx context.Context, ownerID string) ([]domain.Task, error)
	SearchAll(ctx context.Context, ownerID, term string) ([]domain.TaggedTask, error)
	Get(ctx context.Context, ownerID, id string) (domain.Task, error)
	Create(ctx context.Context, ownerID string, d domain.TaskDraft) (domain.Task, error)
	Update(ctx context.Context, ownerID, id string, p domain.TaskPatch) (domain.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
	Assign(ctx context.Context, actor domain.User, taskID, friendID string) (domain.Task, error)
	DashboardStats(ctx context.Context, ownerID string) (domain.DashboardStats, error)
}

// Authenticator issues local session tokens and extracts user IDs from
// Authorization headers.
type Authenticator interface {
	IssueToken(u domain.User) (string, time.Time, error)
	UserIDFromAuthHeader(string) (string, error)
}

// GoogleVerifier validates Google ID tokens for the sign-in exchange.
type GoogleVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, idToken string) (domain.GoogleProfile, error)
}

// Services bundles the domain services handlers depend on.
type Services struct {
	Accounts Accounts
	Friends  FriendGraph
	Tasks    TaskBoard
}
