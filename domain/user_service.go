package domain

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// UserService owns account registration, credential checks and Google
// sign-in. Password hashing happens here, before anything reaches storage.
type UserService struct {
	users UserStorage
	now   func() time.Time
}

func NewUserService(users UserStorage) *UserService {
	return &UserService{users: users, now: time.Now}
}

// Register creates an account with a bcrypt-hashed password. The raw
// password never reaches storage.
func (s *UserService) Register(ctx context.Context, name, email, password string) (User, error) {
	email = NormalizeEmail(email)

	existing, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		return User{}, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return User{}, Conflict("User with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u, err := s.users.InsertUser(ctx, User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err == ErrDuplicateKey {
		// Lost the race against a concurrent registration for the
		// same address; the unique index is the arbiter.
		return User{}, Conflict("User with this email already exists")
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Authenticate verifies an email/password pair. Accounts created through
// Google sign-in carry no hash and always fail here.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.users.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return User{}, fmt.Errorf("lookup email: %w", err)
	}
	if u == nil || u.PasswordHash == "" {
		return User{}, Unauthenticated("Invalid email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, Unauthenticated("Invalid email or password")
	}
	return *u, nil
}

// ByID resolves a user id to an account.
func (s *UserService) ByID(ctx context.Context, id string) (User, error) {
	u, err := s.users.UserByID(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return User{}, NotFound("Resource not found")
	}
	return *u, nil
}

// GoogleSignIn resolves a verified Google profile to an account: by Google
// id first, then by email (linking the Google id to the existing account),
// otherwise a new account is created without a password.
func (s *UserService) GoogleSignIn(ctx context.Context, p GoogleProfile) (User, error) {
	if p.Sub == "" || p.Email == "" {
		return User{}, Invalid("Google profile is missing required claims")
	}

	u, err := s.users.UserByGoogleID(ctx, p.Sub)
	if err != nil {
		return User{}, fmt.Errorf("lookup google id: %w", err)
	}
	if u != nil {
		return *u, nil
	}

	email := NormalizeEmail(p.Email)
	u, err = s.users.UserByEmail(ctx, email)
	if err != nil {
		return User{}, fmt.Errorf("lookup email: %w", err)
	}
	if u != nil {
		if err := s.users.LinkGoogleID(ctx, u.ID, p.Sub); err != nil {
			return User{}, fmt.Errorf("link google id: %w", err)
		}
		u.GoogleID = p.Sub
		return *u, nil
	}

	name := p.Name
	if name == "" {
		name = "User"
	}
	now := s.now()
	created, err := s.users.InsertUser(ctx, User{
		Name:      name,
		Email:     email,
		GoogleID:  p.Sub,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err == ErrDuplicateKey {
		// Concurrent first sign-in for the same address; reread the
		// winner and link to it.
		if u, lookupErr := s.users.UserByEmail(ctx, email); lookupErr == nil && u != nil {
			return *u, nil
		}
		return User{}, Conflict("User with this email already exists")
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}
