package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redmonkez12/users-api/internal/user"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// UserFinder looks users up by their login identifier.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
}

// Authenticator checks email and password pairs against stored users.
type Authenticator struct {
	users  UserFinder
	hasher *Hasher

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthenticator(users UserFinder, hasher *Hasher) *Authenticator {
	return &Authenticator{users: users, hasher: hasher}
}

// Authenticate returns the user owning email when password matches.
// An unknown email and a wrong password both yield ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	u, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			a.burnVerify(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := a.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password for user %s: %w", u.ID, err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// burnVerify spends the same work as a real verification so unknown emails
// answer in about the same time as wrong passwords.
func (a *Authenticator) burnVerify(password string) {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = a.hasher.Hash("not-a-real-password")
	})
	if a.dummyHash != "" {
		_, _ = a.hasher.Verify(password, a.dummyHash)
	}
}
