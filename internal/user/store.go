package user

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Store is the persistence contract for user records.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	ListPage(ctx context.Context, offset, limit int) ([]*User, error)
	Insert(ctx context.Context, u *User) (*User, error)
	Update(ctx context.Context, u *User) (*User, error)
	Delete(ctx context.Context, id string) error
}

// TxStore is a Store that can scope a unit of work to one transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxStore interface {
	Store
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
