package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/users-api/internal/database"
)

// Repository handles user data persistence
type Repository struct {
	db bun.IDB
}

var _ TxStore = (*Repository)(nil)

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// RunInTx runs fn against a repository bound to a single transaction.
func (r *Repository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Repository{db: tx})
	})
}

// FindByEmail retrieves a user by exact email
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// FindByID retrieves a user by ID
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// ListPage returns up to limit users after skipping offset, in creation order
func (r *Repository) ListPage(ctx context.Context, offset, limit int) ([]*User, error) {
	var dbUsers []database.User
	err := r.db.NewSelect().
		Model(&dbUsers).
		Order("created_at ASC", "id ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*User, 0, len(dbUsers))
	for i := range dbUsers {
		users = append(users, mapDBUserToModel(&dbUsers[i]))
	}

	return users, nil
}

// Insert stores a new user
func (r *Repository) Insert(ctx context.Context, u *User) (*User, error) {
	dbUser := mapModelToDBUser(u)

	_, err := r.db.NewInsert().
		Model(dbUser).
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// Update overwrites every mutable column of an existing user
func (r *Repository) Update(ctx context.Context, u *User) (*User, error) {
	dbUser := mapModelToDBUser(u)

	result, err := r.db.NewUpdate().
		Model(dbUser).
		ExcludeColumn("id", "created_at").
		WherePK().
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return mapDBUserToModel(dbUser), nil
}

// Delete removes a user by ID
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// isUniqueViolation recognises unique index violations from postgres and sqlite
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	u := &User{
		ID:           dbu.ID,
		Name:         dbu.Name,
		Email:        dbu.Email,
		PasswordHash: dbu.PasswordHash,
		Dob:          dbu.Dob,
		Description:  dbu.Description,
		CreatedAt:    dbu.CreatedAt,
		UpdatedAt:    dbu.UpdatedAt,
	}
	if dbu.Address != nil {
		u.Address = &Address{
			Name:      dbu.Address.Name,
			Latitude:  dbu.Address.Latitude,
			Longitude: dbu.Address.Longitude,
		}
	}
	return u
}

func mapModelToDBUser(u *User) *database.User {
	dbu := &database.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Dob:          u.Dob,
		Description:  u.Description,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.Address != nil {
		dbu.Address = &database.Address{
			Name:      u.Address.Name,
			Latitude:  u.Address.Latitude,
			Longitude: u.Address.Longitude,
		}
	}
	return dbu
}
