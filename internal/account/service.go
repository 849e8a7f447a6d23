// Package account implements the user directory: registration, login,
// profile changes, lookups and password resets.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redmonkez12/users-api/internal/auth"
	"github.com/redmonkez12/users-api/internal/logging"
	"github.com/redmonkez12/users-api/internal/user"
)

const tokenTypeBearer = "bearer"

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
}

type Mailer interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, name, token string, expiresIn time.Duration) error
}

type Service struct {
	store         user.TxStore
	hasher        PasswordHasher
	authenticator Authenticator
	tokens        auth.TokenService
	mailer        Mailer
	logger        *logging.Logger
	now           func() time.Time

	mail sync.WaitGroup
}

func NewService(
	store user.TxStore,
	hasher PasswordHasher,
	authenticator Authenticator,
	tokens auth.TokenService,
	mailer Mailer,
	logger *logging.Logger,
) *Service {
	return &Service{
		store:         store,
		hasher:        hasher,
		authenticator: authenticator,
		tokens:        tokens,
		mailer:        mailer,
		logger:        logger,
		now:           time.Now,
	}
}

// Register creates a user after checking the email is free.
func (s *Service) Register(ctx context.Context, req NewUserRequest) (TextResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate(req); err != nil {
		return TextResponse{}, err
	}

	now := s.now().UTC()
	dob := now.Truncate(24 * time.Hour)
	if req.Dob != "" {
		parsed, err := time.Parse(user.DateLayout, req.Dob)
		if err != nil {
			return TextResponse{}, fieldError("dob", "must be a valid date")
		}
		dob = parsed
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return TextResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := &user.User{
		ID:           user.NewID(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Dob:          dob,
		Description:  req.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Address != nil {
		newUser.Address = &user.Address{
			Name:      req.Address.Name,
			Latitude:  req.Address.Latitude,
			Longitude: req.Address.Longitude,
		}
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx user.Store) error {
		_, err := tx.FindByEmail(ctx, newUser.Email)
		switch {
		case err == nil:
			return user.ErrDuplicateEmail
		case !errors.Is(err, user.ErrNotFound):
			return err
		}

		_, err = tx.Insert(ctx, newUser)
		return err
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return TextResponse{}, err
		}
		return TextResponse{}, fmt.Errorf("%w: register %s: %w", ErrPersistence, newUser.Email, err)
	}

	s.logger.Info("user registered", "user_id", newUser.ID)

	return TextResponse{Detail: fmt.Sprintf("User with email %s created successfully", newUser.Email)}, nil
}

// Login exchanges valid credentials for a LOGIN bearer token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	if err := validate(req); err != nil {
		return LoginResponse{}, err
	}

	u, err := s.authenticator.Authenticate(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return LoginResponse{}, err
	}

	token, err := s.tokens.Issue(u.Email, auth.PurposeLogin)
	if err != nil {
		return LoginResponse{}, err
	}

	return LoginResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(s.tokens.Lifetime(auth.PurposeLogin).Seconds()),
	}, nil
}

// Update changes one allow-listed field of a user. An empty req.UserID
// targets caller.
func (s *Service) Update(ctx context.Context, caller *user.User, req UpdateUserRequest) (TextResponse, error) {
	if req.Field == FieldEmail {
		req.Value = strings.TrimSpace(req.Value)
	}
	if err := validate(req); err != nil {
		return TextResponse{}, err
	}

	id := req.UserID
	if id == "" {
		if caller == nil {
			return TextResponse{}, fieldError("user_id", "cannot be blank")
		}
		id = caller.ID
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx user.Store) error {
		u, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if err := applyField(u, req.Field, req.Value); err != nil {
			return err
		}
		u.UpdatedAt = s.now().UTC()

		_, err = tx.Update(ctx, u)
		return err
	})
	if err != nil {
		if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrDuplicateEmail) {
			return TextResponse{}, err
		}
		var verr *ValidationError
		if errors.As(err, &verr) {
			return TextResponse{}, err
		}
		return TextResponse{}, fmt.Errorf("%w: update user %s: %w", ErrPersistence, id, err)
	}

	return TextResponse{Detail: fmt.Sprintf("%s updated successfully to %s", req.Field, req.Value)}, nil
}

func applyField(u *user.User, field, value string) error {
	switch field {
	case FieldEmail:
		u.Email = value
	case FieldName:
		u.Name = value
	case FieldDob:
		dob, err := time.Parse(user.DateLayout, value)
		if err != nil {
			return fieldError("value", "must be a valid date")
		}
		u.Dob = dob
	case FieldDescription:
		u.Description = value
	default:
		return fieldError("field", "must be a valid value")
	}
	return nil
}

// Remove deletes the user with id.
func (s *Service) Remove(ctx context.Context, id string) (TextResponse, error) {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx user.Store) error {
		return tx.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return TextResponse{}, err
		}
		return TextResponse{}, fmt.Errorf("%w: remove user %s: %w", ErrPersistence, id, err)
	}

	s.logger.Info("user removed", "user_id", id)

	return TextResponse{Detail: fmt.Sprintf("User with id %s removed successfully", id)}, nil
}

// Get returns the public info of one user.
func (s *Service) Get(ctx context.Context, id string) (Info, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Info{}, err
		}
		return Info{}, fmt.Errorf("%w: get user %s: %w", ErrPersistence, id, err)
	}

	return NewInfo(u), nil
}

// List returns users in creation order.
func (s *Service) List(ctx context.Context, q ListQuery) (Page, error) {
	if err := validate(q); err != nil {
		return Page{}, err
	}

	users, err := s.store.ListPage(ctx, q.Start, q.Limit)
	if err != nil {
		return Page{}, fmt.Errorf("%w: list users: %w", ErrPersistence, err)
	}

	page := Page{Users: make([]Info, 0, len(users)), Start: q.Start, Limit: q.Limit}
	for _, u := range users {
		page.Users = append(page.Users, NewInfo(u))
	}

	return page, nil
}

// RequestPasswordReset mails a reset link when email belongs to a user.
// The outcome is never reported to the caller.
func (s *Service) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate(req); err != nil {
		return err
	}

	logger := logging.GetLoggerFromContext(ctx)

	u, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			logger.Warn("failed to get user for password reset", "error", err)
		}
		return nil
	}

	token, err := s.tokens.Issue(u.Email, auth.PurposePasswordReset)
	if err != nil {
		logger.Warn("failed to issue password reset token", "error", err)
		return nil
	}

	expiresIn := s.tokens.Lifetime(auth.PurposePasswordReset)
	mailCtx := context.WithoutCancel(ctx)

	s.mail.Go(func() {
		if err := s.mailer.SendPasswordResetEmail(mailCtx, u.Email, u.Name, token, expiresIn); err != nil {
			logger.Warn("failed to send password reset email", "user_id", u.ID, "error", err)
		}
	})

	return nil
}

// ResetPassword replaces the password of the user named by a reset token.
func (s *Service) ResetPassword(ctx context.Context, req PasswordResetConfirm) error {
	if err := validate(req); err != nil {
		return err
	}

	email, err := s.tokens.Verify(req.Token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResetToken, err)
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx user.Store) error {
		u, err := tx.FindByEmail(ctx, email)
		if err != nil {
			return err
		}

		u.PasswordHash = passwordHash
		u.UpdatedAt = s.now().UTC()

		_, err = tx.Update(ctx, u)
		return err
	})
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return fmt.Errorf("%w: no user for token subject", ErrInvalidResetToken)
		}
		return fmt.Errorf("%w: reset password: %w", ErrPersistence, err)
	}

	return nil
}

// Wait blocks until queued emails have been handed to the mailer.
func (s *Service) Wait() {
	s.mail.Wait()
}
