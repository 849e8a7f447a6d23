package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/redmonkez12/users-api/internal/config"
)

// Purpose says why a token was issued. It only selects the lifetime and is
// not written into the token.
type Purpose string

const (
	PurposeLogin         Purpose = "LOGIN"
	PurposeRegistration  Purpose = "REGISTRATION"
	PurposePasswordReset Purpose = "PASSWORD_RESET"
)

// FallbackTokenDuration applies to every purpose without a configured lifetime.
const FallbackTokenDuration = 30 * time.Minute

const AlgorithmPasetoV4Local = "v4.local"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrTokenIssuance = errors.New("failed to issue token")
)

// TokenService issues and verifies self-contained bearer tokens whose
// subject is the user's email.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256/384/512).
type TokenService interface {
	Issue(subject string, purpose Purpose) (string, error)
	Verify(token string) (string, error)
	Lifetime(purpose Purpose) time.Duration
}

// Durations holds the configured token lifetimes.
type Durations struct {
	Login         time.Duration
	PasswordReset time.Duration
}

// For returns the lifetime of a token issued for purpose.
func (d Durations) For(purpose Purpose) time.Duration {
	switch purpose {
	case PurposeLogin:
		return d.Login
	case PurposePasswordReset:
		return d.PasswordReset
	default:
		return FallbackTokenDuration
	}
}

type tokenOptions struct {
	now func() time.Time
}

// Option customises a token service.
type Option func(*tokenOptions)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *tokenOptions) {
		o.now = now
	}
}

func applyOptions(opts []Option) tokenOptions {
	o := tokenOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewTokenService builds the token service selected by cfg.Algorithm.
func NewTokenService(cfg config.AuthConfig, opts ...Option) (TokenService, error) {
	durations := Durations{
		Login:         cfg.LoginTokenDuration,
		PasswordReset: cfg.PasswordResetTokenDuration,
	}

	if cfg.Algorithm == AlgorithmPasetoV4Local {
		return NewPasetoService(cfg.SecretKey, durations, opts...)
	}

	return NewJWTService(cfg.Algorithm, cfg.SecretKey, durations, opts...)
}
