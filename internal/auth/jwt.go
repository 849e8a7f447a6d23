package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTService issues HMAC-signed JWTs.
type JWTService struct {
	method    *jwt.SigningMethodHMAC
	secret    []byte
	durations Durations
	now       func() time.Time
}

func NewJWTService(algorithm string, secret []byte, durations Durations, opts ...Option) (*JWTService, error) {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported token algorithm %q", algorithm)
	}

	o := applyOptions(opts)

	return &JWTService{
		method:    method,
		secret:    secret,
		durations: durations,
		now:       o.now,
	}, nil
}

func (s *JWTService) Lifetime(purpose Purpose) time.Duration {
	return s.durations.For(purpose)
}

// Issue signs a token for subject that expires after the purpose's lifetime.
func (s *JWTService) Issue(subject string, purpose Purpose) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("%w: signing secret is empty", ErrTokenIssuance)
	}

	lifetime := s.durations.For(purpose)
	if lifetime <= 0 {
		return "", fmt.Errorf("%w: no lifetime for purpose %s", ErrTokenIssuance, purpose)
	}

	now := s.now()
	token := jwt.NewWithClaims(s.method, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		ID:        uuid.NewString(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenIssuance, err)
	}

	return signed, nil
}

// Verify checks signature and expiry and returns the subject.
func (s *JWTService) Verify(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims.Subject, nil
}
