package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	durations    Durations
	now          func() time.Time
}

func NewPasetoService(symmetricKey []byte, durations Durations, opts ...Option) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	o := applyOptions(opts)

	return &PasetoService{
		symmetricKey: key,
		durations:    durations,
		now:          o.now,
	}, nil
}

func (s *PasetoService) Lifetime(purpose Purpose) time.Duration {
	return s.durations.For(purpose)
}

// Issue encrypts a v4.local token for subject
func (s *PasetoService) Issue(subject string, purpose Purpose) (string, error) {
	lifetime := s.durations.For(purpose)
	if lifetime <= 0 {
		return "", fmt.Errorf("%w: no lifetime for purpose %s", ErrTokenIssuance, purpose)
	}

	now := s.now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(lifetime))
	token.SetSubject(subject)
	token.SetJti(uuid.NewString())

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// Verify decrypts a v4.local token and returns its subject
func (s *PasetoService) Verify(tokenStr string) (string, error) {
	// Expiry is checked against the injected clock below
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return "", fmt.Errorf("%w: missing expiration", ErrInvalidToken)
	}
	if !s.now().Before(expiresAt) {
		return "", ErrTokenExpired
	}

	subject, err := token.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return subject, nil
}
