package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/users-api/internal/config"
)

var testPasetoKey = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var testDurations = Durations{
	Login:         15 * time.Minute,
	PasswordReset: 5 * time.Minute,
}

// tamper flips one character in the middle of the token body
func tamper(token string) string {
	b := []byte(token)
	for i := len(b) / 2; i < len(b); i++ {
		if b[i] == '.' {
			continue
		}
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		break
	}
	return string(b)
}

func tokenServices(t *testing.T, clock *fakeClock) map[string]TokenService {
	t.Helper()

	hs256, err := NewJWTService("HS256", []byte("test-secret"), testDurations, WithClock(clock.Now))
	require.NoError(t, err)
	hs512, err := NewJWTService("HS512", []byte("test-secret"), testDurations, WithClock(clock.Now))
	require.NoError(t, err)
	pst, err := NewPasetoService(testPasetoKey, testDurations, WithClock(clock.Now))
	require.NoError(t, err)

	return map[string]TokenService{"HS256": hs256, "HS512": hs512, "v4.local": pst}
}

func TestDurations_For(t *testing.T) {
	assert.Equal(t, 15*time.Minute, testDurations.For(PurposeLogin))
	assert.Equal(t, 5*time.Minute, testDurations.For(PurposePasswordReset))
	assert.Equal(t, FallbackTokenDuration, testDurations.For(PurposeRegistration))
	assert.Equal(t, 30*time.Minute, testDurations.For(Purpose("SOMETHING_ELSE")))
}

func TestTokenService_RoundTrip(t *testing.T) {
	clock := newFakeClock()

	for name, svc := range tokenServices(t, clock) {
		t.Run(name, func(t *testing.T) {
			for _, purpose := range []Purpose{PurposeLogin, PurposeRegistration, PurposePasswordReset} {
				token, err := svc.Issue("a@x.com", purpose)
				require.NoError(t, err)

				subject, err := svc.Verify(token)
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", subject)
			}
		})
	}
}

func TestTokenService_ExpiresAfterLifetime(t *testing.T) {
	for _, purpose := range []Purpose{PurposeLogin, PurposeRegistration, PurposePasswordReset} {
		clock := newFakeClock()

		for name, svc := range tokenServices(t, clock) {
			t.Run(name+"/"+string(purpose), func(t *testing.T) {
				start := clock.now
				defer func() { clock.now = start }()

				token, err := svc.Issue("a@x.com", purpose)
				require.NoError(t, err)

				lifetime := svc.Lifetime(purpose)

				clock.Advance(lifetime - time.Second)
				_, err = svc.Verify(token)
				require.NoError(t, err)

				clock.Advance(2 * time.Second)
				_, err = svc.Verify(token)
				assert.ErrorIs(t, err, ErrTokenExpired)
				assert.ErrorIs(t, err, ErrInvalidToken)
			})
		}
	}
}

func TestTokenService_RejectsForgedTokens(t *testing.T) {
	clock := newFakeClock()

	otherJWT, err := NewJWTService("HS256", []byte("other-secret"), testDurations, WithClock(clock.Now))
	require.NoError(t, err)
	otherPaseto, err := NewPasetoService([]byte("fedcba9876543210fedcba9876543210"), testDurations, WithClock(clock.Now))
	require.NoError(t, err)

	foreign := map[string]TokenService{"HS256": otherJWT, "HS512": otherJWT, "v4.local": otherPaseto}

	for name, svc := range tokenServices(t, clock) {
		t.Run(name, func(t *testing.T) {
			token, err := svc.Issue("a@x.com", PurposeLogin)
			require.NoError(t, err)

			forged, err := foreign[name].Issue("a@x.com", PurposeLogin)
			require.NoError(t, err)

			for _, bad := range []string{"", "garbage", tamper(token), forged} {
				_, err := svc.Verify(bad)
				assert.ErrorIs(t, err, ErrInvalidToken)
				assert.False(t, errors.Is(err, ErrTokenExpired))
			}
		})
	}
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	clock := newFakeClock()
	hs256, err := NewJWTService("HS256", []byte("test-secret"), testDurations, WithClock(clock.Now))
	require.NoError(t, err)
	hs512, err := NewJWTService("HS512", []byte("test-secret"), testDurations, WithClock(clock.Now))
	require.NoError(t, err)

	token, err := hs512.Issue("a@x.com", PurposeLogin)
	require.NoError(t, err)

	_, err = hs256.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "a@x.com",
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = hs256.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RequiresSubjectAndExpiry(t *testing.T) {
	clock := newFakeClock()
	secret := []byte("test-secret")
	svc, err := NewJWTService("HS256", secret, testDurations, WithClock(clock.Now))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = svc.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "a@x.com",
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = svc.Verify(noExpiry)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_IssueWithoutSecret(t *testing.T) {
	svc, err := NewJWTService("HS256", nil, testDurations)
	require.NoError(t, err)

	_, err = svc.Issue("a@x.com", PurposeLogin)
	assert.ErrorIs(t, err, ErrTokenIssuance)
}

func TestJWTService_UnsupportedAlgorithm(t *testing.T) {
	for _, alg := range []string{"", "RS256", "none", "ES256"} {
		_, err := NewJWTService(alg, []byte("test-secret"), testDurations)
		assert.Error(t, err, alg)
	}
}

func TestNewPasetoService_KeyLength(t *testing.T) {
	_, err := NewPasetoService([]byte("short"), testDurations)
	assert.Error(t, err)
}

func TestNewTokenService(t *testing.T) {
	cfg := config.AuthConfig{
		Algorithm:                  "HS384",
		SecretKey:                  []byte("test-secret"),
		LoginTokenDuration:         time.Minute,
		PasswordResetTokenDuration: 2 * time.Minute,
	}

	svc, err := NewTokenService(cfg)
	require.NoError(t, err)
	assert.IsType(t, &JWTService{}, svc)
	assert.Equal(t, 2*time.Minute, svc.Lifetime(PurposePasswordReset))

	cfg.Algorithm = AlgorithmPasetoV4Local
	cfg.SecretKey = testPasetoKey
	svc, err = NewTokenService(cfg)
	require.NoError(t, err)
	assert.IsType(t, &PasetoService{}, svc)
}
