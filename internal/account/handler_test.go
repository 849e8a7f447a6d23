package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/users-api/internal/httputil"
	"github.com/redmonkez12/users-api/internal/ratelimit"
)

type denyLimiter struct{}

func (denyLimiter) AllowIP(context.Context, string, string) (*ratelimit.Result, error) {
	return &ratelimit.Result{Limit: 10, ResetAt: time.Now().Add(90 * time.Second)}, nil
}

func (denyLimiter) AcquireEmailCooldown(context.Context, string) (bool, error) { return false, nil }

func newTestRouter(f *fixture, limiter RateLimiter) http.Handler {
	h := NewHandler(f.svc, limiter)

	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/password-reset/request", h.RequestPasswordReset)
	r.Post("/password-reset/confirm", h.ResetPassword)
	r.Get("/me", h.Me)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler_Register(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, ratelimit.Noop{})

	body := `{"email":"a@x.com","password":"qwerty123","name":"Ann","dob":"1990-01-01","description":"eng"}`

	rec := doRequest(t, router, http.MethodPost, "/register", "application/json", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp TextResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "User with email a@x.com created successfully", resp.Detail)

	rec = doRequest(t, router, http.MethodPost, "/register", "application/json", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httputil.CodeEmailExists, decodeError(t, rec).Code)
}

func TestHandler_RegisterBadInput(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, ratelimit.Noop{})

	rec := doRequest(t, router, http.MethodPost, "/register", "application/json", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeInvalidRequestBody, decodeError(t, rec).Code)

	rec = doRequest(t, router, http.MethodPost, "/register", "application/json", `{"email":"bad","password":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errBody := decodeError(t, rec)
	assert.Equal(t, httputil.CodeValidationFailed, errBody.Code)
	assert.Contains(t, errBody.Fields, "email")
	assert.Contains(t, errBody.Fields, "password")
	assert.Contains(t, errBody.Fields, "name")
}

func TestHandler_LoginJSONAndForm(t *testing.T) {
	f := newFixture(t)
	f.register(t, annRequest())
	router := newTestRouter(f, ratelimit.Noop{})

	rec := doRequest(t, router, http.MethodPost, "/login", "application/json", `{"email":"a@x.com","password":"qwerty123"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)

	form := url.Values{"username": {"a@x.com"}, "password": {"qwerty123"}}.Encode()
	rec = doRequest(t, router, http.MethodPost, "/login", "application/x-www-form-urlencoded", form)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_LoginFailureIsUniform(t *testing.T) {
	f := newFixture(t)
	f.register(t, annRequest())
	router := newTestRouter(f, ratelimit.Noop{})

	wrongPassword := doRequest(t, router, http.MethodPost, "/login", "application/json", `{"email":"a@x.com","password":"nope-nope"}`)
	unknownEmail := doRequest(t, router, http.MethodPost, "/login", "application/json", `{"email":"b@x.com","password":"qwerty123"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Equal(t, "Incorrect email or password", decodeError(t, wrongPassword).Error)
}

func TestHandler_RateLimited(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, denyLimiter{})

	for _, path := range []string{"/register", "/login", "/password-reset/request"} {
		rec := doRequest(t, router, http.MethodPost, path, "application/json", `{}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, path)
		assert.Equal(t, httputil.CodeTooManyRequests, decodeError(t, rec).Code)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
		require.NoError(t, err, path)
		assert.InDelta(t, 90, retryAfter, 2, path)
	}
}

func TestHandler_NoRateLimitHeadersWhenDisabled(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, ratelimit.Noop{})

	rec := doRequest(t, router, http.MethodPost, "/login", "application/json", `{"email":"a@x.com","password":"wrongpass"}`)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestRetryAfterSeconds(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, retryAfterSeconds(now.Add(-time.Minute), now))
	assert.Equal(t, 1, retryAfterSeconds(now.Add(200*time.Millisecond), now))
	assert.Equal(t, 2, retryAfterSeconds(now.Add(1500*time.Millisecond), now))
	assert.Equal(t, 60, retryAfterSeconds(now.Add(time.Minute), now))
}

func TestHandler_List(t *testing.T) {
	f := newFixture(t)
	f.register(t, annRequest())
	router := newTestRouter(f, ratelimit.Noop{})

	rec := doRequest(t, router, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 0, page.Start)
	assert.Equal(t, DefaultPageLimit, page.Limit)
	require.Len(t, page.Users, 1)
	assert.NotContains(t, rec.Body.String(), "password")

	for _, query := range []string{"?limit=abc", "?start=-1", "?limit=0", "?limit=101"} {
		rec := doRequest(t, router, http.MethodGet, "/"+query, "", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, query)
	}
}

func TestHandler_GetMissing(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, ratelimit.Noop{})

	rec := doRequest(t, router, http.MethodGet, "/does-not-exist", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "User does not exist", body.Error)
	assert.Equal(t, httputil.CodeUserNotFound, body.Code)
}

func TestHandler_MeWithoutUser(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f, ratelimit.Noop{})

	rec := doRequest(t, router, http.MethodGet, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_PasswordReset(t *testing.T) {
	f := newFixture(t)
	f.register(t, annRequest())
	router := newTestRouter(f, ratelimit.Noop{})

	for _, email := range []string{"a@x.com", "ghost@x.com"} {
		rec := doRequest(t, router, http.MethodPost, "/password-reset/request", "application/json", `{"email":"`+email+`"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	f.svc.Wait()

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)

	rec := doRequest(t, router, http.MethodPost, "/password-reset/confirm", "application/json", `{"token":"bogus","new_password":"new-password-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeInvalidResetToken, decodeError(t, rec).Code)

	rec = doRequest(t, router, http.MethodPost, "/password-reset/confirm", "application/json", `{"token":"`+sent[0].token+`","new_password":"new-password-1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
