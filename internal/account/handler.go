package account

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/users-api/internal/auth"
	"github.com/redmonkez12/users-api/internal/httputil"
	"github.com/redmonkez12/users-api/internal/logging"
	"github.com/redmonkez12/users-api/internal/ratelimit"
	"github.com/redmonkez12/users-api/internal/user"
)

// RateLimiter throttles the public write endpoints.
type RateLimiter interface {
	AllowIP(ctx context.Context, ip, purpose string) (*ratelimit.Result, error)
	AcquireEmailCooldown(ctx context.Context, email string) (bool, error)
}

// Handler contains HTTP handlers for the user endpoints
type Handler struct {
	service     *Service
	rateLimiter RateLimiter
}

func NewHandler(service *Service, rateLimiter RateLimiter) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
	}
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new user account.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body NewUserRequest true "New user"
// @Success      201 {object} TextResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      422 {object} httputil.ErrorResponse "Validation error"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Header       429 {integer} Retry-After "Seconds until the rate limit resets"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/v1/users/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowIP(w, r, "register") {
		return
	}

	var req NewUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrPersistence) {
			logger.Error("registration failed: internal error", "error", err)
			respondError(w, "Could not create new user. Please try again or contact support.", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}
		respondServiceError(w, r, "registration", err)
		return
	}

	respondJSON(w, resp, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Exchange email and password for a bearer token. Accepts JSON or the OAuth2 password form (username, password).
// @Tags         users
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} LoginResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Incorrect email or password"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Header       429 {integer} Retry-After "Seconds until the rate limit resets"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/v1/users/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowIP(w, r, "login") {
		return
	}

	var req LoginRequest
	if isForm(r) {
		// OAuth2 password grant form
		req.Email = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	} else if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, "login", err)
		return
	}

	logger.Info("user logged in", "email", req.Email)

	respondJSON(w, resp, http.StatusOK)
}

// Me returns the authenticated user
// @Summary      Current user
// @Description  Return the user identified by the bearer token
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} Info
// @Failure      401 {object} httputil.ErrorResponse "Could not validate credentials"
// @Router       /api/v1/users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, "Could not validate credentials", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return
	}

	respondJSON(w, NewInfo(u), http.StatusOK)
}

// Update changes a single user field
// @Summary      Update a user field
// @Description  Set one of email, name, dob or description. Without user_id the caller is updated.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateUserRequest true "Field change"
// @Success      200 {object} TextResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Could not validate credentials"
// @Failure      404 {object} httputil.ErrorResponse "User does not exist"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      422 {object} httputil.ErrorResponse "Validation error"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/v1/users/update [patch]
// @Router       /api/v1/users/update [post]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	caller, _ := auth.UserFromContext(r.Context())

	resp, err := h.service.Update(r.Context(), caller, req)
	if err != nil {
		respondServiceError(w, r, "update", err)
		return
	}

	respondJSON(w, resp, http.StatusOK)
}

// Remove deletes a user
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200 {object} TextResponse
// @Failure      401 {object} httputil.ErrorResponse "Could not validate credentials"
// @Failure      404 {object} httputil.ErrorResponse "User does not exist"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/v1/users/{id} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Remove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "remove", err)
		return
	}

	respondJSON(w, resp, http.StatusOK)
}

// Get returns one user
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} Info
// @Failure      404 {object} httputil.ErrorResponse "User does not exist"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/v1/users/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "get", err)
		return
	}

	respondJSON(w, info, http.StatusOK)
}

// List returns a page of users
// @Summary      List users
// @Description  Users ordered by creation time
// @Tags         users
// @Produce      json
// @Param        start query int false "Offset" default(0)
// @Param        limit query int false "Page size" default(10) maximum(100)
// @Success      200 {object} Page
// @Failure      422 {object} httputil.ErrorResponse "Validation error"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/v1/users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := ListQuery{Start: 0, Limit: DefaultPageLimit}
	fields := map[string]string{}

	if v := r.URL.Query().Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["start"] = "must be an integer"
		}
		q.Start = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["limit"] = "must be an integer"
		}
		q.Limit = n
	}
	if len(fields) > 0 {
		httputil.RespondValidationError(w, fields)
		return
	}

	page, err := h.service.List(r.Context(), q)
	if err != nil {
		respondServiceError(w, r, "list", err)
		return
	}

	respondJSON(w, page, http.StatusOK)
}

// RequestPasswordReset handles password reset requests
// @Summary      Request password reset
// @Description  Mail a password reset link. Always succeeds to prevent email enumeration.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body PasswordResetRequest true "Email address"
// @Success      200 {object} TextResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      422 {object} httputil.ErrorResponse "Validation error"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Header       429 {integer} Retry-After "Seconds until the rate limit resets"
// @Router       /api/v1/users/password-reset/request [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allowIP(w, r, "password-reset") {
		return
	}

	var req PasswordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acquired, err := h.rateLimiter.AcquireEmailCooldown(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err)
	} else if !acquired {
		logger.Warn("email on cooldown")
		respondError(w, "please wait before requesting another reset", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req); err != nil {
		respondServiceError(w, r, "password reset request", err)
		return
	}

	respondJSON(w, TextResponse{
		Detail: "If an account exists with that email, a password reset link has been sent.",
	}, http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Set a new password using a reset token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body PasswordResetConfirm true "Reset token and new password"
// @Success      200 {object} TextResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or token"
// @Failure      422 {object} httputil.ErrorResponse "Validation error"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/v1/users/password-reset/confirm [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirm
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		respondServiceError(w, r, "password reset", err)
		return
	}

	respondJSON(w, TextResponse{Detail: "Password reset successfully. You can now login with your new password."}, http.StatusOK)
}

// allowIP applies the per-IP limit for purpose. Limiter failures let the
// request through.
func (h *Handler) allowIP(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	res, err := h.rateLimiter.AllowIP(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err)
		return true
	}

	if res.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	}

	if !res.Allowed {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(res.ResetAt, time.Now())))
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return false
	}
	return true
}

// retryAfterSeconds rounds the wait until resetAt up to whole seconds, at least one.
func retryAfterSeconds(resetAt, now time.Time) int {
	wait := resetAt.Sub(now)
	if wait <= 0 {
		return 1
	}
	return int((wait + time.Second - 1) / time.Second)
}

// respondServiceError maps service errors onto status codes. Unexpected
// errors are logged with detail and answered generically.
func respondServiceError(w http.ResponseWriter, r *http.Request, action string, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		logger.Warn(action+" failed: validation error", "error", err)
		httputil.RespondValidationError(w, verr.Fields)
	case errors.Is(err, user.ErrDuplicateEmail):
		logger.Warn(action + " failed: email already exists")
		respondError(w, "User with this email already exists", httputil.CodeEmailExists, http.StatusConflict)
	case errors.Is(err, user.ErrNotFound):
		respondError(w, "User does not exist", httputil.CodeUserNotFound, http.StatusNotFound)
	case errors.Is(err, auth.ErrInvalidCredentials):
		logger.Warn(action + " failed: invalid credentials")
		respondError(w, "Incorrect email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
	case errors.Is(err, ErrInvalidResetToken):
		logger.Warn(action+" failed: invalid reset token", "error", err)
		respondError(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
	default:
		logger.Error(action+" failed: internal error", "error", err)
		respondError(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

// decodeJSON reads the request body into dst, answering 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.GetLoggerFromContext(r.Context()).Warn("invalid request body", "error", err)
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return false
	}
	return true
}

func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

// getClientIP extracts the client IP address from the request.
// chi's RealIP middleware has already applied X-Forwarded-For / X-Real-IP.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
