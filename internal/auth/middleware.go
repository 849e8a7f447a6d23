package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/redmonkez12/users-api/internal/httputil"
	"github.com/redmonkez12/users-api/internal/logging"
	"github.com/redmonkez12/users-api/internal/user"
)

var ErrUnauthorized = errors.New("could not validate credentials")

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// Resolver turns a bearer token into the user it was issued to.
type Resolver struct {
	tokens TokenService
	users  UserFinder
}

func NewResolver(tokens TokenService, users UserFinder) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve verifies token and loads its subject. Any token problem or a
// subject without a user is ErrUnauthorized; store failures are returned as is.
func (r *Resolver) Resolve(ctx context.Context, token string) (*user.User, error) {
	subject, err := r.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	u, err := r.users.FindByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("%w: no user for token subject", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	return u, nil
}

// RequireUser is a middleware that admits only requests carrying a valid
// bearer token and stores the resolved user in the request context.
func (r *Resolver) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logger := logging.GetLoggerFromContext(req.Context())

		token, ok := bearerToken(req)
		if !ok {
			respondUnauthorized(w)
			return
		}

		u, err := r.Resolve(req.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				logger.Debug("bearer token rejected", "error", err)
				respondUnauthorized(w)
				return
			}
			logger.Error("failed to resolve current user", "error", err)
			httputil.RespondErrorWithCode(w, "Internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(req.Context(), UserContextKey, u)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// UserFromContext returns the user stored by RequireUser.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(UserContextKey).(*user.User)
	return u, ok && u != nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	httputil.RespondErrorWithCode(w, "Could not validate credentials", httputil.CodeUnauthorized, http.StatusUnauthorized)
}
