// internal/middleware/jwt.go
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"gator-forum/internal/forum"
	"gator-forum/internal/models"
	"gator-forum/internal/utils"

	"github.com/google/uuid"
)

// TokenVerifier is what the gate needs from the credential service.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
	User(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Gate authenticates bearer tokens and enforces the admin role.
type Gate struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

func NewGate(verifier TokenVerifier, logger *slog.Logger) *Gate {
	return &Gate{verifier: verifier, logger: logger}
}

// Authenticate rejects the request with 401 unless it carries a valid bearer
// token for an existing user. On success the caller is stored in the context.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := BearerToken(r)
		if !ok {
			utils.WriteError(w, g.logger, utils.NewUnauthorizedError("no token provided"))
			return
		}

		caller, err := g.Resolve(r.Context(), tokenString)
		if err != nil {
			// Other failures are logged by WriteError.
			if utils.IsAuthError(err) {
				g.logger.Info("rejected request", "path", r.URL.Path, "err", err)
			}
			utils.WriteError(w, g.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetCallerInContext(r.Context(), caller)))
	})
}

// Resolve verifies a token and loads the caller it names. Tokens for users
// that no longer exist are treated as invalid.
func (g *Gate) Resolve(ctx context.Context, tokenString string) (forum.Actor, error) {
	userID, err := g.verifier.Verify(tokenString)
	if err != nil {
		g.logger.Debug("token rejected", "err", err)
		return forum.Actor{}, utils.NewUnauthorizedError("invalid token")
	}

	user, err := g.verifier.User(ctx, userID)
	if err != nil {
		if utils.IsErrorCode(err, utils.ErrUserNotFound) || utils.IsErrorCode(err, utils.ErrNotFound) {
			return forum.Actor{}, utils.NewUnauthorizedError("user no longer exists")
		}
		return forum.Actor{}, err
	}
	return forum.Actor{ID: user.ID, IsAdmin: user.IsAdmin}, nil
}

// RequireAdmin must run after Authenticate.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			utils.WriteError(w, g.logger, utils.NewUnauthorizedError("no token provided"))
			return
		}
		if !caller.IsAdmin {
			utils.WriteError(w, g.logger, utils.NewForbiddenError("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// Define a custom context key type to avoid collisions
type contextKey string

// CallerKey is the key used to store the authenticated caller in the context
const CallerKey contextKey = "caller"

// SetCallerInContext saves the caller in the request context
func SetCallerInContext(ctx context.Context, caller forum.Actor) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// CallerFromContext retrieves the caller from the context
func CallerFromContext(ctx context.Context) (forum.Actor, bool) {
	caller, ok := ctx.Value(CallerKey).(forum.Actor)
	return caller, ok
}

// GetUserIDFromContext retrieves the caller's user ID from the context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	caller, ok := CallerFromContext(ctx)
	return caller.ID, ok
}
