package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/dagbok-backend/internal/auth"
	"github.com/dagbok-backend/internal/model"
)

type contextKey string

const PrincipalContextKey contextKey = "principal"

// AccessTokenCookie is the cookie the token is preferentially read from;
// the Authorization header is the fallback carrier.
const AccessTokenCookie = "accessToken"

// UserFinder resolves the token subject to a stored user. A token whose
// subject no longer exists (deleted account) must not authenticate.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// AuthMiddleware is the per-request authentication gate: it extracts a
// bearer token, verifies it, resolves the principal, and attaches it to the
// request context. Failures are terminal 401s with distinct causes.
type AuthMiddleware struct {
	codec *auth.Codec
	users UserFinder
}

func NewAuthMiddleware(codec *auth.Codec, users UserFinder) *AuthMiddleware {
	return &AuthMiddleware{codec: codec, users: users}
}

var publicPaths = map[string]bool{
	"/user/login":    true,
	"/user/register": true,
	"/user/demo":     true,
	"/token/refresh": true,
	"/api/health":    true,
	"/api/status":    true,
}

func isPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	return strings.HasPrefix(path, "/api/public/") || strings.HasPrefix(path, "/swagger/")
}

// Authenticate wraps next with the token gate. Allow-listed paths pass
// through anonymously.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if isPublicPath(path) {
			next.ServeHTTP(w, r)
			return
		}

		token := extractTokenFromCookie(r)
		if token == "" {
			token = extractTokenFromHeader(r)
		}

		if token == "" {
			log.Printf("Missing token for path: %s", path)
			unauthorized(w, "Invalid or missing token")
			return
		}

		email, err := m.codec.Verify(token)
		if err != nil {
			switch err {
			case auth.ErrTokenExpired:
				log.Printf("Expired token for path: %s", path)
				unauthorized(w, "Token expired")
			default:
				log.Printf("Invalid token for path: %s", path)
				unauthorized(w, "Invalid token")
			}
			return
		}

		user, err := m.users.FindByEmail(r.Context(), email)
		if err != nil {
			log.Printf("User lookup failed for path %s: %v", path, err)
			unauthorized(w, "User not found for provided token")
			return
		}
		if user == nil {
			log.Printf("User not found for email: %s on path: %s", email, path)
			unauthorized(w, "User not found for provided token")
			return
		}

		principal := &model.Principal{UserID: user.ID, Email: user.Email}
		ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Peek verifies the request's token signature without a database lookup and
// returns a principal carrying only the token subject. It exists so the rate
// limiter, which runs before the auth gate, can key buckets by user instead
// of IP without paying for a user query on every request.
func (m *AuthMiddleware) Peek(r *http.Request) *model.Principal {
	token := extractTokenFromCookie(r)
	if token == "" {
		token = extractTokenFromHeader(r)
	}
	if token == "" {
		return nil
	}

	email, err := m.codec.Verify(token)
	if err != nil {
		return nil
	}
	return &model.Principal{Email: email}
}

// GetPrincipal extracts the authenticated identity from the context, nil if
// the request never passed the auth gate.
func GetPrincipal(ctx context.Context) *model.Principal {
	principal, ok := ctx.Value(PrincipalContextKey).(*model.Principal)
	if !ok {
		return nil
	}
	return principal
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "` + message + `"}`))
}

func extractTokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func extractTokenFromHeader(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
