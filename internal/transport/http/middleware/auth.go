package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"syncactivity/internal/httputil"
	"syncactivity/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// PrincipalKey is the context key for the caller's principal
const PrincipalKey contextKey = "principal"

// TokenVerifier decodes bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*model.TokenClaims, error)
}

// UserResolver maps a token subject to a live account.
type UserResolver interface {
	ResolveUser(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// AuthMiddleware requires a valid bearer token whose subject still exists and
// attaches the account principal to the request context.
// Checks the Authorization header first, then falls back to the access_token cookie.
func AuthMiddleware(tokens TokenVerifier, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				httputil.WriteDomainError(w, r, model.ErrMissingToken)
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil {
				httputil.WriteDomainError(w, r, err)
				return
			}

			user, err := users.ResolveUser(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, model.ErrUserNotFound) {
					httputil.WriteUnauthorized(w, "User no longer exists")
					return
				}
				httputil.WriteDomainError(w, r, err)
				return
			}

			ctx := WithPrincipal(r.Context(), model.Principal{
				Kind:   model.PrincipalAccount,
				UserID: user.ID,
				Email:  user.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext returns the caller's principal, anonymous when no
// authenticated account is attached.
func PrincipalFromContext(ctx context.Context) model.Principal {
	if p, ok := ctx.Value(PrincipalKey).(model.Principal); ok {
		return p
	}
	return model.AnonymousPrincipal
}

// GetUserIDFromContext extracts the authenticated user's ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p := PrincipalFromContext(ctx)
	if !p.IsAccount() {
		return uuid.Nil, false
	}
	return p.UserID, true
}
