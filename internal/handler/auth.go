package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"syncactivity/internal/cache"
	"syncactivity/internal/httputil"
	"syncactivity/internal/model"
)

const (
	// LoginSessionName is the cookie carrying the id of the login in progress
	LoginSessionName = "syncactivity_login"

	loginAttemptKey = "attempt_id"
)

// AccountService is the part of the credential store the auth endpoints use.
type AccountService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.User, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID, email string) (string, error)
}

// IdentityBridge runs the provider login flow.
type IdentityBridge interface {
	BeginLogin() (*model.LoginAttempt, string)
	CompleteLogin(ctx context.Context, attempt *model.LoginAttempt, code, state string) (*model.ProviderTokens, error)
	LogoutURL() string
}

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	accounts   AccountService
	tokens     TokenIssuer
	identity   IdentityBridge
	attempts   cache.LoginAttemptStore
	sessions   sessions.Store
	attemptTTL time.Duration
}

// NewAuthHandler wires dependencies for authentication endpoints. identity may
// be nil when no provider is configured.
func NewAuthHandler(
	accounts AccountService,
	tokens TokenIssuer,
	identity IdentityBridge,
	attempts cache.LoginAttemptStore,
	store sessions.Store,
	attemptTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		tokens:     tokens,
		identity:   identity,
		attempts:   attempts,
		sessions:   store,
		attemptTTL: attemptTTL,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), &req)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	h.writeAuthResponse(w, r, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		httputil.WriteBadRequest(w, "Email is required")
		return
	}
	if req.Password == "" {
		httputil.WriteBadRequest(w, "Password is required")
		return
	}

	user, err := h.accounts.Login(r.Context(), &req)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	h.writeAuthResponse(w, r, http.StatusOK, user)
}

func (h *AuthHandler) writeAuthResponse(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, status, model.AuthResponse{
		AccessToken: token,
		TokenType:   model.TokenTypeBearer,
		User:        user,
	})
}

// BeginLogin handles GET /auth/login. The attempt's state and verifier stay
// server-side; the session cookie only carries the attempt id.
func (h *AuthHandler) BeginLogin(w http.ResponseWriter, r *http.Request) {
	if h.identity == nil {
		httputil.WriteDomainError(w, r, model.ErrProviderDisabled)
		return
	}

	attempt, loginURL := h.identity.BeginLogin()
	attemptID := uuid.NewString()

	if err := h.attempts.Save(r.Context(), attemptID, attempt, h.attemptTTL); err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	session := h.session(r)
	session.Values[loginAttemptKey] = attemptID
	if err := session.Save(r, w); err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"login_url": loginURL})
}

// Callback handles GET /auth/callback?code&state
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.identity == nil {
		httputil.WriteDomainError(w, r, model.ErrProviderDisabled)
		return
	}

	attempt, err := h.takeAttempt(w, r)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	q := r.URL.Query()
	tokens, err := h.identity.CompleteLogin(r.Context(), attempt, q.Get("code"), q.Get("state"))
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokens)
}

// Logout handles GET /auth/logout. It drops any login in progress and returns
// the provider logout URL when a provider is configured.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := h.takeAttempt(w, r); err != nil {
		slog.Warn("Failed to clear login attempt on logout", "error", err)
	}

	session := h.session(r)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.Warn("Failed to expire login session", "error", err)
	}

	if h.identity == nil {
		httputil.WriteMessage(w, http.StatusOK, "Logged out successfully")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"logout_url": h.identity.LogoutURL()})
}

// takeAttempt consumes the attempt referenced by the session cookie. It returns
// (nil, nil) when no login is in progress.
func (h *AuthHandler) takeAttempt(w http.ResponseWriter, r *http.Request) (*model.LoginAttempt, error) {
	session := h.session(r)
	attemptID, _ := session.Values[loginAttemptKey].(string)
	if attemptID == "" {
		return nil, nil
	}

	delete(session.Values, loginAttemptKey)
	if err := session.Save(r, w); err != nil {
		slog.Warn("Failed to update login session", "error", err)
	}

	return h.attempts.Take(r.Context(), attemptID)
}

// session returns the login session, starting a fresh one when the cookie is
// missing or cannot be decoded.
func (h *AuthHandler) session(r *http.Request) *sessions.Session {
	session, err := h.sessions.Get(r, LoginSessionName)
	if err != nil {
		slog.Debug("Discarding unreadable login session", "error", err)
	}
	if session == nil {
		session = sessions.NewSession(h.sessions, LoginSessionName)
	}
	if session.Options == nil {
		session.Options = &sessions.Options{Path: "/", HttpOnly: true}
	}
	return session
}
