package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"syncactivity/internal/config"
	"syncactivity/internal/model"
)

const providerTimeout = 10 * time.Second

// IdentityBridge delegates login to an external OAuth provider using the
// authorization code flow with PKCE, and creates provider accounts through its
// management API.
type IdentityBridge struct {
	oauth           *oauth2.Config
	mgmtClient      *http.Client
	baseURL         string
	clientID        string
	connection      string
	logoutReturnURL string
	httpClient      *http.Client
	breaker         *gobreaker.CircuitBreaker
}

func NewIdentityBridge(cfg config.IdentityConfig) *IdentityBridge {
	base := providerBaseURL(cfg.Domain)

	mgmtID, mgmtSecret := cfg.MgmtClientID, cfg.MgmtClientSecret
	if mgmtID == "" {
		mgmtID, mgmtSecret = cfg.ClientID, cfg.ClientSecret
	}

	httpClient := &http.Client{Timeout: providerTimeout}
	mgmt := &clientcredentials.Config{
		ClientID:       mgmtID,
		ClientSecret:   mgmtSecret,
		TokenURL:       base + "/oauth/token",
		EndpointParams: url.Values{"audience": {base + "/api/v2/"}},
		AuthStyle:      oauth2.AuthStyleInParams,
	}

	return &IdentityBridge{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/authorize",
				TokenURL:  base + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		// The management client caches its token until expiry.
		mgmtClient:      mgmt.Client(context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)),
		baseURL:         base,
		clientID:        cfg.ClientID,
		connection:      cfg.Connection,
		logoutReturnURL: cfg.LogoutReturnURL,
		httpClient:      httpClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "identity-provider",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: providerHealthy,
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// providerBaseURL accepts a bare domain or a full origin.
func providerBaseURL(domain string) string {
	domain = strings.TrimSuffix(domain, "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}

func (b *IdentityBridge) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
}

// BeginLogin creates a fresh state and code verifier and the authorization URL
// that carries the matching S256 challenge.
func (b *IdentityBridge) BeginLogin() (*model.LoginAttempt, string) {
	attempt := &model.LoginAttempt{
		State:        rand.Text(),
		CodeVerifier: oauth2.GenerateVerifier(),
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(attempt.CodeVerifier),
		oauth2.SetAuthURLParam("response_mode", "query"),
	}
	if b.connection != "" {
		opts = append(opts, oauth2.SetAuthURLParam("connection", b.connection))
	}

	return attempt, b.oauth.AuthCodeURL(attempt.State, opts...)
}

// CompleteLogin checks the callback against the stored attempt and exchanges
// the code for provider tokens.
func (b *IdentityBridge) CompleteLogin(ctx context.Context, attempt *model.LoginAttempt, code, state string) (*model.ProviderTokens, error) {
	if code == "" {
		return nil, model.ErrAuthorizationCodeMissing
	}
	if attempt == nil {
		return nil, model.ErrLoginAttemptNotFound
	}
	if state == "" || state != attempt.State {
		return nil, model.ErrStateMismatch
	}

	token, err := b.oauth.Exchange(b.withClient(ctx), code, oauth2.VerifierOption(attempt.CodeVerifier))
	if err != nil {
		slog.Warn("Authorization code exchange failed", "error", err)
		return nil, fmt.Errorf("%w: %v", model.ErrProviderUnavailable, err)
	}

	tokens := &model.ProviderTokens{
		AccessToken: token.AccessToken,
		TokenType:   token.Type(),
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		tokens.IDToken = idToken
	}
	return tokens, nil
}

// LogoutURL is the provider endpoint that ends the provider session and
// returns the browser to the configured page.
func (b *IdentityBridge) LogoutURL() string {
	q := url.Values{}
	q.Set("returnTo", b.logoutReturnURL)
	q.Set("client_id", b.clientID)
	return b.baseURL + "/v2/logout?" + q.Encode()
}

type createProviderUserRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Connection string `json:"connection"`
	Username   string `json:"username,omitempty"`
}

type createProviderUserResponse struct {
	UserID string `json:"user_id"`
}

// providerStatusError is a non-2xx reply from the management API.
type providerStatusError struct {
	Status int
	Body   string
}

func (e *providerStatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}

func (e *providerStatusError) Unwrap() error {
	return model.ErrProviderUnavailable
}

// providerHealthy tells the breaker which outcomes count against the
// provider. Rejections of the caller's input (4xx) leave it closed.
func providerHealthy(err error) bool {
	if err == nil {
		return true
	}
	var statusErr *providerStatusError
	return errors.As(err, &statusErr) && statusErr.Status < http.StatusInternalServerError
}

// CreateUser creates the account in the provider's user store and returns its
// id. Calls go through a circuit breaker so an unreachable provider fails fast.
func (b *IdentityBridge) CreateUser(ctx context.Context, email, password, username string) (string, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.createUser(ctx, email, password, username)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", model.ErrProviderUnavailable, err)
		}
		return "", err
	}
	return result.(string), nil
}

func (b *IdentityBridge) createUser(ctx context.Context, email, password, username string) (string, error) {
	body, err := json.Marshal(createProviderUserRequest{
		Email:      email,
		Password:   password,
		Connection: b.connection,
		Username:   username,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode provider user: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/v2/users", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.mgmtClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &providerStatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var created createProviderUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("%w: invalid response: %v", model.ErrProviderUnavailable, err)
	}
	if created.UserID == "" {
		return "", fmt.Errorf("%w: response without user_id", model.ErrProviderUnavailable)
	}
	return created.UserID, nil
}
