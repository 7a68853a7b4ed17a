package model

// LoginAttempt is the per-attempt PKCE state of an external login. It lives
// server-side; the browser session only carries the attempt id.
type LoginAttempt struct {
	State        string `json:"state"`
	CodeVerifier string `json:"code_verifier"`
}

// ProviderTokens are the tokens returned by the identity provider on callback.
type ProviderTokens struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token,omitempty"`
	TokenType   string `json:"token_type"`
}

// LocalIdentityPrefix marks synthetic identity references created when the
// provider could not be reached at registration.
const LocalIdentityPrefix = "local_"

var (
	ErrAuthorizationCodeMissing = newError(KindValidation, "BAD_REQUEST", "Authorization code missing")
	ErrStateMismatch            = newError(KindForbidden, "INVALID_STATE", "Invalid state")
	ErrLoginAttemptNotFound     = newError(KindForbidden, "INVALID_STATE", "No login in progress")
	ErrProviderDisabled         = newError(KindUpstreamFailure, "PROVIDER_DISABLED", "Identity provider is not configured")
	ErrProviderUnavailable      = newError(KindUpstreamFailure, "UPSTREAM_FAILURE", "Identity provider request failed")
)
