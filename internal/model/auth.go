package model

import "github.com/google/uuid"

// PrincipalKind distinguishes persisted accounts from anonymous callers.
type PrincipalKind int

const (
	PrincipalAnonymous PrincipalKind = iota
	PrincipalAccount
)

// Principal is the identity attached to a request by the auth middleware.
type Principal struct {
	Kind   PrincipalKind
	UserID uuid.UUID
	Email  string
}

// AnonymousPrincipal is the principal of unauthenticated requests.
var AnonymousPrincipal = Principal{Kind: PrincipalAnonymous}

func (p Principal) IsAccount() bool {
	return p.Kind == PrincipalAccount
}

// TokenClaims is what a verified bearer token carries.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
}

const TokenTypeBearer = "Bearer"

// Token API error codes (used in HTTP responses)
const (
	CodeTokenExpired   = "TOKEN_EXPIRED"
	CodeTokenMalformed = "TOKEN_MALFORMED"
	CodeTokenInvalid   = "TOKEN_INVALID"
)

var (
	ErrTokenExpired   = newError(KindUnauthorized, CodeTokenExpired, "Access token has expired")
	ErrTokenMalformed = newError(KindUnauthorized, CodeTokenMalformed, "Malformed authentication token")
	ErrTokenUnknown   = newError(KindUnauthorized, CodeTokenInvalid, "Invalid authentication token")
	ErrMissingToken   = newError(KindUnauthorized, "UNAUTHORIZED", "Missing authentication token")
)
