package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"syncactivity/internal/config"
	"syncactivity/internal/model"
)

// accessClaims is the payload of an access token.
type accessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HMAC-signed access tokens. Verification only
// decodes; mapping the user id to a live account is UserService.ResolveUser.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewTokenService(cfg *config.Config, clock clockwork.Clock) (*TokenService, error) {
	method := jwt.GetSigningMethod(cfg.JWTAlgorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.JWTAlgorithm)
	}

	return &TokenService{
		secret: []byte(cfg.JWTSecret),
		method: method,
		ttl:    cfg.JWTTTL,
		clock:  clock,
	}, nil
}

// Issue signs a token for the user that expires after the configured TTL.
func (s *TokenService) Issue(userID uuid.UUID, email string) (string, error) {
	now := s.clock.Now()
	claims := accessClaims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. It fails with ErrTokenExpired past
// expiry, ErrTokenMalformed for a bad structure or signature, and
// ErrTokenUnknown for anything else.
func (s *TokenService) Verify(tokenString string) (*model.TokenClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, model.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, model.ErrTokenMalformed
		default:
			return nil, model.ErrTokenUnknown
		}
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, model.ErrTokenMalformed
	}

	return &model.TokenClaims{UserID: userID, Email: claims.Email}, nil
}
