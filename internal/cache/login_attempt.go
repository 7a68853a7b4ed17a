package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"syncactivity/internal/model"
)

// LoginAttemptPrefix is the key prefix for in-flight provider logins.
const LoginAttemptPrefix = "login:attempt:"

// LoginAttemptStore keeps the state and code verifier of a provider login
// between the redirect and the callback. Attempts are single use.
type LoginAttemptStore interface {
	// Save stores attempt under id until ttl elapses.
	Save(ctx context.Context, id string, attempt *model.LoginAttempt, ttl time.Duration) error

	// Take returns and removes the attempt. It returns (nil, nil) when the
	// attempt is unknown or expired.
	Take(ctx context.Context, id string) (*model.LoginAttempt, error)
}

// RedisLoginAttemptStore implements LoginAttemptStore with string keys and
// GETDEL so a callback cannot be replayed.
type RedisLoginAttemptStore struct {
	client *redis.Client
}

// NewLoginAttemptStore creates a LoginAttemptStore backed by Redis.
func NewLoginAttemptStore(client *redis.Client) LoginAttemptStore {
	return &RedisLoginAttemptStore{client: client}
}

func loginAttemptKey(id string) string {
	return LoginAttemptPrefix + id
}

func (s *RedisLoginAttemptStore) Save(ctx context.Context, id string, attempt *model.LoginAttempt, ttl time.Duration) error {
	payload, err := encodeLoginAttempt(attempt)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, loginAttemptKey(id), payload, ttl).Err(); err != nil {
		slog.Error("Failed to save login attempt", "error", err)
		return fmt.Errorf("save login attempt: %w", err)
	}
	return nil
}

func (s *RedisLoginAttemptStore) Take(ctx context.Context, id string) (*model.LoginAttempt, error) {
	payload, err := s.client.GetDel(ctx, loginAttemptKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		slog.Error("Failed to load login attempt", "error", err)
		return nil, fmt.Errorf("take login attempt: %w", err)
	}
	return decodeLoginAttempt(payload)
}

func encodeLoginAttempt(attempt *model.LoginAttempt) (string, error) {
	b, err := json.Marshal(attempt)
	if err != nil {
		return "", fmt.Errorf("encode login attempt: %w", err)
	}
	return string(b), nil
}

func decodeLoginAttempt(payload string) (*model.LoginAttempt, error) {
	var attempt model.LoginAttempt
	if err := json.Unmarshal([]byte(payload), &attempt); err != nil {
		return nil, fmt.Errorf("decode login attempt: %w", err)
	}
	return &attempt, nil
}
