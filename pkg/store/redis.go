package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis backend
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store backed by the given Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping verifies the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// SetLastActive records the session's last activity time
func (s *RedisStore) SetLastActive(ctx context.Context, sessionID string, t time.Time) error {
	value := strconv.FormatFloat(float64(t.UnixNano())/float64(time.Second), 'f', -1, 64)
	if err := s.client.Set(ctx, LastActivePrefix+sessionID, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set last active for %s: %w", sessionID, err)
	}
	return nil
}

// LastActive returns the session's last activity time
func (s *RedisStore) LastActive(ctx context.Context, sessionID string) (time.Time, bool, error) {
	value, err := s.client.Get(ctx, LastActivePrefix+sessionID).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last active for %s: %w", sessionID, err)
	}

	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed last active value for %s: %w", sessionID, err)
	}

	return time.Unix(0, int64(seconds*float64(time.Second))), true, nil
}

// SetTranscript replaces the session's serialized transcript
func (s *RedisStore) SetTranscript(ctx context.Context, sessionID string, data []byte) error {
	if err := s.client.Set(ctx, MessagesPrefix+sessionID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set transcript for %s: %w", sessionID, err)
	}
	return nil
}

// Transcript returns the session's serialized transcript
func (s *RedisStore) Transcript(ctx context.Context, sessionID string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, MessagesPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get transcript for %s: %w", sessionID, err)
	}
	return data, true, nil
}

// DeleteSession removes all durable keys for the session
func (s *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	keys := []string{LastActivePrefix + sessionID, MessagesPrefix + sessionID}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys for %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the underlying Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
