package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/postbox/postbox/internal/model"
)

// sessionPrefix is the Redis key prefix for session records.
const sessionPrefix = "session:"

// ErrSessionNotFound is returned when a session record is absent or expired.
var ErrSessionNotFound = errors.New("session not found")

// cachedSession is the stored form of a session record.
type cachedSession struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SaveSession stores a session record that expires with the session.
func (c *Cache) SaveSession(ctx context.Context, session *model.Session) error {
	ttl := session.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return fmt.Errorf("save session: already expired")
	}

	data, err := json.Marshal(cachedSession{
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := c.client.Set(ctx, sessionPrefix+session.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession loads a live session record.
func (c *Cache) GetSession(ctx context.Context, id string) (*model.Session, error) {
	data, err := c.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var cached cachedSession
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted entry - treat as absent
		return nil, ErrSessionNotFound
	}

	session := &model.Session{
		ID:        id,
		UserID:    cached.UserID,
		CreatedAt: cached.CreatedAt,
		ExpiresAt: cached.ExpiresAt,
	}
	if session.IsExpired(c.now()) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession removes a session record.
// Reports whether a live record existed.
func (c *Cache) DeleteSession(ctx context.Context, id string) (bool, error) {
	n, err := c.client.Del(ctx, sessionPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return n > 0, nil
}
