package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/messagely/messagely/internal/model"
)

// ErrSessionNotFound is returned when no live session record exists.
var ErrSessionNotFound = errors.New("session not found")

// sessionRecord is the JSON form of a session stored in Redis.
type sessionRecord struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateSession stores a session until its expiry.
func (c *Cache) CreateSession(ctx context.Context, session *model.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}

	data, err := json.Marshal(sessionRecord{
		Username:  session.Username,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return c.client.Set(ctx, c.sessionKey(session.ID), data, ttl).Err()
}

// GetSession loads a session by id.
// A missing, expired or corrupted record is ErrSessionNotFound.
func (c *Cache) GetSession(ctx context.Context, id string) (*model.Session, error) {
	data, err := c.client.Get(ctx, c.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	session, err := decodeSession(id, data)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired(time.Now()) {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// DeleteSession revokes a session. Deleting an unknown id is not an error.
func (c *Cache) DeleteSession(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.sessionKey(id)).Err()
}

func decodeSession(id string, data []byte) (*model.Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Username == "" {
		return nil, errors.New("session record without username")
	}
	return &model.Session{
		ID:        id,
		Username:  rec.Username,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}
