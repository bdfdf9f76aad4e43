package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// SessionCache keeps per-session state in Redis: the active index pointer
// set when a document is processed, and revocation markers for logged-out
// sessions. Keys expire with the session's token lifetime, so state never
// outlives the session itself.
type SessionCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSessionCache(client *redisv9.Client, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionCache{client: client, ttl: ttl}
}

// ActivateIndex overwrites the session's active index pointer unconditionally.
func (c *SessionCache) ActivateIndex(ctx context.Context, sessionID, indexName string) error {
	if err := c.client.Set(ctx, c.indexKey(sessionID), indexName, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set active index failed: %w", err)
	}
	return nil
}

// ActiveIndex returns the session's pointer; the bool reports whether one
// has been set.
func (c *SessionCache) ActiveIndex(ctx context.Context, sessionID string) (string, bool, error) {
	name, err := c.client.Get(ctx, c.indexKey(sessionID)).Result()
	if err == redisv9.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get active index failed: %w", err)
	}
	return name, true, nil
}

func (c *SessionCache) ClearIndex(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.indexKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis clear active index failed: %w", err)
	}
	return nil
}

// Revoke marks the session as logged out. The marker outlives any token
// still carrying this session ID.
func (c *SessionCache) Revoke(ctx context.Context, sessionID string) error {
	if err := c.client.Set(ctx, c.revokedKey(sessionID), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set revocation marker failed: %w", err)
	}
	return nil
}

func (c *SessionCache) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.revokedKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revocation marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *SessionCache) indexKey(sessionID string) string {
	return fmt.Sprintf("session:active_index:%s", sessionID)
}

func (c *SessionCache) revokedKey(sessionID string) string {
	return fmt.Sprintf("session:revoked:%s", sessionID)
}
