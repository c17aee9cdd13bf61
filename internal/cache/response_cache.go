package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"surveyflow/internal/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache keeps resumable response snapshots between requests
type ResponseCache interface {
	Save(ctx context.Context, state *model.ResponseState) error
	Get(ctx context.Context, sessionID string) (*model.ResponseState, error)
	Delete(ctx context.Context, sessionID string) error
}

type responseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResponseCache creates a response cache whose entries expire after ttl of inactivity
func NewResponseCache(client *redis.Client, ttl time.Duration) ResponseCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &responseCache{
		client: client,
		ttl:    ttl,
	}
}

func responseKey(sessionID string) string {
	return fmt.Sprintf("response:%s", sessionID)
}

func (c *responseCache) Save(ctx context.Context, state *model.ResponseState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, responseKey(state.SessionID), data, c.ttl).Err()
}

// Get returns nil, nil when the session is unknown or expired
func (c *responseCache) Get(ctx context.Context, sessionID string) (*model.ResponseState, error) {
	data, err := c.client.Get(ctx, responseKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state model.ResponseState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("corrupt response snapshot %s: %w", sessionID, err)
	}
	return &state, nil
}

func (c *responseCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, responseKey(sessionID)).Err()
}
