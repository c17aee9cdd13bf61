package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmissionCache remembers which sessions already delivered a submission so
// retries and replays short-circuit before touching the database
type SubmissionCache interface {
	// MarkSubmitted returns false when the session was already marked
	MarkSubmitted(ctx context.Context, tenantID, sessionID string) (bool, error)
	IsSubmitted(ctx context.Context, tenantID, sessionID string) (bool, error)
	// Unmark drops a marker whose write did not make it to storage
	Unmark(ctx context.Context, tenantID, sessionID string) error
}

type submissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmissionCache creates a marker cache; markers live for a day
func NewSubmissionCache(client *redis.Client) SubmissionCache {
	return &submissionCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func submittedKey(tenantID, sessionID string) string {
	return fmt.Sprintf("submitted:%s:%s", tenantID, sessionID)
}

func (c *submissionCache) MarkSubmitted(ctx context.Context, tenantID, sessionID string) (bool, error) {
	return c.client.SetNX(ctx, submittedKey(tenantID, sessionID), time.Now().UTC().Unix(), c.ttl).Result()
}

func (c *submissionCache) IsSubmitted(ctx context.Context, tenantID, sessionID string) (bool, error) {
	n, err := c.client.Exists(ctx, submittedKey(tenantID, sessionID)).Result()
	return n > 0, err
}

func (c *submissionCache) Unmark(ctx context.Context, tenantID, sessionID string) error {
	return c.client.Del(ctx, submittedKey(tenantID, sessionID)).Err()
}
