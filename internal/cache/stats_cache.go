package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"surveyflow/internal/model"

	"github.com/redis/go-redis/v9"
)

// StatsCache keeps the response funnel counters of each survey
type StatsCache interface {
	IncrStarted(ctx context.Context, tenantID, surveyID string) error
	IncrCompleted(ctx context.Context, tenantID, surveyID string) error
	// IncrAnswered counts an answer; picked also counts optionID for the question
	IncrAnswered(ctx context.Context, tenantID, surveyID, questionID, optionID string, picked bool) error
	IncrExit(ctx context.Context, tenantID, surveyID, questionID string) error

	Counters(ctx context.Context, tenantID, surveyID string) (*Counters, error)
	TopExits(ctx context.Context, tenantID, surveyID string, limit int) ([]model.ExitPoint, error)
	Reset(ctx context.Context, tenantID, surveyID string) error
}

// Counters is the decoded counter hash of a survey
type Counters struct {
	Started   int64
	Completed int64
	Answered  map[string]int64            // by question id
	Picked    map[string]map[string]int64 // by question id, then option id
}

type statsCache struct {
	client *redis.Client
}

// NewStatsCache creates a new stats cache. Counters never expire; Reset drops them.
func NewStatsCache(client *redis.Client) StatsCache {
	return &statsCache{client: client}
}

func countersKey(tenantID, surveyID string) string {
	return fmt.Sprintf("stats:%s:%s", tenantID, surveyID)
}

func exitsKey(tenantID, surveyID string) string {
	return fmt.Sprintf("stats:%s:%s:exits", tenantID, surveyID)
}

const (
	fieldStarted   = "started"
	fieldCompleted = "completed"
	answeredPrefix = "answered:"
	pickedPrefix   = "picked:"
	// separates question and option ids, which are free-form
	pickSep = "\x1f"
)

func (c *statsCache) IncrStarted(ctx context.Context, tenantID, surveyID string) error {
	return c.client.HIncrBy(ctx, countersKey(tenantID, surveyID), fieldStarted, 1).Err()
}

func (c *statsCache) IncrCompleted(ctx context.Context, tenantID, surveyID string) error {
	return c.client.HIncrBy(ctx, countersKey(tenantID, surveyID), fieldCompleted, 1).Err()
}

func (c *statsCache) IncrAnswered(ctx context.Context, tenantID, surveyID, questionID, optionID string, picked bool) error {
	key := countersKey(tenantID, surveyID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, answeredPrefix+questionID, 1)
		if picked {
			pipe.HIncrBy(ctx, key, pickedPrefix+questionID+pickSep+optionID, 1)
		}
		return nil
	})
	return err
}

func (c *statsCache) IncrExit(ctx context.Context, tenantID, surveyID, questionID string) error {
	return c.client.ZIncrBy(ctx, exitsKey(tenantID, surveyID), 1, questionID).Err()
}

func (c *statsCache) Counters(ctx context.Context, tenantID, surveyID string) (*Counters, error) {
	raw, err := c.client.HGetAll(ctx, countersKey(tenantID, surveyID)).Result()
	if err != nil {
		return nil, err
	}
	return parseCounters(raw), nil
}

func (c *statsCache) TopExits(ctx context.Context, tenantID, surveyID string, limit int) ([]model.ExitPoint, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, exitsKey(tenantID, surveyID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	exits := make([]model.ExitPoint, 0, len(results))
	for _, z := range results {
		member, _ := z.Member.(string)
		exits = append(exits, model.ExitPoint{QuestionID: member, Abandoned: int64(z.Score)})
	}
	return exits, nil
}

func (c *statsCache) Reset(ctx context.Context, tenantID, surveyID string) error {
	return c.client.Del(ctx, countersKey(tenantID, surveyID), exitsKey(tenantID, surveyID)).Err()
}

// parseCounters decodes the counter hash; malformed fields are skipped
func parseCounters(raw map[string]string) *Counters {
	out := &Counters{
		Answered: map[string]int64{},
		Picked:   map[string]map[string]int64{},
	}
	for field, value := range raw {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		switch {
		case field == fieldStarted:
			out.Started = n
		case field == fieldCompleted:
			out.Completed = n
		case strings.HasPrefix(field, answeredPrefix):
			out.Answered[strings.TrimPrefix(field, answeredPrefix)] = n
		case strings.HasPrefix(field, pickedPrefix):
			rest := strings.TrimPrefix(field, pickedPrefix)
			qid, opt, ok := strings.Cut(rest, pickSep)
			if !ok {
				continue
			}
			if out.Picked[qid] == nil {
				out.Picked[qid] = map[string]int64{}
			}
			out.Picked[qid][opt] = n
		}
	}
	return out
}
