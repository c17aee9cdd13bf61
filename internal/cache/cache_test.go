package cache

import (
	"context"
	"os"
	"surveyflow/internal/model"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to REDIS_TEST_ADDR; tests are skipped without one
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "response:abc", responseKey("abc"))
	assert.Equal(t, "submitted:acme:abc", submittedKey("acme", "abc"))
	assert.Equal(t, "stats:acme:s1", countersKey("acme", "s1"))
	assert.Equal(t, "stats:acme:s1:exits", exitsKey("acme", "s1"))
}

func TestParseCounters(t *testing.T) {
	got := parseCounters(map[string]string{
		"started":                   "7",
		"completed":                 "3",
		"answered:q1":               "5",
		"picked:q1" + pickSep + "a": "4",
		"picked:route" + pickSep:    "2",
		"picked:broken":             "9",
		"answered:q2":               "NaN",
	})

	assert.Equal(t, int64(7), got.Started)
	assert.Equal(t, int64(3), got.Completed)
	assert.Equal(t, map[string]int64{"q1": 5}, got.Answered)
	assert.Equal(t, map[string]map[string]int64{
		"q1":    {"a": 4},
		"route": {"": 2},
	}, got.Picked)
}

func TestResponseCache_RoundTrip(t *testing.T) {
	// Arrange
	client := testClient(t)
	c := NewResponseCache(client, time.Minute)
	ctx := context.Background()
	state := &model.ResponseState{
		SessionID:         uuid.NewString(),
		TenantID:          "acme",
		SurveyID:          "s1",
		Step:              model.StepQuestion,
		CurrentQuestionID: "q2",
		Answers:           []model.SurveyAnswer{{QuestionID: "route", Answer: "a"}, {QuestionID: "q1", Answer: "x"}},
		Pending:           &model.Submission{SessionID: "p", Answers: []model.SurveyAnswer{}},
	}

	// Act
	require.NoError(t, c.Save(ctx, state))
	got, err := c.Get(ctx, state.SessionID)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, state.Answers, got.Answers)
	assert.Equal(t, state.CurrentQuestionID, got.CurrentQuestionID)
	assert.Equal(t, state.Pending.SessionID, got.Pending.SessionID)

	require.NoError(t, c.Delete(ctx, state.SessionID))
	gone, err := c.Get(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSubmissionCache_MarkOnce(t *testing.T) {
	client := testClient(t)
	c := NewSubmissionCache(client)
	ctx := context.Background()
	session := uuid.NewString()
	t.Cleanup(func() { _ = c.Unmark(ctx, "acme", session) })

	first, err := c.MarkSubmitted(ctx, "acme", session)
	require.NoError(t, err)
	second, err := c.MarkSubmitted(ctx, "acme", session)
	require.NoError(t, err)
	seen, err := c.IsSubmitted(ctx, "acme", session)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, seen)
}

func TestStatsCache_Funnel(t *testing.T) {
	client := testClient(t)
	c := NewStatsCache(client)
	ctx := context.Background()
	survey := uuid.NewString()
	t.Cleanup(func() { _ = c.Reset(ctx, "acme", survey) })

	require.NoError(t, c.IncrStarted(ctx, "acme", survey))
	require.NoError(t, c.IncrStarted(ctx, "acme", survey))
	require.NoError(t, c.IncrAnswered(ctx, "acme", survey, "route", "", true))
	require.NoError(t, c.IncrAnswered(ctx, "acme", survey, "q1", "", false))
	require.NoError(t, c.IncrCompleted(ctx, "acme", survey))
	require.NoError(t, c.IncrExit(ctx, "acme", survey, "q1"))

	counters, err := c.Counters(ctx, "acme", survey)
	require.NoError(t, err)
	exits, err := c.TopExits(ctx, "acme", survey, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(2), counters.Started)
	assert.Equal(t, int64(1), counters.Completed)
	assert.Equal(t, int64(1), counters.Answered["q1"])
	assert.Equal(t, int64(1), counters.Picked["route"][""])
	assert.Equal(t, []model.ExitPoint{{QuestionID: "q1", Abandoned: 1}}, exits)
}
