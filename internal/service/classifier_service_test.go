package service

import (
	"context"
	"errors"
	"surveyflow/internal/config"
	"surveyflow/internal/metrics"
	"surveyflow/internal/model"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func routingRequest(visitor model.VisitorContext) model.ClassificationRequest {
	return model.ClassificationRequest{
		TenantID:       "acme",
		SurveyID:       "s1",
		QuestionID:     "route",
		Prompt:         "Which team fits the visitor?",
		VisitorContext: visitor,
		Candidates: []model.CandidateOption{
			{ID: "sales", Label: "Pricing and plans"},
			{ID: "support", Label: "Technical support docs"},
		},
	}
}

func breakerConfig(failures uint32) config.BreakerConfig {
	return config.BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		OpenTimeout:      time.Minute,
		FailureThreshold: failures,
	}
}

func TestMockClassify(t *testing.T) {
	tests := []struct {
		name    string
		visitor model.VisitorContext
		want    string
	}{
		{"label overlap", model.VisitorContext{"page": "/pricing"}, "sales"},
		{"best overlap wins", model.VisitorContext{"referrer": "support docs", "page": "/plans"}, "support"},
		{"no overlap", model.VisitorContext{"page": "/about"}, ""},
		{"no context", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mockClassify(routingRequest(tt.visitor)))
		})
	}
}

func TestParseDecision(t *testing.T) {
	candidates := routingRequest(nil).Candidates

	id, err := parseDecision(`{"optionId": "sales"}`, candidates)
	require.NoError(t, err)
	assert.Equal(t, "sales", id)

	id, err = parseDecision("```json\n{\"optionId\":\"support\"}\n```", candidates)
	require.NoError(t, err)
	assert.Equal(t, "support", id)

	id, err = parseDecision(`{"optionId": ""}`, candidates)
	require.NoError(t, err)
	assert.Empty(t, id)

	_, err = parseDecision(`{"optionId": "billing"}`, candidates)
	assert.Error(t, err)

	_, err = parseDecision("sales", candidates)
	assert.Error(t, err)
}

func TestClassifierService_Decides(t *testing.T) {
	// Arrange
	m := metrics.NewCollector("test")
	backend := &stubCompleter{replies: []string{`{"optionId":"support"}`}}
	svc := newClassifierService(config.ProviderOpenAI, backend, breakerConfig(3), m, zap.NewNop())

	// Act
	id, err := svc.Classify(context.Background(), routingRequest(model.VisitorContext{"page": "/docs"}))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "support", id)
	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], `id="sales"`)
	assert.Contains(t, backend.prompts[0], "page: /docs")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassifierCalls.WithLabelValues(config.ProviderOpenAI, outcomeDecided)))
}

func TestClassifierService_UnknownOptionIsNoDecision(t *testing.T) {
	backend := &stubCompleter{replies: []string{`{"optionId":"enterprise"}`}}
	svc := newClassifierService(config.ProviderGemini, backend, breakerConfig(3), nil, zap.NewNop())

	id, err := svc.Classify(context.Background(), routingRequest(nil))

	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestClassifierService_BreakerOpensAfterFailures(t *testing.T) {
	// Arrange
	m := metrics.NewCollector("test")
	boom := errors.New("upstream 503")
	backend := &stubCompleter{errs: []error{boom, boom, boom}}
	svc := newClassifierService(config.ProviderGemini, backend, breakerConfig(2), m, zap.NewNop())
	ctx := context.Background()

	// Act
	_, err1 := svc.Classify(ctx, routingRequest(nil))
	_, err2 := svc.Classify(ctx, routingRequest(nil))
	_, err3 := svc.Classify(ctx, routingRequest(nil))

	// Assert
	assert.ErrorIs(t, err1, boom)
	assert.ErrorIs(t, err2, boom)
	assert.Error(t, err3)
	assert.Len(t, backend.prompts, 2, "open breaker must not reach the provider")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClassifierCalls.WithLabelValues(config.ProviderGemini, outcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassifierCalls.WithLabelValues(config.ProviderGemini, outcomeBreakerOpen)))
}

func TestNewClassifierService_MockWithoutKey(t *testing.T) {
	cfg := &config.AIConfig{Provider: config.ProviderGemini, TimeoutMS: 1000}

	svc, err := NewClassifierService(context.Background(), cfg, nil, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, config.ProviderMock, svc.Provider())
	id, err := svc.Classify(context.Background(), routingRequest(model.VisitorContext{"utm": "pricing"}))
	require.NoError(t, err)
	assert.Equal(t, "sales", id)
}
