package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"surveyflow/internal/config"
	"surveyflow/internal/metrics"
	"surveyflow/internal/model"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Classifier call outcomes recorded in metrics
const (
	outcomeDecided     = "decided"
	outcomeUndecided   = "undecided"
	outcomeError       = "error"
	outcomeBreakerOpen = "breaker_open"
	outcomeMock        = "mock"
)

// completer sends one system + user prompt pair to a language model and
// returns its raw text reply
type completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ClassifierService routes visitors at classifier nodes. Real providers sit
// behind a circuit breaker; without an API key a keyword matcher is used.
type ClassifierService struct {
	provider string
	backend  completer
	breaker  *gobreaker.CircuitBreaker
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewClassifierService builds the provider selected by cfg
func NewClassifierService(ctx context.Context, cfg *config.AIConfig, m *metrics.Collector, logger *zap.Logger) (*ClassifierService, error) {
	if !cfg.IsEnabled() {
		logger.Info("classifier running in mock mode", zap.String("provider", cfg.Provider))
		return newClassifierService(config.ProviderMock, nil, cfg.Breaker, m, logger), nil
	}

	var backend completer
	var err error
	switch cfg.Provider {
	case config.ProviderGemini:
		backend, err = newGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.Models.Gemini)
	case config.ProviderOpenAI:
		backend = newOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIURL, cfg.Models.OpenAI)
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return newClassifierService(cfg.Provider, backend, cfg.Breaker, m, logger), nil
}

func newClassifierService(provider string, backend completer, bc config.BreakerConfig, m *metrics.Collector, logger *zap.Logger) *ClassifierService {
	threshold := bc.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	s := &ClassifierService{
		provider: provider,
		backend:  backend,
		metrics:  m,
		logger:   logger.With(zap.String("provider", provider)),
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "classifier-" + provider,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("classifier breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return s
}

// Provider names the active classifier backend
func (s *ClassifierService) Provider() string {
	return s.provider
}

// Classify picks one candidate option id for the visitor, or "" for no decision
func (s *ClassifierService) Classify(ctx context.Context, req model.ClassificationRequest) (string, error) {
	start := time.Now()
	if s.backend == nil {
		id := mockClassify(req)
		s.observe(outcomeMock, start)
		return id, nil
	}

	raw, err := s.breaker.Execute(func() (interface{}, error) {
		return s.backend.Complete(ctx, classifierSystemPrompt, buildClassificationPrompt(req))
	})
	if err != nil {
		outcome := outcomeError
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = outcomeBreakerOpen
		}
		s.observe(outcome, start)
		return "", err
	}

	id, err := parseDecision(raw.(string), req.Candidates)
	if err != nil {
		s.logger.Info("classifier reply unusable",
			zap.String("surveyId", req.SurveyID),
			zap.String("questionId", req.QuestionID),
			zap.Error(err),
		)
		s.observe(outcomeUndecided, start)
		return "", nil
	}
	if id == "" {
		s.observe(outcomeUndecided, start)
		return "", nil
	}
	s.observe(outcomeDecided, start)
	return id, nil
}

func (s *ClassifierService) observe(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveClassifier(s.provider, outcome, time.Since(start))
	}
}

const classifierSystemPrompt = `You route website visitors to the survey branch that fits them best.
Reply with ONLY valid JSON of the form {"optionId": "<id>"}.
Use one of the listed option ids, or "" when no option fits.`

func buildClassificationPrompt(req model.ClassificationRequest) string {
	var b strings.Builder
	if req.Prompt != "" {
		fmt.Fprintf(&b, "Routing question: %s\n", req.Prompt)
	}
	b.WriteString("Options:\n")
	for _, c := range req.Candidates {
		fmt.Fprintf(&b, "- id=%q label=%q\n", c.ID, c.Label)
	}
	b.WriteString("Visitor context:\n")
	keys := sortedKeys(req.VisitorContext)
	if len(keys) == 0 {
		b.WriteString("(none)\n")
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, req.VisitorContext[k])
	}
	return b.String()
}

type decision struct {
	OptionID string `json:"optionId"`
}

// parseDecision reads the model reply; ids outside the candidate set are no decision
func parseDecision(raw string, candidates []model.CandidateOption) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var d decision
	if err := json.Unmarshal([]byte(text), &d); err != nil {
		return "", fmt.Errorf("invalid classifier json: %w", err)
	}
	id := strings.TrimSpace(d.OptionID)
	if id == "" {
		return "", nil
	}
	for _, c := range candidates {
		if c.ID == id {
			return id, nil
		}
	}
	return "", fmt.Errorf("option %q is not a candidate", id)
}

// mockClassify scores candidates by word overlap between their label and the
// visitor context values. Ties go to the earlier candidate; no overlap is no
// decision.
func mockClassify(req model.ClassificationRequest) string {
	words := map[string]bool{}
	for _, v := range req.VisitorContext {
		for _, w := range tokenize(v) {
			words[w] = true
		}
	}

	best, bestScore := "", 0
	for _, c := range req.Candidates {
		score := 0
		for _, w := range tokenize(c.Label) {
			if words[w] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = c.ID, score
		}
	}
	return best
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
