package service

import (
	"context"
	"surveyflow/internal/apperrors"
	"surveyflow/internal/cache"
	"surveyflow/internal/model"

	"go.uber.org/zap"
)

const maxExits = 10

// StatsService maintains the response funnel of each survey. Recording is
// best effort: failures are logged and never reach the respondent.
type StatsService struct {
	stats  cache.StatsCache
	logger *zap.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(stats cache.StatsCache, logger *zap.Logger) *StatsService {
	return &StatsService{stats: stats, logger: logger}
}

// RecordStarted counts a new response session
func (s *StatsService) RecordStarted(ctx context.Context, tenantID, surveyID string) {
	s.check(s.stats.IncrStarted(ctx, tenantID, surveyID), "started", surveyID)
}

// RecordCompleted counts a submitted response
func (s *StatsService) RecordCompleted(ctx context.Context, tenantID, surveyID string) {
	s.check(s.stats.IncrCompleted(ctx, tenantID, surveyID), "completed", surveyID)
}

// RecordAnswers counts answers appended to a response. Options are counted
// for multiple-choice and classifier questions only.
func (s *StatsService) RecordAnswers(ctx context.Context, survey *model.Survey, answers []model.SurveyAnswer) {
	for _, a := range answers {
		q := survey.Question(a.QuestionID)
		picked := q != nil && (q.Type == model.QuestionTypeMultipleChoice || q.Type == model.QuestionTypeClassifier)
		err := s.stats.IncrAnswered(ctx, survey.TenantID, survey.ID, a.QuestionID, a.Answer, picked)
		s.check(err, "answered", survey.ID)
	}
}

// RecordExit counts a response abandoned at the given step
func (s *StatsService) RecordExit(ctx context.Context, state model.ResponseState) {
	if state.Step == model.StepDone {
		return
	}
	at := state.CurrentQuestionID
	if state.Step == model.StepContact || at == "" {
		at = string(state.Step)
	}
	s.check(s.stats.IncrExit(ctx, state.TenantID, state.SurveyID, at), "exit", state.SurveyID)
}

// Get assembles the funnel of a survey, questions in survey order
func (s *StatsService) Get(ctx context.Context, survey *model.Survey) (*model.SurveyStats, error) {
	counters, err := s.stats.Counters(ctx, survey.TenantID, survey.ID)
	if err != nil {
		return nil, apperrors.NewUnavailableError("stats store").WithCause(err)
	}
	exits, err := s.stats.TopExits(ctx, survey.TenantID, survey.ID, maxExits)
	if err != nil {
		return nil, apperrors.NewUnavailableError("stats store").WithCause(err)
	}

	out := &model.SurveyStats{
		SurveyID:  survey.ID,
		Started:   counters.Started,
		Completed: counters.Completed,
		Questions: make([]model.QuestionStats, 0, len(survey.Questions)),
		Exits:     exits,
	}
	if out.Started > 0 {
		out.CompletionRate = float64(out.Completed) / float64(out.Started)
	}
	for _, q := range survey.Questions {
		out.Questions = append(out.Questions, model.QuestionStats{
			QuestionID: q.ID,
			Type:       q.Type,
			Answered:   counters.Answered[q.ID],
			Options:    counters.Picked[q.ID],
		})
	}
	return out, nil
}

// Reset drops the counters of a survey
func (s *StatsService) Reset(ctx context.Context, tenantID, surveyID string) error {
	if err := s.stats.Reset(ctx, tenantID, surveyID); err != nil {
		return apperrors.NewUnavailableError("stats store").WithCause(err)
	}
	return nil
}

func (s *StatsService) check(err error, counter, surveyID string) {
	if err != nil {
		s.logger.Warn("failed to record survey stats",
			zap.String("counter", counter),
			zap.String("surveyId", surveyID),
			zap.Error(err),
		)
	}
}
