package service

import (
	"context"
	"errors"
	"surveyflow/internal/apperrors"
	"surveyflow/internal/flow"
	"surveyflow/internal/model"
	"surveyflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SurveyService handles survey CRUD operations
type SurveyService struct {
	surveyRepo repository.SurveyRepo
	logger     *zap.Logger
}

// NewSurveyService creates a new survey service
func NewSurveyService(surveyRepo repository.SurveyRepo, logger *zap.Logger) *SurveyService {
	return &SurveyService{
		surveyRepo: surveyRepo,
		logger:     logger,
	}
}

// Create assigns missing ids, validates the question graph and stores the
// survey. The report carries the warnings of an accepted graph.
func (s *SurveyService) Create(ctx context.Context, owner *model.OwnerClaims, survey *model.Survey) (*model.Survey, flow.Report, error) {
	if survey.ID == "" {
		survey.ID = uuid.New().String()
	}
	survey.TenantID = owner.TenantID
	survey.OwnerID = owner.OwnerID
	assignIDs(survey.Questions)

	report, err := s.check(survey)
	if err != nil {
		return nil, report, err
	}

	if err := s.surveyRepo.Create(ctx, survey); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, report, apperrors.NewConflictError("a survey with this id already exists").WithCode("SURVEY_EXISTS")
		}
		return nil, report, apperrors.NewDatabaseError("create survey", err)
	}
	s.logger.Info("survey created",
		zap.String("tenantId", survey.TenantID),
		zap.String("surveyId", survey.ID),
		zap.Int("questions", len(survey.Questions)),
	)
	return survey, report, nil
}

// GetByID retrieves a survey of the tenant
func (s *SurveyService) GetByID(ctx context.Context, tenantID, id string) (*model.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get survey", err)
	}
	if survey == nil {
		return nil, apperrors.NewNotFoundError("survey")
	}
	return survey, nil
}

// FetchSurvey loads the survey a respondent is answering
func (s *SurveyService) FetchSurvey(ctx context.Context, tenantID, surveyID string) (*model.Survey, error) {
	return s.GetByID(ctx, tenantID, surveyID)
}

// List retrieves all surveys of a tenant, most recently updated first
func (s *SurveyService) List(ctx context.Context, tenantID string) ([]*model.Survey, error) {
	surveys, err := s.surveyRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list surveys", err)
	}
	return surveys, nil
}

// Update replaces the content of an existing survey, keeping its identity
func (s *SurveyService) Update(ctx context.Context, owner *model.OwnerClaims, id string, survey *model.Survey) (*model.Survey, flow.Report, error) {
	existing, err := s.GetByID(ctx, owner.TenantID, id)
	if err != nil {
		return nil, flow.Report{}, err
	}

	survey.ID = existing.ID
	survey.TenantID = existing.TenantID
	survey.OwnerID = existing.OwnerID
	survey.CreatedAt = existing.CreatedAt
	assignIDs(survey.Questions)

	report, err := s.check(survey)
	if err != nil {
		return nil, report, err
	}

	if err := s.surveyRepo.Update(ctx, survey); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, report, apperrors.NewNotFoundError("survey")
		}
		return nil, report, apperrors.NewDatabaseError("update survey", err)
	}
	return survey, report, nil
}

// Delete deletes a survey
func (s *SurveyService) Delete(ctx context.Context, tenantID, id string) error {
	err := s.surveyRepo.Delete(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundError("survey")
	}
	if err != nil {
		return apperrors.NewDatabaseError("delete survey", err)
	}
	return nil
}

// Validate reports the issues of a question graph without storing anything
func (s *SurveyService) Validate(questions []model.Question) flow.Report {
	return flow.Validate(questions)
}

func (s *SurveyService) check(survey *model.Survey) (flow.Report, error) {
	report := flow.Validate(survey.Questions)
	if !report.Valid() {
		return report, apperrors.NewUnprocessableError("survey question graph is invalid").
			WithCode("INVALID_GRAPH").
			WithDetails(map[string]any{"issues": report.Issues})
	}
	return report, nil
}

// assignIDs gives every question and option without an id a fresh one
func assignIDs(questions []model.Question) {
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.New().String()
		}
		for j := range questions[i].Options {
			if questions[i].Options[j].ID == "" {
				questions[i].Options[j].ID = uuid.New().String()
			}
		}
	}
}
