package handler

import (
	"net/http"
	"surveyflow/internal/flow"
	"surveyflow/internal/model"
	"surveyflow/internal/service"
	"surveyflow/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SurveyHandler handles survey endpoints
type SurveyHandler struct {
	surveySvc     *service.SurveyService
	submissionSvc *service.SubmissionService
	logger        *zap.Logger
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(surveySvc *service.SurveyService, submissionSvc *service.SubmissionService, logger *zap.Logger) *SurveyHandler {
	return &SurveyHandler{
		surveySvc:     surveySvc,
		submissionSvc: submissionSvc,
		logger:        logger,
	}
}

// SurveyRequest is the request body for creating or replacing a survey
type SurveyRequest struct {
	ID             string                 `json:"id,omitempty" validate:"max=64"`
	Title          string                 `json:"title" validate:"required,max=200"`
	Description    string                 `json:"description,omitempty" validate:"max=2000"`
	ContactInfo    *model.ContactSettings `json:"contactInfo,omitempty"`
	Questions      []model.Question       `json:"questions"`
	VisitorContext model.VisitorContext   `json:"visitorContext,omitempty"`
}

func (req *SurveyRequest) toSurvey() *model.Survey {
	questions := req.Questions
	if questions == nil {
		questions = []model.Question{}
	}
	return &model.Survey{
		ID:             req.ID,
		Title:          req.Title,
		Description:    req.Description,
		ContactInfo:    req.ContactInfo,
		Questions:      questions,
		VisitorContext: req.VisitorContext,
	}
}

// SurveyResponse wraps a stored survey with the warnings of its graph
type SurveyResponse struct {
	Survey   *model.Survey `json:"survey"`
	Warnings []flow.Issue  `json:"warnings,omitempty"`
}

// ValidateRequest is the request body of a dry-run graph check
type ValidateRequest struct {
	Questions []model.Question `json:"questions"`
}

// Create handles POST /v1/surveys
//
//	@Summary	Create a survey
//	@Tags		surveys
//	@Security	BearerAuth
//	@Param		body	body		SurveyRequest	true	"Survey"
//	@Success	201		{object}	SurveyResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/surveys [post]
func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SurveyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}

	survey, report, err := h.surveySvc.Create(r.Context(), owner, req.toSurvey())
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, SurveyResponse{Survey: survey, Warnings: report.Issues})
}

// List handles GET /v1/surveys
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	surveys, err := h.surveySvc.List(r.Context(), owner.TenantID)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"surveys": surveys})
}

// Get handles GET /v1/surveys/{surveyId}
func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	survey, err := h.surveySvc.GetByID(r.Context(), owner.TenantID, mux.Vars(r)["surveyId"])
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SurveyResponse{Survey: survey, Warnings: flow.Validate(survey.Questions).Issues})
}

// Update handles PUT /v1/surveys/{surveyId}
func (h *SurveyHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SurveyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}

	survey, report, err := h.surveySvc.Update(r.Context(), owner, mux.Vars(r)["surveyId"], req.toSurvey())
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SurveyResponse{Survey: survey, Warnings: report.Issues})
}

// Delete handles DELETE /v1/surveys/{surveyId}
func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.surveySvc.Delete(r.Context(), owner.TenantID, mux.Vars(r)["surveyId"]); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate handles POST /v1/surveys/validate
func (h *SurveyHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}

	report := h.surveySvc.Validate(req.Questions)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  report.Valid(),
		"issues": report.Issues,
	})
}

// Submissions handles GET /v1/surveys/{surveyId}/submissions
func (h *SurveyHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	surveyID := mux.Vars(r)["surveyId"]
	if _, err := h.surveySvc.GetByID(r.Context(), owner.TenantID, surveyID); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	records, err := h.submissionSvc.List(r.Context(), owner.TenantID, surveyID)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	if records == nil {
		records = []*model.SubmissionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": records})
}
