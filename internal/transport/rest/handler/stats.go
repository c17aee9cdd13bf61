package handler

import (
	"net/http"
	"surveyflow/internal/service"
	"surveyflow/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// StatsHandler serves the response funnel of a survey
type StatsHandler struct {
	surveySvc *service.SurveyService
	statsSvc  *service.StatsService
	logger    *zap.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(surveySvc *service.SurveyService, statsSvc *service.StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{surveySvc: surveySvc, statsSvc: statsSvc, logger: logger}
}

// Get handles GET /v1/surveys/{surveyId}/stats
//
//	@Summary	Response funnel of a survey
//	@Tags		surveys
//	@Security	BearerAuth
//	@Param		surveyId	path		string	true	"Survey"
//	@Success	200			{object}	model.SurveyStats
//	@Failure	404			{object}	ErrorResponse
//	@Router		/surveys/{surveyId}/stats [get]
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	stats, err := h.statsSvc.Get(r.Context(), survey)
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Reset handles DELETE /v1/surveys/{surveyId}/stats
func (h *StatsHandler) Reset(w http.ResponseWriter, r *http.Request) {
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
	if err := h.statsSvc.Reset(r.Context(), owner.TenantID, surveyID); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
