package handler

import (
	"net/http"
	"surveyflow/internal/model"
	"surveyflow/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ResponseHandler serves the public respondent endpoints
type ResponseHandler struct {
	responseSvc *service.ResponseService
	logger      *zap.Logger
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(responseSvc *service.ResponseService, logger *zap.Logger) *ResponseHandler {
	return &ResponseHandler{responseSvc: responseSvc, logger: logger}
}

// ContactRequest is the body of the contact step
type ContactRequest struct {
	Name  string `json:"name,omitempty" validate:"max=200"`
	Email string `json:"email,omitempty" validate:"max=254"`
	Phone string `json:"phone,omitempty" validate:"max=32"`
}

// AnswerRequest is the body of an answer; finish screens accept an empty one
type AnswerRequest struct {
	Answer string `json:"answer" validate:"max=5000"`
}

// Start handles POST /v1/t/{tenantId}/surveys/{surveyId}/responses
//
//	@Summary	Start a response session
//	@Tags		responses
//	@Param		tenantId	path		string					true	"Tenant"
//	@Param		surveyId	path		string					true	"Survey"
//	@Param		body		body		service.StartRequest	false	"Visitor context"
//	@Success	201			{object}	model.ResponseView
//	@Failure	404			{object}	ErrorResponse
//	@Router		/t/{tenantId}/surveys/{surveyId}/responses [post]
func (h *ResponseHandler) Start(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req service.StartRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeAppError(w, h.logger, r, err)
			return
		}
	}

	view, err := h.responseSvc.Start(r.Context(), vars["tenantId"], vars["surveyId"], req)
	h.respond(w, r, http.StatusCreated, view, err)
}

// Get handles GET /v1/responses/{sessionId}
func (h *ResponseHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.responseSvc.Get(r.Context(), mux.Vars(r)["sessionId"])
	h.respond(w, r, http.StatusOK, view, err)
}

// Contact handles POST /v1/responses/{sessionId}/contact
func (h *ResponseHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}

	view, err := h.responseSvc.SubmitContact(r.Context(), mux.Vars(r)["sessionId"], model.ContactInfo{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	h.respond(w, r, http.StatusOK, view, err)
}

// Answer handles POST /v1/responses/{sessionId}/answers
func (h *ResponseHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}

	view, err := h.responseSvc.Answer(r.Context(), mux.Vars(r)["sessionId"], req.Answer)
	h.respond(w, r, http.StatusOK, view, err)
}

// Retry handles POST /v1/responses/{sessionId}/retry
func (h *ResponseHandler) Retry(w http.ResponseWriter, r *http.Request) {
	view, err := h.responseSvc.Retry(r.Context(), mux.Vars(r)["sessionId"])
	h.respond(w, r, http.StatusOK, view, err)
}

// Abandon handles DELETE /v1/responses/{sessionId}
func (h *ResponseHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	if err := h.responseSvc.Abandon(r.Context(), mux.Vars(r)["sessionId"]); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ResponseHandler) respond(w http.ResponseWriter, r *http.Request, status int, view model.ResponseView, err error) {
	if err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}
	writeJSON(w, status, view)
}
