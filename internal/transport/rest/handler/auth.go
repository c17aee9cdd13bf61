package handler

import (
	"net/http"
	"surveyflow/internal/apperrors"
	"surveyflow/internal/model"
	"surveyflow/internal/service"

	"go.uber.org/zap"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc *service.AuthService
	logger  *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, logger: logger}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, r, err)
		return
	}

	resp, err := h.authSvc.Login(req.Username, req.Password)
	if err != nil {
		h.logger.Info("owner login rejected", zap.String("username", req.Username))
		writeAppError(w, h.logger, r, apperrors.NewUnauthorizedError(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
