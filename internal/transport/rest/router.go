package rest

import (
	"net/http"
	"surveyflow/docs"
	"surveyflow/internal/metrics"
	"surveyflow/internal/service"
	"surveyflow/internal/transport/rest/handler"
	"surveyflow/internal/transport/rest/middleware"
	"surveyflow/internal/transport/ws"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService       *service.AuthService
	SurveyService     *service.SurveyService
	SubmissionService *service.SubmissionService
	ResponseService   *service.ResponseService
	StatsService      *service.StatsService // optional
	WSHub             *ws.Hub
	Metrics           *metrics.Collector
	Logger            *zap.Logger
	AllowedOrigins    []string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService, logger)
	surveyHandler := handler.NewSurveyHandler(c.SurveyService, c.SubmissionService, logger)
	responseHandler := handler.NewResponseHandler(c.ResponseService, logger)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.AllowedOrigins, logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(middleware.CORS(c.AllowedOrigins))
	r.Use(middleware.RequestLogger(logger, c.Metrics))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")
	}

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/docs/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(docs.SwaggerInfo.ReadDoc()))
	}).Methods("GET")

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// Respondent routes (public, the session id is the capability)
	v1.HandleFunc("/t/{tenantId}/surveys/{surveyId}/responses", responseHandler.Start).Methods("POST", "OPTIONS")
	v1.HandleFunc("/responses/{sessionId}", responseHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/responses/{sessionId}", responseHandler.Abandon).Methods("DELETE", "OPTIONS")
	v1.HandleFunc("/responses/{sessionId}/contact", responseHandler.Contact).Methods("POST", "OPTIONS")
	v1.HandleFunc("/responses/{sessionId}/answers", responseHandler.Answer).Methods("POST", "OPTIONS")
	v1.HandleFunc("/responses/{sessionId}/retry", responseHandler.Retry).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/surveys/{surveyId}", wsHandler.OwnerFeed).Methods("GET")

	// Owner routes (require owner auth)
	ownerRoutes := v1.NewRoute().Subrouter()
	ownerRoutes.Use(authMW.RequireOwner)

	ownerRoutes.HandleFunc("/surveys", surveyHandler.Create).Methods("POST", "OPTIONS")
	ownerRoutes.HandleFunc("/surveys", surveyHandler.List).Methods("GET", "OPTIONS")
	ownerRoutes.HandleFunc("/surveys/validate", surveyHandler.Validate).Methods("POST", "OPTIONS")
	ownerRoutes.HandleFunc("/surveys/{surveyId}", surveyHandler.Get).Methods("GET", "OPTIONS")
	ownerRoutes.HandleFunc("/surveys/{surveyId}", surveyHandler.Update).Methods("PUT", "OPTIONS")
	ownerRoutes.HandleFunc("/surveys/{surveyId}", surveyHandler.Delete).Methods("DELETE", "OPTIONS")
	ownerRoutes.HandleFunc("/surveys/{surveyId}/submissions", surveyHandler.Submissions).Methods("GET", "OPTIONS")

	if c.StatsService != nil {
		statsHandler := handler.NewStatsHandler(c.SurveyService, c.StatsService, logger)
		ownerRoutes.HandleFunc("/surveys/{surveyId}/stats", statsHandler.Get).Methods("GET", "OPTIONS")
		ownerRoutes.HandleFunc("/surveys/{surveyId}/stats", statsHandler.Reset).Methods("DELETE", "OPTIONS")
	}

	return r
}
