package service

import (
	"context"
	"errors"
	"strconv"
	"surveyflow/internal/apperrors"
	"surveyflow/internal/cache"
	"surveyflow/internal/flow"
	"surveyflow/internal/metrics"
	"surveyflow/internal/model"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StartRequest describes a respondent opening a survey
type StartRequest struct {
	VisitorContext model.VisitorContext  `json:"visitorContext,omitempty"`
	AntiAbuse      model.AntiAbuseFields `json:"antiAbuse,omitempty"`
}

type liveSession struct {
	collector *flow.Collector
	lastSeen  time.Time
}

// ResponseService keeps the live response sessions. Every transition is
// snapshotted to the cache so a session survives a restart; snapshots are
// replayed through the resolver without calling the classifier again.
type ResponseService struct {
	mu       sync.Mutex
	sessions map[string]*liveSession

	fetcher     flow.SurveyFetcher
	snapshots   cache.ResponseCache
	broadcaster Broadcaster
	stats       *StatsService
	metrics     *metrics.Collector
	logger      *zap.Logger
	deps        flow.Deps
	now         func() time.Time
}

// NewResponseService creates the session registry. snapshots, broadcaster and m may be nil.
func NewResponseService(
	fetcher flow.SurveyFetcher,
	classifier flow.Classifier,
	submitter flow.Submitter,
	snapshots cache.ResponseCache,
	broadcaster Broadcaster,
	m *metrics.Collector,
	logger *zap.Logger,
	classifyTimeout time.Duration,
) *ResponseService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	s := &ResponseService{
		sessions:    make(map[string]*liveSession),
		fetcher:     fetcher,
		snapshots:   snapshots,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
	s.deps = flow.Deps{
		Classifier:      classifier,
		Submitter:       submitter,
		Logger:          logger,
		ClassifyTimeout: classifyTimeout,
		OnDefect:        s.onDefect,
	}
	return s
}

// SetStats enables funnel recording
func (s *ResponseService) SetStats(stats *StatsService) {
	s.stats = stats
}

// Start opens a response session on a survey of the tenant
func (s *ResponseService) Start(ctx context.Context, tenantID, surveyID string, req StartRequest) (model.ResponseView, error) {
	antiAbuse := model.AntiAbuseFields{}
	for k, v := range req.AntiAbuse {
		antiAbuse[k] = v
	}
	if antiAbuse[model.AntiAbuseStartedAt] == "" {
		antiAbuse[model.AntiAbuseStartedAt] = strconv.FormatInt(s.now().UnixMilli(), 10)
	}

	c, err := flow.Open(context.WithoutCancel(ctx), s.fetcher, tenantID, surveyID, flow.Options{
		VisitorContext: req.VisitorContext,
		AntiAbuse:      antiAbuse,
	}, s.deps)
	if c == nil {
		return model.ResponseView{}, s.mapError(err, model.ResponseView{})
	}

	view := c.View()
	s.register(c)
	if s.metrics != nil {
		s.metrics.ResponsesStarted.Inc()
	}
	if s.stats != nil {
		s.stats.RecordStarted(context.WithoutCancel(ctx), tenantID, surveyID)
	}
	s.broadcaster.BroadcastToOwners(tenantID, surveyID, EventResponseStarted, ProgressEvent{
		SessionID: view.SessionID,
		Step:      string(view.Step),
		Progress:  view.Progress,
	})
	s.logger.Info("response started",
		zap.String("tenantId", tenantID),
		zap.String("surveyId", surveyID),
		zap.String("sessionId", view.SessionID),
		zap.String("step", string(view.Step)),
	)
	s.after(ctx, c, false, 0, view)
	return view, s.mapError(err, view)
}

// Get returns the current view of a session
func (s *ResponseService) Get(ctx context.Context, sessionID string) (model.ResponseView, error) {
	c, err := s.lookup(ctx, sessionID)
	if err != nil {
		return model.ResponseView{}, err
	}
	return c.View(), nil
}

// SubmitContact passes the contact step
func (s *ResponseService) SubmitContact(ctx context.Context, sessionID string, info model.ContactInfo) (model.ResponseView, error) {
	return s.apply(ctx, sessionID, func(ctx context.Context, c *flow.Collector) (model.ResponseView, error) {
		return c.SubmitContact(ctx, info)
	})
}

// Answer records the answer to the current question
func (s *ResponseService) Answer(ctx context.Context, sessionID, value string) (model.ResponseView, error) {
	return s.apply(ctx, sessionID, func(ctx context.Context, c *flow.Collector) (model.ResponseView, error) {
		return c.SubmitAnswer(ctx, value)
	})
}

// Retry resends a failed submission
func (s *ResponseService) Retry(ctx context.Context, sessionID string) (model.ResponseView, error) {
	return s.apply(ctx, sessionID, func(ctx context.Context, c *flow.Collector) (model.ResponseView, error) {
		return c.RetrySubmit(ctx)
	})
}

// Abandon closes a session and forgets it
func (s *ResponseService) Abandon(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	live, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	var state *model.ResponseState
	if ok {
		live.collector.Close()
		snap := live.collector.Snapshot()
		state = &snap
	}
	if s.snapshots != nil {
		if state == nil {
			stored, err := s.snapshots.Get(ctx, sessionID)
			if err != nil {
				s.logger.Warn("failed to read response snapshot", zap.String("sessionId", sessionID), zap.Error(err))
			}
			state = stored
		}
		if err := s.snapshots.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("failed to delete response snapshot", zap.String("sessionId", sessionID), zap.Error(err))
		}
	}
	if state == nil {
		return apperrors.NewNotFoundError("response session")
	}
	if s.stats != nil {
		s.stats.RecordExit(context.WithoutCancel(ctx), *state)
	}
	return nil
}

// Sweep evicts in-memory sessions idle for longer than idle. Their snapshots
// stay in the cache and are restored on the next request; an operation caught
// by the eviction is replayed once on the restored session.
func (s *ResponseService) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	var stale []*flow.Collector
	for id, live := range s.sessions {
		if live.lastSeen.Before(cutoff) {
			stale = append(stale, live.collector)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, c := range stale {
		c.Evict()
	}
	return len(stale)
}

// Shutdown closes every live session
func (s *ResponseService) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*liveSession)
	s.mu.Unlock()

	for _, live := range sessions {
		live.collector.Close()
	}
}

// Active returns the number of sessions held in memory
func (s *ResponseService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *ResponseService) apply(ctx context.Context, sessionID string, op func(context.Context, *flow.Collector) (model.ResponseView, error)) (model.ResponseView, error) {
	c, err := s.lookup(ctx, sessionID)
	if err != nil {
		return model.ResponseView{}, err
	}
	wasDone := c.View().Done
	answered := len(c.Snapshot().Answers)
	view, err := op(context.WithoutCancel(ctx), c)
	if errors.Is(err, flow.ErrEvicted) {
		// swept mid-operation; the snapshot still holds the last committed state
		s.logger.Debug("replaying operation on restored session", zap.String("sessionId", sessionID))
		if c, err = s.lookup(ctx, sessionID); err != nil {
			return model.ResponseView{}, err
		}
		wasDone = c.View().Done
		answered = len(c.Snapshot().Answers)
		view, err = op(context.WithoutCancel(ctx), c)
	}
	if errors.Is(err, flow.ErrBusy) || errors.Is(err, flow.ErrClosed) {
		return view, s.mapError(err, view)
	}
	s.after(ctx, c, wasDone, answered, view)
	return view, s.mapError(err, view)
}

// after persists the snapshot and publishes progress once an operation ends.
// answered is the number of answers recorded before the operation.
func (s *ResponseService) after(ctx context.Context, c *flow.Collector, wasDone bool, answered int, view model.ResponseView) {
	state := c.Snapshot()
	if s.stats != nil && len(state.Answers) > answered {
		s.stats.RecordAnswers(context.WithoutCancel(ctx), c.Survey(), state.Answers[answered:])
	}
	if s.snapshots != nil {
		if err := s.snapshots.Save(context.WithoutCancel(ctx), &state); err != nil {
			s.logger.Warn("failed to save response snapshot", zap.String("sessionId", state.SessionID), zap.Error(err))
		}
	}

	if !wasDone {
		s.broadcaster.BroadcastToOwners(state.TenantID, state.SurveyID, EventResponseProgress, ProgressEvent{
			SessionID: state.SessionID,
			Step:      string(view.Step),
			Progress:  view.Progress,
		})
	}
	if view.Done && !wasDone {
		if s.metrics != nil {
			s.metrics.ResponsesCompleted.Inc()
		}
		if s.stats != nil {
			s.stats.RecordCompleted(context.WithoutCancel(ctx), state.TenantID, state.SurveyID)
		}
		s.mu.Lock()
		delete(s.sessions, state.SessionID)
		s.mu.Unlock()
	}
}

func (s *ResponseService) register(c *flow.Collector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[c.SessionID()] = &liveSession{collector: c, lastSeen: s.now()}
}

// lookup finds a live session or rebuilds it from its snapshot
func (s *ResponseService) lookup(ctx context.Context, sessionID string) (*flow.Collector, error) {
	s.mu.Lock()
	if live, ok := s.sessions[sessionID]; ok {
		live.lastSeen = s.now()
		s.mu.Unlock()
		return live.collector, nil
	}
	s.mu.Unlock()

	if s.snapshots == nil {
		return nil, apperrors.NewNotFoundError("response session")
	}
	state, err := s.snapshots.Get(ctx, sessionID)
	if err != nil {
		return nil, apperrors.NewUnavailableError("session store").WithCause(err)
	}
	if state == nil {
		return nil, apperrors.NewNotFoundError("response session")
	}

	survey, err := s.fetcher.FetchSurvey(ctx, state.TenantID, state.SurveyID)
	if err != nil {
		return nil, s.mapError(errors.Join(flow.ErrSurveyLoad, err), model.ResponseView{})
	}
	c, err := flow.Restore(survey, *state, s.deps)
	if err != nil {
		s.logger.Warn("response snapshot no longer matches its survey",
			zap.String("sessionId", sessionID),
			zap.String("surveyId", state.SurveyID),
			zap.Error(err),
		)
		return nil, s.mapError(err, model.ResponseView{})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if live, ok := s.sessions[sessionID]; ok {
		c.Close()
		return live.collector, nil
	}
	if state.Step != model.StepDone {
		s.sessions[sessionID] = &liveSession{collector: c, lastSeen: s.now()}
	}
	s.logger.Debug("response session restored", zap.String("sessionId", sessionID))
	return c, nil
}

func (s *ResponseService) onDefect(d flow.Defect) {
	if s.metrics != nil {
		s.metrics.ConfigDefects.WithLabelValues(string(d.Kind)).Inc()
	}
}

// mapError turns engine errors into application errors. A failed submission
// carries the view so the client can offer a retry.
func (s *ResponseService) mapError(err error, view model.ResponseView) error {
	if err == nil {
		return nil
	}

	var contactErr *flow.ContactError
	switch {
	case errors.As(err, &contactErr):
		return apperrors.NewValidationError(contactErr.Error()).
			WithCode("INVALID_CONTACT").
			WithDetails(map[string]any{"missing": contactErr.Missing, "invalid": contactErr.Invalid})
	case errors.Is(err, flow.ErrAnswerRequired):
		return apperrors.NewValidationError(err.Error()).WithCode("ANSWER_REQUIRED")
	case errors.Is(err, flow.ErrUnknownOption):
		return apperrors.NewValidationError(err.Error()).WithCode("UNKNOWN_OPTION")
	case errors.Is(err, flow.ErrBusy):
		return apperrors.NewConflictError(err.Error()).WithCode("BUSY")
	case errors.Is(err, flow.ErrClosed):
		return apperrors.NewConflictError(err.Error()).WithCode("CLOSED")
	case errors.Is(err, flow.ErrDone):
		return apperrors.NewConflictError(err.Error()).WithCode("ALREADY_SUBMITTED")
	case errors.Is(err, flow.ErrWrongStep):
		return apperrors.NewConflictError(err.Error()).WithCode("WRONG_STEP")
	case errors.Is(err, flow.ErrNothingToRetry):
		return apperrors.NewConflictError(err.Error()).WithCode("NOTHING_TO_RETRY")
	case errors.Is(err, flow.ErrSubmitPending):
		return apperrors.NewConflictError(err.Error()).WithCode("SUBMIT_PENDING").
			WithDetails(map[string]any{"response": view})
	case errors.Is(err, flow.ErrStateMismatch):
		return apperrors.NewConflictError("the survey changed since this response started").WithCode("SESSION_STALE")
	case errors.Is(err, flow.ErrSubmit):
		return apperrors.NewExternalError("submission", err).WithCode("SUBMIT_FAILED").
			WithDetails(map[string]any{"response": view})
	case errors.Is(err, flow.ErrSurveyLoad):
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFoundError("survey")
		}
		return apperrors.NewExternalError("survey store", err).WithCode("SURVEY_LOAD_FAILED")
	}
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}
	return apperrors.NewInternalError("response operation failed").WithCause(err)
}
