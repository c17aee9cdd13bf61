package service

import (
	"context"
	"strconv"
	"strings"
	"surveyflow/internal/apperrors"
	"surveyflow/internal/cache"
	"surveyflow/internal/metrics"
	"surveyflow/internal/model"
	"surveyflow/internal/repository"
	"time"

	"go.uber.org/zap"
)

// Reasons a submission is accepted but discarded
const (
	dropHoneypot = "honeypot"
	dropTooFast  = "too_fast"
)

// SubmissionConfig tunes the anti-abuse screening
type SubmissionConfig struct {
	HoneypotField   string
	MinFillDuration time.Duration
}

// SubmissionService is the delivery target of finished responses
type SubmissionService struct {
	repo        repository.SubmissionRepo
	marks       cache.SubmissionCache
	broadcaster Broadcaster
	metrics     *metrics.Collector
	logger      *zap.Logger
	cfg         SubmissionConfig
	now         func() time.Time
}

// NewSubmissionService creates a submission service. marks and broadcaster may be nil.
func NewSubmissionService(repo repository.SubmissionRepo, marks cache.SubmissionCache, broadcaster Broadcaster, m *metrics.Collector, logger *zap.Logger, cfg SubmissionConfig) *SubmissionService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &SubmissionService{
		repo:        repo,
		marks:       marks,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Submit stores a response once per session. Replays of an already stored
// session succeed without writing again.
func (s *SubmissionService) Submit(ctx context.Context, tenantID, surveyID string, sub model.Submission) error {
	log := s.logger.With(
		zap.String("tenantId", tenantID),
		zap.String("surveyId", surveyID),
		zap.String("sessionId", sub.SessionID),
	)

	if reason := s.screen(sub.AntiAbuse); reason != "" {
		log.Info("submission discarded", zap.String("reason", reason))
		if s.metrics != nil {
			s.metrics.SubmissionsDropped.WithLabelValues(reason).Inc()
		}
		return nil
	}

	if s.marks != nil {
		seen, err := s.marks.IsSubmitted(ctx, tenantID, sub.SessionID)
		if err != nil {
			log.Warn("submission marker lookup failed", zap.Error(err))
		} else if seen {
			log.Debug("submission already stored")
			return nil
		}
	}

	rec := &model.SubmissionRecord{
		SessionID:   sub.SessionID,
		TenantID:    tenantID,
		SurveyID:    surveyID,
		Answers:     sub.Answers,
		ContactInfo: sub.ContactInfo,
		SubmittedAt: s.now().UTC(),
	}
	created, err := s.repo.Save(ctx, rec)
	if err != nil {
		if s.metrics != nil {
			s.metrics.SubmissionFailures.Inc()
		}
		return apperrors.NewDatabaseError("save submission", err)
	}

	if s.marks != nil {
		if _, err := s.marks.MarkSubmitted(ctx, tenantID, sub.SessionID); err != nil {
			log.Warn("submission marker not set", zap.Error(err))
		}
	}

	if created {
		log.Info("submission stored", zap.Int("answers", len(sub.Answers)))
		s.broadcaster.BroadcastToOwners(tenantID, surveyID, EventResponseSubmitted, SubmittedEvent{
			SessionID:  sub.SessionID,
			Answers:    len(sub.Answers),
			HasContact: !sub.ContactInfo.IsEmpty(),
		})
	}
	return nil
}

// List returns the stored submissions of a survey, newest first
func (s *SubmissionService) List(ctx context.Context, tenantID, surveyID string) ([]*model.SubmissionRecord, error) {
	records, err := s.repo.ListBySurvey(ctx, tenantID, surveyID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list submissions", err)
	}
	return records, nil
}

// screen returns the reason to discard a submission, or ""
func (s *SubmissionService) screen(fields model.AntiAbuseFields) string {
	if s.cfg.HoneypotField != "" && strings.TrimSpace(fields[s.cfg.HoneypotField]) != "" {
		return dropHoneypot
	}
	if s.cfg.MinFillDuration > 0 {
		if started, ok := parseStartedAt(fields[model.AntiAbuseStartedAt]); ok {
			if s.now().Sub(started) < s.cfg.MinFillDuration {
				return dropTooFast
			}
		}
	}
	return ""
}

// parseStartedAt accepts RFC 3339 timestamps and unix milliseconds
func parseStartedAt(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, true
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	return time.Time{}, false
}
