package flow

import (
	"context"
	"fmt"
	"surveyflow/internal/model"
	"time"

	"go.uber.org/zap"
)

// DefaultClassifyTimeout bounds a single classification call
const DefaultClassifyTimeout = 10 * time.Second

// Classifier picks one of the candidate options for a classifier question.
// An empty id means no decision.
type Classifier interface {
	Classify(ctx context.Context, req model.ClassificationRequest) (string, error)
}

// BridgeResult is the state after a run of classifier nodes was resolved
type BridgeResult struct {
	Question *model.Question // First respondent-facing question, nil means submit
	Answers  []model.SurveyAnswer
	// Interrupted is set when ctx ended mid-chain. Answers are then the input
	// answers and Question must not be acted on.
	Interrupted bool
}

// Bridge resolves classifier nodes on behalf of the respondent
type Bridge struct {
	classifier Classifier
	timeout    time.Duration
	logger     *zap.Logger
	defects    defectReporter
}

// NewBridge creates a classifier bridge. A nil classifier makes every
// classifier node resolve to no decision.
func NewBridge(classifier Classifier, timeout time.Duration, logger *zap.Logger, hook DefectHook) *Bridge {
	if timeout <= 0 {
		timeout = DefaultClassifyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		classifier: classifier,
		timeout:    timeout,
		logger:     logger,
		defects:    defectReporter{logger: logger, hook: hook},
	}
}

// AdvancePastClassifiers walks from question through consecutive classifier
// nodes, appending one answer per classifier, and returns the first question the
// respondent has to see. Classifiers already present in answers count as visited,
// so a chain that loops back stops with a nil question. Once ctx is done no
// further classifier is called and the run is reported as interrupted.
func (b *Bridge) AdvancePastClassifiers(ctx context.Context, survey *model.Survey, question *model.Question, answers []model.SurveyAnswer, visitor model.VisitorContext) BridgeResult {
	if question == nil || !question.IsClassifier() {
		return BridgeResult{Question: question, Answers: answers}
	}

	visited := make(map[string]bool)
	for _, a := range answers {
		if q := survey.Question(a.QuestionID); q != nil && q.IsClassifier() {
			visited[a.QuestionID] = true
		}
	}

	out := make([]model.SurveyAnswer, len(answers), len(answers)+1)
	copy(out, answers)

	current := question
	for current != nil && current.IsClassifier() {
		if ctx.Err() != nil {
			return BridgeResult{Answers: answers, Interrupted: true}
		}
		if visited[current.ID] {
			b.defects.report(Defect{Kind: DefectClassifierCycle, SurveyID: survey.ID, QuestionID: current.ID})
			return BridgeResult{Answers: out}
		}
		visited[current.ID] = true

		chosen := b.decide(ctx, survey, current, visitor)
		if ctx.Err() != nil {
			return BridgeResult{Answers: answers, Interrupted: true}
		}
		out = append(out, model.SurveyAnswer{QuestionID: current.ID, Answer: chosen})

		res := ResolveNext(survey.Questions, current, chosen)
		if res.Defect != nil {
			res.Defect.SurveyID = survey.ID
			b.defects.report(*res.Defect)
		}
		current = res.Next
	}

	return BridgeResult{Question: current, Answers: out}
}

// decide runs one classification and folds every failure into no decision
func (b *Bridge) decide(ctx context.Context, survey *model.Survey, question *model.Question, visitor model.VisitorContext) string {
	if b.classifier == nil {
		return ""
	}

	req := model.ClassificationRequest{
		TenantID:       survey.TenantID,
		SurveyID:       survey.ID,
		QuestionID:     question.ID,
		Prompt:         question.QuestionText,
		VisitorContext: visitor,
		Candidates:     question.CandidateOptions(),
	}

	chosen, err := b.classify(ctx, req)
	if err != nil {
		b.logger.Info("classifier gave no decision",
			zap.String("surveyId", survey.ID),
			zap.String("questionId", question.ID),
			zap.Error(err),
		)
		return ""
	}
	if chosen == "" {
		return ""
	}
	if question.Option(chosen) == nil {
		b.defects.report(Defect{Kind: DefectUnknownOption, SurveyID: survey.ID, QuestionID: question.ID, Target: chosen})
		return ""
	}
	return chosen
}

// classify enforces the timeout even when the classifier ignores its context
func (b *Bridge) classify(ctx context.Context, req model.ClassificationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("classifier panicked: %v", r)}
			}
		}()
		id, err := b.classifier.Classify(ctx, req)
		done <- result{id: id, err: err}
	}()

	select {
	case r := <-done:
		return r.id, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
