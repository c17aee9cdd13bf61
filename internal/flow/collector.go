package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"surveyflow/internal/model"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submitter delivers the final payload of a response
type Submitter interface {
	Submit(ctx context.Context, tenantID, surveyID string, sub model.Submission) error
}

// SurveyFetcher loads the survey a response is collected for
type SurveyFetcher interface {
	FetchSurvey(ctx context.Context, tenantID, surveyID string) (*model.Survey, error)
}

// Deps are the collaborators shared by every collector
type Deps struct {
	Classifier      Classifier
	Submitter       Submitter
	Logger          *zap.Logger
	ClassifyTimeout time.Duration
	OnDefect        DefectHook
	Now             func() time.Time
}

// Options describe the respondent opening a survey
type Options struct {
	SessionID      string // Generated when empty
	VisitorContext model.VisitorContext
	AntiAbuse      model.AntiAbuseFields
}

// Collector drives one respondent through a survey. It allows a single
// operation at a time; a second concurrent call fails with ErrBusy.
type Collector struct {
	mu     sync.Mutex
	survey *model.Survey
	state  model.ResponseState
	busy   bool
	closed bool
	// closeErr is what operations report once closed
	closeErr error

	life   context.Context
	cancel context.CancelFunc

	bridge    *Bridge
	submitter Submitter
	logger    *zap.Logger
	defects   defectReporter
	now       func() time.Time
}

// Open fetches the survey and starts a response. Without contact fields the
// collector moves straight to the first visible question, resolving leading
// classifier nodes. When there is nothing to ask the response is submitted at
// once; if that submission fails Open returns the collector along with the
// error so the caller can retry.
func Open(ctx context.Context, fetcher SurveyFetcher, tenantID, surveyID string, opts Options, deps Deps) (*Collector, error) {
	survey, err := fetcher.FetchSurvey(ctx, tenantID, surveyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSurveyLoad, err)
	}
	if survey == nil {
		return nil, ErrSurveyLoad
	}

	c := newCollector(survey, deps)
	now := c.now()
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	c.state = model.ResponseState{
		SessionID:      sessionID,
		TenantID:       tenantID,
		SurveyID:       survey.ID,
		Step:           model.StepContact,
		Answers:        []model.SurveyAnswer{},
		VisitorContext: opts.VisitorContext,
		AntiAbuse:      opts.AntiAbuse,
		StartedAt:      now,
		UpdatedAt:      now,
	}
	if survey.ContactInfo.CollectsAny() {
		return c, nil
	}

	draft, err := c.begin(model.StepContact)
	if err != nil {
		return nil, err
	}
	draft.Step = model.StepQuestion
	err = c.enterQuestions(ctx, &draft)
	if cerr := c.commit(draft, err == nil || draft.Pending != nil); cerr != nil {
		return nil, cerr
	}
	if err != nil && draft.Pending == nil {
		return nil, err
	}
	return c, err
}

// Restore rebuilds a collector from a snapshot. The stored answers are replayed
// through the resolver, without calling the classifier, and must lead to the
// stored current question.
func Restore(survey *model.Survey, state model.ResponseState, deps Deps) (*Collector, error) {
	if survey == nil || survey.ID != state.SurveyID {
		return nil, ErrStateMismatch
	}

	c := newCollector(survey, deps)
	state = cloneState(state)
	if state.Answers == nil {
		state.Answers = []model.SurveyAnswer{}
	}

	switch state.Step {
	case model.StepContact:
		if len(state.Answers) > 0 {
			return nil, ErrStateMismatch
		}
	case model.StepQuestion:
		end, ok := replay(survey, state.Answers)
		if !ok {
			return nil, ErrStateMismatch
		}
		if state.CurrentQuestionID == "" {
			if end != nil || state.Pending == nil {
				return nil, ErrStateMismatch
			}
		} else if end == nil || end.ID != state.CurrentQuestionID {
			return nil, ErrStateMismatch
		}
	case model.StepDone:
	default:
		return nil, ErrStateMismatch
	}

	c.state = state
	return c, nil
}

func newCollector(survey *model.Survey, deps Deps) *Collector {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	life, cancel := context.WithCancel(context.Background())
	return &Collector{
		survey:    survey,
		life:      life,
		cancel:    cancel,
		bridge:    NewBridge(deps.Classifier, deps.ClassifyTimeout, logger, deps.OnDefect),
		submitter: deps.Submitter,
		logger:    logger.With(zap.String("surveyId", survey.ID)),
		defects:   defectReporter{logger: logger, hook: deps.OnDefect},
		now:       now,
	}
}

// SubmitContact validates the contact info and enters the question step.
// A validation failure leaves the collector untouched and triggers no call.
func (c *Collector) SubmitContact(ctx context.Context, info model.ContactInfo) (model.ResponseView, error) {
	draft, err := c.begin(model.StepContact)
	if err != nil {
		return c.View(), err
	}

	contact, err := ValidateContact(c.survey.ContactInfo, info)
	if err != nil {
		c.release()
		return c.View(), err
	}

	ctx, stop := c.bind(ctx)
	defer stop()

	draft.ContactInfo = contact
	draft.Step = model.StepQuestion
	err = c.enterQuestions(ctx, &draft)
	if cerr := c.commit(draft, err == nil || draft.Pending != nil); cerr != nil {
		return c.View(), cerr
	}
	return c.View(), err
}

// SubmitAnswer records the answer to the current question and moves on.
// On a finish question the value is ignored and the response is submitted.
func (c *Collector) SubmitAnswer(ctx context.Context, value string) (model.ResponseView, error) {
	draft, err := c.begin(model.StepQuestion)
	if err != nil {
		return c.View(), err
	}

	current := c.survey.Question(draft.CurrentQuestionID)
	if current == nil || draft.Pending != nil {
		c.release()
		return c.View(), ErrSubmitPending
	}

	answer, err := checkAnswer(current, value)
	if err != nil {
		c.release()
		return c.View(), err
	}

	ctx, stop := c.bind(ctx)
	defer stop()

	if current.Type == model.QuestionTypeFinish {
		submitErr := c.submit(ctx, &draft)
		err = c.finish(draft, submitErr)
		return c.View(), err
	}

	draft.Answers = append(draft.Answers, model.SurveyAnswer{QuestionID: current.ID, Answer: answer})

	res := ResolveNext(c.survey.Questions, current, answer)
	if res.Defect != nil {
		res.Defect.SurveyID = c.survey.ID
		c.defects.report(*res.Defect)
	}

	next, err := c.advance(ctx, res.Next, &draft)
	if err != nil {
		c.release()
		return c.View(), err
	}
	if next == nil {
		submitErr := c.submit(ctx, &draft)
		err = c.finish(draft, submitErr)
		return c.View(), err
	}

	draft.CurrentQuestionID = next.ID
	err = c.finish(draft, nil)
	return c.View(), err
}

// RetrySubmit resends the payload of the last failed submission unchanged
func (c *Collector) RetrySubmit(ctx context.Context) (model.ResponseView, error) {
	draft, err := c.begin(model.StepQuestion)
	if err != nil {
		return c.View(), err
	}
	if draft.Pending == nil {
		c.release()
		return c.View(), ErrNothingToRetry
	}

	ctx, stop := c.bind(ctx)
	defer stop()

	payload := *draft.Pending
	if err := c.send(ctx, draft.TenantID, payload); err != nil {
		c.release()
		return c.View(), err
	}

	draft.Answers = payload.Answers
	draft.ContactInfo = payload.ContactInfo
	markDone(&draft)
	err = c.finish(draft, nil)
	return c.View(), err
}

// Close tears the session down. Results of calls still in flight are dropped
// and no classifier or submission call is started afterwards.
func (c *Collector) Close() {
	c.shutdown(ErrClosed)
}

// Evict closes an idle session whose state is kept elsewhere. Operations
// caught by it fail with ErrEvicted and can be replayed on a restored collector.
func (c *Collector) Evict() {
	c.shutdown(ErrEvicted)
}

func (c *Collector) shutdown(reason error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeErr = reason
	c.cancel()
}

// Snapshot returns a copy of the session state
func (c *Collector) Snapshot() model.ResponseState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneState(c.state)
}

// View is the respondent-facing rendering of the current state
func (c *Collector) View() model.ResponseView {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := model.ResponseView{
		SessionID: c.state.SessionID,
		Step:      c.state.Step,
		Progress:  Progress(c.survey.Questions, c.state.Answers, c.state.Step),
		Done:      c.state.Step == model.StepDone,
		Retryable: c.state.Pending != nil,
	}
	if c.state.Step == model.StepContact && c.survey.ContactInfo != nil {
		contact := *c.survey.ContactInfo
		view.Contact = &contact
	}
	if q := c.survey.Question(c.state.CurrentQuestionID); q != nil && c.state.Step == model.StepQuestion {
		shown := *q
		view.Question = &shown
	}
	return view
}

// Survey returns the survey this response belongs to
func (c *Collector) Survey() *model.Survey {
	return c.survey
}

// SessionID returns the response session id
func (c *Collector) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.SessionID
}

// begin claims the collector for one operation and returns a working copy of
// the state. Nothing is visible to readers until commit.
func (c *Collector) begin(want model.Step) (model.ResponseState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return model.ResponseState{}, c.closeErr
	case c.busy:
		return model.ResponseState{}, ErrBusy
	case c.state.Step == model.StepDone:
		return model.ResponseState{}, ErrDone
	case c.state.Step != want:
		return model.ResponseState{}, ErrWrongStep
	}
	c.busy = true
	return cloneState(c.state), nil
}

func (c *Collector) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// commit publishes draft when apply is set. A session closed in the meantime
// keeps its old state.
func (c *Collector) commit(draft model.ResponseState, apply bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if c.closed {
		return c.closeErr
	}
	if apply {
		draft.UpdatedAt = c.now()
		c.state = draft
	}
	return nil
}

// finish commits the outcome of an answer. A failed submission only records
// the pending payload; the response then waits for RetrySubmit.
func (c *Collector) finish(draft model.ResponseState, submitErr error) error {
	if submitErr == nil {
		return c.commit(draft, true)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if c.closed {
		return c.closeErr
	}
	c.state.Pending = draft.Pending
	c.state.UpdatedAt = c.now()
	return submitErr
}

// interrupted is the error of an operation whose context ended midway
func (c *Collector) interrupted(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.closeErr
	}
	return ctx.Err()
}

// bind ties ctx to the session lifetime
func (c *Collector) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// enterQuestions computes the first visible question, submitting right away
// when the survey has none
func (c *Collector) enterQuestions(ctx context.Context, draft *model.ResponseState) error {
	first, err := c.advance(ctx, StartQuestion(c.survey.Questions), draft)
	if err != nil {
		return err
	}
	if first != nil {
		draft.CurrentQuestionID = first.ID
		return nil
	}
	draft.CurrentQuestionID = ""
	return c.submit(ctx, draft)
}

// advance runs the classifier bridge from next and guards against landing on a
// question that was already answered. A nil question means submit.
func (c *Collector) advance(ctx context.Context, next *model.Question, draft *model.ResponseState) (*model.Question, error) {
	res := c.bridge.AdvancePastClassifiers(ctx, c.survey, next, draft.Answers, draft.VisitorContext)
	if res.Interrupted {
		return nil, c.interrupted(ctx)
	}
	draft.Answers = res.Answers
	if res.Question == nil {
		return nil, nil
	}
	if answered(draft.Answers, res.Question.ID) {
		c.defects.report(Defect{Kind: DefectRevisit, SurveyID: c.survey.ID, QuestionID: res.Question.ID})
		return nil, nil
	}
	return res.Question, nil
}

// submit sends the accumulated answers. Success marks the draft done, failure
// stores the payload for RetrySubmit.
func (c *Collector) submit(ctx context.Context, draft *model.ResponseState) error {
	payload := model.Submission{
		SessionID:   draft.SessionID,
		Answers:     cloneAnswers(draft.Answers),
		ContactInfo: cloneContact(draft.ContactInfo),
		AntiAbuse:   draft.AntiAbuse,
	}
	if err := c.send(ctx, draft.TenantID, payload); err != nil {
		draft.Pending = &payload
		return err
	}
	markDone(draft)
	return nil
}

func (c *Collector) send(ctx context.Context, tenantID string, payload model.Submission) error {
	if c.submitter == nil {
		return fmt.Errorf("%w: no submitter configured", ErrSubmit)
	}
	if ctx.Err() != nil {
		if err := c.interrupted(ctx); errors.Is(err, ErrClosed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrSubmit, ctx.Err())
	}
	if err := c.submitter.Submit(ctx, tenantID, c.survey.ID, payload); err != nil {
		c.logger.Warn("response submission failed", zap.String("sessionId", payload.SessionID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	return nil
}

func markDone(draft *model.ResponseState) {
	draft.Step = model.StepDone
	draft.CurrentQuestionID = ""
	draft.Pending = nil
}

// checkAnswer applies the required and option rules to a respondent answer
func checkAnswer(q *model.Question, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	switch q.Type {
	case model.QuestionTypeFinish:
		return "", nil
	case model.QuestionTypeMultipleChoice:
		if trimmed == "" {
			if q.Required {
				return "", ErrAnswerRequired
			}
			return "", nil
		}
		if q.Option(trimmed) == nil {
			return "", ErrUnknownOption
		}
		return trimmed, nil
	default:
		if q.Required && trimmed == "" {
			return "", ErrAnswerRequired
		}
		return value, nil
	}
}

// replay walks the resolver along a stored answer trail and returns where it
// ends. ok is false when the trail does not follow the survey graph.
func replay(survey *model.Survey, answers []model.SurveyAnswer) (*model.Question, bool) {
	seen := make(map[string]bool, len(answers))
	q := StartQuestion(survey.Questions)
	for _, a := range answers {
		if q == nil || q.ID != a.QuestionID || seen[q.ID] {
			return nil, false
		}
		seen[q.ID] = true
		q = ResolveNext(survey.Questions, q, a.Answer).Next
	}

	if q != nil && seen[q.ID] {
		return nil, true
	}
	if q != nil && q.IsClassifier() {
		return nil, false
	}
	return q, true
}

func answered(answers []model.SurveyAnswer, questionID string) bool {
	for _, a := range answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

func cloneAnswers(in []model.SurveyAnswer) []model.SurveyAnswer {
	out := make([]model.SurveyAnswer, len(in))
	copy(out, in)
	return out
}

func cloneContact(in *model.ContactInfo) *model.ContactInfo {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

func cloneState(s model.ResponseState) model.ResponseState {
	s.Answers = cloneAnswers(s.Answers)
	s.ContactInfo = cloneContact(s.ContactInfo)
	if s.Pending != nil {
		p := *s.Pending
		p.Answers = cloneAnswers(p.Answers)
		p.ContactInfo = cloneContact(p.ContactInfo)
		s.Pending = &p
	}
	return s
}
