package service

import (
	"context"
	"errors"
	"sort"
	"surveyflow/internal/cache"
	"surveyflow/internal/model"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockSurveyRepo struct {
	mock.Mock
}

func (m *MockSurveyRepo) Create(ctx context.Context, survey *model.Survey) error {
	args := m.Called(ctx, survey)
	return args.Error(0)
}

func (m *MockSurveyRepo) GetByID(ctx context.Context, tenantID, id string) (*model.Survey, error) {
	args := m.Called(ctx, tenantID, id)
	if s := args.Get(0); s != nil {
		return s.(*model.Survey), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSurveyRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.Survey, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*model.Survey), args.Error(1)
}

func (m *MockSurveyRepo) Update(ctx context.Context, survey *model.Survey) error {
	args := m.Called(ctx, survey)
	return args.Error(0)
}

func (m *MockSurveyRepo) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// memSubmissionRepo stores records by session id; failNext makes the next
// saves fail
type memSubmissionRepo struct {
	mu       sync.Mutex
	records  map[string]*model.SubmissionRecord
	order    []string
	failNext int
	saves    int
}

func newMemSubmissionRepo() *memSubmissionRepo {
	return &memSubmissionRepo{records: map[string]*model.SubmissionRecord{}}
}

func (r *memSubmissionRepo) Save(_ context.Context, rec *model.SubmissionRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.failNext > 0 {
		r.failNext--
		return false, errors.New("connection reset")
	}
	if _, ok := r.records[rec.SessionID]; ok {
		return false, nil
	}
	cp := *rec
	r.records[rec.SessionID] = &cp
	r.order = append(r.order, rec.SessionID)
	return true, nil
}

func (r *memSubmissionRepo) ListBySurvey(_ context.Context, tenantID, surveyID string) ([]*model.SubmissionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubmissionRecord
	for i := len(r.order) - 1; i >= 0; i-- {
		rec := r.records[r.order[i]]
		if rec.TenantID == tenantID && rec.SurveyID == surveyID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memSubmissionRepo) get(sessionID string) *model.SubmissionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[sessionID]
}

type memMarks struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemMarks() *memMarks {
	return &memMarks{seen: map[string]bool{}}
}

func (m *memMarks) MarkSubmitted(_ context.Context, tenantID, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tenantID + "/" + sessionID
	if m.seen[k] {
		return false, nil
	}
	m.seen[k] = true
	return true, nil
}

func (m *memMarks) IsSubmitted(_ context.Context, tenantID, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[tenantID+"/"+sessionID], nil
}

func (m *memMarks) Unmark(_ context.Context, tenantID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, tenantID+"/"+sessionID)
	return nil
}

type memSnapshots struct {
	mu     sync.Mutex
	states map[string]model.ResponseState
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{states: map[string]model.ResponseState{}}
}

func (m *memSnapshots) Save(_ context.Context, state *model.ResponseState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.SessionID] = *state
	return nil
}

func (m *memSnapshots) Get(_ context.Context, sessionID string) (*model.ResponseState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[sessionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSnapshots) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sessionID)
	return nil
}

type event struct {
	TenantID string
	SurveyID string
	Type     string
	Payload  interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []event
}

func (b *recordingBroadcaster) BroadcastToOwners(tenantID, surveyID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event{tenantID, surveyID, msgType, payload})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type
	}
	return out
}

// staticFetcher serves surveys from a map keyed by tenant/id
type staticFetcher map[string]*model.Survey

func (f staticFetcher) FetchSurvey(_ context.Context, tenantID, surveyID string) (*model.Survey, error) {
	s, ok := f[tenantID+"/"+surveyID]
	if !ok {
		return nil, errNotFoundSurvey
	}
	return s, nil
}

// fixedClassifier always answers with id
type fixedClassifier string

func (c fixedClassifier) Classify(context.Context, model.ClassificationRequest) (string, error) {
	return string(c), nil
}

type stubCompleter struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
}

func (s *stubCompleter) Complete(_ context.Context, _, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.prompts)
	s.prompts = append(s.prompts, user)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return `{"optionId": ""}`, nil
}

type memStats struct {
	mu       sync.Mutex
	counters map[string]*cache.Counters
	exits    map[string]map[string]int64
}

func newMemStats() *memStats {
	return &memStats{counters: map[string]*cache.Counters{}, exits: map[string]map[string]int64{}}
}

func (m *memStats) get(tenantID, surveyID string) *cache.Counters {
	k := tenantID + "/" + surveyID
	c, ok := m.counters[k]
	if !ok {
		c = &cache.Counters{Answered: map[string]int64{}, Picked: map[string]map[string]int64{}}
		m.counters[k] = c
	}
	return c
}

func (m *memStats) IncrStarted(_ context.Context, tenantID, surveyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(tenantID, surveyID).Started++
	return nil
}

func (m *memStats) IncrCompleted(_ context.Context, tenantID, surveyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(tenantID, surveyID).Completed++
	return nil
}

func (m *memStats) IncrAnswered(_ context.Context, tenantID, surveyID, questionID, optionID string, picked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.get(tenantID, surveyID)
	c.Answered[questionID]++
	if picked {
		if c.Picked[questionID] == nil {
			c.Picked[questionID] = map[string]int64{}
		}
		c.Picked[questionID][optionID]++
	}
	return nil
}

func (m *memStats) IncrExit(_ context.Context, tenantID, surveyID, questionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tenantID + "/" + surveyID
	if m.exits[k] == nil {
		m.exits[k] = map[string]int64{}
	}
	m.exits[k][questionID]++
	return nil
}

func (m *memStats) Counters(_ context.Context, tenantID, surveyID string) (*cache.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(tenantID, surveyID), nil
}

func (m *memStats) TopExits(_ context.Context, tenantID, surveyID string, limit int) ([]model.ExitPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExitPoint
	for q, n := range m.exits[tenantID+"/"+surveyID] {
		out = append(out, model.ExitPoint{QuestionID: q, Abandoned: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Abandoned > out[j].Abandoned })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStats) Reset(_ context.Context, tenantID, surveyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counters, tenantID+"/"+surveyID)
	delete(m.exits, tenantID+"/"+surveyID)
	return nil
}
