package flow

import (
	"context"
	"errors"
	"surveyflow/internal/model"
	"sync"
	"time"
)

func mc(id string, order int, opts ...model.Option) model.Question {
	return model.Question{ID: id, QuestionText: "Pick for " + id, Type: model.QuestionTypeMultipleChoice, Options: opts, Required: true, Order: order}
}

func text(id string, order int) model.Question {
	return model.Question{ID: id, QuestionText: "Tell us about " + id, Type: model.QuestionTypeText, Required: true, Order: order}
}

func classifier(id string, order int, opts ...model.Option) model.Question {
	return model.Question{ID: id, QuestionText: "Route " + id, Type: model.QuestionTypeClassifier, Options: opts, Order: order}
}

func finish(id string, order int) model.Question {
	return model.Question{ID: id, Type: model.QuestionTypeFinish, Order: order}
}

func opt(id, next string) model.Option {
	return model.Option{ID: id, Label: "Label " + id, NextQuestionID: next}
}

func survey(questions ...model.Question) *model.Survey {
	return &model.Survey{ID: "survey-1", TenantID: "tenant-1", Title: "Test", Questions: questions}
}

type fakeFetcher struct {
	survey *model.Survey
	err    error
	calls  int
}

func (f *fakeFetcher) FetchSurvey(_ context.Context, _, _ string) (*model.Survey, error) {
	f.calls++
	return f.survey, f.err
}

// scriptedClassifier answers per classifier question id
type scriptedClassifier struct {
	mu       sync.Mutex
	choices  map[string]string
	errs     map[string]error
	panics   map[string]bool
	block    bool
	requests []model.ClassificationRequest
}

func (s *scriptedClassifier) Classify(ctx context.Context, req model.ClassificationRequest) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.panics[req.QuestionID] {
		panic("classifier exploded")
	}
	if err := s.errs[req.QuestionID]; err != nil {
		return "", err
	}
	return s.choices[req.QuestionID], nil
}

func (s *scriptedClassifier) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// recordingSubmitter fails the first failures calls
type recordingSubmitter struct {
	mu       sync.Mutex
	failures int
	payloads []model.Submission
	attempts int
	release  chan struct{}
}

var errSinkDown = errors.New("sink unavailable")

func (r *recordingSubmitter) Submit(ctx context.Context, _, _ string, sub model.Submission) error {
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.attempts <= r.failures {
		return errSinkDown
	}
	r.payloads = append(r.payloads, sub)
	return nil
}

func (r *recordingSubmitter) submitted() []model.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Submission(nil), r.payloads...)
}

func testDeps(cl Classifier, sub Submitter) Deps {
	return Deps{
		Classifier:      cl,
		Submitter:       sub,
		ClassifyTimeout: 200 * time.Millisecond,
	}
}

func open(s *model.Survey, cl Classifier, sub Submitter) (*Collector, error) {
	return Open(context.Background(), &fakeFetcher{survey: s}, s.TenantID, s.ID, Options{}, testDeps(cl, sub))
}
