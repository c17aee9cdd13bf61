package flow

import (
	"context"
	"encoding/json"
	"errors"
	"surveyflow/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ThreePlainQuestions(t *testing.T) {
	// Arrange
	s := survey(text("q1", 1), text("q2", 2), text("q3", 3))
	sub := &recordingSubmitter{}

	// Act
	c, err := open(s, nil, sub)
	require.NoError(t, err)

	// Assert
	view := c.View()
	assert.Equal(t, model.StepQuestion, view.Step)
	assert.Equal(t, "q1", view.Question.ID)
	assert.Equal(t, 0, view.Progress)

	view, err = c.SubmitAnswer(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, model.StepQuestion, view.Step)
	assert.Equal(t, "q2", view.Question.ID)
	assert.Equal(t, 33, view.Progress)

	view, err = c.SubmitAnswer(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, "q3", view.Question.ID)
	assert.Equal(t, 67, view.Progress)

	view, err = c.SubmitAnswer(context.Background(), "third")
	require.NoError(t, err)
	assert.Equal(t, model.StepDone, view.Step)
	assert.True(t, view.Done)
	assert.Nil(t, view.Question)
	assert.Equal(t, 100, view.Progress)

	payloads := sub.submitted()
	require.Len(t, payloads, 1)
	assert.Equal(t, []model.SurveyAnswer{
		{QuestionID: "q1", Answer: "first"},
		{QuestionID: "q2", Answer: "second"},
		{QuestionID: "q3", Answer: "third"},
	}, payloads[0].Answers)
	assert.Equal(t, c.SessionID(), payloads[0].SessionID)
}

func TestCollector_LeadingClassifierPicksBranch(t *testing.T) {
	s := survey(
		classifier("route", 0, opt("X", "x"), opt("Y", "y")),
		text("x", 1),
		text("y", 2),
	)
	cl := &scriptedClassifier{choices: map[string]string{"route": "Y"}}

	c, err := open(s, cl, &recordingSubmitter{})
	require.NoError(t, err)

	view := c.View()
	require.NotNil(t, view.Question)
	assert.Equal(t, "y", view.Question.ID)
	assert.Equal(t, []model.SurveyAnswer{{QuestionID: "route", Answer: "Y"}}, c.Snapshot().Answers)
	assert.Equal(t, 0, view.Progress)
}

func TestCollector_ClassifierFailureStillAdvances(t *testing.T) {
	s := survey(
		text("intro", 0),
		classifier("route", 1, opt("X", "x")),
		text("fallback", 2),
		text("x", 3),
	)
	cl := &scriptedClassifier{errs: map[string]error{"route": errors.New("model unavailable")}}

	c, err := open(s, cl, &recordingSubmitter{})
	require.NoError(t, err)

	view, err := c.SubmitAnswer(context.Background(), "hello")

	require.NoError(t, err)
	require.NotNil(t, view.Question)
	assert.Equal(t, "fallback", view.Question.ID)
	assert.Equal(t, []model.SurveyAnswer{
		{QuestionID: "intro", Answer: "hello"},
		{QuestionID: "route", Answer: ""},
	}, c.Snapshot().Answers)
}

func TestCollector_ClassifierFailureAtEndSubmits(t *testing.T) {
	s := survey(
		text("intro", 0),
		classifier("route", 1, opt("X", "")),
	)
	cl := &scriptedClassifier{errs: map[string]error{"route": errors.New("model unavailable")}}
	sub := &recordingSubmitter{}

	c, err := open(s, cl, sub)
	require.NoError(t, err)

	view, err := c.SubmitAnswer(context.Background(), "hello")

	require.NoError(t, err)
	assert.True(t, view.Done)
	require.Len(t, sub.submitted(), 1)
	assert.Equal(t, []model.SurveyAnswer{
		{QuestionID: "intro", Answer: "hello"},
		{QuestionID: "route", Answer: ""},
	}, sub.submitted()[0].Answers)
}

func TestCollector_RequiredContactMissing(t *testing.T) {
	// Arrange
	s := survey(classifier("route", 0, opt("X", "")), text("q", 1))
	s.ContactInfo = &model.ContactSettings{
		Name:  model.FieldSetting{Collect: true},
		Email: model.FieldSetting{Collect: true, Required: true},
	}
	fetcher := &fakeFetcher{survey: s}
	cl := &scriptedClassifier{choices: map[string]string{"route": "X"}}
	sub := &recordingSubmitter{}

	c, err := Open(context.Background(), fetcher, "tenant-1", "survey-1", Options{}, testDeps(cl, sub))
	require.NoError(t, err)
	assert.Equal(t, model.StepContact, c.View().Step)
	assert.Equal(t, 1, fetcher.calls)

	// Act
	view, err := c.SubmitContact(context.Background(), model.ContactInfo{Name: "Ada", Email: "   "})

	// Assert
	var cerr *ContactError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []string{"email"}, cerr.Missing)
	assert.Equal(t, model.StepContact, view.Step)
	assert.Nil(t, view.Question)
	assert.Empty(t, c.Snapshot().CurrentQuestionID)
	assert.Zero(t, cl.calls())
	assert.Equal(t, 1, fetcher.calls)
	assert.Empty(t, sub.submitted())
}

func TestCollector_ContactThenQuestions(t *testing.T) {
	s := survey(text("q", 1))
	s.ContactInfo = &model.ContactSettings{
		Email: model.FieldSetting{Collect: true, Required: true},
	}
	sub := &recordingSubmitter{}

	c, err := open(s, nil, sub)
	require.NoError(t, err)

	_, err = c.SubmitContact(context.Background(), model.ContactInfo{Email: "not-an-email"})
	var cerr *ContactError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []string{"email"}, cerr.Invalid)

	view, err := c.SubmitContact(context.Background(), model.ContactInfo{Email: " ada@example.com ", Phone: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, model.StepQuestion, view.Step)
	assert.Equal(t, "q", view.Question.ID)

	_, err = c.SubmitAnswer(context.Background(), "done")
	require.NoError(t, err)
	require.Len(t, sub.submitted(), 1)
	assert.Equal(t, &model.ContactInfo{Email: "ada@example.com"}, sub.submitted()[0].ContactInfo)
}

func TestCollector_OptionWithoutNextSubmits(t *testing.T) {
	s := survey(
		text("first", 1),
		mc("last", 2, opt("a", ""), opt("b", "")),
	)
	sub := &recordingSubmitter{}

	c, err := open(s, nil, sub)
	require.NoError(t, err)
	_, err = c.SubmitAnswer(context.Background(), "intro")
	require.NoError(t, err)

	last := c.View().Question
	require.NotNil(t, last)
	assert.Empty(t, NextQuestionID(last, "a"))

	view, err := c.SubmitAnswer(context.Background(), "a")

	require.NoError(t, err)
	assert.True(t, view.Done)
	require.Len(t, sub.submitted(), 1)
	assert.Equal(t, []model.SurveyAnswer{
		{QuestionID: "first", Answer: "intro"},
		{QuestionID: "last", Answer: "a"},
	}, sub.submitted()[0].Answers)
}

func TestCollector_AnswerValidation(t *testing.T) {
	optional := text("optional", 3)
	optional.Required = false
	s := survey(
		mc("pick", 1, opt("a", ""), opt("b", "")),
		text("required", 2),
		optional,
	)

	c, err := open(s, nil, &recordingSubmitter{})
	require.NoError(t, err)

	_, err = c.SubmitAnswer(context.Background(), "")
	assert.ErrorIs(t, err, ErrAnswerRequired)
	_, err = c.SubmitAnswer(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrUnknownOption)
	assert.Equal(t, "pick", c.View().Question.ID)
	assert.Empty(t, c.Snapshot().Answers)

	view, err := c.SubmitAnswer(context.Background(), " b ")
	require.NoError(t, err)
	assert.Equal(t, "required", view.Question.ID)

	_, err = c.SubmitAnswer(context.Background(), "   \t")
	assert.ErrorIs(t, err, ErrAnswerRequired)

	view, err = c.SubmitAnswer(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "optional", view.Question.ID)

	view, err = c.SubmitAnswer(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, view.Done)
	assert.Equal(t, []model.SurveyAnswer{
		{QuestionID: "pick", Answer: "b"},
		{QuestionID: "required", Answer: "text"},
		{QuestionID: "optional", Answer: ""},
	}, c.Snapshot().Answers)
}

func TestCollector_FinishQuestionSubmits(t *testing.T) {
	s := survey(text("q", 1), finish("end", 2), text("after", 3))
	sub := &recordingSubmitter{}

	c, err := open(s, nil, sub)
	require.NoError(t, err)

	view, err := c.SubmitAnswer(context.Background(), "answer")
	require.NoError(t, err)
	assert.Equal(t, "end", view.Question.ID)
	assert.Equal(t, 33, view.Progress)

	view, err = c.SubmitAnswer(context.Background(), "ignored")
	require.NoError(t, err)
	assert.True(t, view.Done)
	require.Len(t, sub.submitted(), 1)
	assert.Equal(t, []model.SurveyAnswer{{QuestionID: "q", Answer: "answer"}}, sub.submitted()[0].Answers)
}

func TestCollector_RetryIsByteIdentical(t *testing.T) {
	// Arrange
	s := survey(
		text("q1", 1),
		classifier("route", 2, opt("A", "")),
	)
	s.ContactInfo = &model.ContactSettings{Name: model.FieldSetting{Collect: true}}
	cl := &scriptedClassifier{choices: map[string]string{"route": "A"}}
	sub := &recordingSubmitter{failures: 2}

	c, err := Open(context.Background(), &fakeFetcher{survey: s}, "tenant-1", "survey-1",
		Options{AntiAbuse: model.AntiAbuseFields{"website": "", model.AntiAbuseStartedAt: "1700000000000"}},
		testDeps(cl, sub))
	require.NoError(t, err)
	_, err = c.SubmitContact(context.Background(), model.ContactInfo{Name: "Ada"})
	require.NoError(t, err)

	// Act
	view, err := c.SubmitAnswer(context.Background(), "hello")

	// Assert
	require.ErrorIs(t, err, ErrSubmit)
	require.ErrorIs(t, err, errSinkDown)
	assert.Equal(t, model.StepQuestion, view.Step)
	assert.True(t, view.Retryable)
	assert.Equal(t, "q1", view.Question.ID)
	assert.Empty(t, c.Snapshot().Answers)
	pending := c.Snapshot().Pending
	require.NotNil(t, pending)
	firstAttempt, err := json.Marshal(pending)
	require.NoError(t, err)

	_, err = c.RetrySubmit(context.Background())
	require.ErrorIs(t, err, ErrSubmit)

	view, err = c.RetrySubmit(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Done)
	assert.Equal(t, 1, cl.calls())

	payloads := sub.submitted()
	require.Len(t, payloads, 1)
	retried, err := json.Marshal(payloads[0])
	require.NoError(t, err)
	assert.Equal(t, string(firstAttempt), string(retried))
	assert.Equal(t, []model.SurveyAnswer{
		{QuestionID: "q1", Answer: "hello"},
		{QuestionID: "route", Answer: "A"},
	}, c.Snapshot().Answers)

	_, err = c.RetrySubmit(context.Background())
	assert.ErrorIs(t, err, ErrDone)
}

func TestCollector_RetryWithoutFailure(t *testing.T) {
	c, err := open(survey(text("q", 1)), nil, &recordingSubmitter{})
	require.NoError(t, err)

	_, err = c.RetrySubmit(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestCollector_NothingToAskSubmitsOnOpen(t *testing.T) {
	t.Run("empty survey", func(t *testing.T) {
		sub := &recordingSubmitter{}
		c, err := open(survey(), nil, sub)
		require.NoError(t, err)
		assert.True(t, c.View().Done)
		require.Len(t, sub.submitted(), 1)
		assert.Empty(t, sub.submitted()[0].Answers)
	})

	t.Run("classifier only with failing sink", func(t *testing.T) {
		s := survey(classifier("c", 0, opt("a", "")))
		cl := &scriptedClassifier{choices: map[string]string{"c": "a"}}
		sub := &recordingSubmitter{failures: 1}

		c, err := open(s, cl, sub)

		require.ErrorIs(t, err, ErrSubmit)
		require.NotNil(t, c)
		view := c.View()
		assert.Equal(t, model.StepQuestion, view.Step)
		assert.Nil(t, view.Question)
		assert.True(t, view.Retryable)

		_, err = c.SubmitAnswer(context.Background(), "x")
		assert.ErrorIs(t, err, ErrSubmitPending)

		view, err = c.RetrySubmit(context.Background())
		require.NoError(t, err)
		assert.True(t, view.Done)
		assert.Equal(t, []model.SurveyAnswer{{QuestionID: "c", Answer: "a"}}, sub.submitted()[0].Answers)
		assert.Equal(t, 1, cl.calls())
	})
}

func TestCollector_LoadFailure(t *testing.T) {
	notFound := errors.New("not found")
	_, err := Open(context.Background(), &fakeFetcher{err: notFound}, "t", "s", Options{}, Deps{})
	assert.ErrorIs(t, err, ErrSurveyLoad)
	assert.ErrorIs(t, err, notFound)

	_, err = Open(context.Background(), &fakeFetcher{}, "t", "s", Options{}, Deps{})
	assert.ErrorIs(t, err, ErrSurveyLoad)
}

func TestCollector_WrongStep(t *testing.T) {
	s := survey(text("q", 1))
	s.ContactInfo = &model.ContactSettings{Name: model.FieldSetting{Collect: true}}
	c, err := open(s, nil, &recordingSubmitter{})
	require.NoError(t, err)

	_, err = c.SubmitAnswer(context.Background(), "early")
	assert.ErrorIs(t, err, ErrWrongStep)

	_, err = c.SubmitContact(context.Background(), model.ContactInfo{})
	require.NoError(t, err)
	_, err = c.SubmitContact(context.Background(), model.ContactInfo{})
	assert.ErrorIs(t, err, ErrWrongStep)

	_, err = c.SubmitAnswer(context.Background(), "x")
	require.NoError(t, err)
	_, err = c.SubmitAnswer(context.Background(), "again")
	assert.ErrorIs(t, err, ErrDone)
}

func TestCollector_RevisitForcesSubmission(t *testing.T) {
	loop := text("b", 2)
	loop.NextQuestionID = "a"
	s := survey(text("a", 1), loop, text("c", 3))
	sub := &recordingSubmitter{}
	var defects []Defect
	deps := testDeps(nil, sub)
	deps.OnDefect = func(d Defect) { defects = append(defects, d) }

	c, err := Open(context.Background(), &fakeFetcher{survey: s}, "tenant-1", "survey-1", Options{}, deps)
	require.NoError(t, err)

	_, err = c.SubmitAnswer(context.Background(), "1")
	require.NoError(t, err)
	view, err := c.SubmitAnswer(context.Background(), "2")

	require.NoError(t, err)
	assert.True(t, view.Done)
	require.Len(t, defects, 1)
	assert.Equal(t, DefectRevisit, defects[0].Kind)
	assert.Equal(t, "a", defects[0].QuestionID)
	assert.Len(t, sub.submitted()[0].Answers, 2)
}

func TestCollector_TerminatesWithinQuestionCount(t *testing.T) {
	loopBack := text("t2", 3)
	loopBack.NextQuestionID = "c1"
	surveys := map[string]*model.Survey{
		"linear": survey(text("a", 1), text("b", 2), text("c", 3)),
		"classifier cycle": survey(
			text("t1", 0),
			classifier("c1", 1, opt("go", "c2")),
			classifier("c2", 2, opt("back", "c1")),
		),
		"cycle through visible question": survey(
			text("t1", 0),
			classifier("c1", 1, opt("go", "t2")),
			loopBack,
		),
		"branching": survey(
			mc("m", 0, opt("l", "left"), opt("r", "right")),
			text("left", 1),
			finish("end", 2),
			text("right", 3),
		),
	}

	for name, s := range surveys {
		t.Run(name, func(t *testing.T) {
			cl := &scriptedClassifier{choices: map[string]string{"c1": "go", "c2": "back"}}
			sub := &recordingSubmitter{}
			c, err := open(s, cl, sub)
			require.NoError(t, err)

			steps := 0
			for !c.View().Done {
				q := c.View().Question
				require.NotNil(t, q)
				answer := "value"
				if len(q.Options) > 0 {
					answer = q.Options[0].ID
				}
				_, err := c.SubmitAnswer(context.Background(), answer)
				require.NoError(t, err)
				steps++
				require.LessOrEqual(t, steps, len(s.Questions))
			}
			assert.Len(t, sub.submitted(), 1)
		})
	}
}

func TestCollector_ProgressIgnoresClassifiers(t *testing.T) {
	for k := 0; k <= 3; k++ {
		questions := []model.Question{text("a", 0)}
		for i := 0; i < k; i++ {
			id := string(rune('p' + i))
			questions = append(questions, classifier(id, 1+i, opt("o", "")))
		}
		questions = append(questions, text("z", 10))
		s := survey(questions...)

		c, err := open(s, &scriptedClassifier{}, &recordingSubmitter{})
		require.NoError(t, err)
		view, err := c.SubmitAnswer(context.Background(), "v")
		require.NoError(t, err)

		assert.Equal(t, "z", view.Question.ID)
		assert.Equal(t, 50, view.Progress, "classifiers: %d", k)
	}
}

func TestCollector_BusyAndClose(t *testing.T) {
	s := survey(text("q", 1))
	sub := &recordingSubmitter{release: make(chan struct{})}
	c, err := open(s, nil, sub)
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := c.SubmitAnswer(context.Background(), "answer")
		result <- err
	}()

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.busy
	}, time.Second, 5*time.Millisecond)

	_, err = c.SubmitAnswer(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	c.Close()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("submission did not stop after close")
	}
	assert.Equal(t, model.StepQuestion, c.Snapshot().Step)
	assert.Empty(t, c.Snapshot().Answers)

	_, err = c.SubmitAnswer(context.Background(), "late")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCollector_CloseDuringClassifierChain(t *testing.T) {
	// Arrange
	s := survey(
		text("q", 1),
		classifier("route", 2, opt("A", "second")),
		classifier("second", 3, opt("B", "")),
	)
	cl := &scriptedClassifier{block: true}
	sub := &recordingSubmitter{}
	deps := testDeps(cl, sub)
	deps.ClassifyTimeout = time.Minute
	c, err := Open(context.Background(), &fakeFetcher{survey: s}, "tenant-1", "survey-1", Options{}, deps)
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := c.SubmitAnswer(context.Background(), "hello")
		result <- err
	}()
	require.Eventually(t, func() bool { return cl.calls() == 1 }, time.Second, 5*time.Millisecond)

	// Act
	c.Close()

	// Assert
	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("classifier chain did not stop after close")
	}
	assert.Empty(t, sub.submitted())
	assert.Equal(t, 1, cl.calls())

	snap := c.Snapshot()
	assert.Empty(t, snap.Answers)
	assert.Equal(t, "q", snap.CurrentQuestionID)
	assert.Nil(t, snap.Pending)
}

func TestCollector_EvictDuringSubmission(t *testing.T) {
	sub := &recordingSubmitter{release: make(chan struct{})}
	c, err := open(survey(text("q", 1)), nil, sub)
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := c.SubmitAnswer(context.Background(), "answer")
		result <- err
	}()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.busy
	}, time.Second, 5*time.Millisecond)

	c.Evict()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrEvicted)
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("submission did not stop after eviction")
	}
	assert.Empty(t, sub.submitted())

	_, err = c.RetrySubmit(context.Background())
	assert.ErrorIs(t, err, ErrEvicted)
}

func TestCollector_AnswerRefusedWhileSubmissionPending(t *testing.T) {
	s := survey(
		text("q1", 1),
		classifier("route", 2, opt("A", "")),
	)
	cl := &scriptedClassifier{choices: map[string]string{"route": "A"}}
	sub := &recordingSubmitter{failures: 1}
	c, err := open(s, cl, sub)
	require.NoError(t, err)

	_, err = c.SubmitAnswer(context.Background(), "hello")
	require.ErrorIs(t, err, ErrSubmit)

	view, err := c.SubmitAnswer(context.Background(), "changed my mind")

	assert.ErrorIs(t, err, ErrSubmitPending)
	assert.True(t, view.Retryable)
	assert.Equal(t, 1, cl.calls())

	view, err = c.RetrySubmit(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Done)
	require.Len(t, sub.submitted(), 1)
	assert.Equal(t, []model.SurveyAnswer{
		{QuestionID: "q1", Answer: "hello"},
		{QuestionID: "route", Answer: "A"},
	}, sub.submitted()[0].Answers)
}

func TestRestore(t *testing.T) {
	s := survey(
		classifier("route", 0, opt("X", "x"), opt("Y", "y")),
		text("x", 1),
		text("y", 2),
	)
	cl := &scriptedClassifier{choices: map[string]string{"route": "Y"}}
	c, err := open(s, cl, &recordingSubmitter{})
	require.NoError(t, err)
	snap := c.Snapshot()

	t.Run("valid snapshot resumes without classifying", func(t *testing.T) {
		other := &scriptedClassifier{}
		sub := &recordingSubmitter{}
		restored, err := Restore(s, snap, testDeps(other, sub))
		require.NoError(t, err)

		assert.Equal(t, "y", restored.View().Question.ID)
		view, err := restored.SubmitAnswer(context.Background(), "hi")
		require.NoError(t, err)
		assert.True(t, view.Done)
		assert.Zero(t, other.calls())
		assert.Equal(t, []model.SurveyAnswer{
			{QuestionID: "route", Answer: "Y"},
			{QuestionID: "y", Answer: "hi"},
		}, sub.submitted()[0].Answers)
	})

	t.Run("trail no longer matches", func(t *testing.T) {
		bad := snap
		bad.CurrentQuestionID = "x"
		_, err := Restore(s, bad, Deps{})
		assert.ErrorIs(t, err, ErrStateMismatch)
	})

	t.Run("other survey", func(t *testing.T) {
		other := survey(text("q", 1))
		other.ID = "survey-2"
		_, err := Restore(other, snap, Deps{})
		assert.ErrorIs(t, err, ErrStateMismatch)
	})
}
