package flow

import (
	"fmt"
	"surveyflow/internal/model"
)

// Severity of a graph issue. Errors block publishing, warnings are degraded
// around at runtime.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// IssueKind identifies a structural problem in a survey graph
type IssueKind string

const (
	IssueEmptySurvey       IssueKind = "empty_survey"
	IssueMissingID         IssueKind = "missing_id"
	IssueDuplicateID       IssueKind = "duplicate_id"
	IssueUnknownType       IssueKind = "unknown_type"
	IssueDanglingEdge      IssueKind = "dangling_edge"
	IssueMissingOptions    IssueKind = "missing_options"
	IssueUnexpectedOptions IssueKind = "unexpected_options"
	IssueMissingText       IssueKind = "missing_text"
	IssueUnreachable       IssueKind = "unreachable"
	IssueClassifierCycle   IssueKind = "classifier_cycle"
	IssueQuestionCycle     IssueKind = "question_cycle"
	IssueAmbiguousEntry    IssueKind = "ambiguous_entry"
)

// Issue is one finding of Validate
type Issue struct {
	Severity   Severity  `json:"severity"`
	Kind       IssueKind `json:"kind"`
	QuestionID string    `json:"questionId,omitempty"`
	OptionID   string    `json:"optionId,omitempty"`
	Message    string    `json:"message"`
}

// Report collects the issues of a survey graph
type Report struct {
	Issues []Issue `json:"issues"`
}

// Valid reports whether the graph has no error-severity issue
func (r Report) Valid() bool {
	return len(r.Errors()) == 0
}

// Errors returns the error-severity issues
func (r Report) Errors() []Issue {
	var errs []Issue
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			errs = append(errs, is)
		}
	}
	return errs
}

// Has reports whether an issue of the given kind was found
func (r Report) Has(kind IssueKind) bool {
	for _, is := range r.Issues {
		if is.Kind == kind {
			return true
		}
	}
	return false
}

func (r *Report) add(sev Severity, kind IssueKind, qid, oid, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity:   sev,
		Kind:       kind,
		QuestionID: qid,
		OptionID:   oid,
		Message:    fmt.Sprintf(format, args...),
	})
}

// Validate checks the structure of a survey graph: every edge target exists,
// there is a single entry point, classifier nodes carry options, and every
// question is reachable from the start.
func Validate(questions []model.Question) Report {
	var r Report
	if len(questions) == 0 {
		r.add(SeverityError, IssueEmptySurvey, "", "", "survey has no questions")
		return r
	}

	ids := make(map[string]int, len(questions))
	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			r.add(SeverityError, IssueMissingID, "", "", "question at position %d has no id", i)
			continue
		}
		if _, dup := ids[q.ID]; dup {
			r.add(SeverityError, IssueDuplicateID, q.ID, "", "question id %q is used more than once", q.ID)
			continue
		}
		ids[q.ID] = i
	}

	for i := range questions {
		checkQuestion(&r, &questions[i], ids)
	}
	if !r.Valid() {
		return r
	}

	start := StartQuestion(questions)
	for i := range questions {
		if &questions[i] != start && questions[i].Order == start.Order {
			r.add(SeverityWarning, IssueAmbiguousEntry, questions[i].ID, "",
				"question %q shares the lowest order with %q, input order decides the start", questions[i].ID, start.ID)
		}
	}

	checkReachability(&r, questions, start)
	return r
}

func checkQuestion(r *Report, q *model.Question, ids map[string]int) {
	if !q.Type.Valid() {
		r.add(SeverityError, IssueUnknownType, q.ID, "", "question %q has unknown type %q", q.ID, q.Type)
		return
	}

	switch q.Type {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeClassifier:
		if len(q.Options) == 0 {
			r.add(SeverityError, IssueMissingOptions, q.ID, "", "%s question %q has no options", q.Type, q.ID)
		}
	default:
		if len(q.Options) > 0 {
			r.add(SeverityError, IssueUnexpectedOptions, q.ID, "", "%s question %q cannot have options", q.Type, q.ID)
		}
	}

	if q.IsRespondentFacing() && q.QuestionText == "" {
		r.add(SeverityError, IssueMissingText, q.ID, "", "question %q has no text", q.ID)
	}

	seen := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		if opt.ID == "" {
			r.add(SeverityError, IssueMissingID, q.ID, "", "question %q has an option without id", q.ID)
			continue
		}
		if seen[opt.ID] {
			r.add(SeverityError, IssueDuplicateID, q.ID, opt.ID, "option id %q is used more than once in %q", opt.ID, q.ID)
		}
		seen[opt.ID] = true
		if opt.NextQuestionID != "" {
			if _, ok := ids[opt.NextQuestionID]; !ok {
				r.add(SeverityError, IssueDanglingEdge, q.ID, opt.ID, "option %q of %q points at missing question %q", opt.ID, q.ID, opt.NextQuestionID)
			}
		}
	}

	if q.NextQuestionID != "" {
		if _, ok := ids[q.NextQuestionID]; !ok {
			r.add(SeverityError, IssueDanglingEdge, q.ID, "", "question %q points at missing question %q", q.ID, q.NextQuestionID)
		}
	}
}

// successors lists every question the flow can move to after q
func successors(questions []model.Question, q *model.Question) []*model.Question {
	if q.Type == model.QuestionTypeFinish {
		return nil
	}

	var out []*model.Question
	seen := make(map[string]bool)
	push := func(n *model.Question) {
		if n != nil && !seen[n.ID] {
			seen[n.ID] = true
			out = append(out, n)
		}
	}

	fallthroughUsed := len(q.Options) == 0 || q.IsClassifier() || !q.Required
	for _, opt := range q.Options {
		if opt.NextQuestionID == "" {
			fallthroughUsed = true
			continue
		}
		if i := indexOf(questions, opt.NextQuestionID); i >= 0 {
			push(&questions[i])
		}
	}
	if fallthroughUsed {
		push(ResolveNext(questions, q, "").Next)
	}
	return out
}

func checkReachability(r *Report, questions []model.Question, start *model.Question) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(questions))
	var stack []*model.Question
	reported := make(map[string]bool)

	var visit func(q *model.Question)
	visit = func(q *model.Question) {
		color[q.ID] = grey
		stack = append(stack, q)
		for _, n := range successors(questions, q) {
			switch color[n.ID] {
			case white:
				visit(n)
			case grey:
				reportCycle(r, stack, n, reported)
			}
		}
		stack = stack[:len(stack)-1]
		color[q.ID] = black
	}
	visit(start)

	for i := range questions {
		if color[questions[i].ID] == white {
			r.add(SeverityWarning, IssueUnreachable, questions[i].ID, "", "question %q cannot be reached from the start", questions[i].ID)
		}
	}
}

// reportCycle records the cycle closed by an edge back to entry
func reportCycle(r *Report, stack []*model.Question, entry *model.Question, reported map[string]bool) {
	if reported[entry.ID] {
		return
	}
	reported[entry.ID] = true

	allClassifiers := true
	for i := len(stack) - 1; i >= 0; i-- {
		if !stack[i].IsClassifier() {
			allClassifiers = false
		}
		if stack[i].ID == entry.ID {
			break
		}
	}

	if allClassifiers {
		r.add(SeverityWarning, IssueClassifierCycle, entry.ID, "", "classifier chain through %q loops back on itself", entry.ID)
		return
	}
	r.add(SeverityWarning, IssueQuestionCycle, entry.ID, "", "flow can return to question %q, the response is submitted instead", entry.ID)
}
