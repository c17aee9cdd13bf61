package flow

import "surveyflow/internal/model"

// StartQuestion returns the question with the lowest order, ties broken by input
// order. Nil for an empty survey.
func StartQuestion(questions []model.Question) *model.Question {
	var start *model.Question
	for i := range questions {
		if start == nil || questions[i].Order < start.Order {
			start = &questions[i]
		}
	}
	return start
}

// NextQuestionID returns the explicit edge leaving current for the given answer:
// the matching option's target first, then the question's default target.
// An empty result means no explicit edge exists.
func NextQuestionID(current *model.Question, answer string) string {
	if current == nil {
		return ""
	}
	if answer != "" {
		if opt := current.Option(answer); opt != nil && opt.NextQuestionID != "" {
			return opt.NextQuestionID
		}
	}
	return current.NextQuestionID
}

// FollowingByOrder returns the question that comes right after current in
// (order, input index) sequence, or nil when current is the last one.
func FollowingByOrder(questions []model.Question, current *model.Question) *model.Question {
	if current == nil {
		return nil
	}
	pos := indexOf(questions, current.ID)
	if pos < 0 {
		return nil
	}

	var next *model.Question
	nextPos := -1
	for i := range questions {
		if !after(questions[i].Order, i, current.Order, pos) {
			continue
		}
		if next == nil || after(next.Order, nextPos, questions[i].Order, i) {
			next = &questions[i]
			nextPos = i
		}
	}
	return next
}

// Resolution is the outcome of following an edge
type Resolution struct {
	Next   *model.Question // Nil means submit
	Defect *Defect         // Set when the edge points at a missing question
}

// ResolveNext picks the question to show after current was answered with answer.
// Explicit edges win; without one the flow advances by order, and past the last
// question it submits. A dangling edge is reported and treated as submit.
func ResolveNext(questions []model.Question, current *model.Question, answer string) Resolution {
	if current == nil {
		return Resolution{}
	}
	if current.Type == model.QuestionTypeFinish {
		return Resolution{}
	}

	id := NextQuestionID(current, answer)
	if id == "" {
		return Resolution{Next: FollowingByOrder(questions, current)}
	}

	pos := indexOf(questions, id)
	if pos < 0 {
		return Resolution{Defect: &Defect{Kind: DefectDanglingEdge, QuestionID: current.ID, Target: id}}
	}
	return Resolution{Next: &questions[pos]}
}

func indexOf(questions []model.Question, id string) int {
	for i := range questions {
		if questions[i].ID == id {
			return i
		}
	}
	return -1
}

// after reports whether (order, pos) sorts strictly after (refOrder, refPos)
func after(order, pos, refOrder, refPos int) bool {
	if order != refOrder {
		return order > refOrder
	}
	return pos > refPos
}
