package model

// QuestionType defines the kind of node in a survey flow
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice" // Respondent picks one option
	QuestionTypeText           QuestionType = "text"            // Free text
	QuestionTypeClassifier     QuestionType = "classifier"      // Branch picked by the AI classifier, never shown
	QuestionTypeFinish         QuestionType = "finish"          // Terminal node, submits the response
)

// Valid reports whether t is one of the known question types
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeText, QuestionTypeClassifier, QuestionTypeFinish:
		return true
	}
	return false
}

// Option is a selectable choice of a multiple-choice or classifier question
type Option struct {
	ID             string `json:"id" bson:"id" dynamodbav:"id"`
	Label          string `json:"label" bson:"label" dynamodbav:"label"`
	NextQuestionID string `json:"nextQuestionId,omitempty" bson:"nextQuestionId,omitempty" dynamodbav:"nextQuestionId,omitempty"` // Empty falls through to the question default
}

// Question is a node in the survey flow graph
type Question struct {
	ID             string       `json:"id" bson:"id" dynamodbav:"id"`
	QuestionText   string       `json:"questionText,omitempty" bson:"questionText,omitempty" dynamodbav:"questionText,omitempty"`
	Type           QuestionType `json:"type" bson:"type" dynamodbav:"type"`
	Options        []Option     `json:"options,omitempty" bson:"options,omitempty" dynamodbav:"options,omitempty"` // multiple-choice and classifier only
	Required       bool         `json:"required" bson:"required" dynamodbav:"required"`
	Order          int          `json:"order" bson:"order" dynamodbav:"order"`
	NextQuestionID string       `json:"nextQuestionId,omitempty" bson:"nextQuestionId,omitempty" dynamodbav:"nextQuestionId,omitempty"` // Default edge, independent of the option picked
}

// IsRespondentFacing reports whether the respondent answers this question directly
func (q *Question) IsRespondentFacing() bool {
	return q.Type == QuestionTypeMultipleChoice || q.Type == QuestionTypeText
}

// IsClassifier reports whether the question is resolved by the classifier
func (q *Question) IsClassifier() bool {
	return q.Type == QuestionTypeClassifier
}

// Option returns the option with the given id, or nil
func (q *Question) Option(id string) *Option {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

// CandidateOptions returns the {id, label} pairs offered to the classifier
func (q *Question) CandidateOptions() []CandidateOption {
	candidates := make([]CandidateOption, 0, len(q.Options))
	for _, opt := range q.Options {
		candidates = append(candidates, CandidateOption{ID: opt.ID, Label: opt.Label})
	}
	return candidates
}
