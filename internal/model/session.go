package model

import "time"

// Step is the stage of a response session
type Step string

const (
	StepContact  Step = "contact"
	StepQuestion Step = "question"
	StepDone     Step = "done"
)

// ResponseState is the resumable snapshot of a response session.
// Answers keep traversal order and hold at most one entry per question.
type ResponseState struct {
	SessionID         string          `json:"sessionId"`
	TenantID          string          `json:"tenantId"`
	SurveyID          string          `json:"surveyId"`
	Step              Step            `json:"step"`
	CurrentQuestionID string          `json:"currentQuestionId,omitempty"`
	Answers           []SurveyAnswer  `json:"answers"`
	ContactInfo       *ContactInfo    `json:"contactInfo,omitempty"`
	VisitorContext    VisitorContext  `json:"visitorContext,omitempty"`
	AntiAbuse         AntiAbuseFields `json:"antiAbuse,omitempty"`
	Pending           *Submission     `json:"pending,omitempty"` // Last payload that failed to submit
	StartedAt         time.Time       `json:"startedAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// ResponseView is what the respondent UI gets back after every action
type ResponseView struct {
	SessionID string           `json:"sessionId"`
	Step      Step             `json:"step"`
	Question  *Question        `json:"question,omitempty"`
	Contact   *ContactSettings `json:"contact,omitempty"`
	Progress  int              `json:"progress"` // Percent, classifier nodes excluded
	Done      bool             `json:"done"`
	Retryable bool             `json:"retryable,omitempty"` // A failed submission can be retried
}
