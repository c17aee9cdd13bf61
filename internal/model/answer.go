package model

import "time"

// SurveyAnswer records one answer of a response. For multiple-choice and classifier
// questions Answer holds the selected option id.
type SurveyAnswer struct {
	QuestionID string `json:"questionId" bson:"questionId" dynamodbav:"questionId"`
	Answer     string `json:"answer" bson:"answer" dynamodbav:"answer"`
}

// ContactInfo is the optional respondent contact data
type ContactInfo struct {
	Name  string `json:"name,omitempty" bson:"name,omitempty" dynamodbav:"name,omitempty"`
	Email string `json:"email,omitempty" bson:"email,omitempty" dynamodbav:"email,omitempty"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty" dynamodbav:"phone,omitempty"`
}

// IsEmpty reports whether no contact field was filled in
func (c *ContactInfo) IsEmpty() bool {
	return c == nil || (c.Name == "" && c.Email == "" && c.Phone == "")
}

// AntiAbuseFields are opaque values (honeypot, form start timestamp...) forwarded
// untouched to the submission sink
type AntiAbuseFields map[string]string

// Well-known anti-abuse keys set by the embed form
const (
	AntiAbuseStartedAt = "startedAt" // Unix millis when the form was opened
)

// Submission is the final payload of a response session
type Submission struct {
	SessionID   string          `json:"sessionId"`
	Answers     []SurveyAnswer  `json:"answers"`
	ContactInfo *ContactInfo    `json:"contactInfo,omitempty"`
	AntiAbuse   AntiAbuseFields `json:"antiAbuse,omitempty"`
}

// SubmissionRecord is a stored submission
type SubmissionRecord struct {
	SessionID   string         `json:"sessionId" bson:"_id"`
	TenantID    string         `json:"tenantId" bson:"tenantId"`
	SurveyID    string         `json:"surveyId" bson:"surveyId"`
	Answers     []SurveyAnswer `json:"answers" bson:"answers"`
	ContactInfo *ContactInfo   `json:"contactInfo,omitempty" bson:"contactInfo,omitempty"`
	SubmittedAt time.Time      `json:"submittedAt" bson:"submittedAt"`
}
