package model

// CandidateOption is one branch the classifier may choose
type CandidateOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ClassificationRequest is the input of the external classification call
type ClassificationRequest struct {
	TenantID       string            `json:"tenantId"`
	SurveyID       string            `json:"surveyId"`
	QuestionID     string            `json:"questionId"`
	Prompt         string            `json:"prompt,omitempty"` // Classifier node text, used as instructions when set
	VisitorContext VisitorContext    `json:"visitorContext,omitempty"`
	Candidates     []CandidateOption `json:"candidates"`
}
