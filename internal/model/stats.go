package model

// QuestionStats counts the answers one question received. Options holds the
// picks per option id; an undecided classifier is counted under "".
type QuestionStats struct {
	QuestionID string           `json:"questionId"`
	Type       QuestionType     `json:"type"`
	Answered   int64            `json:"answered"`
	Options    map[string]int64 `json:"options,omitempty"`
}

// ExitPoint is where abandoned responses stopped
type ExitPoint struct {
	QuestionID string `json:"questionId"` // "contact" for the contact step
	Abandoned  int64  `json:"abandoned"`
}

// SurveyStats is the aggregate funnel of a survey
type SurveyStats struct {
	SurveyID       string          `json:"surveyId"`
	Started        int64           `json:"started"`
	Completed      int64           `json:"completed"`
	CompletionRate float64         `json:"completionRate"`
	Questions      []QuestionStats `json:"questions"`
	Exits          []ExitPoint     `json:"exits"`
}
