package service

// Live feed event types
const (
	EventResponseStarted   = "response_started"
	EventResponseProgress  = "response_progress"
	EventResponseSubmitted = "response_submitted"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToOwners(tenantID, surveyID string, msgType string, payload interface{})
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToOwners(string, string, string, interface{}) {}

// ProgressEvent is the payload of response_started and response_progress
type ProgressEvent struct {
	SessionID string `json:"sessionId"`
	Step      string `json:"step"`
	Progress  int    `json:"progress"`
}

// SubmittedEvent is the payload of response_submitted
type SubmittedEvent struct {
	SessionID  string `json:"sessionId"`
	Answers    int    `json:"answers"`
	HasContact bool   `json:"hasContact"`
}
