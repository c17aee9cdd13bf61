package ws

import (
	"encoding/json"
	"surveyflow/internal/metrics"
	"sync"

	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Feed message types
const (
	MsgResponseStarted   MessageType = "response_started"
	MsgResponseProgress  MessageType = "response_progress"
	MsgResponseSubmitted MessageType = "response_submitted"
)

// Message is the WebSocket envelope format
type Message struct {
	Type     MessageType     `json:"type"`
	SurveyID string          `json:"surveyId"`
	Payload  json.RawMessage `json:"payload"`
}

// Hub fans response events out to the owners watching a survey
type Hub struct {
	// tenant/survey -> connections
	feeds map[string]map[*Connection]struct{}

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	stopOnce   sync.Once

	metrics *metrics.Collector
	logger  *zap.Logger
}

// Connection represents an owner's WebSocket connection
type Connection struct {
	TenantID string
	SurveyID string
	OwnerID  string
	Send     chan []byte
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	TenantID string
	SurveyID string
	Message  *Message
}

func feedKey(tenantID, surveyID string) string {
	return tenantID + "/" + surveyID
}

// NewHub creates a new WebSocket hub. m may be nil.
func NewHub(m *metrics.Collector, logger *zap.Logger) *Hub {
	h := &Hub{
		feeds:      make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		metrics:    m,
		logger:     logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			key := feedKey(conn.TenantID, conn.SurveyID)
			if h.feeds[key] == nil {
				h.feeds[key] = make(map[*Connection]struct{})
			}
			h.feeds[key][conn] = struct{}{}
			h.mu.Unlock()
			h.gauge(1)
			h.logger.Info("owner feed connected",
				zap.String("tenantId", conn.TenantID),
				zap.String("surveyId", conn.SurveyID),
				zap.String("ownerId", conn.OwnerID),
			)

		case conn := <-h.unregister:
			h.mu.Lock()
			key := feedKey(conn.TenantID, conn.SurveyID)
			if conns, ok := h.feeds[key]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.feeds, key)
					}
					h.gauge(-1)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				h.logger.Error("failed to encode feed message", zap.Error(err))
				continue
			}
			h.mu.RLock()
			for conn := range h.feeds[feedKey(msg.TenantID, msg.SurveyID)] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for key, conns := range h.feeds {
				for conn := range conns {
					close(conn.Send)
					h.gauge(-1)
				}
				delete(h.feeds, key)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) gauge(delta float64) {
	if h.metrics != nil {
		h.metrics.FeedClients.Add(delta)
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Stop closes every feed and ends the hub loop
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Clients returns the number of owners watching a survey
func (h *Hub) Clients(tenantID, surveyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.feeds[feedKey(tenantID, surveyID)])
}

// BroadcastToOwners sends an event to the owners of a survey (implements service.Broadcaster).
// It never blocks the caller; events are dropped when the hub is saturated.
func (h *Hub) BroadcastToOwners(tenantID, surveyID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode feed payload", zap.String("type", msgType), zap.Error(err))
		return
	}
	msg := &BroadcastMessage{
		TenantID: tenantID,
		SurveyID: surveyID,
		Message: &Message{
			Type:     MessageType(msgType),
			SurveyID: surveyID,
			Payload:  data,
		},
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("feed saturated, dropping event", zap.String("surveyId", surveyID), zap.String("type", msgType))
	}
}
