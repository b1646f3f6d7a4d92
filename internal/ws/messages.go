package ws

import "encoding/json"

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	MsgStageStarted   MessageType = "stage_started"
	MsgStageCompleted MessageType = "stage_completed"
	MsgRunCompleted   MessageType = "run_completed"
	MsgError          MessageType = "error"
	MsgSync           MessageType = "sync"
	MsgLastRun        MessageType = "last_run"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StageEvent reports a pipeline stage starting or finishing. Integrity
// stages also carry the entity and its partition counts.
type StageEvent struct {
	RunID    string `json:"run_id"`
	Stage    string `json:"stage"`
	Detail   string `json:"detail,omitempty"`
	Entity   string `json:"entity,omitempty"`
	Clean    *int   `json:"clean,omitempty"`
	Orphaned *int   `json:"orphaned,omitempty"`
}

// ErrorEvent reports a failed run.
type ErrorEvent struct {
	RunID   string `json:"run_id,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

// NewMessage creates a new Message with the given type and payload.
func NewMessage(typ MessageType, payload any) ([]byte, error) {
	var p json.RawMessage
	if payload != nil {
		var err error
		p, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Message{Type: typ, Payload: p})
}
