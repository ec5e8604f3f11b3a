package events

import (
	"encoding/json"
	"time"
)

// Frame ops.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpEmit        = "emit"
	OpEvent       = "event"
	OpAck         = "ack"
	OpError       = "error"
	OpPing        = "ping"
	OpPong        = "pong"
)

// Frame is the envelope for everything sent over the signaling socket.
type Frame struct {
	Op        string          `json:"op"`
	ID        string          `json:"id,omitempty"`
	Event     string          `json:"event,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// NewEvent creates a server-to-client event frame with the current timestamp.
func NewEvent(name string, payload any) (*Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Op:        OpEvent,
		Event:     name,
		Payload:   data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}
