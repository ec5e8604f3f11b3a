package domain

import (
	"time"

	"github.com/google/uuid"
)

type CallType string

const (
	CallAudio CallType = "AUDIO"
	CallVideo CallType = "VIDEO"
)

func (t CallType) Valid() bool {
	return t == CallAudio || t == CallVideo
}

type Call struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversationId"`
	CallerID       uuid.UUID `json:"callerId"`
	Type           CallType  `json:"type"`
	Active         bool      `json:"active"`
	Ended          bool      `json:"ended"`
	Answered       bool      `json:"answered"`
	Declined       bool      `json:"declined"`
	Cancelled      bool      `json:"cancelled"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Pending reports a call that is still ringing.
func (c *Call) Pending() bool {
	return !c.Active && !c.Ended && !c.Answered && !c.Declined && !c.Cancelled
}

// Open reports a call that blocks another one in the same conversation.
func (c *Call) Open() bool {
	return c.Pending() || (c.Active && !c.Ended)
}

// CallPatch is the body of a call state change. Exactly one flag is set.
type CallPatch struct {
	Answered  bool `json:"answered,omitempty"`
	Declined  bool `json:"declined,omitempty"`
	Cancelled bool `json:"cancelled,omitempty"`
}

func (p CallPatch) count() int {
	n := 0
	for _, b := range []bool{p.Answered, p.Declined, p.Cancelled} {
		if b {
			n++
		}
	}
	return n
}

func (p CallPatch) Valid() bool {
	return p.count() == 1
}
