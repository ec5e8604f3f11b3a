package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/domain"
)

// Payload is the closed set of typed event payloads.
type Payload interface {
	Kind() Kind
	validate() error
}

type MessageAdded struct {
	Message domain.Message `json:"message"`
}

type MessageUpdated struct {
	Message domain.Message `json:"message"`
}

type Typing struct {
	ChatID   uuid.UUID `json:"chatId"`
	MemberID uuid.UUID `json:"memberId"`
	IsTyping bool      `json:"isTyping"`
}

type ChannelCreated struct {
	Channel domain.Channel `json:"channel"`
}

type ChannelDeleted struct {
	ServerID  uuid.UUID `json:"serverId"`
	ChannelID uuid.UUID `json:"channelId"`
}

// Notification is a cross-cutting alert, currently a new direct message.
type Notification struct {
	Type           string    `json:"type"`
	ServerID       uuid.UUID `json:"serverId"`
	ConversationID uuid.UUID `json:"conversationId"`
	FromMemberID   uuid.UUID `json:"fromMemberId"`
	Preview        string    `json:"preview"`
}

type CallSignalKind string

const (
	CallIncoming  CallSignalKind = "incoming"
	CallAnswered  CallSignalKind = "answered"
	CallDeclined  CallSignalKind = "declined"
	CallCancelled CallSignalKind = "cancelled"
	CallEnded     CallSignalKind = "ended"
)

type CallSignal struct {
	Signal CallSignalKind `json:"signal"`
	Call   domain.Call    `json:"call"`
}

func (MessageAdded) Kind() Kind   { return KindMessageAdded }
func (MessageUpdated) Kind() Kind { return KindMessageUpdated }
func (Typing) Kind() Kind         { return KindTyping }
func (ChannelCreated) Kind() Kind { return KindChannelCreated }
func (ChannelDeleted) Kind() Kind { return KindChannelDeleted }
func (Notification) Kind() Kind   { return KindNotification }
func (CallSignal) Kind() Kind     { return KindCall }

func validateMessage(m *domain.Message) error {
	if m.ID == "" {
		return errors.New("message id missing")
	}
	if m.Chat().IsZero() {
		return errors.New("message has no channel or conversation")
	}
	if m.ChannelID != nil && m.ConversationID != nil {
		return errors.New("message has both channel and conversation")
	}
	return nil
}

func (p MessageAdded) validate() error   { return validateMessage(&p.Message) }
func (p MessageUpdated) validate() error { return validateMessage(&p.Message) }

func (p Typing) validate() error {
	if p.ChatID == uuid.Nil || p.MemberID == uuid.Nil {
		return errors.New("typing payload missing ids")
	}
	return nil
}

func (p ChannelCreated) validate() error {
	if p.Channel.ID == uuid.Nil || p.Channel.ServerID == uuid.Nil {
		return errors.New("channel payload missing ids")
	}
	return nil
}

func (p ChannelDeleted) validate() error {
	if p.ChannelID == uuid.Nil || p.ServerID == uuid.Nil {
		return errors.New("channel payload missing ids")
	}
	return nil
}

func (p Notification) validate() error {
	if p.Type == "" || p.ConversationID == uuid.Nil {
		return errors.New("notification missing type or conversation")
	}
	return nil
}

func (p CallSignal) validate() error {
	switch p.Signal {
	case CallIncoming, CallAnswered, CallDeclined, CallCancelled, CallEnded:
	default:
		return fmt.Errorf("unknown call signal %q", p.Signal)
	}
	if p.Call.ID == uuid.Nil || p.Call.ConversationID == uuid.Nil {
		return errors.New("call payload missing ids")
	}
	if p.Signal == CallIncoming && !p.Call.Type.Valid() {
		return fmt.Errorf("invalid call type %q", p.Call.Type)
	}
	return nil
}

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Decode validates and deserializes the payload of the named event. The
// returned value is one of the payload structs (not a pointer).
func Decode(name string, raw json.RawMessage) (Payload, error) {
	n, err := ParseName(name)
	if err != nil {
		return nil, err
	}

	var p Payload
	switch n.Kind {
	case KindMessageAdded:
		p, err = decodeAs[MessageAdded](raw)
	case KindMessageUpdated:
		p, err = decodeAs[MessageUpdated](raw)
	case KindTyping:
		p, err = decodeAs[Typing](raw)
	case KindChannelCreated:
		p, err = decodeAs[ChannelCreated](raw)
	case KindChannelDeleted:
		p, err = decodeAs[ChannelDeleted](raw)
	case KindNotification:
		p, err = decodeAs[Notification](raw)
	case KindCall:
		p, err = decodeAs[CallSignal](raw)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", n.Kind, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", n.Kind, err)
	}
	return p, nil
}
