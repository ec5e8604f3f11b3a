package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChannelType string

const (
	ChannelText  ChannelType = "TEXT"
	ChannelAudio ChannelType = "AUDIO"
	ChannelVideo ChannelType = "VIDEO"
)

type Channel struct {
	ID        uuid.UUID   `json:"id"`
	ServerID  uuid.UUID   `json:"serverId"`
	Name      string      `json:"name"`
	Type      ChannelType `json:"type"`
	ProfileID uuid.UUID   `json:"profileId"`
	CreatedAt time.Time   `json:"createdAt"`
}
