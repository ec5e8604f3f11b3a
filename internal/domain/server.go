package domain

import (
	"time"

	"github.com/google/uuid"
)

// GeneralChannel is created with every server and cannot be removed.
const GeneralChannel = "general"

type Server struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ProfileID uuid.UUID `json:"profileId"`
	CreatedAt time.Time `json:"createdAt"`
}
