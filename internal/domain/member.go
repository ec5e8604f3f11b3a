package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleGuest     Role = "GUEST"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Level orders roles by privilege. Unknown roles rank below GUEST.
func (r Role) Level() int {
	switch r {
	case RoleGuest:
		return 1
	case RoleModerator:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

func (r Role) AtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

func (r Role) Valid() bool {
	return r.Level() > 0
}

type Member struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"profileId"`
	ServerID  uuid.UUID `json:"serverId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
