package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a direct chat between two members of one server. The pair
// is stored in canonical order so it stays unique regardless of who started it.
type Conversation struct {
	ID          uuid.UUID `json:"id"`
	ServerID    uuid.UUID `json:"serverId"`
	MemberOneID uuid.UUID `json:"memberOneId"`
	MemberTwoID uuid.UUID `json:"memberTwoId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CanonicalPair orders two member ids the way conversations store them.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

func (c *Conversation) HasMember(memberID uuid.UUID) bool {
	return c.MemberOneID == memberID || c.MemberTwoID == memberID
}

// Other returns the participant that is not memberID.
func (c *Conversation) Other(memberID uuid.UUID) uuid.UUID {
	if c.MemberOneID == memberID {
		return c.MemberTwoID
	}
	return c.MemberOneID
}
