package call

import (
	"net/url"

	"github.com/google/uuid"
)

// RoomURL is the media-room route for a call on the media server at base.
func RoomURL(base string, callID uuid.UUID) (string, error) {
	return url.JoinPath(base, "calls", callID.String())
}
