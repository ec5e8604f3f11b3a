package call

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomURL(t *testing.T) {
	id := uuid.MustParse("0b6c3a5e-2f1d-4c8e-9a3b-7d2e1f0a9c44")

	u, err := RoomURL("http://localhost:7880", id)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7880/calls/0b6c3a5e-2f1d-4c8e-9a3b-7d2e1f0a9c44", u)

	u, err = RoomURL("https://media.example/base/", id)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example/base/calls/0b6c3a5e-2f1d-4c8e-9a3b-7d2e1f0a9c44", u)

	_, err = RoomURL("://bad", id)
	assert.Error(t, err)
}
