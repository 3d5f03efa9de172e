package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomConstructors(t *testing.T) {
	assert.Equal(t, RoomID("channel:7"), ChannelRoom("7"))
	assert.Equal(t, RoomID("server:3"), ServerRoom("3"))
	assert.Equal(t, RoomID("user:u1"), UserRoom("u1"))
	assert.Equal(t, RoomID("voice:42"), VoiceRoom("42"))
}

func TestVoiceChannelID(t *testing.T) {
	assert.Equal(t, "42", VoiceRoom("42").VoiceChannelID())
	assert.Empty(t, ChannelRoom("42").VoiceChannelID())
	assert.True(t, VoiceRoom("42").IsVoice())
	assert.True(t, UserRoom("u1").IsUser())
	assert.False(t, ChannelRoom("7").IsVoice())
}

func TestParseRoomID(t *testing.T) {
	r, err := ParseRoomID("channel:7", "u1")
	require.NoError(t, err)
	assert.Equal(t, ChannelRoom("7"), r)

	r, err = ParseRoomID("server:3", "u1")
	require.NoError(t, err)
	assert.Equal(t, ServerRoom("3"), r)

	// own user room only
	r, err = ParseRoomID("user:u1", "u1")
	require.NoError(t, err)
	assert.Equal(t, UserRoom("u1"), r)

	_, err = ParseRoomID("user:u2", "u1")
	assert.ErrorIs(t, err, ErrBadRoomID)

	// voice rooms have their own join path
	_, err = ParseRoomID("voice:42", "u1")
	assert.ErrorIs(t, err, ErrBadRoomID)

	_, err = ParseRoomID("whatever", "u1")
	assert.ErrorIs(t, err, ErrBadRoomID)
}

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity("u1", "ann")
	require.NoError(t, err)
	assert.Equal(t, UserID("u1"), id.UserID)

	_, err = NewIdentity("u1", "")
	assert.ErrorIs(t, err, ErrUsernameEmpty)

	long := make([]byte, MaxUsernameLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = NewIdentity("u1", string(long))
	assert.ErrorIs(t, err, ErrUsernameTooLong)
}
