package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

func TestVoiceJoinSetsStateAndRoom(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")

	roster, prev, replaced, err := d.VoiceJoin("c1", "42", true, false)
	require.NoError(t, err)
	assert.Nil(t, prev)
	assert.False(t, replaced)
	assert.Empty(t, roster, "first joiner sees an empty roster")

	vs, ok := d.VoiceState("c1")
	require.True(t, ok)
	assert.Equal(t, "42", vs.ChannelID)
	assert.True(t, vs.HasAudio)
	assert.False(t, vs.HasVideo)
	assert.Len(t, d.MembersOf(domain.VoiceRoom("42")), 1)
}

func TestVoiceJoinRequiresIdentity(t *testing.T) {
	d := NewDirectory()
	d.Register("c1", stubConn{})

	_, _, _, err := d.VoiceJoin("c1", "42", true, false)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestVoiceRejoinReplacesNotDuplicates(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")
	authedConn(t, d, "c2", "u2", "bob")

	_, _, _, err := d.VoiceJoin("c1", "42", true, false)
	require.NoError(t, err)
	_, _, _, err = d.VoiceJoin("c2", "42", true, true)
	require.NoError(t, err)

	// same channel again with new flags
	_, prev, replaced, err := d.VoiceJoin("c1", "42", false, true)
	require.NoError(t, err)
	assert.Nil(t, prev)
	assert.True(t, replaced)

	snap := d.VoiceSnapshot("42", "")
	require.Len(t, snap, 2)
	// replacement keeps the original roster position
	assert.Equal(t, domain.UserID("u1"), snap[0].UserID)
	assert.False(t, snap[0].HasAudio)
	assert.True(t, snap[0].HasVideo)
}

func TestVoiceJoinSwitchesChannel(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")

	_, _, _, err := d.VoiceJoin("c1", "42", true, false)
	require.NoError(t, err)

	_, prev, replaced, err := d.VoiceJoin("c1", "43", true, false)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "42", prev.ChannelID)
	assert.False(t, replaced, "a channel switch is a fresh join, not a replace")

	assert.Empty(t, d.MembersOf(domain.VoiceRoom("42")))
	assert.Empty(t, d.VoiceSnapshot("42", ""))
	assert.Len(t, d.MembersOf(domain.VoiceRoom("43")), 1)
}

func TestVoiceSnapshotInsertionOrder(t *testing.T) {
	d := NewDirectory()
	for i, cid := range []core.ConnID{"c1", "c2", "c3"} {
		authedConn(t, d, cid, domain.UserID([]string{"u1", "u2", "u3"}[i]), "user")
		_, _, _, err := d.VoiceJoin(cid, "42", true, false)
		require.NoError(t, err)
	}

	snap := d.VoiceSnapshot("42", "")
	require.Len(t, snap, 3)
	assert.Equal(t, domain.UserID("u1"), snap[0].UserID)
	assert.Equal(t, domain.UserID("u2"), snap[1].UserID)
	assert.Equal(t, domain.UserID("u3"), snap[2].UserID)

	// middle leaver keeps the order of the rest
	_, ok := d.VoiceLeave("c2")
	require.True(t, ok)
	snap = d.VoiceSnapshot("42", "")
	require.Len(t, snap, 2)
	assert.Equal(t, domain.UserID("u1"), snap[0].UserID)
	assert.Equal(t, domain.UserID("u3"), snap[1].UserID)
}

func TestVoiceSnapshotExcludesUser(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")
	authedConn(t, d, "c2", "u2", "bob")
	for _, cid := range []core.ConnID{"c1", "c2"} {
		_, _, _, err := d.VoiceJoin(cid, "42", true, false)
		require.NoError(t, err)
	}

	snap := d.VoiceSnapshot("42", "u1")
	require.Len(t, snap, 1)
	assert.Equal(t, domain.UserID("u2"), snap[0].UserID)
}

func TestVoiceUpdateWithoutState(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")

	_, err := d.VoiceUpdate("c1", false, false)
	assert.ErrorIs(t, err, core.ErrNoVoiceState)
}

func TestVoiceUpdateInPlace(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")
	_, _, _, err := d.VoiceJoin("c1", "42", true, false)
	require.NoError(t, err)

	vs, err := d.VoiceUpdate("c1", false, true)
	require.NoError(t, err)
	assert.False(t, vs.HasAudio)
	assert.True(t, vs.HasVideo)

	snap := d.VoiceSnapshot("42", "")
	require.Len(t, snap, 1)
	assert.False(t, snap[0].HasAudio)
	assert.True(t, snap[0].HasVideo)
}

func TestVoiceLeaveIdempotent(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")
	_, _, _, err := d.VoiceJoin("c1", "42", true, false)
	require.NoError(t, err)

	vs, ok := d.VoiceLeave("c1")
	require.True(t, ok)
	assert.Equal(t, "42", vs.ChannelID)

	_, ok = d.VoiceLeave("c1")
	assert.False(t, ok)
	assert.Empty(t, d.MembersOf(domain.VoiceRoom("42")))
}
