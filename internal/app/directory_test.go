package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

type stubConn struct{}

func (stubConn) TrySend(core.Frame) error { return nil }
func (stubConn) Close()                   {}

func authedConn(t *testing.T, d *Directory, cid core.ConnID, uid domain.UserID, name string) {
	t.Helper()
	d.Register(cid, stubConn{})
	require.NoError(t, d.BindIdentity(cid, domain.Identity{UserID: uid, Username: name}))
}

func TestBindIdentityExactlyOnce(t *testing.T) {
	d := NewDirectory()

	err := d.BindIdentity("nope", domain.Identity{UserID: "u1", Username: "ann"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	d.Register("c1", stubConn{})
	require.NoError(t, d.BindIdentity("c1", domain.Identity{UserID: "u1", Username: "ann"}))

	err = d.BindIdentity("c1", domain.Identity{UserID: "u2", Username: "mallory"})
	assert.ErrorIs(t, err, core.ErrAlreadyBound)

	id, ok := d.Identity("c1")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("u1"), id.UserID)
}

func TestRegisterDoesNotClobber(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")

	d.Register("c1", stubConn{})

	_, ok := d.Identity("c1")
	assert.True(t, ok, "re-register must not drop the identity binding")
}

func TestJoinLeaveParity(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")
	room := domain.ChannelRoom("7")

	joined, err := d.Join("c1", room)
	require.NoError(t, err)
	assert.True(t, joined)

	// duplicate join is a no-op, not an error
	joined, err = d.Join("c1", room)
	require.NoError(t, err)
	assert.False(t, joined)
	assert.Len(t, d.MembersOf(room), 1)

	assert.True(t, d.Leave("c1", room))
	assert.False(t, d.Leave("c1", room))
	assert.Empty(t, d.MembersOf(room))
}

func TestJoinUnknownConnection(t *testing.T) {
	d := NewDirectory()
	_, err := d.Join("ghost", domain.ChannelRoom("7"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMembershipSymmetry(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")

	r1 := domain.ChannelRoom("7")
	r2 := domain.ServerRoom("3")
	_, err := d.Join("c1", r1)
	require.NoError(t, err)
	_, err = d.Join("c1", r2)
	require.NoError(t, err)

	assert.ElementsMatch(t, []domain.RoomID{r1, r2}, d.Rooms("c1"))
	assert.Len(t, d.MembersOf(r1), 1)

	d.Leave("c1", r1)
	assert.ElementsMatch(t, []domain.RoomID{r2}, d.Rooms("c1"))
	assert.Empty(t, d.MembersOf(r1))
}

func TestMembersExcluding(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")
	authedConn(t, d, "c2", "u2", "bob")
	room := domain.ChannelRoom("7")
	for _, cid := range []core.ConnID{"c1", "c2"} {
		_, err := d.Join(cid, room)
		require.NoError(t, err)
	}

	refs := d.MembersExcluding(room, "c1")
	require.Len(t, refs, 1)
	assert.Equal(t, core.ConnID("c2"), refs[0].CID)
}

func TestMultiDeviceConnections(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "phone", "u1", "ann")
	authedConn(t, d, "laptop", "u1", "ann")

	assert.Len(t, d.ConnectionsOf("u1"), 2)

	res, ok := d.Forget("phone")
	require.True(t, ok)
	assert.False(t, res.LastOfUser)
	assert.Len(t, d.ConnectionsOf("u1"), 1)

	res, ok = d.Forget("laptop")
	require.True(t, ok)
	assert.True(t, res.LastOfUser)
	assert.Empty(t, d.ConnectionsOf("u1"))
}

func TestForgetRemovesEverything(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")

	_, err := d.Join("c1", domain.ChannelRoom("7"))
	require.NoError(t, err)
	_, err = d.Join("c1", domain.ServerRoom("3"))
	require.NoError(t, err)
	_, _, _, err = d.VoiceJoin("c1", "42", true, false)
	require.NoError(t, err)

	res, ok := d.Forget("c1")
	require.True(t, ok)
	assert.ElementsMatch(t, []domain.RoomID{
		domain.ChannelRoom("7"), domain.ServerRoom("3"), domain.VoiceRoom("42"),
	}, res.Rooms)
	require.NotNil(t, res.Voice)
	assert.Equal(t, "42", res.Voice.ChannelID)
	require.NotNil(t, res.Identity)
	assert.Equal(t, domain.UserID("u1"), res.Identity.UserID)

	assert.Empty(t, d.MembersOf(domain.ChannelRoom("7")))
	assert.Empty(t, d.MembersOf(domain.VoiceRoom("42")))
	assert.Empty(t, d.VoiceSnapshot("42", ""))
	assert.Empty(t, d.ConnectionsOf("u1"))
	_, ok = d.Identity("c1")
	assert.False(t, ok)
}

func TestForgetIdempotent(t *testing.T) {
	d := NewDirectory()
	authedConn(t, d, "c1", "u1", "ann")

	_, ok := d.Forget("c1")
	require.True(t, ok)
	_, ok = d.Forget("c1")
	assert.False(t, ok)
	_, ok = d.Forget("never-existed")
	assert.False(t, ok)
}
