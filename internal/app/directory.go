package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

type connEntry struct {
	identity *domain.Identity
	conn     core.SignalConnection
	rooms    map[domain.RoomID]struct{}
}

// MemberRef is a read-only handle to a room occupant, safe to use after
// the directory lock is released.
type MemberRef struct {
	CID  core.ConnID
	Conn core.SignalConnection
}

// ForgetResult reports what Forget removed so the caller knows which
// rooms to notify.
type ForgetResult struct {
	Identity   *domain.Identity
	Rooms      []domain.RoomID
	Voice      *domain.VoiceState
	LastOfUser bool
}

// Directory is the process-wide source of truth for who is where:
// connection <-> identity, room membership and voice state. All mutation
// goes through it; disconnect cleanup goes through Forget and nothing else.
type Directory struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
	users map[domain.UserID]map[core.ConnID]struct{}
	rooms map[domain.RoomID]map[core.ConnID]struct{}

	// voice state, one per live connection, plus join order per channel
	voice      map[core.ConnID]*domain.VoiceState
	voiceOrder map[string][]core.ConnID
}

func NewDirectory() *Directory {
	return &Directory{
		conns:      make(map[core.ConnID]*connEntry),
		users:      make(map[domain.UserID]map[core.ConnID]struct{}),
		rooms:      make(map[domain.RoomID]map[core.ConnID]struct{}),
		voice:      make(map[core.ConnID]*domain.VoiceState),
		voiceOrder: make(map[string][]core.ConnID),
	}
}

// Register adds a connection in the unauthenticated state. Re-registering
// a live id is a no-op so an existing binding can never be clobbered.
func (d *Directory) Register(cid core.ConnID, conn core.SignalConnection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.conns[cid]; ok {
		return
	}
	d.conns[cid] = &connEntry{conn: conn, rooms: make(map[domain.RoomID]struct{})}
	log.Debug().Str("module", "app.directory").Str("cid", string(cid)).Msg("registered connection")
}

// BindIdentity attaches the verified identity, exactly once per connection.
func (d *Directory) BindIdentity(cid core.ConnID, id domain.Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.conns[cid]
	if !ok {
		return core.ErrNotFound
	}
	if e.identity != nil {
		return core.ErrAlreadyBound
	}
	e.identity = &id
	if _, ok := d.users[id.UserID]; !ok {
		d.users[id.UserID] = make(map[core.ConnID]struct{})
	}
	d.users[id.UserID][cid] = struct{}{}
	log.Info().Str("module", "app.directory").Str("cid", string(cid)).
		Str("user", string(id.UserID)).Msg("bound identity")
	return nil
}

// Identity returns the bound identity, if any.
func (d *Directory) Identity(cid core.ConnID) (domain.Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.conns[cid]; ok && e.identity != nil {
		return *e.identity, true
	}
	return domain.Identity{}, false
}

// Conn returns the transport handle for a connection.
func (d *Directory) Conn(cid core.ConnID) (core.SignalConnection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.conns[cid]; ok {
		return e.conn, true
	}
	return nil, false
}

// AllExcluding snapshots every live connection except one. Used for
// process-wide presence fan-out.
func (d *Directory) AllExcluding(exclude core.ConnID) []MemberRef {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]MemberRef, 0, len(d.conns))
	for cid, e := range d.conns {
		if cid == exclude {
			continue
		}
		out = append(out, MemberRef{CID: cid, Conn: e.conn})
	}
	return out
}

// ConnectionsOf returns all live connections of a user (multi-device).
func (d *Directory) ConnectionsOf(uid domain.UserID) []MemberRef {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]MemberRef, 0, len(d.users[uid]))
	for cid := range d.users[uid] {
		if e, ok := d.conns[cid]; ok {
			out = append(out, MemberRef{CID: cid, Conn: e.conn})
		}
	}
	return out
}

// Join adds the connection to a room, creating the room on first join.
// Idempotent: joining twice reports joined=false the second time.
func (d *Directory) Join(cid core.ConnID, room domain.RoomID) (joined bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.conns[cid]
	if !ok {
		return false, core.ErrNotFound
	}
	if _, already := e.rooms[room]; already {
		return false, nil
	}
	d.joinLocked(e, cid, room)
	return true, nil
}

// Leave removes the connection from a room. Idempotent.
func (d *Directory) Leave(cid core.ConnID, room domain.RoomID) (left bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.conns[cid]
	if !ok {
		return false
	}
	if _, member := e.rooms[room]; !member {
		return false
	}
	d.leaveLocked(e, cid, room)
	return true
}

// MembersOf snapshots the current occupants of a room.
func (d *Directory) MembersOf(room domain.RoomID) []MemberRef {
	return d.MembersExcluding(room, "")
}

// MembersExcluding snapshots room occupants minus one connection.
// Used for broadcast-except-self.
func (d *Directory) MembersExcluding(room domain.RoomID, exclude core.ConnID) []MemberRef {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set := d.rooms[room]
	out := make([]MemberRef, 0, len(set))
	for cid := range set {
		if cid == exclude {
			continue
		}
		if e, ok := d.conns[cid]; ok {
			out = append(out, MemberRef{CID: cid, Conn: e.conn})
		}
	}
	return out
}

// Rooms lists the rooms a connection is currently in.
func (d *Directory) Rooms(cid core.ConnID) []domain.RoomID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.conns[cid]
	if !ok {
		return nil
	}
	out := make([]domain.RoomID, 0, len(e.rooms))
	for r := range e.rooms {
		out = append(out, r)
	}
	return out
}

// Forget removes every trace of a connection in one critical section:
// room memberships, voice state and the identity binding. Idempotent;
// the second call reports ok=false and changes nothing.
func (d *Directory) Forget(cid core.ConnID) (ForgetResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.conns[cid]
	if !ok {
		return ForgetResult{}, false
	}

	var res ForgetResult
	res.Rooms = make([]domain.RoomID, 0, len(e.rooms))
	for room := range e.rooms {
		res.Rooms = append(res.Rooms, room)
		d.dropFromRoomLocked(cid, room)
	}

	if vs, ok := d.voice[cid]; ok {
		res.Voice = vs
		delete(d.voice, cid)
		d.dropFromOrderLocked(vs.ChannelID, cid)
	}

	if e.identity != nil {
		res.Identity = e.identity
		set := d.users[e.identity.UserID]
		delete(set, cid)
		if len(set) == 0 {
			delete(d.users, e.identity.UserID)
			res.LastOfUser = true
		}
	}

	delete(d.conns, cid)
	log.Info().Str("module", "app.directory").Str("cid", string(cid)).
		Int("rooms", len(res.Rooms)).Msg("forgot connection")
	return res, true
}

// joinLocked and leaveLocked keep the two sides of the membership mapping
// in step; callers hold the write lock.
func (d *Directory) joinLocked(e *connEntry, cid core.ConnID, room domain.RoomID) {
	e.rooms[room] = struct{}{}
	if _, ok := d.rooms[room]; !ok {
		d.rooms[room] = make(map[core.ConnID]struct{})
	}
	d.rooms[room][cid] = struct{}{}
}

func (d *Directory) leaveLocked(e *connEntry, cid core.ConnID, room domain.RoomID) {
	delete(e.rooms, room)
	d.dropFromRoomLocked(cid, room)
}

func (d *Directory) dropFromRoomLocked(cid core.ConnID, room domain.RoomID) {
	set, ok := d.rooms[room]
	if !ok {
		return
	}
	delete(set, cid)
	// empty rooms vanish; their key must not linger
	if len(set) == 0 {
		delete(d.rooms, room)
	}
}
