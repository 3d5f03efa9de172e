// Package orch owns routing and the connection lifecycle: it is the only
// caller of the directory's mutating API on behalf of transport events.
package orch

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Skannik/vid222/internal/app"
	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
	"github.com/Skannik/vid222/internal/metrics"
)

// StateStore is the persistence collaborator for denormalized state
// external consumers read (voice rows, DM contacts, presence). Every call
// is best-effort: failures are logged and never affect routing.
type StateStore interface {
	SetUserStatus(ctx context.Context, uid domain.UserID, status string) error
	UpsertVoiceConnection(ctx context.Context, channelID string, uid domain.UserID, muted bool) error
	DeleteVoiceConnection(ctx context.Context, channelID string, uid domain.UserID) error
	TouchContact(ctx context.Context, uid, contact domain.UserID) error
}

type Orchestrator struct {
	Dir     *app.Directory
	Policy  app.Policy
	Store   StateStore
	Metrics *metrics.Metrics
}

func New(dir *app.Directory, policy app.Policy, store StateStore, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{Dir: dir, Policy: policy, Store: store, Metrics: m}
}

// Connect registers the connection, binds its verified identity and joins
// the user's private room. A second bind for the same connection fails
// with core.ErrAlreadyBound and leaves the connection untouched.
func (o *Orchestrator) Connect(cid core.ConnID, conn core.SignalConnection, id domain.Identity) error {
	o.Dir.Register(cid, conn)
	if err := o.Dir.BindIdentity(cid, id); err != nil {
		return err
	}
	if _, err := o.Dir.Join(cid, domain.UserRoom(id.UserID)); err != nil {
		return err
	}
	o.Metrics.ConnOpened()

	o.fanOut(o.Dir.AllExcluding(cid), UserStatusEvent{Type: EvtUserStatus, UserID: id.UserID, Status: "online"})
	o.persist("set status online", func(ctx context.Context) error {
		return o.Store.SetUserStatus(ctx, id.UserID, "online")
	})
	return nil
}

// Terminate is the single exit path for a connection, explicit or abrupt.
// It is absorbing: duplicate calls for the same id do nothing.
func (o *Orchestrator) Terminate(cid core.ConnID) {
	res, ok := o.Dir.Forget(cid)
	if !ok {
		return
	}
	o.Metrics.ConnClosed()
	if res.Identity == nil {
		return
	}
	uid := res.Identity.UserID

	// The connection is already gone from the directory, so these
	// broadcasts cannot reach it; no explicit exclude needed.
	for _, room := range res.Rooms {
		if room.IsVoice() {
			o.Broadcast(room, cid, VoiceUserLeft{
				Type:      EvtVoiceUserLeft,
				ChannelID: room.VoiceChannelID(),
				UserID:    uid,
			})
			continue
		}
		o.Broadcast(room, cid, UserLeftEvent{Type: EvtUserLeft, Room: room, UserID: uid})
	}

	if res.Voice != nil {
		ch := res.Voice.ChannelID
		o.persist("delete voice row", func(ctx context.Context) error {
			return o.Store.DeleteVoiceConnection(ctx, ch, uid)
		})
	}
	if res.LastOfUser {
		o.fanOut(o.Dir.AllExcluding(cid), UserStatusEvent{Type: EvtUserStatus, UserID: uid, Status: "offline"})
		o.persist("set status offline", func(ctx context.Context) error {
			return o.Store.SetUserStatus(ctx, uid, "offline")
		})
	}
	log.Info().Str("module", "orch").Str("cid", string(cid)).
		Str("user", string(uid)).Msg("terminated")
}

// Broadcast delivers an event to a snapshot of the room's members minus
// exclude. Delivery is non-blocking; a full or closed recipient never
// aborts the rest of the fan-out.
func (o *Orchestrator) Broadcast(room domain.RoomID, exclude core.ConnID, v any) {
	members := o.Dir.MembersExcluding(room, exclude)
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(room)).Msg("broadcast marshal")
		return
	}
	var kicked []app.MemberRef
	for _, m := range members {
		if err := m.Conn.TrySend(b); err != nil {
			o.Metrics.Dropped()
			log.Warn().Err(err).Str("module", "orch").Str("room", string(room)).
				Str("cid", string(m.CID)).Msg("broadcast drop")
			if errors.Is(err, core.ErrBackpressure) && o.Policy != nil &&
				o.Policy.OnBackPressure(room, m.CID) == app.KickMember {
				kicked = append(kicked, m)
			}
			continue
		}
		o.Metrics.Delivered()
	}
	// Kick outside the delivery loop; Terminate broadcasts on its own.
	for _, m := range kicked {
		go o.kick(m)
	}
}

// kick evicts a slow consumer: directory first, then the transport, so the
// pump pair unwinds and stops feeding events for the dead connection.
func (o *Orchestrator) kick(m app.MemberRef) {
	o.Terminate(m.CID)
	m.Conn.Close()
}

// live reports whether the sender is still known to the directory. Events
// arriving for a terminated connection are dropped, never routed.
func (o *Orchestrator) live(cid core.ConnID) bool {
	_, ok := o.Dir.Conn(cid)
	return ok
}

// fanOut sends one event to a pre-snapshotted recipient set.
func (o *Orchestrator) fanOut(members []app.MemberRef, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("fanout marshal")
		return
	}
	for _, m := range members {
		if err := m.Conn.TrySend(b); err != nil {
			o.Metrics.Dropped()
			log.Warn().Err(err).Str("module", "orch").Str("cid", string(m.CID)).Msg("fanout drop")
			continue
		}
		o.Metrics.Delivered()
	}
}

// sendTo delivers one event to a single connection.
func (o *Orchestrator) sendTo(cid core.ConnID, conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("send marshal")
		return
	}
	if err := conn.TrySend(b); err != nil {
		o.Metrics.Dropped()
		log.Warn().Err(err).Str("module", "orch").Str("cid", string(cid)).Msg("send drop")
		return
	}
	o.Metrics.Delivered()
}

func (o *Orchestrator) persist(op string, fn func(context.Context) error) {
	if o.Store == nil {
		return
	}
	if err := fn(context.Background()); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("op", op).Msg("store write failed")
	}
}
