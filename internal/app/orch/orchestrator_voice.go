package orch

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

// JoinVoice puts the connection into a voice channel. The roster is
// enqueued to the joiner before the join is announced to the room, so the
// joiner can never miss a roster entry. Re-joining the current channel
// replaces the voice state and announces a state update, not a second
// join; joining another channel leaves the old one.
func (o *Orchestrator) JoinVoice(cid core.ConnID, channelID string, hasAudio, hasVideo bool) error {
	roster, prev, replaced, err := o.Dir.VoiceJoin(cid, channelID, hasAudio, hasVideo)
	if err != nil {
		return err
	}
	id, _ := o.Dir.Identity(cid)

	if prev != nil {
		o.Broadcast(domain.VoiceRoom(prev.ChannelID), cid, VoiceUserLeft{
			Type:      EvtVoiceUserLeft,
			ChannelID: prev.ChannelID,
			UserID:    id.UserID,
		})
		prevCh := prev.ChannelID
		o.persist("delete voice row", func(ctx context.Context) error {
			return o.Store.DeleteVoiceConnection(ctx, prevCh, id.UserID)
		})
	}

	// roster happens-before the join announcement
	if conn, ok := o.Dir.Conn(cid); ok {
		o.sendTo(cid, conn, VoiceUsersList{Type: EvtVoiceUsersList, ChannelID: channelID, Users: roster})
	}
	if replaced {
		// the room already has this member; a second user_joined would
		// duplicate the roster entry on every client
		o.Broadcast(domain.VoiceRoom(channelID), cid, VoiceStateUpdate{
			Type:      EvtVoiceStateUpdate,
			ChannelID: channelID,
			UserID:    id.UserID,
			HasAudio:  hasAudio,
			HasVideo:  hasVideo,
		})
	} else {
		o.Broadcast(domain.VoiceRoom(channelID), cid, VoiceUserJoined{
			Type: EvtVoiceUserJoined,
			VoiceState: domain.VoiceState{
				ChannelID: channelID,
				UserID:    id.UserID,
				Username:  id.Username,
				HasAudio:  hasAudio,
				HasVideo:  hasVideo,
			},
		})
	}

	o.persist("upsert voice row", func(ctx context.Context) error {
		return o.Store.UpsertVoiceConnection(ctx, channelID, id.UserID, !hasAudio)
	})
	return nil
}

// LeaveVoice drops the connection's voice state and announces the
// departure. Idempotent: leaving with no voice state is a no-op.
func (o *Orchestrator) LeaveVoice(cid core.ConnID) {
	vs, ok := o.Dir.VoiceLeave(cid)
	if !ok {
		return
	}
	o.Broadcast(domain.VoiceRoom(vs.ChannelID), cid, VoiceUserLeft{
		Type:      EvtVoiceUserLeft,
		ChannelID: vs.ChannelID,
		UserID:    vs.UserID,
	})
	o.persist("delete voice row", func(ctx context.Context) error {
		return o.Store.DeleteVoiceConnection(ctx, vs.ChannelID, vs.UserID)
	})
}

// UpdateVoiceState flips the audio/video flags and propagates the change
// to the channel. Without a voice state it is a logged no-op.
func (o *Orchestrator) UpdateVoiceState(cid core.ConnID, hasAudio, hasVideo bool) {
	vs, err := o.Dir.VoiceUpdate(cid, hasAudio, hasVideo)
	if err != nil {
		return
	}
	o.Broadcast(domain.VoiceRoom(vs.ChannelID), cid, VoiceStateUpdate{
		Type:      EvtVoiceStateUpdate,
		ChannelID: vs.ChannelID,
		UserID:    vs.UserID,
		HasAudio:  hasAudio,
		HasVideo:  hasVideo,
	})
	o.persist("update voice row", func(ctx context.Context) error {
		return o.Store.UpsertVoiceConnection(ctx, vs.ChannelID, vs.UserID, !hasAudio)
	})
}

// RouteSignal relays an opaque negotiation payload to every live
// connection of the target user; which device answers is the peer layer's
// problem. Zero live connections is reported to the sender only.
func (o *Orchestrator) RouteSignal(cid core.ConnID, from domain.Identity, target domain.UserID, signal json.RawMessage) error {
	if !o.live(cid) {
		return core.ErrNotFound
	}
	targets := o.Dir.ConnectionsOf(target)
	delivered := 0
	ev := SignalEvent{Type: EvtSignal, FromUserID: from.UserID, Username: from.Username, Signal: signal}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	for _, m := range targets {
		if m.CID == cid {
			continue
		}
		if err := m.Conn.TrySend(core.Frame(b)); err != nil {
			o.Metrics.Dropped()
			log.Warn().Err(err).Str("module", "orch").Str("cid", string(m.CID)).Msg("signal drop")
			continue
		}
		o.Metrics.Delivered()
		delivered++
	}
	if delivered == 0 {
		return core.ErrTargetUnreachable
	}
	return nil
}
