package app

import (
	"github.com/rs/zerolog/log"

	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

// VoiceJoin puts the connection into the voice room for channelID and
// records its media state, in one critical section with the roster
// snapshot so the joiner can never miss a concurrent roster change.
//
// Re-joining the same channel replaces the state in place (keeping the
// original roster position); replaced reports that so the caller can
// announce a state change rather than a second join. Joining while in
// another channel leaves that channel first; its final state is returned
// as prev so the caller can announce the departure.
func (d *Directory) VoiceJoin(cid core.ConnID, channelID string, hasAudio, hasVideo bool) (roster []domain.VoiceState, prev *domain.VoiceState, replaced bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.conns[cid]
	if !ok || e.identity == nil {
		return nil, nil, false, core.ErrNotFound
	}
	id := *e.identity

	if old, ok := d.voice[cid]; ok && old.ChannelID != channelID {
		prev = old
		delete(d.voice, cid)
		d.dropFromOrderLocked(old.ChannelID, cid)
		d.leaveLocked(e, cid, domain.VoiceRoom(old.ChannelID))
	}

	room := domain.VoiceRoom(channelID)
	if _, member := e.rooms[room]; !member {
		d.joinLocked(e, cid, room)
	}

	if _, ok := d.voice[cid]; ok {
		replaced = true
	} else {
		d.voiceOrder[channelID] = append(d.voiceOrder[channelID], cid)
	}
	d.voice[cid] = &domain.VoiceState{
		ChannelID: channelID,
		UserID:    id.UserID,
		Username:  id.Username,
		HasAudio:  hasAudio,
		HasVideo:  hasVideo,
	}

	roster = d.snapshotLocked(channelID, id.UserID)
	log.Info().Str("module", "app.directory").Str("cid", string(cid)).
		Str("user", string(id.UserID)).Str("channel", channelID).Msg("voice join")
	return roster, prev, replaced, nil
}

// VoiceUpdate changes the media flags in place. Without a current voice
// state it is a logged no-op.
func (d *Directory) VoiceUpdate(cid core.ConnID, hasAudio, hasVideo bool) (domain.VoiceState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	vs, ok := d.voice[cid]
	if !ok {
		log.Warn().Str("module", "app.directory").Str("cid", string(cid)).Msg("voice update without state")
		return domain.VoiceState{}, core.ErrNoVoiceState
	}
	vs.HasAudio = hasAudio
	vs.HasVideo = hasVideo
	return *vs, nil
}

// VoiceLeave drops the voice state and leaves the voice room. Idempotent.
func (d *Directory) VoiceLeave(cid core.ConnID) (*domain.VoiceState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	vs, ok := d.voice[cid]
	if !ok {
		return nil, false
	}
	delete(d.voice, cid)
	d.dropFromOrderLocked(vs.ChannelID, cid)
	if e, ok := d.conns[cid]; ok {
		d.leaveLocked(e, cid, domain.VoiceRoom(vs.ChannelID))
	}
	log.Info().Str("module", "app.directory").Str("cid", string(cid)).
		Str("channel", vs.ChannelID).Msg("voice leave")
	return vs, true
}

// VoiceState returns the connection's current voice state, if any.
func (d *Directory) VoiceState(cid core.ConnID) (domain.VoiceState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if vs, ok := d.voice[cid]; ok {
		return *vs, true
	}
	return domain.VoiceState{}, false
}

// VoiceSnapshot lists the channel's voice states in join order, minus any
// connection of the excluded user. Stable across calls until membership
// changes.
func (d *Directory) VoiceSnapshot(channelID string, excluding domain.UserID) []domain.VoiceState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked(channelID, excluding)
}

func (d *Directory) snapshotLocked(channelID string, excluding domain.UserID) []domain.VoiceState {
	order := d.voiceOrder[channelID]
	out := make([]domain.VoiceState, 0, len(order))
	for _, cid := range order {
		vs, ok := d.voice[cid]
		if !ok || vs.ChannelID != channelID {
			continue
		}
		if excluding != "" && vs.UserID == excluding {
			continue
		}
		out = append(out, *vs)
	}
	return out
}

func (d *Directory) dropFromOrderLocked(channelID string, cid core.ConnID) {
	order := d.voiceOrder[channelID]
	for i, c := range order {
		if c == cid {
			d.voiceOrder[channelID] = append(order[:i], order[i+1:]...)
			break
		}
	}
	if len(d.voiceOrder[channelID]) == 0 {
		delete(d.voiceOrder, channelID)
	}
}
