package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

func (ctl *Controller) handleJoinVoice(cid core.ConnID, c *wsConn, data []byte) {
	type payload struct {
		Type      string `json:"type"`
		ChannelID string `json:"channel_id"`
		HasAudio  *bool  `json:"has_audio"`
		HasVideo  *bool  `json:"has_video"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join_voice payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.ChannelID == "" {
		ctl.sendError(c, "bad_payload")
		return
	}
	// mirrors the client defaults: mic on, camera off
	hasAudio, hasVideo := true, false
	if p.HasAudio != nil {
		hasAudio = *p.HasAudio
	}
	if p.HasVideo != nil {
		hasVideo = *p.HasVideo
	}

	if err := ctl.Orch.JoinVoice(cid, p.ChannelID, hasAudio, hasVideo); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", string(cid)).
			Str("channel", p.ChannelID).Msg("join voice")
		ctl.sendError(c, "failed to join voice channel")
	}
}

func (ctl *Controller) handleVoiceSignal(cid core.ConnID, id domain.Identity, c *wsConn, data []byte) {
	type payload struct {
		Type         string          `json:"type"`
		TargetUserID string          `json:"target_user_id"`
		Signal       json.RawMessage `json:"signal"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad voice_signal payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.TargetUserID == "" || len(p.Signal) == 0 {
		ctl.sendError(c, "bad_payload")
		return
	}

	err := ctl.Orch.RouteSignal(cid, id, domain.UserID(p.TargetUserID), p.Signal)
	if errors.Is(err, core.ErrTargetUnreachable) {
		// informational, sender only; the sender may retry after the
		// target reconnects
		ctl.sendError(c, "target_unreachable")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("route signal")
	}
}

func (ctl *Controller) handleVoiceStateUpdate(cid core.ConnID, c *wsConn, data []byte) {
	type payload struct {
		Type     string `json:"type"`
		HasAudio bool   `json:"has_audio"`
		HasVideo bool   `json:"has_video"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad voice_state_update payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Orch.UpdateVoiceState(cid, p.HasAudio, p.HasVideo)
}
