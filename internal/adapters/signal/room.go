package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

func (ctl *Controller) handleJoinRoom(cid core.ConnID, id domain.Identity, c *wsConn, data []byte) {
	room, ok := ctl.parseRoom(cid, id, c, data)
	if !ok {
		return
	}
	joined, err := ctl.Orch.JoinRoom(cid, room)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("join room")
		return
	}
	if !joined {
		log.Debug().Str("module", "signal").Str("cid", string(cid)).
			Str("room", string(room)).Msg("already a member")
	}
}

func (ctl *Controller) handleLeaveRoom(cid core.ConnID, id domain.Identity, c *wsConn, data []byte) {
	room, ok := ctl.parseRoom(cid, id, c, data)
	if !ok {
		return
	}
	ctl.Orch.LeaveRoom(cid, room)
}

func (ctl *Controller) parseRoom(cid core.ConnID, id domain.Identity, c *wsConn, data []byte) (domain.RoomID, bool) {
	type payload struct {
		Type   string `json:"type"`
		RoomID string `json:"room_id"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad room payload")
		ctl.sendError(c, "bad_payload")
		return "", false
	}
	room, err := domain.ParseRoomID(p.RoomID, id.UserID)
	if err != nil {
		log.Warn().Str("module", "signal").Str("cid", string(cid)).
			Str("room_id", p.RoomID).Msg("rejected room id")
		ctl.sendError(c, "bad_room")
		return "", false
	}
	return room, true
}

func (ctl *Controller) handleChannelMessage(cid core.ConnID, id domain.Identity, c *wsConn, data []byte) {
	type payload struct {
		Type      string `json:"type"`
		ChannelID string `json:"channel_id"`
		Content   string `json:"content"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad channel_message payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.ChannelID == "" || p.Content == "" {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Orch.ChannelMessage(cid, id, p.ChannelID, p.Content)
}

// handleTyping serves both channel and direct typing indicators; the
// payload carries either channel_id or target_user_id.
func (ctl *Controller) handleTyping(cid core.ConnID, id domain.Identity, c *wsConn, data []byte, start bool) {
	type payload struct {
		Type         string `json:"type"`
		ChannelID    string `json:"channel_id"`
		TargetUserID string `json:"target_user_id"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad typing payload")
		return
	}
	switch {
	case p.ChannelID != "":
		ctl.Orch.ChannelTyping(cid, id, p.ChannelID, start)
	case p.TargetUserID != "":
		ctl.Orch.DirectTyping(cid, id, domain.UserID(p.TargetUserID), start)
	default:
		ctl.sendError(c, "bad_payload")
	}
}
