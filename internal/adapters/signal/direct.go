package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

func (ctl *Controller) handleDirectMessage(cid core.ConnID, id domain.Identity, c *wsConn, data []byte) {
	type payload struct {
		Type         string `json:"type"`
		TargetUserID string `json:"target_user_id"`
		Content      string `json:"content"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad direct_message payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.TargetUserID == "" || p.Content == "" {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Orch.DirectMessage(cid, id, domain.UserID(p.TargetUserID), p.Content)
}

func (ctl *Controller) handleDirectJoin(cid core.ConnID, id domain.Identity, c *wsConn, data []byte) {
	type payload struct {
		Type         string `json:"type"`
		TargetUserID string `json:"target_user_id"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad direct_join payload")
		return
	}
	if p.TargetUserID == "" {
		return
	}
	ctl.Orch.DirectJoin(cid, id, domain.UserID(p.TargetUserID))
}
