package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, cid core.ConnID, c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("cid", string(cid)).Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cid core.ConnID, id domain.Identity, c *wsConn, cancel context.CancelFunc) {
	defer func() {
		log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("readPump closing")
		ctl.Orch.Terminate(cid)
		ctl.releaseLimiter(id.UserID)
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.ReadLimit)
	pongWait := ctl.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("unexpected close")
				}
				return
			}
			if ctl.Limiter != nil && !ctl.Limiter.Allow(id.UserID) {
				ctl.sendError(c, "rate_limited")
				continue
			}
			ctl.dispatch(cid, id, c, data)
		}
	}
}

// releaseLimiter drops the user's rate window once their last connection
// is gone, so the history map does not grow with every user id ever seen.
func (ctl *Controller) releaseLimiter(uid domain.UserID) {
	if ctl.Limiter == nil {
		return
	}
	if len(ctl.Orch.Dir.ConnectionsOf(uid)) == 0 {
		ctl.Limiter.Forget(uid)
	}
}

func (ctl *Controller) dispatch(cid core.ConnID, id domain.Identity, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Orch.Metrics.Event(env.Type)

	switch env.Type {
	case "ping":
		ctl.sendJSON(c, map[string]string{"type": "pong"})
	case "join_voice":
		ctl.handleJoinVoice(cid, c, data)
	case "leave_voice":
		ctl.Orch.LeaveVoice(cid)
	case "voice_signal":
		ctl.handleVoiceSignal(cid, id, c, data)
	case "voice_state_update":
		ctl.handleVoiceStateUpdate(cid, c, data)
	case "join_room":
		ctl.handleJoinRoom(cid, id, c, data)
	case "leave_room":
		ctl.handleLeaveRoom(cid, id, c, data)
	case "channel_message":
		ctl.handleChannelMessage(cid, id, c, data)
	case "typing_start":
		ctl.handleTyping(cid, id, c, data, true)
	case "typing_stop":
		ctl.handleTyping(cid, id, c, data, false)
	case "direct_message":
		ctl.handleDirectMessage(cid, id, c, data)
	case "direct_join":
		ctl.handleDirectJoin(cid, id, c, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Str("cid", string(cid)).Msg("unknown event")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *wsConn, msg string) {
	ctl.sendJSON(c, map[string]string{"type": "error", "error": msg})
}
