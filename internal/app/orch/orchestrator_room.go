package orch

import (
	"time"

	"github.com/google/uuid"

	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

// JoinRoom adds the connection to a text/server/user room. Idempotent;
// re-joining reports joined=false and changes nothing.
func (o *Orchestrator) JoinRoom(cid core.ConnID, room domain.RoomID) (joined bool, err error) {
	return o.Dir.Join(cid, room)
}

// LeaveRoom is the idempotent inverse of JoinRoom.
func (o *Orchestrator) LeaveRoom(cid core.ConnID, room domain.RoomID) (left bool) {
	return o.Dir.Leave(cid, room)
}

// ChannelMessage fans a chat message out to the channel room, excluding
// the sender. The id and timestamp are server-assigned.
func (o *Orchestrator) ChannelMessage(cid core.ConnID, from domain.Identity, channelID, content string) {
	if !o.live(cid) {
		return
	}
	o.Broadcast(domain.ChannelRoom(channelID), cid, ChannelMessageEvent{
		Type:       EvtChannelMessage,
		ID:         uuid.NewString(),
		ChannelID:  channelID,
		SenderID:   from.UserID,
		SenderName: from.Username,
		Content:    content,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// ChannelTyping broadcasts a typing indicator to the channel, excluding
// the sender. No state is retained.
func (o *Orchestrator) ChannelTyping(cid core.ConnID, from domain.Identity, channelID string, start bool) {
	if !o.live(cid) {
		return
	}
	typ := EvtTypingStop
	username := ""
	if start {
		typ = EvtTypingStart
		username = from.Username
	}
	o.Broadcast(domain.ChannelRoom(channelID), cid, TypingEvent{
		Type:      typ,
		ChannelID: channelID,
		UserID:    from.UserID,
		Username:  username,
	})
}
