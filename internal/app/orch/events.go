package orch

import (
	"encoding/json"

	"github.com/Skannik/vid222/internal/domain"
)

// Outbound event names. Voice-room events carry the voice: prefix so a
// client can tell a voice departure from leaving a text room.
const (
	EvtVoiceUsersList   = "voice:users_list"
	EvtVoiceUserJoined  = "voice:user_joined"
	EvtVoiceUserLeft    = "voice:user_left"
	EvtVoiceStateUpdate = "voice:state_update"

	EvtSignal         = "signal"
	EvtChannelMessage = "channel_message"
	EvtDirectMessage  = "direct_message"

	EvtTypingStart       = "typing_start"
	EvtTypingStop        = "typing_stop"
	EvtDirectTypingStart = "direct:typing_start"
	EvtDirectTypingStop  = "direct:typing_stop"

	EvtUserStatus = "user_status"
	EvtUserLeft   = "user_left"
)

// VoiceUsersList is the roster sent to a connection right after it joins
// a voice channel, before its own join is announced to anyone else.
type VoiceUsersList struct {
	Type      string              `json:"type"`
	ChannelID string              `json:"channel_id"`
	Users     []domain.VoiceState `json:"users"`
}

type VoiceUserJoined struct {
	Type string `json:"type"`
	domain.VoiceState
}

type VoiceUserLeft struct {
	Type      string        `json:"type"`
	ChannelID string        `json:"channel_id"`
	UserID    domain.UserID `json:"user_id"`
}

type VoiceStateUpdate struct {
	Type      string        `json:"type"`
	ChannelID string        `json:"channel_id"`
	UserID    domain.UserID `json:"user_id"`
	HasAudio  bool          `json:"has_audio"`
	HasVideo  bool          `json:"has_video"`
}

// SignalEvent wraps an opaque WebRTC payload with the verified sender so
// the receiver cannot be spoofed. The payload is never inspected.
type SignalEvent struct {
	Type       string          `json:"type"`
	FromUserID domain.UserID   `json:"from_user_id"`
	Username   string          `json:"username"`
	Signal     json.RawMessage `json:"signal"`
}

type ChannelMessageEvent struct {
	Type       string        `json:"type"`
	ID         string        `json:"id"`
	ChannelID  string        `json:"channel_id"`
	SenderID   domain.UserID `json:"sender_id"`
	SenderName string        `json:"sender_name"`
	Content    string        `json:"content"`
	Timestamp  string        `json:"timestamp"`
}

type DirectMessageEvent struct {
	Type       string        `json:"type"`
	ID         string        `json:"id"`
	SenderID   domain.UserID `json:"sender_id"`
	ReceiverID domain.UserID `json:"receiver_id"`
	Username   string        `json:"username"`
	Content    string        `json:"content"`
	CreatedAt  string        `json:"created_at"`
}

type TypingEvent struct {
	Type      string        `json:"type"`
	ChannelID string        `json:"channel_id,omitempty"`
	UserID    domain.UserID `json:"user_id"`
	Username  string        `json:"username,omitempty"`
}

type UserStatusEvent struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"user_id"`
	Status string        `json:"status"`
}

type UserLeftEvent struct {
	Type   string        `json:"type"`
	Room   domain.RoomID `json:"room"`
	UserID domain.UserID `json:"user_id"`
}
