package domain

import (
	"errors"
	"strings"
)

// RoomID is a namespaced room key: "channel:<id>", "server:<id>",
// "user:<id>" or "voice:<id>". Rooms exist only while they have members.
type RoomID string

const (
	prefixChannel = "channel:"
	prefixServer  = "server:"
	prefixUser    = "user:"
	prefixVoice   = "voice:"
)

var ErrBadRoomID = errors.New("bad room id")

func ChannelRoom(channelID string) RoomID { return RoomID(prefixChannel + channelID) }
func ServerRoom(serverID string) RoomID   { return RoomID(prefixServer + serverID) }
func UserRoom(id UserID) RoomID           { return RoomID(prefixUser + string(id)) }
func VoiceRoom(channelID string) RoomID   { return RoomID(prefixVoice + channelID) }

func (r RoomID) IsVoice() bool { return strings.HasPrefix(string(r), prefixVoice) }
func (r RoomID) IsUser() bool  { return strings.HasPrefix(string(r), prefixUser) }

// VoiceChannelID strips the voice prefix; empty for non-voice rooms.
func (r RoomID) VoiceChannelID() string {
	if !r.IsVoice() {
		return ""
	}
	return strings.TrimPrefix(string(r), prefixVoice)
}

// ParseRoomID validates a client-supplied room key. Voice rooms are not
// joinable this way (join_voice owns that path), and a user room is only
// joinable by its owner.
func ParseRoomID(raw string, owner UserID) (RoomID, error) {
	switch {
	case strings.HasPrefix(raw, prefixChannel), strings.HasPrefix(raw, prefixServer):
		return RoomID(raw), nil
	case strings.HasPrefix(raw, prefixUser):
		if raw != string(UserRoom(owner)) {
			return "", ErrBadRoomID
		}
		return RoomID(raw), nil
	default:
		return "", ErrBadRoomID
	}
}
