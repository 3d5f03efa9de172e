package domain

// VoiceState is the per-connection audio/video enablement record while the
// connection is a member of a voice room. One live instance per connection.
type VoiceState struct {
	ChannelID string `json:"channel_id"`
	UserID    UserID `json:"user_id"`
	Username  string `json:"username"`
	HasAudio  bool   `json:"has_audio"`
	HasVideo  bool   `json:"has_video"`
}
