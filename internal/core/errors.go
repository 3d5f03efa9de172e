package core

import "errors"

var (
	// ErrAlreadyBound rejects a second identity bind on a live connection.
	ErrAlreadyBound = errors.New("identity already bound")
	// ErrNotFound means the connection id is unknown to the directory.
	ErrNotFound = errors.New("connection not found")
	// ErrTargetUnreachable means the target user has zero live connections.
	// Reported to the sender only, never fatal.
	ErrTargetUnreachable = errors.New("target user unreachable")
	// ErrNoVoiceState means the connection is not in a voice channel.
	ErrNoVoiceState = errors.New("no voice state")
	// ErrBackpressure means a recipient's send buffer is full.
	ErrBackpressure = errors.New("backpressure")
)
