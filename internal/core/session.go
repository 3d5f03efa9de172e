package core

// ConnID identifies one live transport-level session. Minted by the
// adapter at upgrade time, never reused across reconnects.
type ConnID string

// Frame is a marshaled outbound event.
type Frame []byte

// SignalConnection abstracts for a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
