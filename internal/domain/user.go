// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID string

// Identity is the verified (user id, username) pair bound to a connection
// after the bearer handshake. Immutable for the connection's lifetime.
type Identity struct {
	UserID   UserID `json:"user_id"`
	Username string `json:"username"`
}

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewIdentity(id UserID, username string) (Identity, error) {
	if len(username) == 0 {
		return Identity{}, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return Identity{}, ErrUsernameTooLong
	}
	return Identity{UserID: id, Username: username}, nil
}
