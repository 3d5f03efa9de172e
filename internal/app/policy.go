package app

import (
	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a recipient whose send buffer is full
// during a fan-out.
type Policy interface {
	OnBackPressure(room domain.RoomID, cid core.ConnID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room domain.RoomID, cid core.ConnID) BackpressureAction {
	return KickMember
}
