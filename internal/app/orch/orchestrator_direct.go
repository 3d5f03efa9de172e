package orch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skannik/vid222/internal/app"
	"github.com/Skannik/vid222/internal/core"
	"github.com/Skannik/vid222/internal/domain"
)

// DirectMessage delivers to every connection of the target user and
// echoes to every connection of the sender so all devices stay in sync.
// An offline target is not an error; the message is simply not relayed.
func (o *Orchestrator) DirectMessage(cid core.ConnID, from domain.Identity, target domain.UserID, content string) {
	if !o.live(cid) {
		return
	}
	msg := DirectMessageEvent{
		Type:       EvtDirectMessage,
		ID:         uuid.NewString(),
		SenderID:   from.UserID,
		ReceiverID: target,
		Username:   from.Username,
		Content:    content,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	// target's devices plus the sender's own, deduped for self-DMs
	seen := make(map[core.ConnID]struct{})
	var recipients []app.MemberRef
	for _, set := range [][]app.MemberRef{o.Dir.ConnectionsOf(target), o.Dir.ConnectionsOf(from.UserID)} {
		for _, m := range set {
			if _, dup := seen[m.CID]; dup {
				continue
			}
			seen[m.CID] = struct{}{}
			recipients = append(recipients, m)
		}
	}
	o.fanOut(recipients, msg)

	o.persist("touch contact", func(ctx context.Context) error {
		return o.Store.TouchContact(ctx, from.UserID, target)
	})
}

// DirectTyping sends a typing indicator to all of the target user's
// connections. Stateless, fire-and-forget.
func (o *Orchestrator) DirectTyping(cid core.ConnID, from domain.Identity, target domain.UserID, start bool) {
	if !o.live(cid) {
		return
	}
	typ := EvtDirectTypingStop
	username := ""
	if start {
		typ = EvtDirectTypingStart
		username = from.Username
	}
	o.fanOut(o.Dir.ConnectionsOf(target), TypingEvent{
		Type:     typ,
		UserID:   from.UserID,
		Username: username,
	})
}

// DirectJoin records that the sender opened a DM with target, so contact
// lists sort by recency.
func (o *Orchestrator) DirectJoin(cid core.ConnID, from domain.Identity, target domain.UserID) {
	if !o.live(cid) {
		return
	}
	o.persist("touch contact", func(ctx context.Context) error {
		return o.Store.TouchContact(ctx, from.UserID, target)
	})
}
