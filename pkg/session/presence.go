package session

import (
	"sync"
	"time"

	"github.com/bep/debounce"

	"Parley/pkg/models"
)

// PresenceTracker keeps per-peer online/offline state and the debounced
// typing indicators for one conversation. Typing entries auto-expire after
// the shared typing duration so indicators disappear close to when the remote
// peer actually stopped, even if the "stopped" signal is lost. Presence is
// best-effort and self-correcting on the next event; there are no retries.
//
// State mutation happens on the session goroutine; expiry timers fire on
// their own goroutine and report back through the onExpire callback, which
// must re-enter the session loop.
type PresenceTracker struct {
	typing   map[string]*typingEntry
	presence map[string]models.Presence
	expiry   time.Duration
	onExpire func(uid string)
}

type typingEntry struct {
	userName  string
	expiresAt int64
	timer     *time.Timer
}

// NewPresenceTracker creates a tracker with the given typing expiry. onExpire
// is invoked (from a timer goroutine) when a peer's typing indicator times
// out.
func NewPresenceTracker(expiry time.Duration, onExpire func(uid string)) *PresenceTracker {
	return &PresenceTracker{
		typing:   make(map[string]*typingEntry),
		presence: make(map[string]models.Presence),
		expiry:   expiry,
		onExpire: onExpire,
	}
}

// SetTyping applies a typing started/ended signal for a peer. A new "started"
// signal resets the expiry timer; "ended" clears the entry immediately.
// A peer that is typing is also online.
func (p *PresenceTracker) SetTyping(uid, userName string, isTyping bool) {
	if entry, ok := p.typing[uid]; ok {
		entry.timer.Stop()
		delete(p.typing, uid)
	}
	if !isTyping {
		return
	}

	entry := &typingEntry{
		userName:  userName,
		expiresAt: time.Now().Add(p.expiry).UnixMilli(),
	}
	entry.timer = time.AfterFunc(p.expiry, func() {
		if p.onExpire != nil {
			p.onExpire(uid)
		}
	})
	p.typing[uid] = entry

	if state, ok := p.presence[uid]; !ok || !state.IsOnline {
		p.presence[uid] = models.Presence{IsOnline: true}
	}
}

// ExpireTyping clears a peer's typing indicator after its timer elapsed.
func (p *PresenceTracker) ExpireTyping(uid string) {
	if entry, ok := p.typing[uid]; ok {
		entry.timer.Stop()
		delete(p.typing, uid)
	}
}

// SetPresence applies an online/offline event, independent of typing.
func (p *PresenceTracker) SetPresence(uid string, isOnline bool, lastSeen int64) {
	p.presence[uid] = models.Presence{
		IsOnline: isOnline,
		LastSeen: normalizeTimestamp(lastSeen),
	}
}

// TypingSnapshot returns a copy of the current typing map for the UI.
func (p *PresenceTracker) TypingSnapshot() map[string]models.TypingState {
	out := make(map[string]models.TypingState, len(p.typing))
	for uid, entry := range p.typing {
		out[uid] = models.TypingState{
			UserName:  entry.userName,
			IsTyping:  true,
			ExpiresAt: entry.expiresAt,
		}
	}
	return out
}

// PresenceSnapshot returns a copy of the current presence map for the UI.
func (p *PresenceTracker) PresenceSnapshot() map[string]models.Presence {
	out := make(map[string]models.Presence, len(p.presence))
	for uid, state := range p.presence {
		out[uid] = state
	}
	return out
}

// StopAll cancels every pending expiry timer. Called on session teardown so
// no handler fires against a torn-down view.
func (p *PresenceTracker) StopAll() {
	for uid, entry := range p.typing {
		entry.timer.Stop()
		delete(p.typing, uid)
	}
}

// typingBroadcaster drives the outgoing side of the typing indicator. The
// first keystroke broadcasts "composing"; further keystrokes only push the
// trailing debounce out, and once the user goes quiet for the shared typing
// duration a single "paused" broadcast follows. The same duration governs the
// receiving side's auto-expiry, keeping both ends in sync.
type typingBroadcaster struct {
	mu        sync.Mutex
	active    bool
	stopped   bool
	debounced func(func())
	send      func(composing bool)
}

func newTypingBroadcaster(idle time.Duration, send func(composing bool)) *typingBroadcaster {
	return &typingBroadcaster{
		debounced: debounce.New(idle),
		send:      send,
	}
}

// Compose is called on every local keystroke.
func (b *typingBroadcaster) Compose() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	start := !b.active
	b.active = true
	b.mu.Unlock()

	if start {
		b.send(true)
	}
	b.debounced(b.pause)
}

func (b *typingBroadcaster) pause() {
	b.mu.Lock()
	if b.stopped || !b.active {
		b.mu.Unlock()
		return
	}
	b.active = false
	b.mu.Unlock()
	b.send(false)
}

// Stop disables the broadcaster and sends a final "paused" if one is owed.
func (b *typingBroadcaster) Stop() {
	b.mu.Lock()
	wasActive := b.active
	b.active = false
	b.stopped = true
	b.mu.Unlock()
	if wasActive {
		b.send(false)
	}
}
