// Package session implements the conversation state reconciliation engine:
// an in-memory, UI-facing message list kept correct and idempotent under
// concurrent optimistic mutations and live push events, with derived counters
// (thread replies, reactions, typing) eventually consistent with the
// backend's authoritative values.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"Parley/pkg/cache"
	"Parley/pkg/core"
	"Parley/pkg/models"
)

const (
	// DefaultTypingExpiry is the shared typing indicator duration: receivers
	// expire indicators after it, senders auto-stop broadcasting after it.
	DefaultTypingExpiry = 5 * time.Second

	// DefaultHistoryPageSize is how many messages one backward fetch loads.
	DefaultHistoryPageSize = 20

	commandBuffer = 64
)

// ErrClosed is returned by intents issued after the session was torn down.
var ErrClosed = errors.New("session: closed")

// Options configures a Session. The zero value is usable; LocalUser should be
// set so reactedByMe and send attribution work.
type Options struct {
	// LocalUser identifies the local account in sent messages and reactions.
	LocalUser models.Sender

	// TypingExpiry overrides DefaultTypingExpiry.
	TypingExpiry time.Duration

	// HistoryPageSize overrides DefaultHistoryPageSize.
	HistoryPageSize int

	// Cache, when set, serves the first page instantly and persists every
	// confirmed merge.
	Cache *cache.Cache

	// Logger receives structured engine logs. Defaults to a no-op logger.
	Logger zerolog.Logger

	// OnUpdate is invoked after every committed mutation, on the session
	// goroutine. It must not block and must not call back into the session.
	OnUpdate func()

	// OnSendFailed is invoked when an optimistic send is rolled back, with
	// the provisional id the UI saw. Invoked on the session goroutine.
	OnSendFailed func(localID string, err error)

	// OnError surfaces failed edit/delete/reaction intents after their
	// optimistic change has been reverted. Invoked on the session goroutine.
	OnError func(op string, err error)

	// OnGroupChange receives membership/admin events. Optional.
	OnGroupChange func(ev core.GroupChangeEvent)
}

// Session owns the reconciliation state for one open conversation view. All
// state is mutated by a single goroutine; intents and async continuations are
// posted onto its command channel. A Session must be closed when the view
// unmounts.
type Session struct {
	backend        core.Backend
	conversationID string
	opts           Options
	log            zerolog.Logger

	store    *Store
	threads  *ThreadCounts
	tracker  *PresenceTracker
	composer *typingBroadcaster

	commands chan func()
	events   <-chan core.ChatEvent
	release  func()
	done     chan struct{}
	stopped  chan struct{}
	closeOne sync.Once

	// UI-facing snapshots, swapped atomically on commit.
	snapMu       sync.RWMutex
	snapshot     []models.Message
	typingSnap   map[string]models.TypingState
	presenceSnap map[string]models.Presence
}

// New opens a session for one conversation: it subscribes to the backend's
// push channel, starts the event loop, and kicks off the initial history
// load (cache first when one is configured).
func New(backend core.Backend, conversationID string, opts Options) (*Session, error) {
	if opts.TypingExpiry <= 0 {
		opts.TypingExpiry = DefaultTypingExpiry
	}
	if opts.HistoryPageSize <= 0 {
		opts.HistoryPageSize = DefaultHistoryPageSize
	}

	events, release, err := backend.Subscribe(conversationID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		backend:        backend,
		conversationID: conversationID,
		opts:           opts,
		log:            opts.Logger.With().Str("conversation", conversationID).Logger(),
		store:          NewStore(),
		threads:        NewThreadCounts(),
		commands:       make(chan func(), commandBuffer),
		events:         events,
		release:        release,
		done:           make(chan struct{}),
		stopped:        make(chan struct{}),
		typingSnap:     map[string]models.TypingState{},
		presenceSnap:   map[string]models.Presence{},
	}
	s.tracker = NewPresenceTracker(opts.TypingExpiry, func(uid string) {
		s.post(func() {
			s.tracker.ExpireTyping(uid)
			s.commitPresence()
		})
	})
	s.composer = newTypingBroadcaster(opts.TypingExpiry, func(composing bool) {
		go func() {
			if err := s.backend.SendTyping(context.Background(), s.conversationID, composing); err != nil {
				s.log.Warn().Err(err).Bool("composing", composing).Msg("failed to broadcast typing state")
			}
		}()
	})

	go s.run()
	s.post(s.loadInitial)
	return s, nil
}

// run is the session event loop: the only goroutine that touches the store,
// the thread counters and the tracker. Handlers run to completion; their
// interleaving order across sources is arbitrary, which is why every handler
// is idempotent.
func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case cmd := <-s.commands:
			cmd()
		case evt, ok := <-s.events:
			if !ok {
				// Subscription released; keep serving commands until Close.
				s.events = nil
				continue
			}
			s.handleEvent(evt)
		}
	}
}

// post enqueues a command onto the session loop. Commands posted after Close
// are discarded: a component that unmounted stops applying further results to
// UI state.
func (s *Session) post(cmd func()) {
	select {
	case <-s.done:
	case s.commands <- cmd:
	}
}

// Close releases the subscription handle and stops all timers. In-flight
// backend calls are not aborted; their continuations are simply dropped.
// Safe to call more than once.
func (s *Session) Close() {
	s.closeOne.Do(func() {
		close(s.done)
		<-s.stopped
		s.release()
		s.composer.Stop()
		s.tracker.StopAll()
		s.log.Debug().Msg("session closed")
	})
}

// Messages returns the current ordered message snapshot. The returned slice
// is owned by the caller.
func (s *Session) Messages() []models.Message {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snapshot
}

// Typing returns the current typing indicator map, keyed by peer uid.
func (s *Session) Typing() map[string]models.TypingState {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.typingSnap
}

// Presence returns the current presence map, keyed by peer uid.
func (s *Session) Presence() map[string]models.Presence {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.presenceSnap
}

// ThreadCount returns the current reply counter for a parent message id.
// Zero means "no thread indicator".
func (s *Session) ThreadCount(parentID string) int {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	for i := range s.snapshot {
		if s.snapshot[i].ID == parentID {
			return s.snapshot[i].ThreadCount
		}
	}
	return 0
}

// NotifyComposing is called on every local keystroke; it drives the debounced
// outgoing typing broadcast.
func (s *Session) NotifyComposing() {
	select {
	case <-s.done:
	default:
		s.composer.Compose()
	}
}

// commit swaps the UI-facing message snapshot. The visible state transitions
// directly from old to new; no partially merged intermediate is observable.
// Runs on the session goroutine.
func (s *Session) commit() {
	snap := s.store.Snapshot()

	s.snapMu.Lock()
	s.snapshot = snap
	s.snapMu.Unlock()

	if s.opts.Cache != nil {
		if err := s.opts.Cache.SaveMessages(s.conversationID, snap); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist messages to cache")
		}
	}
	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate()
	}
}

// commitPresence swaps the typing and presence snapshots.
func (s *Session) commitPresence() {
	typing := s.tracker.TypingSnapshot()
	presence := s.tracker.PresenceSnapshot()

	s.snapMu.Lock()
	s.typingSnap = typing
	s.presenceSnap = presence
	s.snapMu.Unlock()

	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate()
	}
}

// setThreadCount patches the counter onto the parent message, keeping the
// counter map and the visible message in step.
func (s *Session) setThreadCount(parentID string, count int) {
	patched := s.store.ApplyPatch(parentID, func(m models.Message) models.Message {
		m.ThreadCount = count
		return m
	})
	if patched {
		s.commit()
	}
}

// reconcileThreadCount runs the authoritative phase: fetch the true count for
// a parent and unconditionally overwrite whatever the optimistic phase
// computed.
func (s *Session) reconcileThreadCount(parentID string) {
	go func() {
		count, err := s.backend.FetchThreadReplyCount(context.Background(), s.conversationID, parentID)
		if err != nil {
			// Count divergence is never an error; the next fetch or full
			// reload reconciles it.
			s.log.Warn().Err(err).Str("parent", parentID).Msg("authoritative thread count fetch failed")
			return
		}
		s.post(func() {
			final := s.threads.Overwrite(parentID, count)
			s.setThreadCount(parentID, final)
		})
	}()
}
