// Package backends contains implementations of the core.Backend interface.
package backends

import (
	"context"
	cryptoRand "crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"Parley/pkg/core"
)

// MockBackend is a fake implementation of the core.Backend interface for
// development and tests. It keeps per-conversation message logs in memory,
// fans pushed events out to subscribers, and simulates a chatty peer that
// types, replies, reacts and acknowledges.
type MockBackend struct {
	mu       sync.RWMutex
	messages map[string][]core.RawMessage // conversation id -> messages, oldest first
	replies  map[string][]core.RawMessage // parent message id -> thread replies
	subs     map[string][]chan core.ChatEvent
	config   core.BackendConfig
	log      zerolog.Logger
	stopped  bool

	// AutoReply controls whether sends trigger a simulated peer response.
	AutoReply bool
	// ReplyDelay is the pause before the simulated peer reacts.
	ReplyDelay time.Duration
	// FailSends makes every Send return an error, for rollback paths.
	FailSends bool
}

var loremIpsum = []string{
	"Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
	"Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
	"Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat.",
	"Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur.",
	"Excepteur sint occaecat cupidatat non proident, sunt in culpa qui officia deserunt mollit anim id est laborum.",
}

func secureRandInt(upperBound int) int {
	if upperBound <= 0 {
		return 0
	}
	n, err := cryptoRand.Int(cryptoRand.Reader, big.NewInt(int64(upperBound)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}

// NewMockBackend creates a mock backend with no conversations seeded.
// Recognized config keys: "auto_reply" (bool), "reply_delay_ms" (int).
func NewMockBackend(config core.BackendConfig, log zerolog.Logger) *MockBackend {
	if config == nil {
		config = make(core.BackendConfig)
	}
	m := &MockBackend{
		messages:   make(map[string][]core.RawMessage),
		replies:    make(map[string][]core.RawMessage),
		subs:       make(map[string][]chan core.ChatEvent),
		config:     config,
		log:        log,
		AutoReply:  true,
		ReplyDelay: time.Duration(secureRandInt(1500)+500) * time.Millisecond,
	}
	if v, ok := config.GetBool("auto_reply"); ok {
		m.AutoReply = v
	}
	if ms, ok := config.GetInt("reply_delay_ms"); ok && ms > 0 {
		m.ReplyDelay = time.Duration(ms) * time.Millisecond
	}
	return m
}

// Seed installs a canned conversation history. Timestamps are assigned in
// seconds on purpose: the engine's conversion boundary has to normalize them.
func (m *MockBackend) Seed(conversationID string, peer core.RawSender, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := time.Now().Add(-time.Duration(count) * time.Minute)
	for i := 0; i < count; i++ {
		sender := peer
		if i%3 == 0 {
			sender = core.RawSender{UID: "me", Name: "Me"}
		}
		m.messages[conversationID] = append(m.messages[conversationID], core.RawMessage{
			ID:             fmt.Sprintf("mock-msg-%s-%d", conversationID, i),
			ConversationID: conversationID,
			Category:       core.RawCategoryMessage,
			MessageType:    "text",
			Body:           loremIpsum[i%len(loremIpsum)],
			Sender:         &sender,
			SentAt:         base.Add(time.Duration(i) * time.Minute).Unix(),
			Delivered:      true,
		})
	}
}

// FetchHistory returns up to limit messages older than beforeID, oldest
// first.
func (m *MockBackend) FetchHistory(_ context.Context, conversationID string, beforeID string, limit int) ([]core.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[conversationID]
	end := len(msgs)
	if beforeID != "" {
		end = 0
		for i, msg := range msgs {
			if msg.ID == beforeID {
				end = i
				break
			}
		}
	}
	start := 0
	if limit > 0 && end-limit > 0 {
		start = end - limit
	}

	page := make([]core.RawMessage, end-start)
	copy(page, msgs[start:end])
	return page, nil
}

// Send appends a confirmed message and, when AutoReply is on, schedules the
// simulated peer's response.
func (m *MockBackend) Send(_ context.Context, conversationID string, payload core.SendPayload) (*core.RawMessage, error) {
	if m.FailSends {
		return nil, fmt.Errorf("mock send failure")
	}

	msg := core.RawMessage{
		ID:             fmt.Sprintf("mock-msg-%d", secureRandInt(100000)),
		ConversationID: conversationID,
		Category:       core.RawCategoryMessage,
		MessageType:    "text",
		Body:           payload.Text,
		Sender:         &core.RawSender{UID: "me", Name: "Me"},
		SentAt:         time.Now().Unix(),
		ParentID:       payload.ParentID,
	}
	if payload.Attachment != nil {
		msg.MessageType = classifyMime(payload.Attachment.MimeType)
		msg.Attachment = payload.Attachment
	}

	m.mu.Lock()
	if payload.ParentID != "" {
		m.replies[payload.ParentID] = append(m.replies[payload.ParentID], msg)
	} else {
		m.messages[conversationID] = append(m.messages[conversationID], msg)
	}
	m.mu.Unlock()

	m.log.Debug().Str("id", msg.ID).Str("conversation", conversationID).Msg("mock send confirmed")

	if m.AutoReply && payload.ParentID == "" {
		go m.simulatePeerResponse(conversationID, msg.ID)
	}
	return &msg, nil
}

// EditMessage rewrites the text of an existing message and echoes the edit to
// subscribers.
func (m *MockBackend) EditMessage(_ context.Context, conversationID string, messageID string, newText string) (*core.RawMessage, error) {
	m.mu.Lock()
	msgs, ok := m.messages[conversationID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("conversation not found: %s", conversationID)
	}
	var updated *core.RawMessage
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].Body = newText
			msgs[i].Edited = true
			msgs[i].EditedAt = time.Now().Unix()
			msgs[i].EditedBy = "me"
			cp := msgs[i]
			updated = &cp
			break
		}
	}
	m.mu.Unlock()

	if updated == nil {
		return nil, fmt.Errorf("message not found: %s", messageID)
	}

	m.emit(conversationID, core.MessageEditedEvent{
		ConversationID: conversationID,
		MessageID:      messageID,
		NewText:        newText,
		EditedBy:       "me",
		EditedAt:       updated.EditedAt,
	})
	return updated, nil
}

// DeleteMessage marks a message deleted and echoes the deletion.
func (m *MockBackend) DeleteMessage(_ context.Context, conversationID string, messageID string) error {
	m.mu.Lock()
	msgs, ok := m.messages[conversationID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("conversation not found: %s", conversationID)
	}
	found := false
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].Deleted = true
			found = true
			break
		}
	}
	m.mu.Unlock()

	if !found {
		return fmt.Errorf("message not found: %s", messageID)
	}

	m.emit(conversationID, core.MessageDeletedEvent{
		ConversationID: conversationID,
		MessageID:      messageID,
		DeletedBy:      "me",
		Timestamp:      time.Now().Unix(),
	})
	return nil
}

// AddReaction records the local user's reaction on a message.
func (m *MockBackend) AddReaction(_ context.Context, conversationID string, messageID string, emoji string) error {
	return m.mutateReaction(conversationID, messageID, emoji, "me", true)
}

// RemoveReaction removes the local user's reaction from a message.
func (m *MockBackend) RemoveReaction(_ context.Context, conversationID string, messageID string, emoji string) error {
	return m.mutateReaction(conversationID, messageID, emoji, "me", false)
}

func (m *MockBackend) mutateReaction(conversationID, messageID, emoji, uid string, added bool) error {
	m.mu.Lock()
	msgs, ok := m.messages[conversationID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("conversation not found: %s", conversationID)
	}
	found := false
	for i := range msgs {
		if msgs[i].ID != messageID {
			continue
		}
		found = true
		msgs[i].Reactions = mutateRawReactions(msgs[i].Reactions, emoji, uid, added)
		break
	}
	m.mu.Unlock()

	if !found {
		return fmt.Errorf("message not found: %s", messageID)
	}

	m.emit(conversationID, core.ReactionEvent{
		ConversationID: conversationID,
		MessageID:      messageID,
		UserID:         uid,
		Emoji:          emoji,
		Added:          added,
		Timestamp:      time.Now().Unix(),
	})
	return nil
}

func mutateRawReactions(reactions []core.RawReaction, emoji, uid string, added bool) []core.RawReaction {
	for i := range reactions {
		if reactions[i].Emoji != emoji {
			continue
		}
		if added {
			for _, r := range reactions[i].Reactors {
				if r == uid {
					return reactions
				}
			}
			reactions[i].Reactors = append(reactions[i].Reactors, uid)
			return reactions
		}
		for j, r := range reactions[i].Reactors {
			if r == uid {
				reactions[i].Reactors = append(reactions[i].Reactors[:j], reactions[i].Reactors[j+1:]...)
				break
			}
		}
		if len(reactions[i].Reactors) == 0 {
			return append(reactions[:i], reactions[i+1:]...)
		}
		return reactions
	}
	if added {
		return append(reactions, core.RawReaction{Emoji: emoji, Reactors: []string{uid}})
	}
	return reactions
}

// FetchThreadReplyCount returns the authoritative reply count for a parent.
func (m *MockBackend) FetchThreadReplyCount(_ context.Context, _ string, parentID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.replies[parentID]), nil
}

// FetchThread returns the replies under a parent message, oldest first.
func (m *MockBackend) FetchThread(_ context.Context, _ string, parentID string) ([]core.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RawMessage, len(m.replies[parentID]))
	copy(out, m.replies[parentID])
	return out, nil
}

// SendTyping accepts the broadcast; the mock has no remote peer to notify.
func (m *MockBackend) SendTyping(_ context.Context, conversationID string, composing bool) error {
	m.log.Debug().Str("conversation", conversationID).Bool("composing", composing).Msg("typing broadcast")
	return nil
}

// Subscribe opens a push channel for one conversation. The release function
// closes the channel and removes it from the fan-out set.
func (m *MockBackend) Subscribe(conversationID string) (<-chan core.ChatEvent, func(), error) {
	ch := make(chan core.ChatEvent, 100)

	m.mu.Lock()
	m.subs[conversationID] = append(m.subs[conversationID], ch)
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.subs[conversationID]
		for i, sub := range subs {
			if sub == ch {
				m.subs[conversationID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, release, nil
}

// Push injects an arbitrary event into a conversation's subscribers. Tests
// and the realtime simulator use it directly.
func (m *MockBackend) Push(conversationID string, ev core.ChatEvent) {
	m.emit(conversationID, ev)
}

func (m *MockBackend) emit(conversationID string, ev core.ChatEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subs[conversationID] {
		select {
		case ch <- ev:
		default:
			m.log.Warn().Str("conversation", conversationID).Msg("subscriber channel full, dropping event")
		}
	}
}

// simulatePeerResponse plays a short scene after a local send: a delivery
// receipt comes back, the peer types for a moment, replies, and finally a
// read receipt lands on the local message.
func (m *MockBackend) simulatePeerResponse(conversationID, localMsgID string) {
	peer := core.RawSender{UID: conversationID, Name: "Peer"}

	time.Sleep(m.ReplyDelay / 2)
	m.emit(conversationID, core.ReceiptEvent{
		ConversationID: conversationID,
		MessageID:      localMsgID,
		ReceiptType:    core.ReceiptTypeDelivery,
		UserID:         peer.UID,
		Timestamp:      time.Now().Unix(),
	})
	m.emit(conversationID, core.TypingEvent{
		ConversationID: conversationID,
		UserID:         peer.UID,
		UserName:       peer.Name,
		IsTyping:       true,
	})

	time.Sleep(m.ReplyDelay)

	reply := core.RawMessage{
		ID:             fmt.Sprintf("mock-reply-%d", secureRandInt(100000)),
		ConversationID: conversationID,
		Category:       core.RawCategoryMessage,
		MessageType:    "text",
		Body:           loremIpsum[secureRandInt(len(loremIpsum))],
		Sender:         &peer,
		SentAt:         time.Now().Unix(),
	}
	m.mu.Lock()
	if !m.stopped {
		m.messages[conversationID] = append(m.messages[conversationID], reply)
	}
	m.mu.Unlock()

	m.emit(conversationID, core.TypingEvent{
		ConversationID: conversationID,
		UserID:         peer.UID,
		UserName:       peer.Name,
		IsTyping:       false,
	})
	m.emit(conversationID, core.MessageEvent{ConversationID: conversationID, Raw: reply})
	m.emit(conversationID, core.ReceiptEvent{
		ConversationID: conversationID,
		MessageID:      localMsgID,
		ReceiptType:    core.ReceiptTypeRead,
		UserID:         peer.UID,
		Timestamp:      time.Now().Unix(),
	})
}

// Stop quiesces the simulator.
func (m *MockBackend) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func classifyMime(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	default:
		return "file"
	}
}
