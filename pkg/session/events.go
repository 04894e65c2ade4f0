package session

import (
	"Parley/pkg/core"
	"Parley/pkg/models"
)

// handleEvent classifies one pushed backend event and dispatches it. Events
// are presumed at-least-once, not exactly-once, and may arrive in any order
// relative to each other; every branch is therefore an idempotent no-op when
// its target is missing or already in the event's end state. A malformed
// event is logged and dropped without touching the rest of the store.
func (s *Session) handleEvent(evt core.ChatEvent) {
	switch ev := evt.(type) {
	case core.MessageEvent:
		s.handleNewMessage(ev)
	case core.MessageEditedEvent:
		s.handleEdited(ev)
	case core.MessageDeletedEvent:
		s.handleDeleted(ev)
	case core.ReactionEvent:
		s.handleReaction(ev)
	case core.ReceiptEvent:
		s.handleReceipt(ev)
	case core.TypingEvent:
		s.tracker.SetTyping(ev.UserID, ev.UserName, ev.IsTyping)
		s.commitPresence()
	case core.PresenceEvent:
		s.tracker.SetPresence(ev.UserID, ev.IsOnline, ev.LastSeen)
		s.commitPresence()
	case core.GroupChangeEvent:
		s.log.Debug().
			Str("change", string(ev.ChangeType)).
			Str("participant", ev.ParticipantID).
			Msg("group change")
		if s.opts.OnGroupChange != nil {
			s.opts.OnGroupChange(ev)
		}
	default:
		s.log.Warn().Str("type", string(evt.Type())).Msg("dropping unrecognized event")
	}
}

// handleNewMessage converts a pushed message. Thread replies are routed to
// the thread count reconciler instead of the visible list; a top-level
// message whose id is already present (the echo of our own optimistic send)
// is a no-op.
func (s *Session) handleNewMessage(ev core.MessageEvent) {
	msg, ok := convertMessage(ev.Raw, s.opts.LocalUser.UID)
	if !ok {
		s.log.Warn().Str("id", ev.Raw.ID).Msg("dropping unconvertible message event")
		return
	}

	if msg.IsReply() {
		// Optimistic phase now, authoritative overwrite when the re-fetch
		// lands.
		count := s.threads.ApplyDelta(msg.ParentMessageID, +1)
		s.setThreadCount(msg.ParentMessageID, count)
		s.reconcileThreadCount(msg.ParentMessageID)
		return
	}

	if s.store.Merge([]models.Message{msg}) > 0 {
		s.commit()
	}
}

// handleEdited patches text and edit metadata onto the target. Edits against
// a deleted message are dropped: the tombstone is immutable.
func (s *Session) handleEdited(ev core.MessageEditedEvent) {
	if ev.MessageID == "" {
		s.log.Warn().Msg("dropping edit event without message id")
		return
	}
	patched := s.store.ApplyPatch(ev.MessageID, func(m models.Message) models.Message {
		if m.IsDeleted {
			return m
		}
		m.Text = ev.NewText
		m.EditedAt = normalizeTimestamp(ev.EditedAt)
		m.EditedBy = ev.EditedBy
		if ev.Reactions != nil {
			m.Reactions = convertReactions(ev.Reactions, s.opts.LocalUser.UID)
		}
		return m
	})
	if patched {
		s.commit()
	}
}

// handleDeleted tombstones the target. When the deleted message was itself a
// thread reply it never appears in the visible list; instead the parent's
// counter takes an optimistic decrement, corrected by the authoritative
// re-fetch.
func (s *Session) handleDeleted(ev core.MessageDeletedEvent) {
	if ev.MessageID == "" {
		s.log.Warn().Msg("dropping delete event without message id")
		return
	}

	if ev.ParentMessageID != "" {
		count := s.threads.ApplyDelta(ev.ParentMessageID, -1)
		s.setThreadCount(ev.ParentMessageID, count)
		s.reconcileThreadCount(ev.ParentMessageID)
		return
	}

	patched := s.store.ApplyPatch(ev.MessageID, func(m models.Message) models.Message {
		m.IsDeleted = true
		m.Text = models.DeletedMessageText
		return m
	})
	if patched {
		s.commit()
	}
}

// handleReaction runs the reaction reducer against the target message.
// Stale targets and duplicate or unmatched deliveries fall out of the
// reducer as no-ops.
func (s *Session) handleReaction(ev core.ReactionEvent) {
	if ev.MessageID == "" || ev.Emoji == "" {
		s.log.Warn().Msg("dropping malformed reaction event")
		return
	}
	patched := s.store.ApplyPatch(ev.MessageID, func(m models.Message) models.Message {
		m.Reactions = applyReaction(m.Reactions, ev.Emoji, ev.UserID, s.opts.LocalUser.UID, ev.Added)
		return m
	})
	if patched {
		s.commit()
	}
}

// handleReceipt advances the delivery status monotonically. A "seen" receipt
// arriving without a prior "delivered" still lands on seen; a receipt that
// would regress the status is dropped.
func (s *Session) handleReceipt(ev core.ReceiptEvent) {
	if ev.MessageID == "" {
		s.log.Warn().Msg("dropping receipt event without message id")
		return
	}

	var target models.DeliveryStatus
	switch ev.ReceiptType {
	case core.ReceiptTypeDelivery:
		target = models.StatusDelivered
	case core.ReceiptTypeRead, core.ReceiptTypePlayed:
		target = models.StatusSeen
	default:
		s.log.Warn().Str("receipt", string(ev.ReceiptType)).Msg("dropping unknown receipt type")
		return
	}

	changed := false
	patched := s.store.ApplyPatch(ev.MessageID, func(m models.Message) models.Message {
		if target.Rank() > m.Status.Rank() {
			m.Status = target
			changed = true
		}
		return m
	})
	if patched && changed {
		s.commit()
	}
}
