package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"Parley/pkg/core"
	"Parley/pkg/models"
)

// localIDPrefix marks provisional ids so they are recognizable in logs.
const localIDPrefix = "local-"

// SendText synthesizes a provisional message, makes it visible immediately,
// and reconciles it with the backend's confirmed copy, or rolls it back and
// reports through OnSendFailed. The provisional message disappears only on
// explicit failure resolution, never silently.
func (s *Session) SendText(text string) {
	s.post(func() {
		s.sendOptimistic(models.MessageTypeText, text, nil)
	})
}

// SendMedia sends an attachment. The visible text is the media type label,
// not the payload.
func (s *Session) SendMedia(att models.Attachment, msgType models.MessageType) {
	s.post(func() {
		s.sendOptimistic(msgType, msgType.DisplayLabel(), &att)
	})
}

// SendReply sends a thread reply under a parent message. Replies never enter
// the visible list; the parent's counter takes the optimistic bump and the
// authoritative re-fetch settles it.
func (s *Session) SendReply(parentID, text string) {
	s.post(func() {
		count := s.threads.ApplyDelta(parentID, +1)
		s.setThreadCount(parentID, count)

		payload := core.SendPayload{Text: text, ParentID: parentID}
		go func() {
			_, err := s.backend.Send(context.Background(), s.conversationID, payload)
			s.post(func() {
				if err != nil {
					s.log.Warn().Err(err).Str("parent", parentID).Msg("thread reply send failed")
					reverted := s.threads.ApplyDelta(parentID, -1)
					s.setThreadCount(parentID, reverted)
					if s.opts.OnError != nil {
						s.opts.OnError("reply", err)
					}
				}
				s.reconcileThreadCount(parentID)
			})
		}()
	})
}

// sendOptimistic runs the send pipeline on the session goroutine:
// (a) synthesize a provisional message with a client-generated id,
// (b) insert it, (c) invoke the backend send, (d) resolve with the confirmed
// copy on success, (e) resolve with nil and signal the caller on failure.
func (s *Session) sendOptimistic(msgType models.MessageType, text string, att *models.Attachment) {
	localID := localIDPrefix + uuid.NewString()
	provisional := models.Message{
		ID:          localID,
		Text:        text,
		Sender:      s.opts.LocalUser,
		SentAt:      time.Now().UnixMilli(),
		Type:        msgType,
		Status:      models.StatusSent,
		Attachment:  att,
		IsLocalOnly: true,
	}
	s.store.InsertOptimistic(provisional)
	s.commit()
	s.log.Debug().Str("local_id", localID).Msg("optimistic message inserted")

	payload := core.SendPayload{Text: text}
	if att != nil {
		payload.Attachment = &core.RawAttachment{
			URL:      att.URL,
			MimeType: att.MimeType,
			Name:     att.Name,
		}
		if msgType != models.MessageTypeText {
			payload.Text = ""
		}
	}

	go func() {
		raw, err := s.backend.Send(context.Background(), s.conversationID, payload)
		s.post(func() {
			s.resolveSend(localID, raw, err)
		})
	}()
}

// resolveSend settles a provisional entry with the backend's answer.
func (s *Session) resolveSend(localID string, raw *core.RawMessage, err error) {
	if err != nil {
		s.log.Warn().Err(err).Str("local_id", localID).Msg("send failed, rolling back")
		if s.store.ResolveOptimistic(localID, nil) {
			s.commit()
		}
		if s.opts.OnSendFailed != nil {
			s.opts.OnSendFailed(localID, err)
		}
		return
	}

	if raw == nil {
		s.resolveSend(localID, nil, fmt.Errorf("backend returned no confirmed message"))
		return
	}
	confirmed, ok := convertMessage(*raw, s.opts.LocalUser.UID)
	if !ok {
		s.resolveSend(localID, nil, fmt.Errorf("backend returned unconvertible message %q", raw.ID))
		return
	}
	if s.store.ResolveOptimistic(localID, &confirmed) {
		s.commit()
	}
	s.log.Debug().Str("local_id", localID).Str("id", confirmed.ID).Msg("optimistic message confirmed")
}

// EditText optimistically rewrites a message's text, then reconciles with the
// backend. On failure the prior text is restored and OnError fires.
func (s *Session) EditText(messageID, newText string) {
	s.post(func() {
		var prior models.Message
		found := false
		patched := s.store.ApplyPatch(messageID, func(m models.Message) models.Message {
			if m.IsDeleted {
				return m
			}
			prior = m.Clone()
			found = true
			m.Text = newText
			m.EditedAt = time.Now().UnixMilli()
			m.EditedBy = s.opts.LocalUser.UID
			return m
		})
		if !patched || !found {
			return
		}
		s.commit()

		go func() {
			raw, err := s.backend.EditMessage(context.Background(), s.conversationID, messageID, newText)
			s.post(func() {
				if err != nil {
					s.log.Warn().Err(err).Str("id", messageID).Msg("edit failed, restoring prior text")
					if s.store.ApplyPatch(messageID, func(models.Message) models.Message { return prior }) {
						s.commit()
					}
					if s.opts.OnError != nil {
						s.opts.OnError("edit", err)
					}
					return
				}
				if raw == nil {
					return
				}
				if confirmed, ok := convertMessage(*raw, s.opts.LocalUser.UID); ok {
					if s.store.ApplyPatch(messageID, func(m models.Message) models.Message {
						if m.IsDeleted {
							return m
						}
						m.Text = confirmed.Text
						m.EditedAt = confirmed.EditedAt
						m.EditedBy = confirmed.EditedBy
						return m
					}) {
						s.commit()
					}
				}
			})
		}()
	})
}

// DeleteMessage optimistically tombstones a message, then asks the backend to
// delete it. On failure the message is restored and OnError fires.
func (s *Session) DeleteMessage(messageID string) {
	s.post(func() {
		var prior models.Message
		found := false
		patched := s.store.ApplyPatch(messageID, func(m models.Message) models.Message {
			if m.IsDeleted {
				return m
			}
			prior = m.Clone()
			found = true
			m.IsDeleted = true
			m.Text = models.DeletedMessageText
			return m
		})
		if !patched || !found {
			return
		}
		s.commit()

		go func() {
			err := s.backend.DeleteMessage(context.Background(), s.conversationID, messageID)
			if err == nil {
				return
			}
			s.post(func() {
				s.log.Warn().Err(err).Str("id", messageID).Msg("delete failed, restoring message")
				if s.store.ApplyPatch(messageID, func(models.Message) models.Message { return prior }) {
					s.commit()
				}
				if s.opts.OnError != nil {
					s.opts.OnError("delete", err)
				}
			})
		}()
	})
}

// ToggleReaction adds the local user's reaction when not held, removes it
// when held. The optimistic change goes through the same reducer as live
// events; on failure the inverse edit reverts it.
func (s *Session) ToggleReaction(messageID, emoji string) {
	s.post(func() {
		msg, ok := s.store.Get(messageID)
		if !ok || msg.IsDeleted {
			return
		}
		adding := !holdsReaction(msg.Reactions, emoji, s.opts.LocalUser.UID)

		if s.store.ApplyPatch(messageID, func(m models.Message) models.Message {
			m.Reactions = applyReaction(m.Reactions, emoji, s.opts.LocalUser.UID, s.opts.LocalUser.UID, adding)
			return m
		}) {
			s.commit()
		}

		go func() {
			var err error
			if adding {
				err = s.backend.AddReaction(context.Background(), s.conversationID, messageID, emoji)
			} else {
				err = s.backend.RemoveReaction(context.Background(), s.conversationID, messageID, emoji)
			}
			if err == nil {
				return
			}
			s.post(func() {
				s.log.Warn().Err(err).Str("id", messageID).Str("emoji", emoji).Msg("reaction mutation failed, reverting")
				if s.store.ApplyPatch(messageID, func(m models.Message) models.Message {
					m.Reactions = applyReaction(m.Reactions, emoji, s.opts.LocalUser.UID, s.opts.LocalUser.UID, !adding)
					return m
				}) {
					s.commit()
				}
				if s.opts.OnError != nil {
					s.opts.OnError("reaction", err)
				}
			})
		}()
	})
}
