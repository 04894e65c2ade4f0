package session

import (
	"Parley/pkg/core"
	"Parley/pkg/models"
)

// Timestamps below this value are taken to be seconds and scaled up; the
// canonical unit everywhere past the conversion boundary is milliseconds.
const millisThreshold = int64(1_000_000_000_000)

// normalizeTimestamp converts a raw backend timestamp (seconds or
// milliseconds, depending on the path it arrived through) to Unix
// milliseconds.
func normalizeTimestamp(ts int64) int64 {
	if ts <= 0 {
		return 0
	}
	if ts < millisThreshold {
		return ts * 1000
	}
	return ts
}

// convertMessage maps one opaque backend message object into the local
// Message shape. The second return is false when the object should be
// skipped: system/action records and objects without an id. Missing accessor
// data (sender, attachment) is substituted with defaults rather than failing.
func convertMessage(raw core.RawMessage, localUID string) (models.Message, bool) {
	if raw.ID == "" {
		return models.Message{}, false
	}
	if raw.Category != "" && raw.Category != core.RawCategoryMessage {
		return models.Message{}, false
	}

	msgType := classifyType(raw.MessageType)

	msg := models.Message{
		ID:              raw.ID,
		Type:            msgType,
		SentAt:          normalizeTimestamp(raw.SentAt),
		Status:          models.StatusSent,
		ParentMessageID: raw.ParentID,
	}

	if raw.Sender != nil {
		msg.Sender = models.Sender{
			UID:    raw.Sender.UID,
			Name:   raw.Sender.Name,
			Avatar: raw.Sender.Avatar,
		}
	}

	// Media messages carry a type label instead of the payload.
	if msgType == models.MessageTypeText {
		msg.Text = raw.Body
	} else {
		msg.Text = msgType.DisplayLabel()
		if raw.Attachment != nil {
			msg.Attachment = &models.Attachment{
				URL:      raw.Attachment.URL,
				MimeType: raw.Attachment.MimeType,
				Name:     raw.Attachment.Name,
			}
		}
	}

	if raw.Seen {
		msg.Status = models.StatusSeen
	} else if raw.Delivered {
		msg.Status = models.StatusDelivered
	}

	if raw.Edited {
		msg.EditedAt = normalizeTimestamp(raw.EditedAt)
		msg.EditedBy = raw.EditedBy
	}

	if raw.Deleted {
		msg.IsDeleted = true
		msg.Text = models.DeletedMessageText
	}

	msg.Reactions = convertReactions(raw.Reactions, localUID)

	// Thread counters only live on parent messages.
	if !msg.IsReply() && raw.ReplyCount > 0 {
		msg.ThreadCount = raw.ReplyCount
	}

	return msg, true
}

// convertBatch converts a slice of raw backend objects, skipping any that
// fail conversion. One bad object never aborts the batch.
func convertBatch(raws []core.RawMessage, localUID string) []models.Message {
	out := make([]models.Message, 0, len(raws))
	for _, raw := range raws {
		if msg, ok := convertMessage(raw, localUID); ok {
			out = append(out, msg)
		}
	}
	return out
}

// convertReactions maps raw emoji aggregates into the local summary shape,
// pruning empty entries.
func convertReactions(raws []core.RawReaction, localUID string) []models.ReactionSummary {
	if len(raws) == 0 {
		return nil
	}
	out := make([]models.ReactionSummary, 0, len(raws))
	for _, raw := range raws {
		if raw.Emoji == "" || len(raw.Reactors) == 0 {
			continue
		}
		summary := models.ReactionSummary{
			Emoji:    raw.Emoji,
			Count:    len(raw.Reactors),
			Reactors: append([]string(nil), raw.Reactors...),
		}
		for _, uid := range raw.Reactors {
			if uid == localUID {
				summary.ReactedByMe = true
				break
			}
		}
		out = append(out, summary)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func classifyType(raw string) models.MessageType {
	switch raw {
	case string(models.MessageTypeImage):
		return models.MessageTypeImage
	case string(models.MessageTypeVideo):
		return models.MessageTypeVideo
	case string(models.MessageTypeAudio):
		return models.MessageTypeAudio
	case string(models.MessageTypeFile):
		return models.MessageTypeFile
	default:
		return models.MessageTypeText
	}
}
