// Package cache provides a local read-through message cache on SQLite.
// The history loader serves the first page from here while the backend fetch
// is in flight, and writes every confirmed page back.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"Parley/pkg/models"
)

// MessageRecord is the flattened, persisted form of a models.Message.
// Reactions and the attachment are serialized to JSON columns.
type MessageRecord struct {
	ID              string `gorm:"primarykey"`
	ConversationID  string `gorm:"index"`
	Text            string
	SenderUID       string
	SenderName      string
	SenderAvatar    string
	SentAt          int64 `gorm:"index"`
	MessageType     string
	Status          string
	EditedAt        int64
	EditedBy        string
	IsDeleted       bool
	ParentMessageID string `gorm:"index"`
	ThreadCount     int
	ReactionsJSON   string
	AttachmentJSON  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Cache wraps the gorm handle. One Cache is shared across sessions; rows are
// scoped by conversation id.
type Cache struct {
	db *gorm.DB
}

// Open initializes the connection to the SQLite cache database and migrates
// the schema.
func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("could not create cache directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}

	if err := db.AutoMigrate(&MessageRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// OpenDefault opens the cache at its standard location under the user config
// directory.
func OpenDefault() (*Cache, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("could not get user config dir: %w", err)
	}
	return Open(filepath.Join(configDir, "Parley", "parley.db"))
}

// SaveMessages upserts a batch of messages for a conversation. Local-only
// provisional entries are never persisted; they either confirm (and arrive
// here with their backend id) or disappear.
func (c *Cache) SaveMessages(conversationID string, msgs []models.Message) error {
	for _, m := range msgs {
		if m.IsLocalOnly || m.ID == "" {
			continue
		}
		rec, err := toRecord(conversationID, m)
		if err != nil {
			return err
		}
		if err := c.db.Save(&rec).Error; err != nil {
			return fmt.Errorf("failed to save message %s: %w", m.ID, err)
		}
	}
	return nil
}

// LoadMessages returns up to limit cached top-level messages for a
// conversation, oldest first (0 = no limit).
func (c *Cache) LoadMessages(conversationID string, limit int) ([]models.Message, error) {
	var recs []MessageRecord
	q := c.db.Where("conversation_id = ? AND parent_message_id = ?", conversationID, "").
		Order("sent_at ASC")
	if limit > 0 {
		// Take the newest rows, then flip back to ascending order below.
		q = c.db.Where("conversation_id = ? AND parent_message_id = ?", conversationID, "").
			Order("sent_at DESC").Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load cached messages: %w", err)
	}

	msgs := make([]models.Message, 0, len(recs))
	for _, rec := range recs {
		m, err := fromRecord(rec)
		if err != nil {
			// A corrupt row must not poison the whole page.
			continue
		}
		msgs = append(msgs, m)
	}
	if limit > 0 {
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
	}
	return msgs, nil
}

// DeleteConversation removes all cached rows for a conversation.
func (c *Cache) DeleteConversation(conversationID string) error {
	if err := c.db.Where("conversation_id = ?", conversationID).
		Delete(&MessageRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete cached conversation %s: %w", conversationID, err)
	}
	return nil
}

// persistedReaction mirrors models.ReactionSummary but keeps the reactor
// list, which the UI-facing JSON shape deliberately omits.
type persistedReaction struct {
	Emoji       string   `json:"emoji"`
	Count       int      `json:"count"`
	ReactedByMe bool     `json:"reactedByMe"`
	Reactors    []string `json:"reactors,omitempty"`
}

func toRecord(conversationID string, m models.Message) (MessageRecord, error) {
	rec := MessageRecord{
		ID:              m.ID,
		ConversationID:  conversationID,
		Text:            m.Text,
		SenderUID:       m.Sender.UID,
		SenderName:      m.Sender.Name,
		SenderAvatar:    m.Sender.Avatar,
		SentAt:          m.SentAt,
		MessageType:     string(m.Type),
		Status:          string(m.Status),
		EditedAt:        m.EditedAt,
		EditedBy:        m.EditedBy,
		IsDeleted:       m.IsDeleted,
		ParentMessageID: m.ParentMessageID,
		ThreadCount:     m.ThreadCount,
	}
	if len(m.Reactions) > 0 {
		persisted := make([]persistedReaction, len(m.Reactions))
		for i, r := range m.Reactions {
			persisted[i] = persistedReaction{
				Emoji:       r.Emoji,
				Count:       r.Count,
				ReactedByMe: r.ReactedByMe,
				Reactors:    r.Reactors,
			}
		}
		data, err := json.Marshal(persisted)
		if err != nil {
			return rec, fmt.Errorf("failed to marshal reactions for %s: %w", m.ID, err)
		}
		rec.ReactionsJSON = string(data)
	}
	if m.Attachment != nil {
		data, err := json.Marshal(m.Attachment)
		if err != nil {
			return rec, fmt.Errorf("failed to marshal attachment for %s: %w", m.ID, err)
		}
		rec.AttachmentJSON = string(data)
	}
	return rec, nil
}

func fromRecord(rec MessageRecord) (models.Message, error) {
	m := models.Message{
		ID:   rec.ID,
		Text: rec.Text,
		Sender: models.Sender{
			UID:    rec.SenderUID,
			Name:   rec.SenderName,
			Avatar: rec.SenderAvatar,
		},
		SentAt:          rec.SentAt,
		Type:            models.MessageType(rec.MessageType),
		Status:          models.DeliveryStatus(rec.Status),
		EditedAt:        rec.EditedAt,
		EditedBy:        rec.EditedBy,
		IsDeleted:       rec.IsDeleted,
		ParentMessageID: rec.ParentMessageID,
		ThreadCount:     rec.ThreadCount,
	}
	if rec.ReactionsJSON != "" {
		var persisted []persistedReaction
		if err := json.Unmarshal([]byte(rec.ReactionsJSON), &persisted); err != nil {
			return m, fmt.Errorf("failed to unmarshal reactions for %s: %w", rec.ID, err)
		}
		m.Reactions = make([]models.ReactionSummary, len(persisted))
		for i, r := range persisted {
			m.Reactions[i] = models.ReactionSummary{
				Emoji:       r.Emoji,
				Count:       r.Count,
				ReactedByMe: r.ReactedByMe,
				Reactors:    r.Reactors,
			}
		}
	}
	if rec.AttachmentJSON != "" {
		var att models.Attachment
		if err := json.Unmarshal([]byte(rec.AttachmentJSON), &att); err != nil {
			return m, fmt.Errorf("failed to unmarshal attachment for %s: %w", rec.ID, err)
		}
		m.Attachment = &att
	}
	return m, nil
}
