// Package models defines the data models for the conversation engine.
package models

// MessageType classifies the payload of a message.
type MessageType string

const (
	// MessageTypeText is a plain text message.
	MessageTypeText MessageType = "text"
	// MessageTypeImage is an image message.
	MessageTypeImage MessageType = "image"
	// MessageTypeVideo is a video message.
	MessageTypeVideo MessageType = "video"
	// MessageTypeAudio is an audio message.
	MessageTypeAudio MessageType = "audio"
	// MessageTypeFile is a generic file message.
	MessageTypeFile MessageType = "file"
)

// DisplayLabel returns the text shown in place of a payload for media messages.
func (t MessageType) DisplayLabel() string {
	switch t {
	case MessageTypeImage:
		return "Image"
	case MessageTypeVideo:
		return "Video"
	case MessageTypeAudio:
		return "Audio"
	case MessageTypeFile:
		return "File"
	default:
		return ""
	}
}

// DeliveryStatus tracks how far a sent message has progressed.
// It only ever advances: sent -> delivered -> seen.
type DeliveryStatus string

const (
	// StatusSent means the message left the local client.
	StatusSent DeliveryStatus = "sent"
	// StatusDelivered means the backend confirmed delivery to the peer device.
	StatusDelivered DeliveryStatus = "delivered"
	// StatusSeen means the peer read the message.
	StatusSeen DeliveryStatus = "seen"
)

// Rank returns the ordinal used for monotonic status advancement.
func (s DeliveryStatus) Rank() int {
	switch s {
	case StatusDelivered:
		return 1
	case StatusSeen:
		return 2
	default:
		return 0
	}
}

// DeletedMessageText is the tombstone shown once a message has been deleted.
const DeletedMessageText = "This message was deleted"

// Sender identifies the author of a message.
type Sender struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ReactionSummary aggregates one emoji on one message.
// Reactors holds the uids that currently hold the reaction; it is what keeps
// at-least-once reaction events from double counting.
type ReactionSummary struct {
	Emoji       string   `json:"emoji"`
	Count       int      `json:"count"`
	ReactedByMe bool     `json:"reactedByMe"`
	Reactors    []string `json:"-"`
}

// Attachment describes the media payload of a non-text message.
type Attachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Name     string `json:"name"`
}

// Message is the closed, UI-facing message shape. Backend objects are mapped
// into it exactly once, at the conversion boundary; nothing downstream probes
// optional accessors.
type Message struct {
	ID              string            `json:"id"`
	Text            string            `json:"text"`
	Sender          Sender            `json:"sender"`
	SentAt          int64             `json:"sentAt"` // Unix milliseconds, normalized at conversion
	Type            MessageType       `json:"type"`
	Status          DeliveryStatus    `json:"status"`
	EditedAt        int64             `json:"editedAt,omitempty"` // Unix milliseconds, 0 if never edited
	EditedBy        string            `json:"editedBy,omitempty"`
	IsDeleted       bool              `json:"isDeleted"`
	Reactions       []ReactionSummary `json:"reactions,omitempty"`
	Attachment      *Attachment       `json:"attachment,omitempty"`
	ParentMessageID string            `json:"parentMessageId,omitempty"` // set only on thread replies
	ThreadCount     int               `json:"threadCount,omitempty"`     // 0 means "no thread indicator"
	IsLocalOnly     bool              `json:"isLocalOnly"`
}

// IsReply reports whether the message belongs to a thread rather than the
// top-level conversation list.
func (m *Message) IsReply() bool {
	return m.ParentMessageID != ""
}

// Clone returns a deep copy safe to hand to the UI.
func (m Message) Clone() Message {
	out := m
	if m.Attachment != nil {
		att := *m.Attachment
		out.Attachment = &att
	}
	if m.Reactions != nil {
		out.Reactions = make([]ReactionSummary, len(m.Reactions))
		for i, r := range m.Reactions {
			cp := r
			if r.Reactors != nil {
				cp.Reactors = append([]string(nil), r.Reactors...)
			}
			out.Reactions[i] = cp
		}
	}
	return out
}

// TypingState is the per-peer typing indicator exposed to the UI.
type TypingState struct {
	UserName  string `json:"userName,omitempty"`
	IsTyping  bool   `json:"isTyping"`
	ExpiresAt int64  `json:"expiresAt"` // Unix milliseconds
}

// Presence is the per-peer online/offline state, independent of typing.
type Presence struct {
	IsOnline bool  `json:"isOnline"`
	LastSeen int64 `json:"lastSeen,omitempty"` // Unix milliseconds, 0 if unknown
}
