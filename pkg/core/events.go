// Package core provides the backend contract and event types for the
// conversation engine.
package core

// EventType represents the category of event pushed by the backend.
type EventType string

const (
	// EventTypeMessage represents a new message event (top-level or thread reply).
	EventTypeMessage EventType = "message"
	// EventTypeMessageEdited represents an edit to an existing message.
	EventTypeMessageEdited EventType = "message_edited"
	// EventTypeMessageDeleted represents a message deletion.
	EventTypeMessageDeleted EventType = "message_deleted"
	// EventTypeReaction represents a reaction added/removed event.
	EventTypeReaction EventType = "reaction"
	// EventTypeReceipt represents a delivery or read receipt event.
	EventTypeReceipt EventType = "receipt"
	// EventTypeTyping represents a typing indicator event.
	EventTypeTyping EventType = "typing"
	// EventTypePresence represents a real-time presence (online/offline) event.
	EventTypePresence EventType = "presence"
	// EventTypeGroupChange represents a membership or admin change in a group.
	EventTypeGroupChange EventType = "group_change"
)

// ChatEvent is the base interface for all events delivered on a subscription.
type ChatEvent interface {
	Type() EventType
}

// MessageEvent carries a newly pushed message, still in its raw backend shape.
type MessageEvent struct {
	ConversationID string
	Raw            RawMessage
}

// Type returns the event type for MessageEvent.
func (e MessageEvent) Type() EventType {
	return EventTypeMessage
}

// MessageEditedEvent carries the new content of an edited message. The
// reaction snapshot is optional; when present it replaces the local one.
type MessageEditedEvent struct {
	ConversationID string
	MessageID      string
	NewText        string
	EditedBy       string
	EditedAt       int64 // Unix timestamp, seconds or milliseconds
	Reactions      []RawReaction
}

// Type returns the event type for MessageEditedEvent.
func (e MessageEditedEvent) Type() EventType {
	return EventTypeMessageEdited
}

// MessageDeletedEvent marks a message as deleted. ParentMessageID is set when
// the deleted message was a thread reply, so the parent's counter can be
// adjusted.
type MessageDeletedEvent struct {
	ConversationID  string
	MessageID       string
	ParentMessageID string
	DeletedBy       string
	Timestamp       int64
}

// Type returns the event type for MessageDeletedEvent.
func (e MessageDeletedEvent) Type() EventType {
	return EventTypeMessageDeleted
}

// ReactionEvent represents a reaction to a message.
type ReactionEvent struct {
	ConversationID string
	MessageID      string
	UserID         string // User who reacted
	Emoji          string
	Added          bool // true if reaction added, false if removed
	Timestamp      int64
}

// Type returns the event type for ReactionEvent.
func (e ReactionEvent) Type() EventType {
	return EventTypeReaction
}

// ReceiptType represents the type of receipt.
type ReceiptType string

const (
	// ReceiptTypeDelivery indicates a message was delivered.
	ReceiptTypeDelivery ReceiptType = "delivery"
	// ReceiptTypeRead indicates a message was read.
	ReceiptTypeRead ReceiptType = "read"
	// ReceiptTypePlayed indicates a voice message was played.
	ReceiptTypePlayed ReceiptType = "played"
)

// ReceiptEvent represents a delivery or read receipt for a message.
type ReceiptEvent struct {
	ConversationID string
	MessageID      string
	ReceiptType    ReceiptType
	UserID         string // User who sent the receipt
	Timestamp      int64
}

// Type returns the event type for ReceiptEvent.
func (e ReceiptEvent) Type() EventType {
	return EventTypeReceipt
}

// TypingEvent represents a typing indicator event.
type TypingEvent struct {
	ConversationID string
	UserID         string // User who is typing
	UserName       string // Display name of the user who is typing
	IsTyping       bool   // true if typing, false if stopped
}

// Type returns the event type for TypingEvent.
func (e TypingEvent) Type() EventType {
	return EventTypeTyping
}

// PresenceEvent represents a real-time presence update (online/offline).
type PresenceEvent struct {
	UserID   string
	IsOnline bool
	LastSeen int64 // Unix timestamp of last seen, 0 if not available
}

// Type returns the event type for PresenceEvent.
func (e PresenceEvent) Type() EventType {
	return EventTypePresence
}

// GroupChangeType represents the type of group change.
type GroupChangeType string

const (
	// GroupChangeParticipantAdded indicates a participant was added to the group.
	GroupChangeParticipantAdded GroupChangeType = "participant_added"
	// GroupChangeParticipantRemoved indicates a participant was removed from the group.
	GroupChangeParticipantRemoved GroupChangeType = "participant_removed"
	// GroupChangeParticipantLeft indicates a participant left the group.
	GroupChangeParticipantLeft GroupChangeType = "participant_left"
	// GroupChangeParticipantPromoted indicates a participant was promoted to admin.
	GroupChangeParticipantPromoted GroupChangeType = "participant_promoted"
	// GroupChangeParticipantDemoted indicates a participant was demoted from admin.
	GroupChangeParticipantDemoted GroupChangeType = "participant_demoted"
)

// GroupChangeEvent represents a membership or admin change in a group
// conversation.
type GroupChangeEvent struct {
	ConversationID string
	ChangeType     GroupChangeType
	ParticipantID  string
	Timestamp      int64
}

// Type returns the event type for GroupChangeEvent.
func (e GroupChangeEvent) Type() EventType {
	return EventTypeGroupChange
}
