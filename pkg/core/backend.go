package core

import "context"

// RawSender is the sender block of a backend message object. Any field may be
// empty; the converter substitutes defaults.
type RawSender struct {
	UID    string
	Name   string
	Avatar string
}

// RawReaction is one emoji aggregate as carried by backend payloads.
type RawReaction struct {
	Emoji    string
	Reactors []string // uids currently holding the reaction
}

// RawAttachment is the media block of a backend message object.
type RawAttachment struct {
	URL      string
	MimeType string
	Name     string
}

// RawCategory distinguishes user-facing messages from system records.
type RawCategory string

const (
	// RawCategoryMessage is a regular user-authored message.
	RawCategoryMessage RawCategory = "message"
	// RawCategoryAction is a system/action record (calls, membership notices).
	// Action records are not shown in the message list.
	RawCategoryAction RawCategory = "action"
)

// RawMessage is the opaque message object as the backend hands it over.
// Fields are optional by construction; the Entity Converter is the single
// place that maps this shape into models.Message, substituting defaults for
// anything missing rather than failing.
type RawMessage struct {
	ID             string
	ConversationID string
	Category       RawCategory
	MessageType    string // "text", "image", "video", "audio", "file"
	Body           string
	Sender         *RawSender
	SentAt         int64 // Unix timestamp, seconds OR milliseconds depending on backend path
	Edited         bool
	EditedAt       int64
	EditedBy       string
	Deleted        bool
	ParentID       string // set when the message is a thread reply
	ReplyCount     int    // replies under this message, when the backend includes it
	Attachment     *RawAttachment
	Reactions      []RawReaction
	Delivered      bool
	Seen           bool
}

// SendPayload is the user-authored content handed to Backend.Send.
type SendPayload struct {
	Text       string
	Attachment *RawAttachment
	ParentID   string // set to send a thread reply
}

// Backend is the contract the conversation engine consumes from the chat SDK.
// Every call is remote and may fail; none of them is retried by the engine.
// Implementations own transport, persistence and delivery guarantees.
type Backend interface {
	// FetchHistory retrieves up to limit messages older than beforeID
	// (all newest messages when beforeID is empty), oldest first.
	FetchHistory(ctx context.Context, conversationID string, beforeID string, limit int) ([]RawMessage, error)

	// Send delivers a new message and returns the confirmed copy carrying the
	// backend-assigned id.
	Send(ctx context.Context, conversationID string, payload SendPayload) (*RawMessage, error)

	// EditMessage replaces the text of an existing message and returns the
	// confirmed copy.
	EditMessage(ctx context.Context, conversationID string, messageID string, newText string) (*RawMessage, error)

	// DeleteMessage deletes a message for every participant.
	DeleteMessage(ctx context.Context, conversationID string, messageID string) error

	// AddReaction adds an emoji reaction to a message as the local user.
	AddReaction(ctx context.Context, conversationID string, messageID string, emoji string) error

	// RemoveReaction removes the local user's emoji reaction from a message.
	RemoveReaction(ctx context.Context, conversationID string, messageID string, emoji string) error

	// FetchThreadReplyCount returns the authoritative number of replies under
	// a parent message.
	FetchThreadReplyCount(ctx context.Context, conversationID string, parentID string) (int, error)

	// FetchThread loads the replies under a parent message, oldest first.
	FetchThread(ctx context.Context, conversationID string, parentID string) ([]RawMessage, error)

	// SendTyping broadcasts the local user's typing state to the conversation.
	SendTyping(ctx context.Context, conversationID string, composing bool) error

	// Subscribe opens the push channel for one conversation. The returned
	// release function must be called exactly once when the conversation view
	// is torn down; after release the channel is closed by the backend.
	Subscribe(conversationID string) (<-chan ChatEvent, func(), error)
}
