package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/pkg/core"
	"Parley/pkg/models"
)

func TestNormalizeTimestamp(t *testing.T) {
	assert.Equal(t, int64(0), normalizeTimestamp(0))
	assert.Equal(t, int64(0), normalizeTimestamp(-5))
	// Seconds-resolution values scale up.
	assert.Equal(t, int64(1_700_000_000_000), normalizeTimestamp(1_700_000_000))
	// Millisecond values pass through.
	assert.Equal(t, int64(1_700_000_000_123), normalizeTimestamp(1_700_000_000_123))
}

func TestConvertMessageBasics(t *testing.T) {
	raw := core.RawMessage{
		ID:          "m1",
		Category:    core.RawCategoryMessage,
		MessageType: "text",
		Body:        "hello",
		Sender:      &core.RawSender{UID: "peer", Name: "Peer"},
		SentAt:      1_700_000_000,
	}

	got, ok := convertMessage(raw, "me")
	require.True(t, ok)
	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, models.MessageTypeText, got.Type)
	assert.Equal(t, int64(1_700_000_000_000), got.SentAt)
	assert.Equal(t, models.StatusSent, got.Status)
	assert.Equal(t, "peer", got.Sender.UID)
}

func TestConvertMessageSkipsEmptyIDAndActions(t *testing.T) {
	_, ok := convertMessage(core.RawMessage{Body: "no id"}, "me")
	assert.False(t, ok)

	_, ok = convertMessage(core.RawMessage{ID: "a1", Category: core.RawCategoryAction}, "me")
	assert.False(t, ok)
}

func TestConvertMessageMissingSenderSubstitutesDefault(t *testing.T) {
	got, ok := convertMessage(core.RawMessage{ID: "m1", Body: "x"}, "me")
	require.True(t, ok)
	assert.Empty(t, got.Sender.UID)
	assert.Equal(t, "x", got.Text)
}

func TestConvertMessageMediaUsesTypeLabel(t *testing.T) {
	raw := core.RawMessage{
		ID:          "m1",
		MessageType: "image",
		Body:        "should not leak",
		Attachment:  &core.RawAttachment{URL: "https://x/pic.png", MimeType: "image/png", Name: "pic.png"},
	}

	got, ok := convertMessage(raw, "me")
	require.True(t, ok)
	assert.Equal(t, models.MessageTypeImage, got.Type)
	assert.Equal(t, models.MessageTypeImage.DisplayLabel(), got.Text)
	require.NotNil(t, got.Attachment)
	assert.Equal(t, "pic.png", got.Attachment.Name)
}

func TestConvertMessageStatusPrecedence(t *testing.T) {
	got, _ := convertMessage(core.RawMessage{ID: "m1", Delivered: true}, "me")
	assert.Equal(t, models.StatusDelivered, got.Status)

	got, _ = convertMessage(core.RawMessage{ID: "m2", Delivered: true, Seen: true}, "me")
	assert.Equal(t, models.StatusSeen, got.Status)
}

func TestConvertMessageDeletedGetsTombstone(t *testing.T) {
	got, ok := convertMessage(core.RawMessage{ID: "m1", Body: "secret", Deleted: true}, "me")
	require.True(t, ok)
	assert.True(t, got.IsDeleted)
	assert.Equal(t, models.DeletedMessageText, got.Text)
}

func TestConvertMessageEditMetadataNormalized(t *testing.T) {
	raw := core.RawMessage{
		ID:       "m1",
		Body:     "v2",
		Edited:   true,
		EditedAt: 1_700_000_100,
		EditedBy: "peer",
	}
	got, _ := convertMessage(raw, "me")
	assert.Equal(t, int64(1_700_000_100_000), got.EditedAt)
	assert.Equal(t, "peer", got.EditedBy)
}

func TestConvertMessageThreadCountOnlyOnParents(t *testing.T) {
	parent, _ := convertMessage(core.RawMessage{ID: "p", ReplyCount: 4}, "me")
	assert.Equal(t, 4, parent.ThreadCount)

	reply, _ := convertMessage(core.RawMessage{ID: "r", ParentID: "p", ReplyCount: 4}, "me")
	assert.True(t, reply.IsReply())
	assert.Zero(t, reply.ThreadCount)
}

func TestConvertReactions(t *testing.T) {
	raws := []core.RawReaction{
		{Emoji: "👍", Reactors: []string{"me", "peer"}},
		{Emoji: "❤️", Reactors: []string{"peer"}},
		{Emoji: "💀", Reactors: nil}, // empty aggregates are pruned
		{Emoji: "", Reactors: []string{"peer"}},
	}

	got := convertReactions(raws, "me")
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Count)
	assert.True(t, got[0].ReactedByMe)
	assert.False(t, got[1].ReactedByMe)
}

func TestConvertBatchSkipsBadEntries(t *testing.T) {
	raws := []core.RawMessage{
		{ID: "m1", Body: "ok"},
		{Body: "no id"},
		{ID: "a1", Category: core.RawCategoryAction},
		{ID: "m2", Body: "also ok"},
	}
	got := convertBatch(raws, "me")
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
}

func TestClassifyTypeFallsBackToText(t *testing.T) {
	assert.Equal(t, models.MessageTypeText, classifyType("sticker"))
	assert.Equal(t, models.MessageTypeAudio, classifyType("audio"))
}
