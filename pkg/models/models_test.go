package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryStatusRankOrdering(t *testing.T) {
	assert.Less(t, StatusSent.Rank(), StatusDelivered.Rank())
	assert.Less(t, StatusDelivered.Rank(), StatusSeen.Rank())
	// Unknown statuses rank with sent, so they never beat a receipt.
	assert.Equal(t, StatusSent.Rank(), DeliveryStatus("bogus").Rank())
}

func TestMessageTypeDisplayLabel(t *testing.T) {
	assert.NotEmpty(t, MessageTypeImage.DisplayLabel())
	assert.NotEqual(t, MessageTypeImage.DisplayLabel(), MessageTypeAudio.DisplayLabel())
}

func TestIsReply(t *testing.T) {
	top := Message{ID: "m"}
	reply := Message{ID: "r", ParentMessageID: "m"}
	assert.False(t, top.IsReply())
	assert.True(t, reply.IsReply())
}

func TestCloneIsDeep(t *testing.T) {
	orig := Message{
		ID: "m",
		Reactions: []ReactionSummary{
			{Emoji: "👍", Count: 1, Reactors: []string{"peer"}},
		},
		Attachment: &Attachment{Name: "f.png"},
	}

	cp := orig.Clone()
	cp.Reactions[0].Reactors[0] = "intruder"
	cp.Attachment.Name = "other.png"

	require.Equal(t, "peer", orig.Reactions[0].Reactors[0])
	assert.Equal(t, "f.png", orig.Attachment.Name)
}
