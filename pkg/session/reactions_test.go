package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/pkg/models"
)

func TestApplyReactionAddCreatesEntry(t *testing.T) {
	got := applyReaction(nil, "👍", "peer", "me", true)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Count)
	assert.False(t, got[0].ReactedByMe)
}

func TestApplyReactionAddIsIdempotentPerActor(t *testing.T) {
	got := applyReaction(nil, "👍", "peer", "me", true)
	got = applyReaction(got, "👍", "peer", "me", true)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Count)

	got = applyReaction(got, "👍", "other", "me", true)
	assert.Equal(t, 2, got[0].Count)
}

func TestApplyReactionLocalUserSetsReactedByMe(t *testing.T) {
	got := applyReaction(nil, "👍", "me", "me", true)
	require.Len(t, got, 1)
	assert.True(t, got[0].ReactedByMe)

	got = applyReaction(got, "👍", "me", "me", false)
	assert.Empty(t, got)
}

func TestApplyReactionRemoveUnmatchedIsNoop(t *testing.T) {
	got := applyReaction(nil, "👍", "peer", "me", false)
	assert.Empty(t, got)

	got = applyReaction(nil, "👍", "peer", "me", true)
	got = applyReaction(got, "👍", "other", "me", false)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Count)
}

func TestApplyReactionPrunesAtZero(t *testing.T) {
	got := applyReaction(nil, "👍", "peer", "me", true)
	got = applyReaction(got, "👍", "peer", "me", false)
	assert.Empty(t, got)
}

func TestApplyReactionKeepsInsertionOrder(t *testing.T) {
	got := applyReaction(nil, "👍", "a", "me", true)
	got = applyReaction(got, "❤️", "b", "me", true)
	got = applyReaction(got, "👍", "c", "me", true)

	require.Len(t, got, 2)
	assert.Equal(t, "👍", got[0].Emoji)
	assert.Equal(t, "❤️", got[1].Emoji)
	assert.Equal(t, 2, got[0].Count)
}

func TestApplyReactionMalformedInputsAreNoops(t *testing.T) {
	base := applyReaction(nil, "👍", "peer", "me", true)
	assert.Equal(t, base, applyReaction(base, "", "peer", "me", true))
	assert.Equal(t, base, applyReaction(base, "👍", "", "me", true))
}

func TestHoldsReaction(t *testing.T) {
	reactions := []models.ReactionSummary{
		{Emoji: "👍", Count: 2, Reactors: []string{"a", "me"}},
	}
	assert.True(t, holdsReaction(reactions, "👍", "me"))
	assert.False(t, holdsReaction(reactions, "👍", "b"))
	assert.False(t, holdsReaction(reactions, "❤️", "me"))
}
