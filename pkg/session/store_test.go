package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/pkg/models"
)

func msg(id string, sentAt int64) models.Message {
	return models.Message{
		ID:     id,
		Text:   "text " + id,
		Sender: models.Sender{UID: "peer", Name: "Peer"},
		SentAt: sentAt,
		Type:   models.MessageTypeText,
		Status: models.StatusSent,
	}
}

func TestMergeSortsAndCounts(t *testing.T) {
	s := NewStore()

	added := s.Merge([]models.Message{msg("b", 2000), msg("a", 1000), msg("c", 3000)})
	require.Equal(t, 3, added)

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "b", snap[1].ID)
	assert.Equal(t, "c", snap[2].ID)
	assert.Equal(t, "a", s.OldestID())
}

func TestMergeDeduplicatesAgainstExisting(t *testing.T) {
	s := NewStore()
	require.Equal(t, 20, s.Merge(pageOf(t, 0, 20)))

	// A second batch overlapping by 3 ids only adds the 17 new ones.
	added := s.Merge(pageOf(t, 17, 20))
	assert.Equal(t, 17, added)
	assert.Equal(t, 37, s.Len())
}

func pageOf(t *testing.T, start, n int) []models.Message {
	t.Helper()
	out := make([]models.Message, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, msg(idOf(i), int64(1000*(i+1))))
	}
	return out
}

func idOf(i int) string {
	return string(rune('a'+i/26)) + string(rune('a'+i%26))
}

func TestMergeExistingWinsOverIncomingDuplicate(t *testing.T) {
	s := NewStore()
	edited := msg("a", 1000)
	edited.Text = "edited locally"
	s.Merge([]models.Message{edited})

	stale := msg("a", 1000)
	added := s.Merge([]models.Message{stale})
	assert.Zero(t, added)

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "edited locally", got.Text)
}

func TestMergeSkipsRepliesAndEmptyIDs(t *testing.T) {
	s := NewStore()
	reply := msg("r", 1000)
	reply.ParentMessageID = "parent"

	added := s.Merge([]models.Message{reply, {SentAt: 500}, msg("a", 2000)})
	assert.Equal(t, 1, added)
	_, ok := s.Get("r")
	assert.False(t, ok)
}

func TestApplyPatchUnknownIDIsNoop(t *testing.T) {
	s := NewStore()
	patched := s.ApplyPatch("ghost", func(m models.Message) models.Message {
		m.Text = "boo"
		return m
	})
	assert.False(t, patched)
}

func TestApplyPatchPreservesIdentity(t *testing.T) {
	s := NewStore()
	s.Merge([]models.Message{msg("a", 1000)})

	patched := s.ApplyPatch("a", func(m models.Message) models.Message {
		m.ID = "hijacked"
		m.Text = "new"
		return m
	})
	require.True(t, patched)

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, "new", got.Text)
}

func TestInsertOptimisticAppendsAtTail(t *testing.T) {
	s := NewStore()
	s.Merge([]models.Message{msg("a", 1000), msg("b", 2000)})

	local := msg("local-1", 3000)
	s.InsertOptimistic(local)

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "local-1", snap[2].ID)
	assert.True(t, snap[2].IsLocalOnly)
}

func TestResolveOptimisticSuccessSwapsIdentity(t *testing.T) {
	s := NewStore()
	s.InsertOptimistic(msg("local-1", 3000))

	confirmed := msg("srv-9", 3100)
	require.True(t, s.ResolveOptimistic("local-1", &confirmed))

	_, ok := s.Get("local-1")
	assert.False(t, ok)
	got, ok := s.Get("srv-9")
	require.True(t, ok)
	assert.False(t, got.IsLocalOnly)
	assert.Equal(t, models.StatusSent, got.Status)
}

func TestResolveOptimisticKeepsAdvancedStatus(t *testing.T) {
	s := NewStore()
	s.InsertOptimistic(msg("local-1", 3000))

	// A racing receipt already advanced the provisional entry.
	s.ApplyPatch("local-1", func(m models.Message) models.Message {
		m.Status = models.StatusSeen
		return m
	})

	confirmed := msg("srv-9", 3100)
	confirmed.Status = models.StatusSent
	require.True(t, s.ResolveOptimistic("local-1", &confirmed))

	got, _ := s.Get("srv-9")
	assert.Equal(t, models.StatusSeen, got.Status)
}

func TestResolveOptimisticFailureRemovesEntry(t *testing.T) {
	s := NewStore()
	s.Merge([]models.Message{msg("a", 1000)})
	s.InsertOptimistic(msg("local-1", 3000))

	require.True(t, s.ResolveOptimistic("local-1", nil))
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("local-1")
	assert.False(t, ok)
}

func TestResolveOptimisticEchoDuplicateDropsProvisional(t *testing.T) {
	s := NewStore()
	s.InsertOptimistic(msg("local-1", 3000))

	// The confirmed copy already landed through the live channel.
	echo := msg("srv-9", 3100)
	s.Merge([]models.Message{echo})

	confirmed := msg("srv-9", 3100)
	require.True(t, s.ResolveOptimistic("local-1", &confirmed))
	assert.Equal(t, 1, s.Len())
	got, ok := s.Get("srv-9")
	require.True(t, ok)
	assert.False(t, got.IsLocalOnly)
}

func TestResolveOptimisticUnknownIDIsNoop(t *testing.T) {
	s := NewStore()
	confirmed := msg("srv-9", 3100)
	assert.False(t, s.ResolveOptimistic("ghost", &confirmed))
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore()
	withReaction := msg("a", 1000)
	withReaction.Reactions = []models.ReactionSummary{{Emoji: "👍", Count: 1, Reactors: []string{"peer"}}}
	s.Merge([]models.Message{withReaction})

	snap := s.Snapshot()
	snap[0].Text = "mutated"
	snap[0].Reactions[0].Reactors[0] = "intruder"

	got, _ := s.Get("a")
	assert.Equal(t, "text a", got.Text)
	assert.Equal(t, "peer", got.Reactions[0].Reactors[0])
}

func TestSortTiesBreakOnID(t *testing.T) {
	s := NewStore()
	s.Merge([]models.Message{msg("b", 1000), msg("a", 1000)})

	snap := s.Snapshot()
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "b", snap[1].ID)
}
