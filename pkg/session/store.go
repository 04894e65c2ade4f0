package session

import (
	"sort"

	"Parley/pkg/models"
)

// Store is the ordered, deduplicated message collection backing one
// conversation view. It is owned by the session goroutine and is not safe for
// concurrent use; the UI reads copies through Session.Messages.
type Store struct {
	messages []models.Message
	index    map[string]int // message id -> position in messages
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Len returns the number of messages in the store.
func (s *Store) Len() int {
	return len(s.messages)
}

// Get returns a copy of the message with the given id.
func (s *Store) Get(id string) (models.Message, bool) {
	pos, ok := s.index[id]
	if !ok {
		return models.Message{}, false
	}
	return s.messages[pos].Clone(), true
}

// Merge adds incoming messages to the store, deduplicating by id against the
// current contents and re-sorting the union by send time. Messages already
// present win over incoming duplicates; thread replies are never admitted.
// Returns the number of messages actually added.
func (s *Store) Merge(incoming []models.Message) int {
	added := 0
	for _, msg := range incoming {
		if msg.ID == "" || msg.IsReply() {
			continue
		}
		if _, exists := s.index[msg.ID]; exists {
			continue
		}
		s.messages = append(s.messages, msg)
		s.index[msg.ID] = len(s.messages) - 1
		added++
	}
	if added > 0 {
		s.sortAndReindex()
	}
	return added
}

// ApplyPatch replaces the message with the given id by the result of patch.
// It is a no-op when the id is unknown: late events for messages not yet
// loaded are dropped, not queued, because the authoritative re-fetch path
// restores consistency. Returns true when a message was patched.
func (s *Store) ApplyPatch(id string, patch func(models.Message) models.Message) bool {
	pos, ok := s.index[id]
	if !ok {
		return false
	}
	old := s.messages[pos]
	updated := patch(old.Clone())
	updated.ID = old.ID // a patch never changes identity
	s.messages[pos] = updated
	return true
}

// InsertOptimistic appends a provisional local-only message at the tail. The
// provisional entry is always the newest message at insertion time, so no
// re-sort is needed.
func (s *Store) InsertOptimistic(msg models.Message) {
	msg.IsLocalOnly = true
	s.messages = append(s.messages, msg)
	s.index[msg.ID] = len(s.messages) - 1
}

// ResolveOptimistic settles a provisional entry. When confirmed is non-nil
// the entry's identity and fields are replaced by the confirmed values and the
// local-only flag cleared; the delivery status never regresses below what a
// racing receipt may already have advanced it to. When confirmed is nil (the
// send failed) the provisional entry is removed entirely.
func (s *Store) ResolveOptimistic(localID string, confirmed *models.Message) bool {
	pos, ok := s.index[localID]
	if !ok {
		return false
	}
	if confirmed == nil {
		s.messages = append(s.messages[:pos], s.messages[pos+1:]...)
		s.reindex()
		return true
	}

	// The backend echo may have already landed the confirmed message through
	// the live event channel. Drop the provisional entry instead of creating
	// a duplicate id.
	if existing, dup := s.index[confirmed.ID]; dup && existing != pos {
		s.messages = append(s.messages[:pos], s.messages[pos+1:]...)
		s.reindex()
		return true
	}

	resolved := confirmed.Clone()
	resolved.IsLocalOnly = false
	if s.messages[pos].Status.Rank() > resolved.Status.Rank() {
		resolved.Status = s.messages[pos].Status
	}
	delete(s.index, localID)
	s.messages[pos] = resolved
	s.sortAndReindex()
	return true
}

// Snapshot returns a deep copy of the current ordered message list.
func (s *Store) Snapshot() []models.Message {
	out := make([]models.Message, len(s.messages))
	for i, msg := range s.messages {
		out[i] = msg.Clone()
	}
	return out
}

// OldestID returns the id of the oldest message, used as the pagination
// cursor for backward history fetches.
func (s *Store) OldestID() string {
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[0].ID
}

func (s *Store) sortAndReindex() {
	sort.SliceStable(s.messages, func(i, j int) bool {
		if s.messages[i].SentAt != s.messages[j].SentAt {
			return s.messages[i].SentAt < s.messages[j].SentAt
		}
		return s.messages[i].ID < s.messages[j].ID
	})
	s.reindex()
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.messages))
	for i, msg := range s.messages {
		s.index[msg.ID] = i
	}
}
