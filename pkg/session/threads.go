package session

// ThreadCounts maintains the reply counter per parent message id. Two writers
// race on it: optimistic deltas from locally observed reply activity, and the
// authoritative re-fetch. The authoritative value always fully replaces the
// optimistic one; the two are never merged arithmetically.
//
// Owned by the session goroutine, like the Store.
type ThreadCounts struct {
	counts map[string]int
}

// NewThreadCounts returns an empty counter map.
func NewThreadCounts() *ThreadCounts {
	return &ThreadCounts{counts: make(map[string]int)}
}

// Get returns the current count for a parent id. Zero means "no thread
// indicator".
func (t *ThreadCounts) Get(parentID string) int {
	return t.counts[parentID]
}

// ApplyDelta adjusts a parent's count by the known delta, floored at zero.
// This is the optimistic phase; intermediate values are allowed to be
// transiently wrong until the authoritative overwrite lands.
func (t *ThreadCounts) ApplyDelta(parentID string, delta int) int {
	next := t.counts[parentID] + delta
	if next < 0 {
		next = 0
	}
	if next == 0 {
		delete(t.counts, parentID)
		return 0
	}
	t.counts[parentID] = next
	return next
}

// Overwrite unconditionally replaces a parent's count with the authoritative
// backend value, regardless of any optimistic deltas applied in between. An
// authoritative zero clears the entry entirely so the UI can treat "no
// threads" uniformly via absence.
func (t *ThreadCounts) Overwrite(parentID string, authoritative int) int {
	if authoritative <= 0 {
		delete(t.counts, parentID)
		return 0
	}
	t.counts[parentID] = authoritative
	return authoritative
}
