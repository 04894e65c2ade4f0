package session

import "Parley/pkg/models"

// applyReaction is the single reducer for reaction edits. Every caller (the
// optimistic toggle, the live event handler, edit-event snapshots) goes
// through it so the zero-count pruning and duplicate-delivery rules live in
// one place.
//
// Adds are idempotent per (emoji, actor): a redelivered "added" event never
// double counts. Removes for a reaction the local state does not hold are
// no-ops. Entries keep insertion order; an entry whose count reaches zero is
// pruned immediately.
func applyReaction(reactions []models.ReactionSummary, emoji, actorUID, localUID string, added bool) []models.ReactionSummary {
	if emoji == "" || actorUID == "" {
		return reactions
	}

	pos := -1
	for i := range reactions {
		if reactions[i].Emoji == emoji {
			pos = i
			break
		}
	}

	if added {
		if pos < 0 {
			return append(reactions, models.ReactionSummary{
				Emoji:       emoji,
				Count:       1,
				ReactedByMe: actorUID == localUID,
				Reactors:    []string{actorUID},
			})
		}
		entry := &reactions[pos]
		for _, uid := range entry.Reactors {
			if uid == actorUID {
				return reactions // duplicate delivery
			}
		}
		entry.Reactors = append(entry.Reactors, actorUID)
		entry.Count = len(entry.Reactors)
		if actorUID == localUID {
			entry.ReactedByMe = true
		}
		return reactions
	}

	if pos < 0 {
		return reactions // removal for a reaction we never had
	}
	entry := &reactions[pos]
	removed := false
	for i, uid := range entry.Reactors {
		if uid == actorUID {
			entry.Reactors = append(entry.Reactors[:i], entry.Reactors[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return reactions
	}
	entry.Count = len(entry.Reactors)
	if actorUID == localUID {
		entry.ReactedByMe = false
	}
	if entry.Count == 0 {
		return append(reactions[:pos], reactions[pos+1:]...)
	}
	return reactions
}

// holdsReaction reports whether uid currently holds the given emoji in the
// reaction list.
func holdsReaction(reactions []models.ReactionSummary, emoji, uid string) bool {
	for i := range reactions {
		if reactions[i].Emoji != emoji {
			continue
		}
		for _, r := range reactions[i].Reactors {
			if r == uid {
				return true
			}
		}
	}
	return false
}
