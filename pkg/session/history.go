package session

import (
	"context"

	"Parley/pkg/models"
)

// loadInitial serves the first page. When a cache is configured its rows are
// merged and committed immediately so the view is never empty while the
// backend fetch is in flight; the fetched page then dedups against them.
// Runs on the session goroutine.
func (s *Session) loadInitial() {
	if s.opts.Cache != nil {
		cached, err := s.opts.Cache.LoadMessages(s.conversationID, s.opts.HistoryPageSize)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to load cached messages")
		} else if s.store.Merge(cached) > 0 {
			s.commit()
		}
	}
	s.fetchPage("")
}

// LoadOlder fetches the page of messages preceding the oldest one currently
// loaded and merges it in without duplicating already-known ids.
func (s *Session) LoadOlder() {
	s.post(func() {
		s.fetchPage(s.store.OldestID())
	})
}

// fetchPage issues one backward history fetch and merges the result.
func (s *Session) fetchPage(beforeID string) {
	go func() {
		raws, err := s.backend.FetchHistory(context.Background(), s.conversationID, beforeID, s.opts.HistoryPageSize)
		if err != nil {
			s.log.Warn().Err(err).Str("before", beforeID).Msg("history fetch failed")
			return
		}
		s.post(func() {
			msgs := convertBatch(raws, s.opts.LocalUser.UID)

			// History batches can include thread replies; they feed the
			// counters, never the visible list. Parents carry authoritative
			// reply counts, which overwrite whatever optimism accumulated.
			topLevel := make([]models.Message, 0, len(msgs))
			for _, m := range msgs {
				if m.IsReply() {
					continue
				}
				if m.ThreadCount > 0 {
					m.ThreadCount = s.threads.Overwrite(m.ID, m.ThreadCount)
				}
				topLevel = append(topLevel, m)
			}

			if added := s.store.Merge(topLevel); added > 0 {
				s.log.Debug().Int("added", added).Str("before", beforeID).Msg("history page merged")
				s.commit()
			}
		})
	}()
}

// OpenThread loads the replies under a parent message and hands them to fn.
// The reply list never enters the conversation's visible list; as a side
// effect the parent's counter is overwritten with the authoritative reply
// count the fetch revealed.
func (s *Session) OpenThread(parentID string, fn func([]models.Message, error)) {
	go func() {
		raws, err := s.backend.FetchThread(context.Background(), s.conversationID, parentID)
		if err != nil {
			if fn != nil {
				fn(nil, err)
			}
			return
		}
		replies := convertBatch(raws, s.opts.LocalUser.UID)
		s.post(func() {
			count := s.threads.Overwrite(parentID, len(replies))
			s.setThreadCount(parentID, count)
		})
		if fn != nil {
			fn(replies, nil)
		}
	}()
}
