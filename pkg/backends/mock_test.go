package backends

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Parley/pkg/core"
	"Parley/pkg/logging"
)

func newQuietMock() *MockBackend {
	cfg := make(core.BackendConfig)
	cfg.Set("auto_reply", false)
	return NewMockBackend(cfg, logging.Nop())
}

func TestSeedAndFetchHistory(t *testing.T) {
	m := newQuietMock()
	m.Seed("conv-1", core.RawSender{UID: "peer", Name: "Peer"}, 10)

	page, err := m.FetchHistory(context.Background(), "conv-1", "", 0)
	require.NoError(t, err)
	require.Len(t, page, 10)
	for i := 1; i < len(page); i++ {
		assert.LessOrEqual(t, page[i-1].SentAt, page[i].SentAt)
	}
}

func TestFetchHistoryPaginatesBackward(t *testing.T) {
	m := newQuietMock()
	m.Seed("conv-1", core.RawSender{UID: "peer"}, 10)

	newest, err := m.FetchHistory(context.Background(), "conv-1", "", 4)
	require.NoError(t, err)
	require.Len(t, newest, 4)

	older, err := m.FetchHistory(context.Background(), "conv-1", newest[0].ID, 4)
	require.NoError(t, err)
	require.Len(t, older, 4)
	assert.Less(t, older[len(older)-1].SentAt, newest[0].SentAt)
	for _, o := range older {
		for _, n := range newest {
			assert.NotEqual(t, n.ID, o.ID)
		}
	}
}

func TestSendConfirmsWithBackendID(t *testing.T) {
	m := newQuietMock()

	raw, err := m.Send(context.Background(), "conv-1", core.SendPayload{Text: "hi"})
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.NotEmpty(t, raw.ID)
	assert.Equal(t, "hi", raw.Body)

	page, err := m.FetchHistory(context.Background(), "conv-1", "", 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
}

func TestSendFailureKnob(t *testing.T) {
	m := newQuietMock()
	m.FailSends = true

	_, err := m.Send(context.Background(), "conv-1", core.SendPayload{Text: "hi"})
	assert.Error(t, err)
}

func TestThreadRepliesFeedCountNotHistory(t *testing.T) {
	m := newQuietMock()
	parent, err := m.Send(context.Background(), "conv-1", core.SendPayload{Text: "parent"})
	require.NoError(t, err)

	_, err = m.Send(context.Background(), "conv-1", core.SendPayload{Text: "reply", ParentID: parent.ID})
	require.NoError(t, err)

	count, err := m.FetchThreadReplyCount(context.Background(), "conv-1", parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	replies, err := m.FetchThread(context.Background(), "conv-1", parent.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, parent.ID, replies[0].ParentID)

	page, err := m.FetchHistory(context.Background(), "conv-1", "", 0)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestEditAndDeleteEchoEvents(t *testing.T) {
	m := newQuietMock()
	sent, err := m.Send(context.Background(), "conv-1", core.SendPayload{Text: "v1"})
	require.NoError(t, err)

	events, release, err := m.Subscribe("conv-1")
	require.NoError(t, err)
	defer release()

	_, err = m.EditMessage(context.Background(), "conv-1", sent.ID, "v2")
	require.NoError(t, err)
	ev := waitEvent(t, events)
	edit, ok := ev.(core.MessageEditedEvent)
	require.True(t, ok)
	assert.Equal(t, "v2", edit.NewText)

	require.NoError(t, m.DeleteMessage(context.Background(), "conv-1", sent.ID))
	ev = waitEvent(t, events)
	del, ok := ev.(core.MessageDeletedEvent)
	require.True(t, ok)
	assert.Equal(t, sent.ID, del.MessageID)
}

func TestReactionMutationDedupes(t *testing.T) {
	m := newQuietMock()
	sent, err := m.Send(context.Background(), "conv-1", core.SendPayload{Text: "x"})
	require.NoError(t, err)

	require.NoError(t, m.AddReaction(context.Background(), "conv-1", sent.ID, "👍"))
	require.NoError(t, m.AddReaction(context.Background(), "conv-1", sent.ID, "👍"))

	page, err := m.FetchHistory(context.Background(), "conv-1", "", 0)
	require.NoError(t, err)
	require.Len(t, page[0].Reactions, 1)
	assert.Len(t, page[0].Reactions[0].Reactors, 1)

	require.NoError(t, m.RemoveReaction(context.Background(), "conv-1", sent.ID, "👍"))
	page, err = m.FetchHistory(context.Background(), "conv-1", "", 0)
	require.NoError(t, err)
	assert.Empty(t, page[0].Reactions)
}

func TestSubscribeReleaseClosesChannel(t *testing.T) {
	m := newQuietMock()
	events, release, err := m.Subscribe("conv-1")
	require.NoError(t, err)

	release()
	_, open := <-events
	assert.False(t, open)

	// Events after release go nowhere without panicking.
	m.Push("conv-1", core.TypingEvent{ConversationID: "conv-1", UserID: "peer", IsTyping: true})
}

func TestPushFansOutToSubscribers(t *testing.T) {
	m := newQuietMock()
	a, releaseA, err := m.Subscribe("conv-1")
	require.NoError(t, err)
	defer releaseA()
	b, releaseB, err := m.Subscribe("conv-1")
	require.NoError(t, err)
	defer releaseB()

	m.Push("conv-1", core.PresenceEvent{UserID: "peer", IsOnline: true})

	for _, ch := range []<-chan core.ChatEvent{a, b} {
		ev := waitEvent(t, ch)
		_, ok := ev.(core.PresenceEvent)
		assert.True(t, ok)
	}
}

func TestAutoReplyScene(t *testing.T) {
	cfg := make(core.BackendConfig)
	cfg.Set("reply_delay_ms", 10)
	m := NewMockBackend(cfg, logging.Nop())

	events, release, err := m.Subscribe("conv-1")
	require.NoError(t, err)
	defer release()

	sent, err := m.Send(context.Background(), "conv-1", core.SendPayload{Text: "ping"})
	require.NoError(t, err)

	var types []core.EventType
	deadline := time.After(2 * time.Second)
	for len(types) < 5 {
		select {
		case ev := <-events:
			types = append(types, ev.Type())
			if r, ok := ev.(core.ReceiptEvent); ok {
				assert.Equal(t, sent.ID, r.MessageID)
			}
		case <-deadline:
			t.Fatalf("scene incomplete, got %v", types)
		}
	}

	assert.Equal(t, []core.EventType{
		core.EventTypeReceipt,
		core.EventTypeTyping,
		core.EventTypeTyping,
		core.EventTypeMessage,
		core.EventTypeReceipt,
	}, types)
}

func waitEvent(t *testing.T, ch <-chan core.ChatEvent) core.ChatEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event arrived")
		return nil
	}
}
