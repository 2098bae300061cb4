package hub

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSubscriber collects every event it receives; fail makes Send
// return an error on all calls after the connected acknowledgment.
type recordingSubscriber struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (s *recordingSubscriber) Send(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail && len(s.events) > 0 {
		return errors.New("connection closed")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSubscriber) received() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestSubscribeSendsConnectedAck(t *testing.T) {
	h := New(nil)
	sub := &recordingSubscriber{}

	h.Subscribe("novel-1", sub)

	events := sub.received()
	require.Len(t, events, 1)
	assert.Equal(t, "connected", events[0]["type"])
	assert.Equal(t, "novel-1", events[0]["project_id"])
	assert.NotEmpty(t, events[0]["timestamp"])
}

func TestBroadcastNoSubscribersIsNoOp(t *testing.T) {
	h := New(nil)

	// Must not panic or block.
	h.Broadcast("novel-1", PhaseChange("PLANNING", "PLAN_CRITIQUE"))
	assert.Equal(t, 0, h.SubscriberCount("novel-1"))
}

func TestBroadcastDelivery(t *testing.T) {
	h := New(nil)
	a := &recordingSubscriber{}
	b := &recordingSubscriber{}
	h.Subscribe("novel-1", a)
	h.Subscribe("novel-1", b)

	h.Broadcast("novel-1", AgentThinking("outlining act one"))

	for _, sub := range []*recordingSubscriber{a, b} {
		events := sub.received()
		require.Len(t, events, 2)
		assert.Equal(t, "agent_thinking", events[1]["type"])
		assert.Equal(t, "outlining act one", events[1]["content"])
		assert.NotEmpty(t, events[1]["timestamp"])
	}
}

func TestBroadcastIsProjectScoped(t *testing.T) {
	h := New(nil)
	a := &recordingSubscriber{}
	b := &recordingSubscriber{}
	h.Subscribe("novel-1", a)
	h.Subscribe("novel-2", b)

	h.Broadcast("novel-1", Progress(50, "halfway", nil))

	assert.Len(t, a.received(), 2)
	assert.Len(t, b.received(), 1) // connected ack only
}

func TestFailedSubscriberIsRemovedOthersStillDelivered(t *testing.T) {
	h := New(nil)
	healthy := &recordingSubscriber{}
	dead := &recordingSubscriber{fail: true}
	h.Subscribe("novel-1", healthy)
	h.Subscribe("novel-1", dead)
	require.Equal(t, 2, h.SubscriberCount("novel-1"))

	h.Broadcast("novel-1", ToolCall("write_chapter", map[string]any{"chapter_number": 1}))

	// The healthy subscriber still got the event.
	events := healthy.received()
	require.Len(t, events, 2)
	assert.Equal(t, "tool_call", events[1]["type"])

	// The dead one was dropped.
	assert.Equal(t, 1, h.SubscriberCount("novel-1"))

	// Subsequent broadcasts skip it entirely.
	h.Broadcast("novel-1", Complete(nil))
	assert.Len(t, dead.received(), 1)
	assert.Len(t, healthy.received(), 3)
}

func TestUnsubscribeRemovesEmptyProjectEntry(t *testing.T) {
	h := New(nil)
	sub := &recordingSubscriber{}
	h.Subscribe("novel-1", sub)

	h.Unsubscribe("novel-1", sub)
	assert.Equal(t, 0, h.SubscriberCount("novel-1"))

	// Unsubscribing an unknown project or subscriber is harmless.
	h.Unsubscribe("novel-1", sub)
	h.Unsubscribe("ghost", sub)
}

func TestBroadcastPreservesExistingTimestamp(t *testing.T) {
	h := New(nil)
	sub := &recordingSubscriber{}
	h.Subscribe("novel-1", sub)

	ev := Event{"type": "error", "message": "boom", "timestamp": "2026-01-02T03:04:05Z"}
	h.Broadcast("novel-1", ev)

	events := sub.received()
	require.Len(t, events, 2)
	assert.Equal(t, "2026-01-02T03:04:05Z", events[1]["timestamp"])
}

func TestTokenUpdatePercentage(t *testing.T) {
	ev := TokenUpdate(50_000, 200_000)
	assert.Equal(t, 25.0, ev["percentage"])

	ev = TokenUpdate(10, 0)
	assert.Equal(t, 0.0, ev["percentage"])
}
