package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, s Subscription) (Event, bool) {
	t.Helper()
	select {
	case evt, ok := <-s.Events():
		return evt, ok
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return Event{}, false
	}
}

func TestHubDeliversMatchingEvents(t *testing.T) {
	h := NewHub()
	sub, err := h.Subscribe(context.Background(), ClientFilter("1"))
	require.NoError(t, err)
	defer func() { _ = sub.Close(context.Background()) }()

	h.Publish(Event{Kind: Insert, New: crm.Message{ID: "other", ClientID: "2"}})
	h.Publish(Event{Kind: Insert, New: crm.Message{ID: "mine", ClientID: "1"}})

	evt, ok := recv(t, sub)
	require.True(t, ok)
	assert.Equal(t, "mine", evt.New.ID)
}

func TestHubCloseEndsStream(t *testing.T) {
	h := NewHub()
	sub, err := h.Subscribe(context.Background(), Filter{})
	require.NoError(t, err)

	require.NoError(t, sub.Close(context.Background()))
	require.NoError(t, sub.Close(context.Background()), "second close is a no-op")

	_, ok := recv(t, sub)
	assert.False(t, ok)
	assert.NoError(t, sub.Err())
}

func TestHubDisconnectReportsError(t *testing.T) {
	h := NewHub()
	sub, err := h.Subscribe(context.Background(), Filter{})
	require.NoError(t, err)

	boom := errors.New("connection reset")
	h.Disconnect(boom)

	_, ok := recv(t, sub)
	assert.False(t, ok)
	assert.ErrorIs(t, sub.Err(), boom)
}

func TestHubPreservesOrder(t *testing.T) {
	h := NewHub()
	sub, err := h.Subscribe(context.Background(), Filter{})
	require.NoError(t, err)
	defer func() { _ = sub.Close(context.Background()) }()

	for _, id := range []string{"a", "b", "c"} {
		h.Publish(Event{Kind: Insert, New: crm.Message{ID: id}})
	}
	for _, want := range []string{"a", "b", "c"} {
		evt, _ := recv(t, sub)
		assert.Equal(t, want, evt.New.ID)
	}
}
