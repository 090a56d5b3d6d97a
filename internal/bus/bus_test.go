package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("notification.", 10)
	defer unsub()

	b.Publish(Event{Kind: NotificationAdded, Timestamp: time.Now(), Payload: "n1"})

	select {
	case evt := <-ch:
		if evt.Kind != NotificationAdded {
			t.Errorf("got kind %q, want %s", evt.Kind, NotificationAdded)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("sync.", 10)
	defer unsub()

	b.Emit(ConversationUpdated, nil)
	b.Emit(SyncFeedError, "boom")

	select {
	case evt := <-ch:
		if evt.Kind != SyncFeedError {
			t.Errorf("got kind %q, want %s", evt.Kind, SyncFeedError)
		}
		if evt.Payload != "boom" {
			t.Errorf("payload = %v, want boom", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmitStampsTime(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 1)
	defer unsub()

	before := time.Now()
	b.Emit(MailThreadsChanged, nil)
	evt := <-ch
	if evt.Timestamp.Before(before) {
		t.Errorf("timestamp %v is before emit time %v", evt.Timestamp, before)
	}
}

func TestEmitOnNilBus(t *testing.T) {
	var b *Bus
	b.Emit(NotificationCleared, nil)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("notification.", 10)
	if b.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", b.Subscribers())
	}
	unsub()
	unsub()
	if b.Subscribers() != 0 {
		t.Fatalf("Subscribers() = %d after unsubscribe", b.Subscribers())
	}

	b.Emit(NotificationRemoved, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conversation.", 1)
	defer unsub()

	b.Emit(ConversationUpdated, 1)
	// Dropped: buffer is full.
	b.Emit(ConversationUpdated, 2)

	evt := <-ch
	if evt.Payload != 1 {
		t.Errorf("got payload %v, want 1", evt.Payload)
	}
	if b.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", b.Dropped())
	}
}
