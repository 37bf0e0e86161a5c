package auth

import (
	"testing"
	"time"
)

func TestBroadcasterPublish(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	want := &Session{Token: "t", UserID: "u"}
	b.Publish(want)

	select {
	case got := <-ch:
		if got.Token != "t" {
			t.Fatalf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("no notification delivered")
	}

	// Sign-out publishes nil.
	b.Publish(nil)
	select {
	case got := <-ch:
		if got != nil {
			t.Fatalf("expected nil session, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("no notification delivered")
	}
}

func TestBroadcasterCancel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()

	cancel()
	if b.Len() != 0 {
		t.Fatalf("subscriber not removed")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel not closed after cancel")
	}
	cancel() // safe to call twice

	// Publishing after teardown reaches no one and must not panic.
	b.Publish(&Session{Token: "t"})
}

func TestBroadcasterSlowSubscriberSkipped(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe()
	defer cancel()

	// Fill the buffer well past capacity; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(&Session{Token: "t"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}
}
