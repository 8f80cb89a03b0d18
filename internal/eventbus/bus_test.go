package eventbus

import (
	"testing"
	"time"

	"pkt.systems/scribe/schema"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()

	event := schema.SessionEvent{
		Type:       schema.SessionEventCaptured,
		SessionID:  "sess1",
		TabID:      "tab1",
		EventID:    3,
		ActionType: schema.ActionClick,
	}
	bus.OnSessionEvent(event)

	select {
	case got := <-ch:
		if got.Type != schema.SessionEventCaptured {
			t.Fatalf("expected event_captured, got %v", got.Type)
		}
		if got.SessionID != event.SessionID || got.EventID != event.EventID {
			t.Fatalf("unexpected payload: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	_, cancel := bus.Subscribe()
	defer cancel()

	var sendCh chan schema.SessionEvent
	bus.mu.Lock()
	for ch := range bus.subs {
		sendCh = ch
		break
	}
	bus.mu.Unlock()
	if sendCh == nil {
		t.Fatalf("expected subscriber channel")
	}
	sendCh <- schema.SessionEvent{Type: schema.SessionRecordingStarted}
	done := make(chan struct{})
	go func() {
		bus.OnSessionEvent(schema.SessionEvent{Type: schema.SessionEventCaptured})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full channel")
	}
}
