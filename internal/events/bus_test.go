package events

import (
	"sync"
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewEventBus(8)
	defer bus.Stop()

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{}, 1)
	bus.Subscribe(EventTypeDetection, func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		done <- struct{}{}
	})

	bus.Publish(NewDetectionEvent("ev1", "start-button", "template", 0.92, ""))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("got %d events", len(got))
	}
	if got[0].Data["roi"] != "start-button" || got[0].Data["confidence"] != 0.92 {
		t.Errorf("event data = %v", got[0].Data)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus(8)
	defer bus.Stop()

	calls := make(chan struct{}, 8)
	id := bus.Subscribe(EventTypeRunStarted, func(Event) { calls <- struct{}{} })

	bus.Publish(NewRunStartedEvent("display:0", 2))
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}

	bus.Unsubscribe(id)
	bus.Publish(NewRunStartedEvent("display:0", 2))
	select {
	case <-calls:
		t.Fatal("handler invoked after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandlerPanicDoesNotKillBus(t *testing.T) {
	bus := NewEventBus(8)
	defer bus.Stop()

	ok := make(chan struct{}, 1)
	bus.Subscribe(EventTypeError, func(Event) { panic("boom") })
	bus.Subscribe(EventTypeRunStopped, func(Event) { ok <- struct{}{} })

	bus.Publish(Event{Type: EventTypeError})
	bus.Publish(NewRunStoppedEvent("stopped"))

	select {
	case <-ok:
	case <-time.After(2 * time.Second):
		t.Fatal("bus stopped dispatching after a handler panic")
	}
}
