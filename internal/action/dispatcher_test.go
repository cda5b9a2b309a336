package action

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"zauron.io/zauron/internal/detect"
)

type recordingExecutor struct {
	mu    sync.Mutex
	invs  []Invocation
	err   error
	block chan struct{} // when set, Execute waits until closed
	count atomic.Int64
}

func (e *recordingExecutor) Execute(ctx context.Context, inv Invocation) error {
	if e.block != nil {
		<-e.block
	}
	e.mu.Lock()
	e.invs = append(e.invs, inv)
	e.mu.Unlock()
	e.count.Add(1)
	return e.err
}

type recordingRecorder struct {
	mu    sync.Mutex
	fires map[string]time.Time
}

func (r *recordingRecorder) RecordFire(roi string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fires == nil {
		r.fires = make(map[string]time.Time)
	}
	r.fires[roi] = at
}

func intPtr(v int) *int { return &v }

func testEvent(roi string, desc *Descriptor) Event {
	return Event{
		ID:        "evt-1",
		ROI:       roi,
		Result:    detect.Result{Kind: detect.KindTemplate, Positive: true, BBox: image.Rect(10, 10, 30, 20)},
		Origin:    image.Point{X: 100, Y: 200},
		ROIOffset: image.Point{X: 5, Y: 7},
		At:        time.Now(),
		Descriptor: desc,
	}
}

func TestDispatchResolvesBBoxCenter(t *testing.T) {
	exec := &recordingExecutor{}
	d := NewDispatcher(exec, nil, nil)

	out := d.Dispatch(context.Background(), testEvent("roi-a", &Descriptor{Kind: KindClick}))
	if !out.Executed || out.Err != nil {
		t.Fatalf("dispatch failed: %+v", out)
	}

	inv := exec.invs[0]
	// origin(100,200) + roi offset(5,7) + bbox center(20,15)
	if inv.X != 125 || inv.Y != 222 {
		t.Errorf("click at (%d,%d), want (125,222)", inv.X, inv.Y)
	}
}

func TestDispatchResolvesExplicitCoordinatesAgainstOrigin(t *testing.T) {
	exec := &recordingExecutor{}
	d := NewDispatcher(exec, nil, nil)

	desc := &Descriptor{Kind: KindClick, X: intPtr(40), Y: intPtr(50)}
	d.Dispatch(context.Background(), testEvent("roi-a", desc))

	inv := exec.invs[0]
	if inv.X != 140 || inv.Y != 250 {
		t.Errorf("click at (%d,%d), want (140,250)", inv.X, inv.Y)
	}
}

func TestDispatchSequenceStopsAtFirstFailureWithoutRetry(t *testing.T) {
	exec := &recordingExecutor{err: errors.New("input blocked")}
	d := NewDispatcher(exec, nil, nil)

	desc := &Descriptor{Kind: KindSequence, Steps: []Descriptor{
		{Kind: KindPressKey, Key: "enter"},
		{Kind: KindType, Text: "hello"},
	}}
	out := d.Dispatch(context.Background(), testEvent("roi-a", desc))

	if out.Executed {
		t.Fatal("outcome should not be marked executed on failure")
	}
	if out.Err == nil {
		t.Fatal("expected recorded error")
	}
	if got := exec.count.Load(); got != 1 {
		t.Errorf("executor called %d times, want 1 (no retry, no continuation)", got)
	}
}

func TestDispatchAtMostOneInFlightPerROI(t *testing.T) {
	exec := &recordingExecutor{block: make(chan struct{})}
	d := NewDispatcher(exec, nil, nil)

	var first Outcome
	done := make(chan struct{})
	go func() {
		first = d.Dispatch(context.Background(), testEvent("roi-a", &Descriptor{Kind: KindClick}))
		close(done)
	}()

	// Wait until the first dispatch is inside the executor.
	deadline := time.After(2 * time.Second)
	for {
		d.mu.Lock()
		busy := d.inflight["roi-a"]
		d.mu.Unlock()
		if busy {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first dispatch never became in-flight")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	second := d.Dispatch(context.Background(), testEvent("roi-a", &Descriptor{Kind: KindClick}))
	if !second.Skipped {
		t.Fatal("second concurrent dispatch for the same ROI must be skipped")
	}

	// A different ROI is not blocked.
	otherExecHit := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), testEvent("roi-b", &Descriptor{Kind: KindClick}))
		close(otherExecHit)
	}()

	close(exec.block)
	<-done
	<-otherExecHit

	if !first.Executed {
		t.Errorf("first dispatch should have executed: %+v", first)
	}
}

func TestDispatchRecordsLastFire(t *testing.T) {
	exec := &recordingExecutor{}
	rec := &recordingRecorder{}
	d := NewDispatcher(exec, rec, nil)

	ev := testEvent("roi-a", &Descriptor{Kind: KindClick})
	d.Dispatch(context.Background(), ev)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if got, ok := rec.fires["roi-a"]; !ok || !got.Equal(ev.At) {
		t.Errorf("last fire = %v (%v), want %v", got, ok, ev.At)
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{"click without coords", Descriptor{Kind: KindClick}, false},
		{"click with both coords", Descriptor{Kind: KindClick, X: intPtr(1), Y: intPtr(2)}, false},
		{"click with only x", Descriptor{Kind: KindClick, X: intPtr(1)}, true},
		{"click with bad button", Descriptor{Kind: KindClick, Button: "side"}, true},
		{"move needs coords", Descriptor{Kind: KindMove}, true},
		{"drag needs end", Descriptor{Kind: KindDrag}, true},
		{"type needs text", Descriptor{Kind: KindType}, true},
		{"press_key needs key", Descriptor{Kind: KindPressKey}, true},
		{"notify needs message", Descriptor{Kind: KindNotify}, true},
		{"empty sequence", Descriptor{Kind: KindSequence}, true},
		{"nested sequence", Descriptor{Kind: KindSequence, Steps: []Descriptor{{Kind: KindSequence, Steps: []Descriptor{{Kind: KindPressKey, Key: "a"}}}}}, true},
		{"valid sequence", Descriptor{Kind: KindSequence, Steps: []Descriptor{{Kind: KindPressKey, Key: "a"}, {Kind: KindType, Text: "b"}}}, false},
		{"missing kind", Descriptor{}, true},
		{"unknown kind", Descriptor{Kind: "teleport"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
