package action

import (
	"context"
	"image"
	"sync"
	"time"

	"zauron.io/zauron/internal/detect"
	"zauron.io/zauron/internal/logging"
)

// Event is one qualifying detection handed over for actioning. Origin is
// the frame's top-left in screen coordinates and ROIOffset the ROI's
// top-left within the frame, so bbox-relative targets can be made absolute.
type Event struct {
	ID         string
	ROI        string
	Result     detect.Result
	Origin     image.Point
	ROIOffset  image.Point
	At         time.Time
	Descriptor *Descriptor
}

// Outcome records what happened to one event. Failures are recorded and
// surfaced, never retried.
type Outcome struct {
	EventID  string
	ROI      string
	Executed bool
	Skipped  bool // an action for this ROI was still in flight
	Err      error
	Duration time.Duration
	At       time.Time
}

// FireRecorder receives the last-fire timestamp for an ROI. The dispatcher
// is the only writer of that timestamp.
type FireRecorder interface {
	RecordFire(roi string, at time.Time)
}

// Dispatcher executes bound actions for detection events. It enforces
// at-most-one-in-flight per ROI on its own, independently of the worker's
// cooldown state machine, as a guard against races between the two.
type Dispatcher struct {
	executor Executor
	recorder FireRecorder
	log      *logging.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// NewDispatcher creates a dispatcher. recorder may be nil.
func NewDispatcher(executor Executor, recorder FireRecorder, log *logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.NewLogger("dispatcher")
	}
	return &Dispatcher{
		executor: executor,
		recorder: recorder,
		log:      log,
		inflight: make(map[string]bool),
	}
}

// Dispatch executes the event's bound action. It is synchronous; callers
// decide the concurrency model around it.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Outcome {
	out := Outcome{EventID: ev.ID, ROI: ev.ROI, At: time.Now()}

	d.mu.Lock()
	if d.inflight[ev.ROI] {
		d.mu.Unlock()
		out.Skipped = true
		d.log.WarnWithContext("action already in flight, event skipped", map[string]interface{}{
			"roi": ev.ROI, "event": ev.ID,
		})
		return out
	}
	d.inflight[ev.ROI] = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.inflight, ev.ROI)
		d.mu.Unlock()
	}()

	if d.recorder != nil {
		d.recorder.RecordFire(ev.ROI, ev.At)
	}

	start := time.Now()
	out.Err = d.execute(ctx, ev)
	out.Duration = time.Since(start)
	out.Executed = out.Err == nil

	if out.Err != nil {
		d.log.ErrorWithContext("action execution failed", out.Err, map[string]interface{}{
			"roi": ev.ROI, "event": ev.ID, "kind": string(ev.Descriptor.Kind),
		})
	} else {
		d.log.InfoWithContext("action executed", map[string]interface{}{
			"roi": ev.ROI, "event": ev.ID, "kind": string(ev.Descriptor.Kind), "took": out.Duration,
		})
	}
	return out
}

func (d *Dispatcher) execute(ctx context.Context, ev Event) error {
	steps := []Descriptor{*ev.Descriptor}
	if ev.Descriptor.Kind == KindSequence {
		steps = ev.Descriptor.Steps
	}
	for i := range steps {
		inv := resolve(&steps[i], ev)
		if err := d.executor.Execute(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

// resolve turns a descriptor into an absolute invocation. Explicit
// coordinates are source-relative and get the frame origin added; omitted
// coordinates on click-like actions target the detection bbox center.
func resolve(desc *Descriptor, ev Event) Invocation {
	inv := Invocation{
		Kind:    desc.Kind,
		Button:  desc.Button,
		Clicks:  desc.Clicks,
		Text:    desc.Text,
		Key:     desc.Key,
		Message: desc.Message,
		ROI:     ev.ROI,
		EventID: ev.ID,
	}

	base := ev.Origin.Add(ev.ROIOffset)
	if desc.X != nil && desc.Y != nil {
		inv.X = ev.Origin.X + *desc.X
		inv.Y = ev.Origin.Y + *desc.Y
	} else {
		center := centerOf(ev.Result.BBox)
		inv.X = base.X + center.X
		inv.Y = base.Y + center.Y
	}
	if desc.EndX != nil && desc.EndY != nil {
		inv.EndX = ev.Origin.X + *desc.EndX
		inv.EndY = ev.Origin.Y + *desc.EndY
	}
	return inv
}

func centerOf(r image.Rectangle) image.Point {
	return image.Point{
		X: r.Min.X + r.Dx()/2,
		Y: r.Min.Y + r.Dy()/2,
	}
}
