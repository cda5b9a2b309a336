package engine

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"zauron.io/zauron/internal/action"
	"zauron.io/zauron/internal/capture"
	"zauron.io/zauron/internal/detect"
	"zauron.io/zauron/internal/events"
	"zauron.io/zauron/internal/logging"
	"zauron.io/zauron/internal/roi"
)

// Worker phases. A worker is Idle between ticks, Evaluating while its
// detector runs, and CoolingDown after a qualifying detection until the
// cooldown window closes.
const (
	phaseIdle int32 = iota
	phaseEvaluating
	phaseCoolingDown
)

// tickOutcome tells the caller (and tests) what a tick did.
type tickOutcome int

const (
	tickNegative tickOutcome = iota
	tickFired
	tickSkippedNoFrame
	tickSkippedCooldown
	tickSkippedCrop
	tickSkippedDetector
	tickTimedOut
)

// worker evaluates one ROI. Single-flight is enforced by tryAcquire: while
// a tick is in progress, due ticks are dropped, never queued. All fields
// below busy are only touched by the goroutine that holds the busy flag.
type worker struct {
	roi      *roi.ROI
	detector detect.Detector

	state *RunState
	clock clock.Clock
	bus   events.EventBus
	sink  DebugSink
	log   *logging.Logger

	events         chan<- action.Event
	defaultTimeout time.Duration
	highTier       float64
	mediumTier     float64

	busy  atomic.Bool
	phase atomic.Int32

	prev         *image.RGBA // previous crop, motion method only
	coolingUntil time.Time   // detection-time cooldown window
}

// tryAcquire claims the worker for one tick. It fails while a previous
// tick is still evaluating.
func (w *worker) tryAcquire() bool {
	return w.busy.CompareAndSwap(false, true)
}

func (w *worker) release() {
	w.busy.Store(false)
}

// tick runs one evaluation cycle. The caller must hold the busy flag;
// tick releases it, normally on return, or once a runaway evaluation
// finally comes back after its deadline.
func (w *worker) tick(ctx context.Context) tickOutcome {
	selfRelease := true
	defer func() {
		if selfRelease {
			w.release()
		}
	}()

	now := w.clock.Now()

	frame := w.state.LatestFrame()
	if frame == nil {
		return tickSkippedNoFrame
	}

	w.phase.Store(phaseEvaluating)
	defer func() {
		if w.coolingDown(w.clock.Now()) {
			w.phase.Store(phaseCoolingDown)
		} else {
			w.phase.Store(phaseIdle)
		}
	}()

	rect := w.roi.Bounds.Resolve(frame.Bounds())
	crop, err := capture.Crop(frame, rect)
	if err != nil {
		// Recoverable: the window may have shrunk. State is unchanged and
		// the next tick retries against a fresh frame.
		w.log.WarnWithContext("crop out of bounds, tick skipped", map[string]interface{}{
			"roi": w.roi.ID, "bounds": rect.String(), "frame": frame.Bounds().String(),
		})
		w.publish(events.NewTickSkippedEvent(w.roi.ID, "crop out of bounds"))
		return tickSkippedCrop
	}

	timeout := w.roi.Timeout.Std()
	if timeout <= 0 {
		timeout = w.defaultTimeout
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type evaluation struct {
		res detect.Result
		err error
	}
	done := make(chan evaluation, 1)
	go func() {
		res, err := w.detector.Evaluate(evalCtx, detect.Input{Crop: crop, Prev: w.prev})
		done <- evaluation{res: res, err: err}
	}()

	var res detect.Result
	select {
	case out := <-done:
		res, err = out.res, out.err
	case <-evalCtx.Done():
		// The detector is past its deadline. Report the timeout now, but
		// hold the busy flag until the runaway call returns so a second
		// evaluation never overlaps it. Its stale result is discarded.
		w.log.WarnWithContext("evaluation timed out", map[string]interface{}{
			"roi": w.roi.ID, "timeout": timeout.String(),
		})
		selfRelease = false
		go func() {
			<-done
			w.release()
		}()
		return tickTimedOut
	}

	if w.roi.Method == detect.KindMotion {
		w.prev = crop
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// A timed-out evaluation counts as negative, never positive.
			w.log.WarnWithContext("evaluation timed out", map[string]interface{}{
				"roi": w.roi.ID, "timeout": timeout.String(),
			})
			return tickTimedOut
		}
		w.log.ErrorWithContext("detector error, tick skipped", err, map[string]interface{}{
			"roi": w.roi.ID, "method": string(w.roi.Method),
		})
		w.publish(events.NewDetectorErrorEvent(w.roi.ID, string(w.roi.Method), err))
		return tickSkippedDetector
	}

	if !res.Positive {
		return tickNegative
	}

	ev := action.Event{
		ID:         uuid.NewString(),
		ROI:        w.roi.ID,
		Result:     res,
		Origin:     frame.Origin,
		ROIOffset:  rect.Min.Sub(frame.Bounds().Min),
		At:         now,
		Descriptor: w.roi.Action,
	}

	// Detections keep being computed and reported during the cooldown
	// window; only the action event is suppressed. A suppressed positive
	// does not extend the window.
	suppressed := w.coolingDown(now)

	w.log.InfoWithContext("detection", map[string]interface{}{
		"roi":        w.roi.ID,
		"method":     string(w.roi.Method),
		"confidence": res.Confidence,
		"tier":       w.tier(res.Confidence),
		"event":      ev.ID,
		"suppressed": suppressed,
	})
	w.publish(events.NewDetectionEvent(ev.ID, w.roi.ID, string(w.roi.Method), res.Confidence, res.Text))

	if w.sink != nil {
		w.sink.Offer(w.roi.ID, crop, now)
	}

	if suppressed {
		return tickSkippedCooldown
	}

	if w.roi.CooldownFrom == roi.CooldownFromDetection && w.roi.Cooldown.Std() > 0 {
		w.coolingUntil = now.Add(w.roi.Cooldown.Std())
	}

	select {
	case w.events <- ev:
	case <-ctx.Done():
		return tickFired
	default:
		// The dispatch queue is full; drop rather than block the pool.
		w.log.WarnWithContext("dispatch queue full, event dropped", map[string]interface{}{
			"roi": w.roi.ID, "event": ev.ID,
		})
	}
	return tickFired
}

// coolingDown reports whether the ROI is inside its cooldown window under
// either policy: the worker-owned detection-time window, or the dispatcher
// recorded last-fire time when cooldown_from is "action".
func (w *worker) coolingDown(now time.Time) bool {
	if now.Before(w.coolingUntil) {
		return true
	}
	if w.roi.CooldownFrom == roi.CooldownFromAction && w.roi.Cooldown.Std() > 0 {
		if last, ok := w.state.LastFire(w.roi.ID); ok && now.Sub(last) < w.roi.Cooldown.Std() {
			return true
		}
	}
	return false
}

func (w *worker) tier(confidence float64) string {
	switch {
	case confidence >= w.highTier:
		return "high"
	case confidence >= w.mediumTier:
		return "medium"
	default:
		return "low"
	}
}

func (w *worker) publish(ev events.Event) {
	if w.bus != nil {
		w.bus.Publish(ev)
	}
}
