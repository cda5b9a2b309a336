package engine

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"zauron.io/zauron/internal/action"
	"zauron.io/zauron/internal/capture"
	"zauron.io/zauron/internal/detect"
	"zauron.io/zauron/internal/events"
	"zauron.io/zauron/internal/logging"
	"zauron.io/zauron/internal/roi"
)

// Dispatcher executes bound actions for qualifying detections.
// *action.Dispatcher is the production implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev action.Event) action.Outcome
}

// DebugSink receives crops of positive detections. Offer must never block;
// it reports whether the crop was accepted.
type DebugSink interface {
	Offer(roi string, img *image.RGBA, at time.Time) bool
}

// Config tunes a run. Zero values get the defaults below.
type Config struct {
	CaptureInterval time.Duration // cadence of the capture loop
	StartupDelay    time.Duration // wait before the first tick
	PoolSize        int           // evaluation worker pool size
	FailureCeiling  int           // consecutive capture failures before the run aborts
	BackoffBase     time.Duration // first retry delay after a capture failure
	BackoffMax      time.Duration // retry delay ceiling
	ShutdownGrace   time.Duration // how long Stop waits for in-flight work
	DefaultTimeout  time.Duration // per-evaluation timeout for ROIs without one

	// Confidence tier boundaries, used for log annotation only.
	HighConfidence   float64
	MediumConfidence float64
}

func (c *Config) applyDefaults() {
	if c.CaptureInterval <= 0 {
		c.CaptureInterval = 200 * time.Millisecond
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 4
	}
	if c.FailureCeiling <= 0 {
		c.FailureCeiling = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 10 * time.Second
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 5 * time.Second
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 2 * time.Second
	}
	if c.HighConfidence <= 0 {
		c.HighConfidence = 0.9
	}
	if c.MediumConfidence <= 0 {
		c.MediumConfidence = 0.75
	}
}

// Deps are the collaborators an engine needs beyond the capture source and
// registry. Bus, Sink, Clock and Log are optional.
type Deps struct {
	Library    *detect.Library
	Recognizer detect.Recognizer
	Dispatcher Dispatcher
	Bus        events.EventBus
	Sink       DebugSink
	Clock      clock.Clock
	Log        *logging.Logger
}

// Engine owns one run: a capture loop feeding the latest frame into run
// state, per-ROI schedulers enqueueing ticks into a bounded worker pool,
// and a dispatch loop handing qualifying detections to the dispatcher.
type Engine struct {
	cfg      Config
	source   capture.Source
	registry *roi.Registry

	dispatcher Dispatcher
	bus        events.EventBus
	sink       DebugSink
	clock      clock.Clock
	log        *logging.Logger

	state   *RunState
	workers []*worker
	tasks   chan *worker
	events  chan action.Event

	mu       sync.Mutex
	cancel   context.CancelFunc
	quit     chan struct{}
	stopOnce sync.Once
	fatalCh  chan error

	active sync.WaitGroup // in-flight evaluations and dispatches
}

// New builds an engine, constructing a detector for every enabled ROI.
// Construction fails fast on any binding the registry could not verify,
// such as an OCR region without a recognizer.
func New(source capture.Source, registry *roi.Registry, cfg Config, deps Deps) (*Engine, error) {
	cfg.applyDefaults()

	log := deps.Log
	if log == nil {
		log = logging.NewLogger("engine")
	}
	cl := deps.Clock
	if cl == nil {
		cl = clock.New()
	}

	enabled := make([]*roi.ROI, 0, len(registry.List()))
	ids := make([]string, 0, len(registry.List()))
	for _, r := range registry.List() {
		if r.IsEnabled() {
			enabled = append(enabled, r)
			ids = append(ids, r.ID)
		}
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no enabled regions")
	}

	e := &Engine{
		cfg:        cfg,
		source:     source,
		registry:   registry,
		dispatcher: deps.Dispatcher,
		bus:        deps.Bus,
		sink:       deps.Sink,
		clock:      cl,
		log:        log,
		state:      NewRunState(ids),
		tasks:      make(chan *worker, len(enabled)),
		events:     make(chan action.Event, len(enabled)),
		quit:       make(chan struct{}),
		fatalCh:    make(chan error, 1),
	}

	for _, r := range enabled {
		det, err := buildDetector(r, deps.Library, deps.Recognizer)
		if err != nil {
			return nil, err
		}
		e.workers = append(e.workers, &worker{
			roi:            r,
			detector:       det,
			state:          e.state,
			clock:          cl,
			bus:            deps.Bus,
			sink:           deps.Sink,
			log:            log,
			events:         e.events,
			defaultTimeout: cfg.DefaultTimeout,
			highTier:       cfg.HighConfidence,
			mediumTier:     cfg.MediumConfidence,
		})
	}
	return e, nil
}

// State exposes the run state, e.g. to wire the dispatcher's fire recorder.
func (e *Engine) State() *RunState { return e.state }

// SetDispatcher installs the dispatcher. The dispatcher usually records
// fires into this engine's RunState, so it is built after New and wired
// here before Run.
func (e *Engine) SetDispatcher(d Dispatcher) {
	e.dispatcher = d
}

// Run executes the pipeline until the context is cancelled, Stop or Kill
// is called, or capture fails persistently. It returns
// ErrPersistentCaptureFailure (wrapped) in the last case and nil on a
// clean stop.
func (e *Engine) Run(ctx context.Context) error {
	if !e.state.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.state.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	if e.cfg.StartupDelay > 0 {
		e.log.InfoWithContext("startup delay", map[string]interface{}{
			"delay": e.cfg.StartupDelay.String(),
		})
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		case <-e.quit:
			return nil
		case <-e.clock.After(e.cfg.StartupDelay):
		}
	}

	e.publish(events.NewRunStartedEvent(e.source.Name(), len(e.workers)))
	e.log.InfoWithContext("run started", map[string]interface{}{
		"source": e.source.Name(), "regions": len(e.workers), "pool": e.cfg.PoolSize,
	})

	var loops sync.WaitGroup

	loops.Add(1)
	go func() {
		defer loops.Done()
		e.captureLoop(runCtx)
	}()

	for i := 0; i < e.cfg.PoolSize; i++ {
		loops.Add(1)
		go func() {
			defer loops.Done()
			e.poolWorker(runCtx)
		}()
	}

	for _, w := range e.workers {
		loops.Add(1)
		go func(w *worker) {
			defer loops.Done()
			e.scheduleROI(runCtx, w)
		}(w)
	}

	loops.Add(1)
	go func() {
		defer loops.Done()
		e.dispatchLoop(runCtx)
	}()

	reason := "stopped"
	var runErr error
	select {
	case <-runCtx.Done():
		reason = "cancelled"
		runErr = runCtx.Err()
	case <-e.quit:
		e.drain(runCtx)
	case err := <-e.fatalCh:
		reason = "capture failure"
		runErr = err
	}

	cancel()
	loops.Wait()

	e.publish(events.NewRunStoppedEvent(reason))
	e.log.InfoWithContext("run stopped", map[string]interface{}{"reason": reason})
	return runErr
}

// Stop requests a graceful stop: no new ticks are scheduled, in-flight
// evaluations and actions get ShutdownGrace to finish, then the run ends.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.quit) })
}

// Kill aborts the run immediately, cutting off in-flight work.
func (e *Engine) Kill() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Pause suspends scheduling without tearing the run down.
func (e *Engine) Pause() {
	e.state.Pause()
	e.publish(events.NewRunPausedEvent())
	e.log.Info("run paused")
}

// Resume lifts a pause.
func (e *Engine) Resume() {
	e.state.Resume()
	e.publish(events.NewRunResumedEvent())
	e.log.Info("run resumed")
}

// drain waits for in-flight work after a graceful stop, up to the grace
// window.
func (e *Engine) drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		e.active.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	case <-e.clock.After(e.cfg.ShutdownGrace):
		e.log.Warn("shutdown grace elapsed, aborting in-flight work")
	}
}

// captureLoop grabs frames on the configured cadence and publishes the
// latest one into run state. Transient failures back off exponentially;
// hitting the failure ceiling aborts the run.
func (e *Engine) captureLoop(ctx context.Context) {
	ticker := e.clock.Ticker(e.cfg.CaptureInterval)
	defer ticker.Stop()

	failures := 0
	backoff := e.cfg.BackoffBase

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quit:
			return
		case <-ticker.C:
		}

		frame, err := e.source.Capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			e.log.WarnWithContext("capture failed", map[string]interface{}{
				"source": e.source.Name(), "consecutive": failures, "error": err.Error(),
			})
			e.publish(events.NewCaptureFailedEvent(e.source.Name(), failures, err))

			if failures >= e.cfg.FailureCeiling {
				e.fail(fmt.Errorf("%s failed %d consecutive times: %w: %w",
					e.source.Name(), failures, ErrPersistentCaptureFailure, err))
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-e.quit:
				return
			case <-e.clock.After(backoff):
			}
			if backoff *= 2; backoff > e.cfg.BackoffMax {
				backoff = e.cfg.BackoffMax
			}
			continue
		}

		if failures > 0 {
			e.log.InfoWithContext("capture recovered", map[string]interface{}{
				"source": e.source.Name(), "after_failures": failures,
			})
			e.publish(events.NewCaptureRecoveredEvent(e.source.Name(), failures))
			failures = 0
			backoff = e.cfg.BackoffBase
		}
		e.state.StoreFrame(frame)
	}
}

func (e *Engine) fail(err error) {
	select {
	case e.fatalCh <- err:
	default:
	}
}

// scheduleROI ticks one ROI on its interval. Backpressure is skip, not
// queue: a tick that finds the worker busy or the pool saturated is
// dropped and the next tick evaluates a fresher frame.
func (e *Engine) scheduleROI(ctx context.Context, w *worker) {
	ticker := e.clock.Ticker(w.roi.Interval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quit:
			return
		case <-ticker.C:
		}

		if e.state.Paused() {
			continue
		}
		if !w.tryAcquire() {
			e.log.DebugWithContext("evaluation still running, tick skipped", map[string]interface{}{
				"roi": w.roi.ID,
			})
			e.publish(events.NewTickSkippedEvent(w.roi.ID, "evaluation in flight"))
			continue
		}
		select {
		case e.tasks <- w:
		default:
			w.release()
			e.log.WarnWithContext("worker pool saturated, tick skipped", map[string]interface{}{
				"roi": w.roi.ID,
			})
			e.publish(events.NewTickSkippedEvent(w.roi.ID, "pool saturated"))
		}
	}
}

// poolWorker executes queued ticks. Pool size bounds how many evaluations
// run concurrently regardless of how many ROIs are due. Ticks still queued
// when the run stops are abandoned; the tick itself releases the worker.
func (e *Engine) poolWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quit:
			return
		case w := <-e.tasks:
			e.active.Add(1)
			w.tick(ctx)
			e.active.Done()
		}
	}
}

// dispatchLoop hands detection events to the dispatcher. Each dispatch
// runs in its own goroutine; the dispatcher's per-ROI in-flight guard
// keeps one ROI from stacking actions while other ROIs proceed. Once a
// stop is requested no further event may reach the dispatcher, only
// dispatches already started finish within the grace window.
func (e *Engine) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quit:
			return
		case ev := <-e.events:
			select {
			case <-e.quit:
				return
			default:
			}
			if e.dispatcher == nil {
				continue
			}
			e.active.Add(1)
			go func(ev action.Event) {
				defer e.active.Done()
				out := e.dispatcher.Dispatch(ctx, ev)
				switch {
				case out.Skipped:
					e.publish(events.NewActionSkippedEvent(ev.ID, ev.ROI))
				case out.Err != nil:
					e.publish(events.NewActionFailedEvent(ev.ID, ev.ROI, out.Err))
				default:
					e.publish(events.NewActionExecutedEvent(ev.ID, ev.ROI, out.Duration))
				}
			}(ev)
		}
	}
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
