package history

import (
	"time"

	"zauron.io/zauron/internal/events"
	"zauron.io/zauron/internal/logging"
)

// Recorder subscribes to the event bus and persists detections and action
// outcomes for one run. Persistence failures are logged, never surfaced
// back into the pipeline.
type Recorder struct {
	db    *DB
	runID int64
	log   *logging.Logger
	subs  []events.SubscriptionID
}

// NewRecorder creates a recorder bound to an already started run.
func NewRecorder(db *DB, runID int64, log *logging.Logger) *Recorder {
	if log == nil {
		log = logging.NewLogger("history")
	}
	return &Recorder{db: db, runID: runID, log: log}
}

// Attach subscribes the recorder to the bus.
func (r *Recorder) Attach(bus events.EventBus) {
	r.subs = append(r.subs,
		bus.Subscribe(events.EventTypeDetection, r.onDetection),
		bus.Subscribe(events.EventTypeActionExecuted, r.onOutcome(true, false)),
		bus.Subscribe(events.EventTypeActionFailed, r.onOutcome(false, false)),
		bus.Subscribe(events.EventTypeActionSkipped, r.onOutcome(false, true)),
	)
}

// Detach removes the recorder's subscriptions.
func (r *Recorder) Detach(bus events.EventBus) {
	for _, id := range r.subs {
		bus.Unsubscribe(id)
	}
	r.subs = nil
}

func (r *Recorder) onDetection(ev events.Event) {
	d := Detection{
		EventID:    str(ev.Data, "event_id"),
		ROI:        str(ev.Data, "roi"),
		Method:     str(ev.Data, "method"),
		DetectedAt: ev.Timestamp,
	}
	if c, ok := ev.Data["confidence"].(float64); ok {
		d.Confidence = c
	}
	d.Text = str(ev.Data, "text")

	if err := r.db.RecordDetection(r.runID, d); err != nil {
		r.log.ErrorWithContext("failed to persist detection", err, map[string]interface{}{
			"roi": d.ROI, "event": d.EventID,
		})
	}
}

func (r *Recorder) onOutcome(executed, skipped bool) events.EventHandler {
	return func(ev events.Event) {
		o := ActionOutcome{
			EventID:    str(ev.Data, "event_id"),
			ROI:        str(ev.Data, "roi"),
			Executed:   executed,
			Skipped:    skipped,
			Error:      str(ev.Data, "error"),
			FinishedAt: ev.Timestamp,
		}
		if ms, ok := ev.Data["took_ms"].(int64); ok {
			o.Duration = time.Duration(ms) * time.Millisecond
		}

		if err := r.db.RecordOutcome(r.runID, o); err != nil {
			r.log.ErrorWithContext("failed to persist action outcome", err, map[string]interface{}{
				"roi": o.ROI, "event": o.EventID,
			})
		}
	}
}

func str(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}
