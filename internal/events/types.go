package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Run lifecycle events
	EventTypeRunStarted EventType = "run.started"
	EventTypeRunPaused  EventType = "run.paused"
	EventTypeRunResumed EventType = "run.resumed"
	EventTypeRunStopped EventType = "run.stopped"

	// Detection events
	EventTypeDetection     EventType = "detection.positive"
	EventTypeTickSkipped   EventType = "detection.tick_skipped"
	EventTypeDetectorError EventType = "detection.error"

	// Action events
	EventTypeActionExecuted EventType = "action.executed"
	EventTypeActionFailed   EventType = "action.failed"
	EventTypeActionSkipped  EventType = "action.skipped"

	// Capture events
	EventTypeCaptureFailed    EventType = "capture.failed"
	EventTypeCaptureRecovered EventType = "capture.recovered"

	// Error events
	EventTypeError EventType = "error"
)

// Event represents a system event with metadata
type Event struct {
	Type      EventType              // Type of event
	Source    string                 // Component that emitted event (e.g., "engine", "dispatcher")
	Timestamp time.Time              // When the event occurred
	Data      map[string]interface{} // Event-specific data
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish sends an event to all subscribers (blocking)
	Publish(event Event)

	// PublishAsync sends an event asynchronously (non-blocking)
	PublishAsync(event Event)

	// Stop stops the event bus and drains remaining events
	Stop()
}

// Helper functions to create common events

// NewRunStartedEvent creates a run started event
func NewRunStartedEvent(source string, regions int) Event {
	return Event{
		Type:      EventTypeRunStarted,
		Source:    "engine",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"capture_source": source,
			"regions":        regions,
		},
	}
}

// NewRunStoppedEvent creates a run stopped event
func NewRunStoppedEvent(reason string) Event {
	return Event{
		Type:      EventTypeRunStopped,
		Source:    "engine",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"reason": reason,
		},
	}
}

// NewRunPausedEvent creates a run paused event
func NewRunPausedEvent() Event {
	return Event{Type: EventTypeRunPaused, Source: "engine", Timestamp: time.Now()}
}

// NewRunResumedEvent creates a run resumed event
func NewRunResumedEvent() Event {
	return Event{Type: EventTypeRunResumed, Source: "engine", Timestamp: time.Now()}
}

// NewDetectionEvent creates a positive detection event
func NewDetectionEvent(eventID, roi, method string, confidence float64, text string) Event {
	return Event{
		Type:      EventTypeDetection,
		Source:    "engine",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"event_id":   eventID,
			"roi":        roi,
			"method":     method,
			"confidence": confidence,
			"text":       text,
		},
	}
}

// NewDetectorErrorEvent creates a detector error event
func NewDetectorErrorEvent(roi, method string, err error) Event {
	return Event{
		Type:      EventTypeDetectorError,
		Source:    "engine",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"roi":    roi,
			"method": method,
			"error":  err.Error(),
		},
	}
}

// NewTickSkippedEvent creates a tick skipped event
func NewTickSkippedEvent(roi, reason string) Event {
	return Event{
		Type:      EventTypeTickSkipped,
		Source:    "engine",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"roi":    roi,
			"reason": reason,
		},
	}
}

// NewActionExecutedEvent creates an action executed event
func NewActionExecutedEvent(eventID, roi string, took time.Duration) Event {
	return Event{
		Type:      EventTypeActionExecuted,
		Source:    "dispatcher",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"event_id": eventID,
			"roi":      roi,
			"took_ms":  took.Milliseconds(),
		},
	}
}

// NewActionFailedEvent creates an action failed event
func NewActionFailedEvent(eventID, roi string, err error) Event {
	return Event{
		Type:      EventTypeActionFailed,
		Source:    "dispatcher",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"event_id": eventID,
			"roi":      roi,
			"error":    err.Error(),
		},
	}
}

// NewActionSkippedEvent creates an action skipped event
func NewActionSkippedEvent(eventID, roi string) Event {
	return Event{
		Type:      EventTypeActionSkipped,
		Source:    "dispatcher",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"event_id": eventID,
			"roi":      roi,
		},
	}
}

// NewCaptureFailedEvent creates a capture failed event
func NewCaptureFailedEvent(source string, consecutive int, err error) Event {
	return Event{
		Type:      EventTypeCaptureFailed,
		Source:    "engine",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"capture_source": source,
			"consecutive":    consecutive,
			"error":          err.Error(),
		},
	}
}

// NewCaptureRecoveredEvent creates a capture recovered event
func NewCaptureRecoveredEvent(source string, after int) Event {
	return Event{
		Type:      EventTypeCaptureRecovered,
		Source:    "engine",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"capture_source": source,
			"after_failures": after,
		},
	}
}

// NewErrorEvent creates an error event
func NewErrorEvent(source, component string, err error, metadata map[string]interface{}) Event {
	data := map[string]interface{}{
		"source":    source,
		"component": component,
		"error":     err.Error(),
	}

	// Merge metadata
	for k, v := range metadata {
		data[k] = v
	}

	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}
