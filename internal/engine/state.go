package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"zauron.io/zauron/internal/capture"
)

// fireCell holds the last-fire timestamp for one ROI behind its own lock,
// so recording a fire for one region never contends with reads for another.
type fireCell struct {
	mu sync.Mutex
	at time.Time
	ok bool
}

// RunState is the shared mutable state of a run: the latest captured frame
// and the last-fire time per ROI. The dispatcher is the only writer of
// last-fire times (via RecordFire); workers only read them. The fire map
// itself is fixed at construction, only the cells change.
type RunState struct {
	running atomic.Bool
	paused  atomic.Bool

	frameMu sync.RWMutex
	frame   *capture.Frame

	fires map[string]*fireCell
}

// NewRunState creates run state for the given ROI ids.
func NewRunState(ids []string) *RunState {
	s := &RunState{fires: make(map[string]*fireCell, len(ids))}
	for _, id := range ids {
		s.fires[id] = &fireCell{}
	}
	return s
}

// RecordFire stores the last-fire time for an ROI. Implements
// action.FireRecorder.
func (s *RunState) RecordFire(roi string, at time.Time) {
	cell, ok := s.fires[roi]
	if !ok {
		return
	}
	cell.mu.Lock()
	cell.at = at
	cell.ok = true
	cell.mu.Unlock()
}

// LastFire returns the last time an action fired for the given ROI.
func (s *RunState) LastFire(roi string) (time.Time, bool) {
	cell, ok := s.fires[roi]
	if !ok {
		return time.Time{}, false
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	return cell.at, cell.ok
}

// StoreFrame publishes the latest captured frame.
func (s *RunState) StoreFrame(f *capture.Frame) {
	s.frameMu.Lock()
	s.frame = f
	s.frameMu.Unlock()
}

// LatestFrame returns the most recent frame, or nil before the first
// successful capture.
func (s *RunState) LatestFrame() *capture.Frame {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.frame
}

// Pause suspends ROI evaluation. Capture keeps running so a resume starts
// from a fresh frame.
func (s *RunState) Pause() { s.paused.Store(true) }

// Resume lifts a pause.
func (s *RunState) Resume() { s.paused.Store(false) }

// Paused reports whether evaluation is suspended.
func (s *RunState) Paused() bool { return s.paused.Load() }

// Running reports whether a run is active.
func (s *RunState) Running() bool { return s.running.Load() }
