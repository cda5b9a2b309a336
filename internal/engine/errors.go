package engine

import "errors"

// ErrPersistentCaptureFailure reports that the capture source failed the
// configured number of consecutive times and the run cannot continue.
var ErrPersistentCaptureFailure = errors.New("persistent capture failure")

// ErrAlreadyRunning reports a second Run call on an engine that is active.
var ErrAlreadyRunning = errors.New("engine already running")
