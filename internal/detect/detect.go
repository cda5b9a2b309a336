package detect

import (
	"context"
	"image"
	"image/color"
	"time"
)

// Kind identifies a detection method. The set is closed: every ROI binds
// exactly one of these and the engine dispatches through the Detector
// interface rather than switching on kind at evaluation time.
type Kind string

const (
	KindTemplate Kind = "template"
	KindOCR      Kind = "ocr"
	KindColor    Kind = "color"
	KindMotion   Kind = "motion"
)

// Known reports whether k names a supported detection method.
func (k Kind) Known() bool {
	switch k {
	case KindTemplate, KindOCR, KindColor, KindMotion:
		return true
	}
	return false
}

// Input carries one ROI crop into an adapter. Prev is the previous crop of
// the same ROI (nil on the first tick after start); only the motion adapter
// consumes it.
type Input struct {
	Crop *image.RGBA
	Prev *image.RGBA
}

// Result is the normalized outcome of one (ROI, frame) evaluation. It is
// transient: the worker consumes it immediately for threshold bookkeeping.
type Result struct {
	Kind       Kind
	Positive   bool
	Confidence float64
	BBox       image.Rectangle // template: match location in crop coordinates
	Text       string          // ocr: recognized text
	Sample     color.RGBA      // color: sampled pixel
	Magnitude  float64         // motion: mean frame delta, percent 0-100
	At         time.Time
}

// Detector normalizes one detection method behind a uniform contract.
// Evaluate must be deterministic for identical input and must not mutate
// shared state; a negative detection is a Result with Positive=false, never
// an error. Errors are reserved for adapter failures (engine misconfigured,
// backend gone) that should skip the tick.
type Detector interface {
	Kind() Kind
	Evaluate(ctx context.Context, in Input) (Result, error)
}
