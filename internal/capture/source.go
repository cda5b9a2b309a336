package capture

import (
	"context"
	"errors"
	"image"
	"time"
)

// ErrUnavailable reports that the underlying device or window cannot be
// captured right now (window closed, camera disconnected, display locked).
// It is transient: callers are expected to back off and retry rather than
// treat it as fatal.
var ErrUnavailable = errors.New("capture source unavailable")

// Frame is one immutable capture result. It is never mutated after capture;
// the engine hands it to workers by reference for the duration of a cycle.
type Frame struct {
	Img        *image.RGBA
	CapturedAt time.Time
	Source     string
	Origin     image.Point // top-left of the captured area in screen coordinates
	Sequence   uint64
}

// Bounds returns the pixel bounds of the frame image.
func (f *Frame) Bounds() image.Rectangle {
	if f == nil || f.Img == nil {
		return image.Rectangle{}
	}
	return f.Img.Bounds()
}

// Source abstracts a capture backend (window, full screen, camera).
// Capture must be safe to invoke repeatedly on a fixed cadence and must
// return an error wrapping ErrUnavailable when the device or window is
// gone, never a silently stale frame.
type Source interface {
	Capture(ctx context.Context) (*Frame, error)
	Name() string
	Close() error
}

// Crop extracts the sub-image of the frame covered by r. The returned image
// shares no pixel data with the frame, so detector evaluation never touches
// the published frame buffer.
func Crop(f *Frame, r image.Rectangle) (*image.RGBA, error) {
	if f == nil || f.Img == nil {
		return nil, errors.New("crop: nil frame")
	}
	if !r.In(f.Img.Bounds()) {
		return nil, &OutOfBoundsError{Requested: r, Frame: f.Img.Bounds()}
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		srcOff := (r.Min.Y+y-f.Img.Rect.Min.Y)*f.Img.Stride + (r.Min.X-f.Img.Rect.Min.X)*4
		dstOff := y * out.Stride
		copy(out.Pix[dstOff:dstOff+r.Dx()*4], f.Img.Pix[srcOff:srcOff+r.Dx()*4])
	}
	return out, nil
}

// OutOfBoundsError reports a crop rectangle that does not fit inside the
// frame, typically after the captured window was resized.
type OutOfBoundsError struct {
	Requested image.Rectangle
	Frame     image.Rectangle
}

func (e *OutOfBoundsError) Error() string {
	return "crop out of bounds: requested " + e.Requested.String() + " within frame " + e.Frame.String()
}
