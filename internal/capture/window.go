package capture

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/kbinani/screenshot"
)

// WindowLocator resolves the current on-screen rectangle of a target window.
// Implementations are platform glue (win32 enumeration, wmctrl, Quartz); they
// must return an error wrapping ErrUnavailable when the window no longer
// exists so the scheduler can distinguish "gone" from "failed".
type WindowLocator interface {
	Locate(title string) (image.Rectangle, error)
}

// WindowSource captures the screen area currently occupied by a window. The
// window rectangle is re-resolved on every capture, so a moved or resized
// window is tracked tick to tick.
type WindowSource struct {
	title    string
	locator  WindowLocator
	sequence atomic.Uint64
}

// NewWindowSource creates a window-tracking source. The title is matched by
// the locator, typically as a case-insensitive substring.
func NewWindowSource(title string, locator WindowLocator) (*WindowSource, error) {
	if title == "" {
		return nil, fmt.Errorf("window source requires a target title")
	}
	if locator == nil {
		return nil, fmt.Errorf("window source requires a locator")
	}
	return &WindowSource{title: title, locator: locator}, nil
}

func (s *WindowSource) Name() string {
	return "window:" + s.title
}

func (s *WindowSource) Capture(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rect, err := s.locator.Locate(s.title)
	if err != nil {
		return nil, fmt.Errorf("locate %q: %w", s.title, err)
	}
	if rect.Empty() {
		return nil, fmt.Errorf("window %q has empty bounds: %w", s.title, ErrUnavailable)
	}
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("window %q grab failed: %w", s.title, ErrUnavailable)
	}
	return &Frame{
		Img:        img,
		CapturedAt: time.Now(),
		Source:     s.Name(),
		Origin:     rect.Min,
		Sequence:   s.sequence.Add(1),
	}, nil
}

func (s *WindowSource) Close() error { return nil }
