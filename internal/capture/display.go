package capture

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kbinani/screenshot"
)

// DisplaySource captures a whole display identified by its index.
type DisplaySource struct {
	display  int
	sequence atomic.Uint64
}

// NewDisplaySource creates a full-screen source for the given display index.
func NewDisplaySource(display int) (*DisplaySource, error) {
	if display < 0 || display >= screenshot.NumActiveDisplays() {
		return nil, fmt.Errorf("display %d: %w", display, ErrUnavailable)
	}
	return &DisplaySource{display: display}, nil
}

func (s *DisplaySource) Name() string {
	return fmt.Sprintf("display:%d", s.display)
}

func (s *DisplaySource) Capture(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.display >= screenshot.NumActiveDisplays() {
		return nil, fmt.Errorf("display %d detached: %w", s.display, ErrUnavailable)
	}
	bounds := screenshot.GetDisplayBounds(s.display)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("display %d grab failed: %w", s.display, ErrUnavailable)
	}
	return &Frame{
		Img:        img,
		CapturedAt: time.Now(),
		Source:     s.Name(),
		Origin:     bounds.Min,
		Sequence:   s.sequence.Add(1),
	}, nil
}

func (s *DisplaySource) Close() error { return nil }
