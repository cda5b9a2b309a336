package detect

import (
	"context"
	"time"
)

// MotionDetector compares the current ROI crop to the previous one and
// reports the mean absolute gray delta as a percentage (0-100). It is
// stateless: the worker owns the per-ROI frame history and supplies the
// previous crop via Input.Prev. The first evaluation after (re)start has no
// history and always yields a negative result, never an error.
type MotionDetector struct {
	sensitivity float64 // percent change at which motion counts as detected
}

// NewMotionDetector builds a motion adapter for one ROI.
func NewMotionDetector(sensitivity float64) *MotionDetector {
	return &MotionDetector{sensitivity: sensitivity}
}

func (d *MotionDetector) Kind() Kind { return KindMotion }

func (d *MotionDetector) Evaluate(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{Kind: KindMotion, At: time.Now()}
	if in.Prev == nil {
		// Insufficient history.
		return res, nil
	}

	curr := grayscale(in.Crop)
	prev := grayscale(in.Prev)
	n := len(curr)
	if len(prev) != n || n == 0 {
		// Crop size changed between ticks (resized source); treat as a
		// fresh start rather than comparing mismatched buffers.
		return res, nil
	}

	var sum uint64
	for i := 0; i < n; i++ {
		sum += uint64(absInt(int(curr[i]) - int(prev[i])))
	}
	res.Magnitude = float64(sum) / float64(n) / 255.0 * 100.0
	res.Positive = res.Magnitude >= d.sensitivity
	if res.Positive {
		res.Confidence = res.Magnitude / 100.0
	}
	return res, nil
}
