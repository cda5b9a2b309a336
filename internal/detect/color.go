package detect

import (
	"context"
	"fmt"
	"image/color"
	"time"
)

// ColorDetector samples one pixel of the ROI crop and compares it to a
// target color. The match rule is per-channel absolute distance within
// tolerance on all three channels.
type ColorDetector struct {
	x, y      int // sample point, relative to the crop
	target    color.RGBA
	tolerance uint8
}

// NewColorDetector builds a pixel-color adapter for one ROI. The sample
// point is relative to the ROI bounds.
func NewColorDetector(x, y int, target color.RGBA, tolerance uint8) *ColorDetector {
	return &ColorDetector{x: x, y: y, target: target, tolerance: tolerance}
}

func (d *ColorDetector) Kind() Kind { return KindColor }

func (d *ColorDetector) Evaluate(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	b := in.Crop.Bounds()
	x := b.Min.X + d.x
	y := b.Min.Y + d.y
	if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
		return Result{}, fmt.Errorf("sample point (%d,%d) outside crop %v", d.x, d.y, b)
	}

	sample := in.Crop.RGBAAt(x, y)
	match := channelDelta(sample.R, d.target.R) <= int(d.tolerance) &&
		channelDelta(sample.G, d.target.G) <= int(d.tolerance) &&
		channelDelta(sample.B, d.target.B) <= int(d.tolerance)

	res := Result{
		Kind:     KindColor,
		Positive: match,
		Sample:   sample,
		At:       time.Now(),
	}
	if match {
		res.Confidence = 1.0
	}
	return res, nil
}

func channelDelta(a, b uint8) int {
	return absInt(int(a) - int(b))
}
