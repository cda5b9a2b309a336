package detect

import (
	"context"
	"image/color"
	"testing"
)

func TestMotionDetectorFirstEvaluationIsNegative(t *testing.T) {
	d := NewMotionDetector(0) // detects any change at all
	crop := solidRGBA(16, 16, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	res, err := d.Evaluate(context.Background(), Input{Crop: crop, Prev: nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Positive {
		t.Fatal("first evaluation must be negative regardless of input")
	}
	if res.Magnitude != 0 {
		t.Errorf("magnitude = %f, want 0 without history", res.Magnitude)
	}
}

func TestMotionDetectorDelta(t *testing.T) {
	tests := []struct {
		name        string
		prev, curr  color.RGBA
		sensitivity float64
		positive    bool
	}{
		{"identical frames", color.RGBA{R: 128, G: 128, B: 128, A: 255}, color.RGBA{R: 128, G: 128, B: 128, A: 255}, 1.0, false},
		{"black to white", color.RGBA{A: 255}, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 50.0, true},
		{"small change below sensitivity", color.RGBA{R: 128, G: 128, B: 128, A: 255}, color.RGBA{R: 130, G: 130, B: 130, A: 255}, 5.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewMotionDetector(tt.sensitivity)
			res, err := d.Evaluate(context.Background(), Input{
				Crop: solidRGBA(16, 16, tt.curr),
				Prev: solidRGBA(16, 16, tt.prev),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Positive != tt.positive {
				t.Errorf("positive = %v, want %v (magnitude %f)", res.Positive, tt.positive, res.Magnitude)
			}
		})
	}
}

func TestMotionDetectorResizedCropResetsHistory(t *testing.T) {
	d := NewMotionDetector(0.1)
	res, err := d.Evaluate(context.Background(), Input{
		Crop: solidRGBA(16, 16, color.RGBA{R: 255, A: 255}),
		Prev: solidRGBA(8, 8, color.RGBA{A: 255}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Positive {
		t.Fatal("mismatched crop sizes must not produce a positive")
	}
}
