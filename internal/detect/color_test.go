package detect

import (
	"context"
	"image/color"
	"testing"
)

func TestColorDetectorTolerance(t *testing.T) {
	target := color.RGBA{R: 255, G: 0, B: 0, A: 255}

	tests := []struct {
		name     string
		sampled  color.RGBA
		positive bool
	}{
		{"within tolerance", color.RGBA{R: 250, G: 5, B: 3, A: 255}, true},
		{"exact match", color.RGBA{R: 255, G: 0, B: 0, A: 255}, true},
		{"red channel too far", color.RGBA{R: 200, G: 0, B: 0, A: 255}, false},
		{"single channel out", color.RGBA{R: 255, G: 11, B: 0, A: 255}, false},
		{"boundary distance", color.RGBA{R: 245, G: 10, B: 10, A: 255}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crop := solidRGBA(10, 10, tt.sampled)
			d := NewColorDetector(4, 4, target, 10)

			res, err := d.Evaluate(context.Background(), Input{Crop: crop})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Positive != tt.positive {
				t.Errorf("positive = %v, want %v (sampled %v)", res.Positive, tt.positive, res.Sample)
			}
			if res.Sample != tt.sampled {
				t.Errorf("sample payload = %v, want %v", res.Sample, tt.sampled)
			}
		})
	}
}

func TestColorDetectorSamplePointOutsideCrop(t *testing.T) {
	crop := solidRGBA(5, 5, color.RGBA{A: 255})
	d := NewColorDetector(10, 10, color.RGBA{A: 255}, 0)

	if _, err := d.Evaluate(context.Background(), Input{Crop: crop}); err == nil {
		t.Fatal("expected error for out-of-crop sample point")
	}
}
