package detect

import (
	"context"
	"image"
	"image/color"
	"testing"
)

// solidRGBA fills an image with one color.
func solidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// stamp copies src into dst at the given offset.
func stamp(dst, src *image.RGBA, ox, oy int) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetRGBA(ox+x, oy+y, src.RGBAAt(x, y))
		}
	}
}

func checkerboard(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	return img
}

func TestTemplateDetectorFindsEmbeddedTemplate(t *testing.T) {
	needle := checkerboard(8, 8)
	haystack := solidRGBA(64, 48, color.RGBA{R: 40, G: 90, B: 120, A: 255})
	stamp(haystack, needle, 20, 10)

	for _, method := range []MatchMethod{MatchSAD, MatchSSD, MatchNCC} {
		tmpl := &Template{Name: "probe.png", Image: needle}
		d := NewTemplateDetector(tmpl, method, 0.95)

		res, err := d.Evaluate(context.Background(), Input{Crop: haystack})
		if err != nil {
			t.Fatalf("method %v: %v", method, err)
		}
		if !res.Positive {
			t.Fatalf("method %v: expected positive, confidence=%f", method, res.Confidence)
		}
		if res.BBox.Min != (image.Point{X: 20, Y: 10}) {
			t.Errorf("method %v: match at %v, want (20,10)", method, res.BBox.Min)
		}
	}
}

func TestTemplateDetectorBelowThresholdIsNegativeNotError(t *testing.T) {
	needle := checkerboard(8, 8)
	haystack := solidRGBA(64, 48, color.RGBA{R: 40, G: 90, B: 120, A: 255})

	tmpl := &Template{Name: "probe.png", Image: needle}
	d := NewTemplateDetector(tmpl, MatchSSD, 0.99)

	res, err := d.Evaluate(context.Background(), Input{Crop: haystack})
	if err != nil {
		t.Fatalf("low confidence must not be an error: %v", err)
	}
	if res.Positive {
		t.Fatalf("expected negative result, confidence=%f", res.Confidence)
	}
}

func TestTemplateDetectorNeedleLargerThanCrop(t *testing.T) {
	needle := checkerboard(32, 32)
	haystack := solidRGBA(16, 16, color.RGBA{A: 255})

	d := NewTemplateDetector(&Template{Name: "big.png", Image: needle}, MatchSSD, 0.8)
	res, err := d.Evaluate(context.Background(), Input{Crop: haystack})
	if err != nil {
		t.Fatalf("oversized template must degrade to negative: %v", err)
	}
	if res.Positive || res.Confidence != 0 {
		t.Fatalf("expected zero-confidence negative, got %+v", res)
	}
}
