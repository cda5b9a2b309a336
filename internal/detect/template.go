package detect

import (
	"context"
	"image"
	"time"
)

// TemplateDetector matches one reference template inside an ROI crop.
// Confidence below the threshold is a negative result, not an error.
type TemplateDetector struct {
	template  *Template
	method    MatchMethod
	threshold float64
}

// NewTemplateDetector builds a template adapter for one ROI.
func NewTemplateDetector(template *Template, method MatchMethod, threshold float64) *TemplateDetector {
	return &TemplateDetector{template: template, method: method, threshold: threshold}
}

func (d *TemplateDetector) Kind() Kind { return KindTemplate }

func (d *TemplateDetector) Evaluate(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	m := findTemplate(in.Crop, d.template.Image, d.method, d.threshold)
	nb := d.template.Image.Bounds()

	res := Result{
		Kind:       KindTemplate,
		Positive:   m.found,
		Confidence: m.confidence,
		At:         time.Now(),
	}
	if m.confidence > 0 {
		res.BBox = image.Rect(m.location.X, m.location.Y, m.location.X+nb.Dx(), m.location.Y+nb.Dy())
	}
	return res, nil
}
