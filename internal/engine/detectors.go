package engine

import (
	"fmt"
	"image/color"

	"zauron.io/zauron/internal/detect"
	"zauron.io/zauron/internal/roi"
)

// buildDetector constructs the detection adapter for one ROI. The registry
// has already validated the parameters; failures here mean a wiring problem
// (missing template library or OCR backend) and abort engine construction.
func buildDetector(r *roi.ROI, library *detect.Library, recognizer detect.Recognizer) (detect.Detector, error) {
	switch r.Method {
	case detect.KindTemplate:
		tpl, ok := library.Get(r.Template.Name)
		if !ok {
			return nil, fmt.Errorf("region %s: template %q not in library", r.ID, r.Template.Name)
		}
		return detect.NewTemplateDetector(tpl, detect.ParseMatchMethod(r.Template.Match), r.Template.Threshold), nil

	case detect.KindOCR:
		if recognizer == nil {
			return nil, fmt.Errorf("region %s: ocr method requires a text recognizer", r.ID)
		}
		return detect.NewOCRDetector(recognizer, r.OCR.Pattern, r.OCR.Language), nil

	case detect.KindColor:
		target := color.RGBA{R: r.Color.RGB[0], G: r.Color.RGB[1], B: r.Color.RGB[2], A: 255}
		return detect.NewColorDetector(r.Color.X, r.Color.Y, target, r.Color.Tolerance), nil

	case detect.KindMotion:
		return detect.NewMotionDetector(r.Motion.Sensitivity), nil
	}
	return nil, fmt.Errorf("region %s: unknown method %q", r.ID, r.Method)
}
