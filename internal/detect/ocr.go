package detect

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"
)

// Recognizer abstracts the OCR engine. Implementations must return a
// distinct error for engine failures (e.g. missing language data); an image
// that simply contains no text yields an empty string and a nil error.
type Recognizer interface {
	Recognize(img *image.RGBA, language string) (string, error)
	Close() error
}

// EngineError marks an OCR backend failure so callers can tell it apart
// from a clean negative result.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string { return fmt.Sprintf("ocr engine: %v", e.Err) }
func (e *EngineError) Unwrap() error { return e.Err }

// OCRDetector recognizes text in an ROI crop and checks it against an
// expected pattern (substring match). Empty recognized text is a negative
// result with an empty payload.
type OCRDetector struct {
	recognizer Recognizer
	pattern    string
	language   string
}

// NewOCRDetector builds an OCR adapter for one ROI. An empty language
// defaults to English.
func NewOCRDetector(recognizer Recognizer, pattern, language string) *OCRDetector {
	if language == "" {
		language = "eng"
	}
	return &OCRDetector{recognizer: recognizer, pattern: pattern, language: language}
}

func (d *OCRDetector) Kind() Kind { return KindOCR }

func (d *OCRDetector) Evaluate(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	text, err := d.recognizer.Recognize(in.Crop, d.language)
	if err != nil {
		return Result{}, &EngineError{Err: err}
	}

	text = strings.TrimSpace(text)
	res := Result{Kind: KindOCR, Text: text, At: time.Now()}
	if text == "" {
		return res, nil
	}

	res.Positive = strings.Contains(text, d.pattern)
	if res.Positive {
		res.Confidence = 1.0
	}
	return res, nil
}
