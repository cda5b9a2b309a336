package detect

import (
	"bytes"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer wraps a gosseract client. One client is shared and
// serialized with a mutex; Tesseract handles are not safe for concurrent
// SetImage/Text calls.
type TesseractRecognizer struct {
	mu       sync.Mutex
	client   *gosseract.Client
	language string
}

// NewTesseractRecognizer creates a recognizer backed by the system
// Tesseract installation.
func NewTesseractRecognizer() *TesseractRecognizer {
	return &TesseractRecognizer{client: gosseract.NewClient()}
}

func (r *TesseractRecognizer) Recognize(img *image.RGBA, language string) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if language != r.language {
		if err := r.client.SetLanguage(language); err != nil {
			return "", err
		}
		r.language = language
	}
	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", err
	}
	return r.client.Text()
}

func (r *TesseractRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}
