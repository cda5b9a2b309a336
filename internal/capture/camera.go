package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// CameraSource captures frames from a video capture device.
type CameraSource struct {
	index    int
	width    int
	height   int
	mu       sync.Mutex
	dev      *gocv.VideoCapture
	mat      gocv.Mat
	sequence atomic.Uint64
}

// NewCameraSource opens the camera device at the given index. Width and
// height are requested from the driver; zero values keep the device default.
func NewCameraSource(index, width, height int) (*CameraSource, error) {
	dev, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, ErrUnavailable)
	}
	if width > 0 {
		dev.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		dev.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &CameraSource{
		index:  index,
		width:  width,
		height: height,
		dev:    dev,
		mat:    gocv.NewMat(),
	}, nil
}

func (s *CameraSource) Name() string {
	return fmt.Sprintf("camera:%d", s.index)
}

func (s *CameraSource) Capture(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil || !s.dev.IsOpened() {
		return nil, fmt.Errorf("camera %d not open: %w", s.index, ErrUnavailable)
	}
	if ok := s.dev.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, fmt.Errorf("camera %d read failed: %w", s.index, ErrUnavailable)
	}

	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("camera %d frame decode: %v", s.index, err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = toRGBA(img)
	}

	return &Frame{
		Img:        rgba,
		CapturedAt: time.Now(),
		Source:     s.Name(),
		Origin:     image.Point{},
		Sequence:   s.sequence.Add(1),
	}, nil
}

func (s *CameraSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	s.mat.Close()
	err := s.dev.Close()
	s.dev = nil
	return err
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return out
}
