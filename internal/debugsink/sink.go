// Package debugsink persists crops of positive detections for offline
// inspection. It is strictly lossy: offering a crop never blocks the
// evaluation path, and when the queue is full the oldest pending crop is
// dropped in favor of the new one.
package debugsink

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"zauron.io/zauron/internal/logging"
)

// entry is one queued crop.
type entry struct {
	roi string
	img *image.RGBA
	at  time.Time
}

// writeFunc persists one image. Swappable for tests.
type writeFunc func(path string, img *image.RGBA) error

// Sink writes queued crops to a directory from a single background
// goroutine. Retention keeps at most MaxFiles images, deleting the oldest.
type Sink struct {
	dir      string
	maxFiles int
	write    writeFunc
	log      *logging.Logger

	mu     sync.Mutex
	queue  []entry
	filled chan struct{}
	quit   chan struct{}
	done   chan struct{}

	capacity int
	dropped  uint64
}

// Options configures a sink.
type Options struct {
	Dir       string
	QueueSize int // pending crops before drop-oldest kicks in, default 32
	MaxFiles  int // retention cap, 0 means unlimited
	Log       *logging.Logger
}

// New creates the sink directory and starts the writer goroutine.
func New(opts Options) (*Sink, error) {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.Log == nil {
		opts.Log = logging.NewLogger("debugsink")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("debug dir %s: %w", opts.Dir, err)
	}

	s := &Sink{
		dir:      opts.Dir,
		maxFiles: opts.MaxFiles,
		write:    writePNG,
		log:      opts.Log,
		filled:   make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		capacity: opts.QueueSize,
	}
	go s.run()
	return s, nil
}

// Offer queues a crop for saving. It never blocks; when the queue is full
// the oldest pending crop is discarded. Returns false if the new crop
// displaced another or the sink is closed.
func (s *Sink) Offer(roi string, img *image.RGBA, at time.Time) bool {
	select {
	case <-s.quit:
		return false
	default:
	}

	s.mu.Lock()
	displaced := false
	if len(s.queue) >= s.capacity {
		s.queue = s.queue[1:]
		s.dropped++
		displaced = true
	}
	s.queue = append(s.queue, entry{roi: roi, img: img, at: at})
	s.mu.Unlock()

	select {
	case s.filled <- struct{}{}:
	default:
	}
	return !displaced
}

// Dropped returns how many crops were discarded under pressure.
func (s *Sink) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops the writer after flushing the pending queue.
func (s *Sink) Close() error {
	close(s.quit)
	<-s.done
	return nil
}

func (s *Sink) run() {
	defer close(s.done)
	for {
		select {
		case <-s.filled:
			s.flush()
		case <-s.quit:
			s.flush()
			return
		}
	}
}

func (s *Sink) flush() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.png", e.roi, e.at.Format("20060102T150405.000")))
		if err := s.write(path, e.img); err != nil {
			s.log.ErrorWithContext("debug image write failed", err, map[string]interface{}{
				"path": path,
			})
			continue
		}
		if s.maxFiles > 0 {
			s.enforceRetention()
		}
	}
}

// enforceRetention deletes the oldest debug images beyond the cap.
func (s *Sink) enforceRetention() {
	names, err := filepath.Glob(filepath.Join(s.dir, "*.png"))
	if err != nil || len(names) <= s.maxFiles {
		return
	}

	type aged struct {
		name string
		mod  time.Time
	}
	files := make([]aged, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(name)
		if err != nil {
			continue
		}
		files = append(files, aged{name: name, mod: info.ModTime()})
	}
	if len(files) <= s.maxFiles {
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })
	for _, f := range files[:len(files)-s.maxFiles] {
		if err := os.Remove(f.name); err != nil {
			s.log.ErrorWithContext("debug image cleanup failed", err, map[string]interface{}{
				"path": f.name,
			})
		}
	}
}

func writePNG(path string, img *image.RGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
