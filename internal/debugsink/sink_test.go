package debugsink

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func tinyImage() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func TestOfferWritesNamedPNG(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if !s.Offer("start-button", tinyImage(), at) {
		t.Fatal("Offer rejected with an empty queue")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	names, _ := filepath.Glob(filepath.Join(dir, "*.png"))
	if len(names) != 1 {
		t.Fatalf("files = %v, want one", names)
	}
	base := filepath.Base(names[0])
	if !strings.HasPrefix(base, "start-button_20260314T092653") {
		t.Errorf("file name = %q", base)
	}
}

func TestOfferDropsOldestUnderPressure(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{Dir: dir, QueueSize: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Block the writer so the queue actually fills.
	var release sync.WaitGroup
	release.Add(1)
	written := make(chan string, 16)
	s.write = func(path string, img *image.RGBA) error {
		release.Wait()
		written <- filepath.Base(path)
		return nil
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Offer("a", tinyImage(), base)
	// Let the writer goroutine pull "a" and park in write.
	time.Sleep(10 * time.Millisecond)

	s.Offer("b", tinyImage(), base.Add(time.Second))
	s.Offer("c", tinyImage(), base.Add(2*time.Second))
	if s.Offer("d", tinyImage(), base.Add(3*time.Second)) {
		t.Error("Offer reported success while displacing the oldest entry")
	}
	if s.Dropped() == 0 {
		t.Error("Dropped() = 0 after displacement")
	}

	release.Done()
	s.Close()
	close(written)

	var got []string
	for name := range written {
		got = append(got, name)
	}
	// "b" was displaced by "d" while the writer was parked on "a".
	for _, name := range got {
		if strings.HasPrefix(name, "b_") {
			t.Errorf("displaced entry was written: %v", got)
		}
	}
	if len(got) != 3 {
		t.Errorf("written = %v, want a, c, d", got)
	}
}

func TestRetentionCapDeletesOldest(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{Dir: dir, MaxFiles: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Pre-seed old files with staggered mod times.
	for i, name := range []string{"old1.png", "old2.png"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		mod := time.Now().Add(-time.Duration(10-i) * time.Minute)
		os.Chtimes(path, mod, mod)
	}

	at := time.Now()
	s.Offer("r1", tinyImage(), at)
	s.Offer("r2", tinyImage(), at.Add(time.Second))
	s.Close()

	names, _ := filepath.Glob(filepath.Join(dir, "*.png"))
	if len(names) != 3 {
		t.Fatalf("retained %d files, want 3: %v", len(names), names)
	}
	for _, name := range names {
		if filepath.Base(name) == "old1.png" {
			t.Error("oldest file survived retention")
		}
	}
}

func TestOfferAfterCloseIsRejected(t *testing.T) {
	s, err := New(Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Close()
	if s.Offer("r", tinyImage(), time.Now()) {
		t.Error("Offer accepted after Close")
	}
}
