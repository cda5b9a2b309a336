package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	started := time.Now()
	runID, err := db.StartRun("display:0", 3, started)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if runID == 0 {
		t.Fatal("StartRun returned zero id")
	}

	if err := db.FinishRun(runID, "stopped", started.Add(time.Minute)); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
}

func TestRecordAndQueryDetections(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.StartRun("window:Game", 2, time.Now())
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	base := time.Now()
	for i, roi := range []string{"start-button", "start-button", "ready-banner"} {
		d := Detection{
			EventID:    "ev" + roi,
			ROI:        roi,
			Method:     "template",
			Confidence: 0.9,
			DetectedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.RecordDetection(runID, d); err != nil {
			t.Fatalf("RecordDetection: %v", err)
		}
	}

	recent, err := db.RecentDetections(runID, 2)
	if err != nil {
		t.Fatalf("RecentDetections: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentDetections returned %d rows, want 2", len(recent))
	}
	if recent[0].ROI != "ready-banner" {
		t.Errorf("newest detection = %q, want ready-banner", recent[0].ROI)
	}

	counts, err := db.ROICounts(runID)
	if err != nil {
		t.Fatalf("ROICounts: %v", err)
	}
	if counts["start-button"] != 2 || counts["ready-banner"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRecordOutcome(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.StartRun("camera:0", 1, time.Now())
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	o := ActionOutcome{
		EventID:    "ev1",
		ROI:        "alert",
		Executed:   false,
		Skipped:    false,
		Error:      "input backend unavailable",
		Duration:   42 * time.Millisecond,
		FinishedAt: time.Now(),
	}
	if err := db.RecordOutcome(runID, o); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	runID, err := db.StartRun("display:0", 1, time.Now())
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	db.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer db2.Close()

	if err := db2.RecordDetection(runID, Detection{EventID: "e", ROI: "r", Method: "color", DetectedAt: time.Now()}); err != nil {
		t.Fatalf("RecordDetection after reopen: %v", err)
	}
}
