package history

import (
	"database/sql"
	"fmt"
	"time"
)

// Detection is one persisted positive detection.
type Detection struct {
	ID         int64
	RunID      int64
	EventID    string
	ROI        string
	Method     string
	Confidence float64
	Text       string
	DetectedAt time.Time
}

// ActionOutcome is the persisted result of dispatching one detection.
type ActionOutcome struct {
	ID         int64
	RunID      int64
	EventID    string
	ROI        string
	Executed   bool
	Skipped    bool
	Error      string
	Duration   time.Duration
	FinishedAt time.Time
}

// StartRun records a new run and returns its ID.
func (db *DB) StartRun(captureSource string, regions int, startedAt time.Time) (int64, error) {
	var runID int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO runs (capture_source, regions, started_at)
			VALUES (?, ?, ?)
		`, captureSource, regions, startedAt)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		runID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return runID, nil
}

// FinishRun marks a run as stopped with the given reason.
func (db *DB) FinishRun(runID int64, reason string, stoppedAt time.Time) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			UPDATE runs SET stopped_at = ?, stop_reason = ? WHERE id = ?
		`, stoppedAt, reason, runID)
		return err
	})
}

// RecordDetection appends one positive detection.
func (db *DB) RecordDetection(runID int64, d Detection) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO detections (run_id, event_id, roi, method, confidence, text, detected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, d.EventID, d.ROI, d.Method, d.Confidence, d.Text, d.DetectedAt)
		if err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
		return nil
	})
}

// RecordOutcome appends one action outcome.
func (db *DB) RecordOutcome(runID int64, o ActionOutcome) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO action_outcomes (run_id, event_id, roi, executed, skipped, error, duration_ms, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, o.EventID, o.ROI, o.Executed, o.Skipped, o.Error, o.Duration.Milliseconds(), o.FinishedAt)
		if err != nil {
			return fmt.Errorf("failed to insert action outcome: %w", err)
		}
		return nil
	})
}

// RecentDetections returns the newest detections for a run, most recent
// first.
func (db *DB) RecentDetections(runID int64, limit int) ([]Detection, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, event_id, roi, method, confidence, COALESCE(text, ''), detected_at
		FROM detections
		WHERE run_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var d Detection
		if err := rows.Scan(&d.ID, &d.RunID, &d.EventID, &d.ROI, &d.Method, &d.Confidence, &d.Text, &d.DetectedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ROICounts maps ROI id to the number of detections recorded for it.
func (db *DB) ROICounts(runID int64) (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT roi, COUNT(*) FROM detections WHERE run_id = ? GROUP BY roi
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var roi string
		var n int
		if err := rows.Scan(&roi, &n); err != nil {
			return nil, err
		}
		counts[roi] = n
	}
	return counts, rows.Err()
}
