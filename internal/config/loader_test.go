package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeINI(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Settings.ini")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, err := LoadFromINI(writeINI(t, ""))
	if err != nil {
		t.Fatalf("LoadFromINI: %v", err)
	}

	if s.CaptureMode != ModeDisplay {
		t.Errorf("CaptureMode = %q, want display", s.CaptureMode)
	}
	if s.CaptureInterval != 200*time.Millisecond {
		t.Errorf("CaptureInterval = %v", s.CaptureInterval)
	}
	if s.PoolSize != 4 || s.FailureCeiling != 5 {
		t.Errorf("PoolSize=%d FailureCeiling=%d", s.PoolSize, s.FailureCeiling)
	}
	if s.HighConfidence != 0.9 || s.MediumConfidence != 0.75 {
		t.Errorf("tiers = %v / %v", s.HighConfidence, s.MediumConfidence)
	}
	if s.LogLevel != "info" || s.OCRLanguage != "eng" {
		t.Errorf("LogLevel=%q OCRLanguage=%q", s.LogLevel, s.OCRLanguage)
	}
}

func TestLoadOverrides(t *testing.T) {
	s, err := LoadFromINI(writeINI(t, `
[Capture]
mode = window
windowTitle = Notepad
intervalMs = 50

[Engine]
poolSize = 2
startupDelayMs = 1500
captureFailureCeiling = 10

[Debug]
saveImages = true
maxFiles = 50

[Actions]
webhookUrl = http://localhost:9000/hook
`))
	if err != nil {
		t.Fatalf("LoadFromINI: %v", err)
	}

	if s.CaptureMode != ModeWindow || s.WindowTitle != "Notepad" {
		t.Errorf("capture = %q/%q", s.CaptureMode, s.WindowTitle)
	}
	if s.CaptureInterval != 50*time.Millisecond {
		t.Errorf("CaptureInterval = %v", s.CaptureInterval)
	}
	if s.StartupDelay != 1500*time.Millisecond {
		t.Errorf("StartupDelay = %v", s.StartupDelay)
	}
	if !s.DebugEnabled || s.DebugMaxFiles != 50 {
		t.Errorf("debug = %v/%d", s.DebugEnabled, s.DebugMaxFiles)
	}
	if s.WebhookURL != "http://localhost:9000/hook" {
		t.Errorf("WebhookURL = %q", s.WebhookURL)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		ini  string
	}{
		{"unknown mode", "[Capture]\nmode = telescope\n"},
		{"window without title", "[Capture]\nmode = window\n"},
		{"zero interval", "[Capture]\nintervalMs = 0\n"},
		{"zero pool", "[Engine]\npoolSize = 0\n"},
		{"bad tier order", "[Engine]\nhighConfidence = 0.5\nmediumConfidence = 0.8\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFromINI(writeINI(t, tt.ini)); err == nil {
				t.Error("expected a load error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFromINI(filepath.Join(t.TempDir(), "absent.ini")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
