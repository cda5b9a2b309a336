// Package config loads runtime settings from an INI file. Everything that
// can be validated up front is validated here; a Settings value that loaded
// successfully will not fail later for configuration reasons.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Capture modes.
const (
	ModeDisplay = "display"
	ModeWindow  = "window"
	ModeCamera  = "camera"
)

// Settings is the full runtime configuration.
type Settings struct {
	// Capture
	CaptureMode     string
	WindowTitle     string
	DisplayIndex    int
	CameraIndex     int
	CameraWidth     int
	CameraHeight    int
	CaptureInterval time.Duration

	// Engine
	PoolSize         int
	StartupDelay     time.Duration
	FailureCeiling   int
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	ShutdownGrace    time.Duration
	DefaultTimeout   time.Duration
	HighConfidence   float64
	MediumConfidence float64

	// Paths
	RegionsPath      string
	TemplatesDir     string
	TemplateMetadata string
	HistoryPath      string

	// Debug images
	DebugEnabled   bool
	DebugDir       string
	DebugQueueSize int
	DebugMaxFiles  int

	// Actions
	WebhookURL string

	// OCR
	OCRLanguage string

	// Logging
	LogLevel string
}

// LoadFromINI loads settings from a Settings.ini file
func LoadFromINI(path string) (*Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	s := &Settings{}

	capture := cfg.Section("Capture")
	s.CaptureMode = capture.Key("mode").MustString(ModeDisplay)
	s.WindowTitle = capture.Key("windowTitle").MustString("")
	s.DisplayIndex = capture.Key("displayIndex").MustInt(0)
	s.CameraIndex = capture.Key("cameraIndex").MustInt(0)
	s.CameraWidth = capture.Key("cameraWidth").MustInt(0)
	s.CameraHeight = capture.Key("cameraHeight").MustInt(0)
	s.CaptureInterval = time.Duration(capture.Key("intervalMs").MustInt(200)) * time.Millisecond

	engine := cfg.Section("Engine")
	s.PoolSize = engine.Key("poolSize").MustInt(4)
	s.StartupDelay = time.Duration(engine.Key("startupDelayMs").MustInt(0)) * time.Millisecond
	s.FailureCeiling = engine.Key("captureFailureCeiling").MustInt(5)
	s.BackoffBase = time.Duration(engine.Key("backoffBaseMs").MustInt(500)) * time.Millisecond
	s.BackoffMax = time.Duration(engine.Key("backoffMaxMs").MustInt(10000)) * time.Millisecond
	s.ShutdownGrace = time.Duration(engine.Key("shutdownGraceMs").MustInt(5000)) * time.Millisecond
	s.DefaultTimeout = time.Duration(engine.Key("evaluationTimeoutMs").MustInt(2000)) * time.Millisecond
	s.HighConfidence = engine.Key("highConfidence").MustFloat64(0.9)
	s.MediumConfidence = engine.Key("mediumConfidence").MustFloat64(0.75)

	paths := cfg.Section("Paths")
	s.RegionsPath = paths.Key("regions").MustString("regions.yaml")
	s.TemplatesDir = paths.Key("templatesDir").MustString("templates")
	s.TemplateMetadata = paths.Key("templateMetadata").MustString("")
	s.HistoryPath = paths.Key("historyDb").MustString("data/history.db")

	debug := cfg.Section("Debug")
	s.DebugEnabled = debug.Key("saveImages").MustBool(false)
	s.DebugDir = debug.Key("dir").MustString("debug_images")
	s.DebugQueueSize = debug.Key("queueSize").MustInt(32)
	s.DebugMaxFiles = debug.Key("maxFiles").MustInt(200)

	actions := cfg.Section("Actions")
	s.WebhookURL = actions.Key("webhookUrl").MustString("")

	ocrSection := cfg.Section("OCR")
	s.OCRLanguage = ocrSection.Key("language").MustString("eng")

	logSection := cfg.Section("Logging")
	s.LogLevel = logSection.Key("level").MustString("info")

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	switch s.CaptureMode {
	case ModeDisplay, ModeCamera:
	case ModeWindow:
		if s.WindowTitle == "" {
			return fmt.Errorf("capture mode %q requires windowTitle", ModeWindow)
		}
	default:
		return fmt.Errorf("unknown capture mode %q", s.CaptureMode)
	}

	if s.CaptureInterval <= 0 {
		return fmt.Errorf("capture intervalMs must be positive")
	}
	if s.PoolSize <= 0 {
		return fmt.Errorf("poolSize must be positive")
	}
	if s.FailureCeiling <= 0 {
		return fmt.Errorf("captureFailureCeiling must be positive")
	}
	if s.HighConfidence <= 0 || s.HighConfidence > 1 {
		return fmt.Errorf("highConfidence must be in (0,1]")
	}
	if s.MediumConfidence <= 0 || s.MediumConfidence > s.HighConfidence {
		return fmt.Errorf("mediumConfidence must be in (0, highConfidence]")
	}
	if s.RegionsPath == "" {
		return fmt.Errorf("regions path is required")
	}
	return nil
}
