package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"zauron.io/zauron/internal/action"
	"zauron.io/zauron/internal/capture"
	"zauron.io/zauron/internal/config"
	"zauron.io/zauron/internal/debugsink"
	"zauron.io/zauron/internal/detect"
	"zauron.io/zauron/internal/engine"
	"zauron.io/zauron/internal/events"
	"zauron.io/zauron/internal/history"
	"zauron.io/zauron/internal/logging"
	"zauron.io/zauron/internal/roi"
)

// Exit codes.
const (
	exitOK             = 0
	exitConfigError    = 1
	exitCaptureFailure = 2
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "zauron",
	Short: "Screen watcher that turns pixels into actions",
	Long: `zauron captures a display, window or camera on a fixed cadence,
evaluates configured regions of interest with template, OCR, color and
motion detectors, and dispatches the bound action when a region matches.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the capture and detection pipeline",
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(run())
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and region bindings, then exit",
	Run: func(cmd *cobra.Command, args []string) {
		log := logging.NewLogger("zauron")
		if _, _, _, err := loadAll(log); err != nil {
			log.Error("configuration invalid", err)
			os.Exit(exitConfigError)
		}
		log.Info("configuration ok")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "Settings.ini", "Path to Settings.ini")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitConfigError)
	}
}

// loadAll loads settings, the template library and the region registry.
// Any failure here is a configuration error.
func loadAll(log *logging.Logger) (*config.Settings, *detect.Library, *roi.Registry, error) {
	settings, err := config.LoadFromINI(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log.SetMinLevel(logging.ParseLevel(settings.LogLevel))

	var library *detect.Library
	if _, statErr := os.Stat(settings.TemplatesDir); statErr == nil {
		library, err = detect.LoadLibrary(settings.TemplatesDir, settings.TemplateMetadata)
		if err != nil {
			return nil, nil, nil, err
		}
		log.InfoWithContext("template library loaded", map[string]interface{}{
			"dir": settings.TemplatesDir, "templates": len(library.Names()),
		})
	}

	registry, err := roi.Load(settings.RegionsPath, library)
	if err != nil {
		return nil, nil, nil, err
	}

	// Regions without an explicit OCR language inherit the configured one.
	for _, r := range registry.List() {
		if r.Method == detect.KindOCR && r.OCR.Language == "" {
			r.OCR.Language = settings.OCRLanguage
		}
	}
	return settings, library, registry, nil
}

func run() int {
	log := logging.NewLogger("zauron")

	settings, library, registry, err := loadAll(log)
	if err != nil {
		log.Error("configuration invalid", err)
		return exitConfigError
	}

	source, err := openSource(settings)
	if err != nil {
		log.Error("failed to open capture source", err)
		return exitConfigError
	}
	defer source.Close()

	var recognizer detect.Recognizer
	for _, r := range registry.List() {
		if r.Method == detect.KindOCR && r.IsEnabled() {
			tess := detect.NewTesseractRecognizer()
			defer tess.Close()
			recognizer = tess
			break
		}
	}

	bus := events.NewEventBus(64)
	defer bus.Stop()

	var sink engine.DebugSink
	if settings.DebugEnabled {
		s, err := debugsink.New(debugsink.Options{
			Dir:       settings.DebugDir,
			QueueSize: settings.DebugQueueSize,
			MaxFiles:  settings.DebugMaxFiles,
			Log:       log.Named("debugsink"),
		})
		if err != nil {
			log.Error("failed to set up debug image sink", err)
			return exitConfigError
		}
		defer s.Close()
		sink = s
	}

	eng, err := engine.New(source, registry, engine.Config{
		CaptureInterval:  settings.CaptureInterval,
		StartupDelay:     settings.StartupDelay,
		PoolSize:         settings.PoolSize,
		FailureCeiling:   settings.FailureCeiling,
		BackoffBase:      settings.BackoffBase,
		BackoffMax:       settings.BackoffMax,
		ShutdownGrace:    settings.ShutdownGrace,
		DefaultTimeout:   settings.DefaultTimeout,
		HighConfidence:   settings.HighConfidence,
		MediumConfidence: settings.MediumConfidence,
	}, engine.Deps{
		Library:    library,
		Recognizer: recognizer,
		Bus:        bus,
		Sink:       sink,
		Log:        log.Named("engine"),
	})
	if err != nil {
		log.Error("engine construction failed", err)
		return exitConfigError
	}

	var notifier action.Notifier
	if settings.WebhookURL != "" {
		notifier = action.NewWebhookNotifier(settings.WebhookURL)
	}
	executor := action.NewSystemExecutor(action.NewRobotgoExecutor(), notifier)
	eng.SetDispatcher(action.NewDispatcher(executor, eng.State(), log.Named("dispatcher")))

	db, err := history.Open(settings.HistoryPath)
	if err != nil {
		log.Error("failed to open history database", err)
		return exitConfigError
	}
	defer db.Close()

	runID, err := db.StartRun(source.Name(), len(registry.List()), time.Now())
	if err != nil {
		log.Error("failed to record run start", err)
		return exitConfigError
	}
	recorder := history.NewRecorder(db, runID, log.Named("history"))
	recorder.Attach(bus)
	defer recorder.Detach(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown requested, draining in-flight work (signal again to abort)")
		eng.Stop()
		<-sigCh
		log.Warn("aborting immediately")
		eng.Kill()
	}()

	err = eng.Run(ctx)
	reason := "stopped"
	code := exitOK
	switch {
	case errors.Is(err, engine.ErrPersistentCaptureFailure):
		reason = "capture failure"
		code = exitCaptureFailure
		log.Error("run aborted", err)
	case err != nil && !errors.Is(err, context.Canceled):
		reason = err.Error()
		code = exitConfigError
		log.Error("run failed", err)
	}

	if err := db.FinishRun(runID, reason, time.Now()); err != nil {
		log.Error("failed to record run end", err)
	}
	return code
}

// openSource builds the capture backend selected in settings.
func openSource(s *config.Settings) (capture.Source, error) {
	switch s.CaptureMode {
	case config.ModeDisplay:
		return capture.NewDisplaySource(s.DisplayIndex)
	case config.ModeWindow:
		locator, err := capture.NewSystemLocator()
		if err != nil {
			return nil, err
		}
		return capture.NewWindowSource(s.WindowTitle, locator)
	case config.ModeCamera:
		return capture.NewCameraSource(s.CameraIndex, s.CameraWidth, s.CameraHeight)
	}
	return nil, fmt.Errorf("unknown capture mode %q", s.CaptureMode)
}
