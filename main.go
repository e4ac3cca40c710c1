// Package main provides a headless audio capture service that records from
// input devices through FFmpeg and runs automation triggers on session events.
//
// Usage:
//
//	audiocap [-settings path/to/settings.json]
//
// If -settings is not specified, the service looks for settings.json in the
// same directory as the binary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/asikmydeen/AudioCap/internal/audio"
	"github.com/asikmydeen/AudioCap/internal/eventlog"
	"github.com/asikmydeen/AudioCap/internal/recording"
	"github.com/asikmydeen/AudioCap/internal/settings"
	"github.com/asikmydeen/AudioCap/internal/trigger"
	"github.com/asikmydeen/AudioCap/internal/util"
)

// Build information, set via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	settingsPath := flag.String("settings", "", "Path to settings file (default: settings.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *settingsPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*settingsPath = filepath.Join(filepath.Dir(execPath), "settings.json")
	}

	slog.Info("using settings file", "path", *settingsPath)

	store := settings.New(*settingsPath)
	if err := store.Load(); err != nil {
		slog.Error("failed to load settings", "error", err)
		os.Exit(1)
	}

	if store.APIKey() == "" {
		key, err := settings.GenerateAPIKey()
		if err != nil {
			slog.Error("failed to generate API key", "error", err)
			os.Exit(1)
		}
		if err := store.SetAPIKey(key); err != nil {
			slog.Error("failed to save API key", "error", err)
			os.Exit(1)
		}
		slog.Info("generated API key for the REST endpoints")
	}

	snap := store.Snapshot()

	// Check FFmpeg availability
	ffmpegPath := util.ResolveFFmpegPath(snap.FFmpegPath)
	ffmpegAvailable := ffmpegPath != ""
	if !ffmpegAvailable {
		slog.Warn("FFmpeg not found - recordings cannot be encoded",
			"configured_path", snap.FFmpegPath)
	} else {
		slog.Info("FFmpeg found", "path", ffmpegPath)
	}

	if err := util.CheckPathWritable(snap.SavePath); err != nil {
		slog.Warn("save path is not writable, recordings will fail to start",
			"path", snap.SavePath, "error", err)
	}

	eventLogPath := eventlog.DefaultLogPath(snap.Port)
	eventLogger, err := eventlog.NewLogger(eventLogPath)
	if err != nil {
		slog.Error("failed to open event log", "error", err, "path", eventLogPath)
		os.Exit(1)
	}

	devices := audio.Enumerator{}
	manager := recording.NewManager(
		devices,
		audio.CaptureOpener{FFmpegPath: ffmpegPath},
		recording.FFmpegSinkOpener{FFmpegPath: ffmpegPath},
		eventLogger,
	)

	var uploader *recording.Uploader
	if snap.Upload.Configured() {
		uploader, err = recording.NewUploader(recording.S3Config{
			Endpoint:        snap.Upload.Endpoint,
			Bucket:          snap.Upload.Bucket,
			AccessKeyID:     snap.Upload.AccessKeyID,
			SecretAccessKey: snap.Upload.SecretAccessKey,
		}, eventLogger)
		if err != nil {
			slog.Error("failed to create uploader", "error", err)
			os.Exit(1)
		}
		uploader.Start()
		manager.SetUploader(uploader)
		slog.Info("upload enabled", "bucket", snap.Upload.Bucket)
	}

	runner := trigger.NewActionRunner(trigger.APIAuth{
		TokenURL:     snap.APIAuth.TokenURL,
		ClientID:     snap.APIAuth.ClientID,
		ClientSecret: snap.APIAuth.ClientSecret,
		Scopes:       snap.APIAuth.Scopes,
	})
	engine := trigger.NewEngine(store, runner, eventLogger)
	manager.AddEventSink(engine)

	srv := NewServer(store, manager, engine, devices, eventLogPath, ffmpegAvailable)
	manager.AddEventSink(srv)

	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	// Stop version checker goroutine
	srv.version.Stop()

	// Shut down HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := manager.StopAll(); err != nil {
		slog.Error("error stopping sessions", "error", err)
	}

	if uploader != nil {
		uploader.Stop()
	}

	if err := eventLogger.Close(); err != nil {
		slog.Error("error closing event log", "error", err)
	}

	slog.Info("shutdown complete")
}
