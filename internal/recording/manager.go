// Package recording provides the recording session engine: concurrent
// capture sessions with silence detection, FFmpeg encoding, and optional
// upload of finished files.
package recording

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/asikmydeen/AudioCap/internal/audio"
	"github.com/asikmydeen/AudioCap/internal/eventlog"
	"github.com/asikmydeen/AudioCap/internal/types"
)

// DeviceProvider enumerates audio input devices.
type DeviceProvider interface {
	Devices() []types.Device
	DeviceByID(id int) (types.Device, bool)
}

// EventSink receives session events. Delivery is synchronous from the
// manager; sinks must not block.
type EventSink interface {
	OnEvent(name types.EventName, payload types.EventPayload)
}

// StartOptions describes a new recording session. Zero values fall back to
// device or application defaults.
type StartOptions struct {
	DeviceID           int
	Channels           int
	SampleRate         int
	Format             types.Format
	SavePath           string
	SilenceLevel       float64
	SilenceThresholdMs int64
	BufferSize         int
}

// Manager owns all live recording sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	devices DeviceProvider
	opener  audio.Opener
	sinks   SinkOpener

	eventSinks  []EventSink
	eventLogger *eventlog.Logger
	uploader    *Uploader
}

// NewManager creates a new session manager.
func NewManager(devices DeviceProvider, opener audio.Opener, sinks SinkOpener, eventLogger *eventlog.Logger) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		devices:     devices,
		opener:      opener,
		sinks:       sinks,
		eventLogger: eventLogger,
	}
}

// AddEventSink registers a sink for session events. Not safe to call after
// sessions have started.
func (m *Manager) AddEventSink(sink EventSink) {
	m.eventSinks = append(m.eventSinks, sink)
}

// SetUploader attaches an upload queue for finished recordings.
func (m *Manager) SetUploader(u *Uploader) {
	m.uploader = u
}

// Start opens a capture source and encode sink for the device and begins a
// new session. The session is registered before the recording-started event
// is emitted, so triggers observe it as live.
func (m *Manager) Start(opts StartOptions) (types.SessionSummary, error) {
	device, ok := m.devices.DeviceByID(opts.DeviceID)
	if !ok {
		return types.SessionSummary{}, fmt.Errorf("device %d: %w", opts.DeviceID, types.ErrDeviceNotFound)
	}

	format := opts.Format
	if format == "" {
		format = types.FormatWAV
	}
	if !format.IsValid() {
		return types.SessionSummary{}, fmt.Errorf("format %q: %w", format, types.ErrInvalidFormat)
	}

	channels := opts.Channels
	if channels <= 0 {
		channels = types.DefaultChannels
	}
	if device.MaxInputChannels > 0 && channels > device.MaxInputChannels {
		channels = device.MaxInputChannels
	}

	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = device.DefaultSampleRate
	}
	if sampleRate <= 0 {
		sampleRate = types.DefaultSampleRate
	}

	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = 4096
	}

	if err := os.MkdirAll(opts.SavePath, 0o755); err != nil {
		return types.SessionSummary{}, &types.StorageError{Op: "mkdir", Path: opts.SavePath, Err: err}
	}

	now := time.Now()
	id := fmt.Sprintf("%d-%s", now.UnixMilli(), shortID())
	filename := fmt.Sprintf("recording-%d.%s", now.UnixMilli(), format.Extension())
	filePath := filepath.Join(opts.SavePath, filename)

	source, err := m.opener.Open(device, channels, sampleRate)
	if err != nil {
		return types.SessionSummary{}, &types.StreamError{Stage: "capture", Err: err}
	}

	sink, err := m.sinks.OpenSink(filePath, format, channels, sampleRate)
	if err != nil {
		if kerr := source.Kill(); kerr != nil {
			slog.Warn("failed to kill capture source after sink error", "id", id, "error", kerr)
		}
		return types.SessionSummary{}, &types.StreamError{Stage: "encode", Err: err}
	}

	session := &Session{
		id:       id,
		filePath: filePath,
		device:   device,
		format:   format,
		started:  now,
		source:   source,
		sink:     sink,
		detector: audio.NewSilenceDetector(),
		silenceCfg: audio.SilenceConfig{
			Level:       opts.SilenceLevel,
			ThresholdMs: opts.SilenceThresholdMs,
		},
		bufferSize: bufferSize,
		onSilence:  m.handleSilence,
		onFailure:  m.handleSessionFailure,
		state:      types.SessionActive,
		done:       make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	slog.Info("recording started",
		"id", id,
		"device", device.Name,
		"file", filename,
		"format", format,
		"channels", channels,
		"sample_rate", sampleRate)

	m.logSession(eventlog.SessionStarted, id, &eventlog.SessionDetails{
		DeviceName: device.Name,
		FilePath:   filePath,
		Format:     string(format),
	})
	m.emit(types.EventRecordingStarted, types.EventPayload{
		SessionID:     id,
		FilePath:      filePath,
		DeviceName:    device.Name,
		IsSystemAudio: device.IsSystemAudio,
	})

	// The pipeline launches only after recording-started is out, so no
	// session event can precede it.
	go session.run()

	return session.Summary(), nil
}

// Stop ends a session and finalizes its file. The session leaves the live
// set even when finalizing fails; the recording-stopped event is emitted
// only on a clean stop.
func (m *Manager) Stop(id string) (types.StopResult, error) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return types.StopResult{}, fmt.Errorf("session %s: %w", id, types.ErrSessionNotFound)
	}

	err := session.stop()

	result := types.StopResult{
		ID:              id,
		FilePath:        session.filePath,
		DurationSeconds: session.Duration(),
		DeviceName:      session.device.Name,
		IsSystemAudio:   session.device.IsSystemAudio,
	}

	if err != nil {
		slog.Warn("recording stopped with errors", "id", id, "error", err)
		m.logSession(eventlog.SessionStopped, id, &eventlog.SessionDetails{
			DeviceName:      session.device.Name,
			FilePath:        session.filePath,
			DurationSeconds: result.DurationSeconds,
			Error:           err.Error(),
		})
		return result, err
	}

	slog.Info("recording stopped", "id", id, "file", filepath.Base(session.filePath), "duration_s", result.DurationSeconds)
	m.logSession(eventlog.SessionStopped, id, &eventlog.SessionDetails{
		DeviceName:      session.device.Name,
		FilePath:        session.filePath,
		DurationSeconds: result.DurationSeconds,
	})
	m.emit(types.EventRecordingStopped, types.EventPayload{
		SessionID:       id,
		FilePath:        session.filePath,
		DeviceName:      session.device.Name,
		IsSystemAudio:   session.device.IsSystemAudio,
		DurationSeconds: result.DurationSeconds,
	})

	if m.uploader != nil {
		m.uploader.Queue(session.filePath)
	}

	return result, nil
}

// List returns summaries of all live sessions, oldest first.
func (m *Manager) List() []types.SessionSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]types.SessionSummary, 0, len(m.sessions))
	for _, session := range m.sessions {
		summaries = append(summaries, session.Summary())
	}
	slices.SortFunc(summaries, func(a, b types.SessionSummary) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return summaries
}

// StopAll stops every live session. Used during shutdown.
func (m *Manager) StopAll() error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if _, err := m.Stop(id); err != nil && !errors.Is(err, types.ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// handleSilence runs on a session's pipeline goroutine when the silence
// detector fires.
func (m *Manager) handleSilence(sessionID string) {
	slog.Info("silence detected", "id", sessionID)
	m.logSession(eventlog.SilenceDetected, sessionID, nil)
	m.emit(types.EventSilenceDetected, types.EventPayload{SessionID: sessionID})
}

// handleSessionFailure removes a failed session and releases its resources.
// Runs on the session's pipeline goroutine.
func (m *Manager) handleSessionFailure(session *Session, err error) {
	m.mu.Lock()
	delete(m.sessions, session.id)
	m.mu.Unlock()

	if kerr := session.source.Kill(); kerr != nil {
		slog.Warn("failed to kill capture source", "id", session.id, "error", kerr)
	}
	if cerr := session.sink.Close(); cerr != nil {
		slog.Warn("failed to close sink of failed session", "id", session.id, "error", cerr)
	}

	m.logSession(eventlog.SessionFailed, session.id, &eventlog.SessionDetails{
		DeviceName: session.device.Name,
		FilePath:   session.filePath,
		Error:      err.Error(),
	})
	m.emit(types.EventRecordingError, types.EventPayload{
		SessionID:  session.id,
		FilePath:   session.filePath,
		DeviceName: session.device.Name,
		Error:      err.Error(),
	})
}

// emit delivers an event to all registered sinks in order.
func (m *Manager) emit(name types.EventName, payload types.EventPayload) {
	for _, sink := range m.eventSinks {
		sink.OnEvent(name, payload)
	}
}

func (m *Manager) logSession(eventType eventlog.EventType, sessionID string, details *eventlog.SessionDetails) {
	if m.eventLogger == nil {
		return
	}
	if err := m.eventLogger.LogSession(eventType, sessionID, details); err != nil {
		slog.Warn("failed to log session event", "type", eventType, "error", err)
	}
}

// shortID generates a random 8-character hex suffix for session IDs.
func shortID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xffffffff)
	}
	return fmt.Sprintf("%x", b)
}
