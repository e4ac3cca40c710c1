// Package eventlog provides unified event logging for the capture service.
// It records session events (started, stopped, failed, silence), trigger
// activity, and upload results in a single JSON lines file.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

// Session event types.
const (
	SessionStarted  EventType = "session_started"
	SessionStopped  EventType = "session_stopped"
	SessionFailed   EventType = "session_failed"
	SilenceDetected EventType = "silence_detected"
)

// Trigger event types.
const (
	TriggerFired EventType = "trigger_fired"
	ActionFailed EventType = "action_failed"
)

// Upload event types.
const (
	UploadQueued    EventType = "upload_queued"
	UploadCompleted EventType = "upload_completed"
	UploadFailed    EventType = "upload_failed"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// SessionDetails contains session-specific event details.
type SessionDetails struct {
	DeviceName      string  `json:"device_name,omitempty"`
	FilePath        string  `json:"file_path,omitempty"`
	Format          string  `json:"format,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// TriggerDetails contains trigger-specific event details.
type TriggerDetails struct {
	TriggerID  string `json:"trigger_id,omitempty"`
	Event      string `json:"event,omitempty"`
	ActionType string `json:"action_type,omitempty"`
	Error      string `json:"error,omitempty"`
}

// UploadDetails contains upload-specific event details.
type UploadDetails struct {
	Filename string `json:"filename,omitempty"`
	S3Key    string `json:"s3_key,omitempty"`
	Error    string `json:"error,omitempty"`
	Retry    int    `json:"retry,omitempty"`
}

// Logger writes events to a JSON lines file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	encoder  *json.Encoder
}

// DefaultLogPath returns the platform-specific log file path.
func DefaultLogPath(port int) string {
	switch runtime.GOOS {
	case "windows":
		// %PROGRAMDATA% is typically C:\ProgramData
		programData := os.Getenv("PROGRAMDATA")
		if programData == "" {
			programData = `C:\ProgramData`
		}
		return filepath.Join(programData, "audiocap", "logs", fmt.Sprintf("%d", port), "audiocap.jsonl")
	default: // linux, darwin
		return filepath.Join("/var/log/audiocap", fmt.Sprintf("%d", port), "audiocap.jsonl")
	}
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(filePath string) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
		encoder:  json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return l.encoder.Encode(event)
}

// LogSession logs a session lifecycle event.
func (l *Logger) LogSession(eventType EventType, sessionID string, details *SessionDetails) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		SessionID: sessionID,
		Details:   details,
	})
}

// LogTrigger logs a trigger firing or action failure.
func (l *Logger) LogTrigger(eventType EventType, sessionID string, details *TriggerDetails) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		SessionID: sessionID,
		Details:   details,
	})
}

// LogUpload logs an upload queue event.
func (l *Logger) LogUpload(eventType EventType, details *UploadDetails) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Details:   details,
	})
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	return l.filePath
}

// TypeFilter specifies which event types to include when reading.
type TypeFilter string

// Filter constants for ReadLast.
const (
	FilterAll     TypeFilter = ""
	FilterSession TypeFilter = "session"
	FilterTrigger TypeFilter = "trigger"
	FilterUpload  TypeFilter = "upload"
)

// MaxReadLimit is the maximum number of events that can be read at once.
// This prevents denial-of-service via excessive memory allocation.
const MaxReadLimit = 500

// ReadLast reads events from the log file with pagination support.
// Returns up to n events starting from offset, filtered by type.
// Events are returned in reverse chronological order (newest first).
// The n parameter is capped at MaxReadLimit.
func ReadLast(filePath string, n, offset int, filter TypeFilter) ([]Event, bool, error) {
	if n > MaxReadLimit {
		n = MaxReadLimit
	}
	if n <= 0 {
		return []Event{}, false, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // Read-only operation, close error not critical

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	// Parse events in reverse order (newest first), applying filter
	events := make([]Event, 0, n)
	skipped := 0
	hasMore := false
	for i := len(lines) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
			continue // Skip malformed lines
		}

		if !matchesFilter(event.Type, filter) {
			continue
		}

		// Skip events until we reach the offset
		if skipped < offset {
			skipped++
			continue
		}

		if len(events) < n {
			events = append(events, event)
			continue
		}

		// At least one matching event beyond the requested page
		hasMore = true
		break
	}

	return events, hasMore, nil
}

// matchesFilter reports whether an event type passes the given filter.
func matchesFilter(t EventType, filter TypeFilter) bool {
	switch filter {
	case FilterSession:
		return IsSessionEvent(t)
	case FilterTrigger:
		return IsTriggerEvent(t)
	case FilterUpload:
		return IsUploadEvent(t)
	default:
		return true
	}
}

// IsSessionEvent returns true if the event type is a session event.
func IsSessionEvent(t EventType) bool {
	return t == SessionStarted || t == SessionStopped || t == SessionFailed || t == SilenceDetected
}

// IsTriggerEvent returns true if the event type is a trigger event.
func IsTriggerEvent(t EventType) bool {
	return t == TriggerFired || t == ActionFailed
}

// IsUploadEvent returns true if the event type is an upload event.
func IsUploadEvent(t EventType) bool {
	return t == UploadQueued || t == UploadCompleted || t == UploadFailed
}
