// Package types provides shared type definitions used across the capture service.
package types

import (
	"time"
)

// SessionState represents the lifecycle state of a recording session.
type SessionState string

const (
	// SessionStarting indicates the session pipeline is being assembled.
	SessionStarting SessionState = "starting"
	// SessionActive indicates audio is flowing from the device to the file.
	SessionActive SessionState = "active"
	// SessionStopping indicates a stop was requested and resources are winding down.
	SessionStopping SessionState = "stopping"
	// SessionStopped indicates the session terminated normally.
	SessionStopped SessionState = "stopped"
	// SessionFailed indicates the session terminated on an unrecoverable stream error.
	SessionFailed SessionState = "failed"
)

const (
	// MaxSampleAmplitude is the maximum absolute value of a signed 16-bit sample.
	MaxSampleAmplitude = 32767
	// DefaultChannels is the channel count used when a start request leaves it unset.
	DefaultChannels = 2
	// DefaultSampleRate is the fallback sample rate in Hz when neither the request
	// nor the device supplies one.
	DefaultSampleRate = 44100
	// StopTimeout is how long a session waits for its pipeline to drain before
	// forcing the capture process down.
	StopTimeout = 5000 * time.Millisecond
	// SinkFlushTimeout is how long the encode sink waits for the encoder to
	// flush and exit after stdin closes.
	SinkFlushTimeout = 10000 * time.Millisecond
)

// Format represents an output audio format.
type Format string

const (
	// FormatWAV is PCM audio in a WAV container.
	FormatWAV Format = "wav"
	// FormatMP3 is MPEG Audio Layer III.
	FormatMP3 Format = "mp3"
	// FormatFLAC is the Free Lossless Audio Codec.
	FormatFLAC Format = "flac"
)

// IsValid reports whether the format is one of the supported values.
func (f Format) IsValid() bool {
	switch f {
	case FormatWAV, FormatMP3, FormatFLAC:
		return true
	}
	return false
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// FormatPreset defines the FFmpeg encoding parameters for one output format.
type FormatPreset struct {
	CodecArgs []string // Arguments following -c:a
	Container string   // FFmpeg output container (-f)
	MIMEType  string   // Content type for uploads
}

// FormatPresets maps each supported format to its FFmpeg configuration.
var FormatPresets = map[Format]FormatPreset{
	FormatWAV:  {CodecArgs: []string{"pcm_s16le"}, Container: "wav", MIMEType: "audio/wav"},
	FormatMP3:  {CodecArgs: []string{"libmp3lame", "-b:a", "192k"}, Container: "mp3", MIMEType: "audio/mpeg"},
	FormatFLAC: {CodecArgs: []string{"flac"}, Container: "flac", MIMEType: "audio/flac"},
}

// PresetFor returns the FFmpeg preset for the format, defaulting to WAV.
func PresetFor(f Format) FormatPreset {
	if preset, ok := FormatPresets[f]; ok {
		return preset
	}
	return FormatPresets[FormatWAV]
}

// Device describes an available audio input device as seen at enumeration time.
type Device struct {
	ID                int    `json:"id"`                  // Index within one enumeration
	Name              string `json:"name"`                // Display name
	MaxInputChannels  int    `json:"max_input_channels"`  // Input channel capacity
	DefaultSampleRate int    `json:"default_sample_rate"` // Preferred sample rate in Hz
	HostAPIName       string `json:"host_api_name"`       // Capture backend (avfoundation, alsa, dshow)
	IsSystemAudio     bool   `json:"is_system_audio"`     // Loopback or monitor style device
	CaptureID         string `json:"capture_id"`          // Token passed to the capture command
}

// EventName identifies an event emitted by the session manager.
type EventName string

const (
	// EventRecordingStarted fires when a session becomes active.
	EventRecordingStarted EventName = "recording-started"
	// EventRecordingStopped fires when a session stops cleanly.
	EventRecordingStopped EventName = "recording-stopped"
	// EventSilenceDetected fires once per contiguous silent stretch.
	EventSilenceDetected EventName = "silence-detected"
	// EventKeywordDetected is accepted for trigger subscriptions; the core
	// pipeline has no emitter for it.
	EventKeywordDetected EventName = "keyword-detected"
	// EventRecordingError fires when a session fails mid-stream.
	EventRecordingError EventName = "recording-error"
)

// IsTriggerEvent reports whether triggers may subscribe to this event name.
func (n EventName) IsTriggerEvent() bool {
	switch n {
	case EventRecordingStarted, EventRecordingStopped, EventSilenceDetected, EventKeywordDetected:
		return true
	}
	return false
}

// EventPayload carries the data attached to a session event. Events are
// transient; they are dispatched to sinks and appended to the event log but
// never stored beyond that.
type EventPayload struct {
	SessionID       string  `json:"session_id"`
	FilePath        string  `json:"file_path,omitempty"`
	DeviceName      string  `json:"device_name,omitempty"`
	IsSystemAudio   bool    `json:"is_system_audio,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// ActionType identifies a trigger action kind. The set is closed: dispatch is
// a switch over these constants and unknown values fail the action.
type ActionType string

const (
	// ActionSaveFile copies the recording to another directory.
	ActionSaveFile ActionType = "save-file"
	// ActionAPICall sends the event payload to an HTTP endpoint.
	ActionAPICall ActionType = "api-call"
	// ActionNotification shows a desktop notification.
	ActionNotification ActionType = "notification"
)

// ActionParams holds the variant-specific parameters of an action. Only the
// fields relevant to the action's type are set.
type ActionParams struct {
	Destination string `json:"destination,omitempty"` // save-file: target directory
	URL         string `json:"url,omitempty"`         // api-call: request URL
	Method      string `json:"method,omitempty"`      // api-call: HTTP method, default POST
	Body        string `json:"body,omitempty"`        // api-call body override / notification text
	Title       string `json:"title,omitempty"`       // notification title
}

// Action is a single side effect executed when a trigger fires.
type Action struct {
	Type   ActionType   `json:"type"`
	Params ActionParams `json:"params"`
}

// Trigger binds an event name to an ordered list of actions. Triggers are
// persisted through the settings store; the trigger engine's in-memory list
// is authoritative for the process lifetime.
type Trigger struct {
	ID        string    `json:"id"`
	Event     EventName `json:"event"`
	Actions   []Action  `json:"actions"`
	CreatedAt int64     `json:"created_at,omitempty"` // Unix milliseconds
}

// SessionSummary is a read-only view of one active recording session.
type SessionSummary struct {
	ID              string       `json:"id"`
	FilePath        string       `json:"file_path"`
	DeviceName      string       `json:"device_name"`
	Format          Format       `json:"format"`
	State           SessionState `json:"state"`
	DurationSeconds float64      `json:"duration_seconds"`
	IsSystemAudio   bool         `json:"is_system_audio"`
}

// StopResult reports the outcome of stopping a recording session.
type StopResult struct {
	ID              string  `json:"id"`
	FilePath        string  `json:"file_path"`
	DurationSeconds float64 `json:"duration_seconds"`
	DeviceName      string  `json:"device_name"`
	IsSystemAudio   bool    `json:"is_system_audio"`
}
