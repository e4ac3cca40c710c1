package server

// Request types for WebSocket commands with validation tags.
// These types define the expected input for each command and use
// go-playground/validator struct tags for automatic validation.

// --- Recordings ---

// StartRecordingRequest is the request body for recordings/start.
// Omitted fields fall back to device capabilities or stored defaults.
type StartRecordingRequest struct {
	DeviceID           *int     `json:"device_id" validate:"required,gte=0"`
	Channels           int      `json:"channels" validate:"omitempty,gte=1,lte=8"`
	SampleRate         int      `json:"sample_rate" validate:"omitempty,gte=8000,lte=192000"`
	Format             string   `json:"format" validate:"omitempty,oneof=wav mp3 flac"`
	SavePath           string   `json:"save_path" validate:"omitempty,max=4096"`
	SilenceLevel       *float64 `json:"silence_level" validate:"omitempty,gte=0,lte=1"`
	SilenceThresholdMs *int64   `json:"silence_threshold_ms" validate:"omitempty,gte=100,lte=600000"`
}

// StopRecordingRequest is the request body for recordings/stop.
type StopRecordingRequest struct {
	ID string `json:"id" validate:"required,max=64"`
}

// --- Triggers ---

// ActionParamsRequest carries the variant-specific action parameters.
type ActionParamsRequest struct {
	Destination string `json:"destination" validate:"omitempty,max=4096"`
	URL         string `json:"url" validate:"omitempty,url,max=2048"`
	Method      string `json:"method" validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`
	Body        string `json:"body" validate:"omitempty,max=10000"`
	Title       string `json:"title" validate:"omitempty,max=200"`
}

// TriggerActionRequest is one action in a triggers/add request.
type TriggerActionRequest struct {
	Type   string              `json:"type" validate:"required,oneof=save-file api-call notification"`
	Params ActionParamsRequest `json:"params"`
}

// TriggerRequest is the request body for triggers/add.
type TriggerRequest struct {
	Event   string                 `json:"event" validate:"required,oneof=recording-started recording-stopped silence-detected keyword-detected"`
	Actions []TriggerActionRequest `json:"actions" validate:"required,min=1,dive"`
}

// RemoveTriggerRequest is the request body for triggers/remove.
type RemoveTriggerRequest struct {
	ID string `json:"id" validate:"required,max=64"`
}

// --- Settings ---

// SettingsUpdateRequest is the request body for settings/update.
// All fields are optional; only supplied fields change.
type SettingsUpdateRequest struct {
	DefaultFormat      *string  `json:"default_format" validate:"omitempty,oneof=wav mp3 flac"`
	SavePath           *string  `json:"save_path" validate:"omitempty,max=4096"`
	SilenceLevel       *float64 `json:"silence_level" validate:"omitempty,gte=0,lte=1"`
	SilenceThresholdMs *int64   `json:"silence_threshold_ms" validate:"omitempty,gte=100,lte=600000"`
}

// --- Events ---

// EventsViewRequest is the request body for events/view.
type EventsViewRequest struct {
	Limit  int    `json:"limit" validate:"omitempty,gte=1,lte=100"`
	Offset int    `json:"offset" validate:"omitempty,gte=0"`
	Filter string `json:"filter" validate:"omitempty,oneof=session trigger upload"`
}
