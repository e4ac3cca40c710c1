package server

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/asikmydeen/AudioCap/internal/recording"
	"github.com/asikmydeen/AudioCap/internal/settings"
	"github.com/asikmydeen/AudioCap/internal/trigger"
)

// MaxLogEntries is the maximum number of event log entries to return per page.
const MaxLogEntries = 100

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	store        *settings.Store
	manager      *recording.Manager
	engine       *trigger.Engine
	devices      recording.DeviceProvider
	eventLogPath string
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(store *settings.Store, manager *recording.Manager, engine *trigger.Engine, devices recording.DeviceProvider, eventLogPath string) *CommandHandler {
	return &CommandHandler{
		store:        store,
		manager:      manager,
		engine:       engine,
		devices:      devices,
		eventLogPath: eventLogPath,
	}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g., "recordings/start").
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	parts := strings.SplitN(cmd.Type, "/", 2)
	namespace := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch namespace {
	case "recordings":
		h.handleRecordings(action, cmd, send)
	case "triggers":
		h.handleTriggers(action, cmd, send)
	case "devices":
		h.handleDevices(action, send)
	case "settings":
		h.handleSettings(action, cmd, send)
	case "events":
		h.handleEvents(action, cmd, send)
	case "status":
		h.handleStatus(action)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// --- Namespace routers ---

// handleRecordings routes recordings/* commands
func (h *CommandHandler) handleRecordings(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "start":
		h.handleStartRecording(cmd, send)
	case "stop":
		h.handleStopRecording(cmd, send)
	case "list":
		h.handleListRecordings(cmd, send)
	default:
		slog.Warn("unknown recordings action", "action", action)
	}
}

// handleTriggers routes triggers/* commands
func (h *CommandHandler) handleTriggers(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "add":
		h.handleAddTrigger(cmd, send)
	case "remove":
		h.handleRemoveTrigger(cmd, send)
	case "list":
		h.handleListTriggers(cmd, send)
	default:
		slog.Warn("unknown triggers action", "action", action)
	}
}

// handleDevices routes devices/* commands
func (h *CommandHandler) handleDevices(action string, send chan<- any) {
	switch action {
	case "list":
		h.handleListDevices(send)
	default:
		slog.Warn("unknown devices action", "action", action)
	}
}

// handleSettings routes settings/* commands
func (h *CommandHandler) handleSettings(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "get":
		h.handleSettingsGet(send)
	case "update":
		h.handleSettingsUpdate(cmd, send)
	case "regenerate-key":
		h.handleRegenerateAPIKey(send)
	case "test-upload":
		h.handleTestUpload(send)
	default:
		slog.Warn("unknown settings action", "action", action)
	}
}

// handleEvents routes events/* commands
func (h *CommandHandler) handleEvents(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "view":
		h.handleViewEvents(cmd, send)
	default:
		slog.Warn("unknown events action", "action", action)
	}
}

// handleStatus routes status/* commands
func (h *CommandHandler) handleStatus(action string) {
	switch action {
	case "get":
		// Status is pushed automatically; an explicit get just triggers
		// the immediate update after Handle returns.
		slog.Debug("status/get received, status update will be triggered")
	default:
		slog.Warn("unknown status action", "action", action)
	}
}
