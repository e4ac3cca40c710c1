package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/asikmydeen/AudioCap/internal/recording"
	"github.com/asikmydeen/AudioCap/internal/types"
)

// API response helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// parseJSON reads and parses JSON from request body.
// Returns parsed value and true on success, zero value and false on failure.
func parseJSON[T any](s *Server, w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := s.readJSON(r, &v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return v, false
	}
	return v, true
}

// apiKeyAuth returns middleware for API key authentication.
// The key is accepted in the X-API-Key header.
func (s *Server) apiKeyAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := s.store.APIKey()
		if apiKey == "" {
			http.Error(w, "API key not configured", http.StatusServiceUnavailable)
			return
		}

		providedKey := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// handleAPIDevices returns available audio input devices.
// GET /api/devices
func (s *Server) handleAPIDevices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"devices": s.devices.Devices(),
	})
}

// handleAPIListRecordings returns all active recording sessions.
// GET /api/recordings
func (s *Server) handleAPIListRecordings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.manager.List(),
	})
}

// StartRecordingAPIRequest is the request body for POST /api/recordings.
type StartRecordingAPIRequest struct {
	DeviceID           *int     `json:"device_id"`
	Channels           int      `json:"channels"`
	SampleRate         int      `json:"sample_rate"`
	Format             string   `json:"format"`
	SavePath           string   `json:"save_path"`
	SilenceLevel       *float64 `json:"silence_level"`
	SilenceThresholdMs *int64   `json:"silence_threshold_ms"`
}

// handleAPIStartRecording starts a new recording session.
// POST /api/recordings
func (s *Server) handleAPIStartRecording(w http.ResponseWriter, r *http.Request) {
	req, ok := parseJSON[StartRecordingAPIRequest](s, w, r)
	if !ok {
		return
	}

	if req.DeviceID == nil {
		s.writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	snap := s.store.Snapshot()
	opts := recording.StartOptions{
		DeviceID:           *req.DeviceID,
		Channels:           req.Channels,
		SampleRate:         req.SampleRate,
		Format:             snap.DefaultFormat,
		SavePath:           snap.SavePath,
		SilenceLevel:       snap.SilenceLevel,
		SilenceThresholdMs: snap.SilenceThresholdMs,
		BufferSize:         snap.BufferSize,
	}
	if req.Format != "" {
		opts.Format = types.Format(req.Format)
	}
	if req.SavePath != "" {
		opts.SavePath = req.SavePath
	}
	if req.SilenceLevel != nil {
		opts.SilenceLevel = *req.SilenceLevel
	}
	if req.SilenceThresholdMs != nil {
		opts.SilenceThresholdMs = *req.SilenceThresholdMs
	}

	summary, err := s.manager.Start(opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, types.ErrDeviceNotFound) || errors.Is(err, types.ErrInvalidFormat) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, summary)
}

// handleAPIStopRecording stops a recording session by ID.
// POST /api/recordings/{id}/stop
func (s *Server) handleAPIStopRecording(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := s.manager.Stop(id)
	if err != nil {
		if errors.Is(err, types.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleAPIListTriggers returns all configured triggers.
// GET /api/triggers
func (s *Server) handleAPIListTriggers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"triggers": s.engine.List(),
	})
}
