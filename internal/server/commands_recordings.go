package server

import (
	"github.com/asikmydeen/AudioCap/internal/recording"
	"github.com/asikmydeen/AudioCap/internal/types"
)

// handleStartRecording processes a recordings/start command. Opening the
// capture and encoder processes can take a moment, so the work runs off the
// reader goroutine.
func (h *CommandHandler) handleStartRecording(cmd WSCommand, send chan<- any) {
	var req StartRecordingRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	HandleActionAsync(cmd, send, func() (any, error) {
		snap := h.store.Snapshot()

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

		return h.manager.Start(opts)
	})
}

// handleStopRecording processes a recordings/stop command. Stopping waits
// for the encoder to flush, so the work runs off the reader goroutine.
func (h *CommandHandler) handleStopRecording(cmd WSCommand, send chan<- any) {
	var req StopRecordingRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	HandleActionAsync(cmd, send, func() (any, error) {
		return h.manager.Stop(req.ID)
	})
}

// handleListRecordings processes a recordings/list command.
func (h *CommandHandler) handleListRecordings(cmd WSCommand, send chan<- any) {
	SendSuccess(send, cmd.Type, h.manager.List())
}
