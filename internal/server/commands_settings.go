package server

import (
	"log/slog"

	"github.com/asikmydeen/AudioCap/internal/recording"
	"github.com/asikmydeen/AudioCap/internal/settings"
	"github.com/asikmydeen/AudioCap/internal/types"
)

// SettingsView is the settings/get response. Credentials are reduced to
// configured flags so they never cross the socket.
type SettingsView struct {
	Port               int          `json:"port"`
	APIKey             string       `json:"api_key"`
	DefaultFormat      types.Format `json:"default_format"`
	SavePath           string       `json:"save_path"`
	SilenceLevel       float64      `json:"silence_level"`
	SilenceThresholdMs int64        `json:"silence_threshold_ms"`
	UploadConfigured   bool         `json:"upload_configured"`
	APIAuthConfigured  bool         `json:"api_auth_configured"`
}

// handleSettingsGet processes a settings/get command.
func (h *CommandHandler) handleSettingsGet(send chan<- any) {
	snap := h.store.Snapshot()
	SendSuccess(send, "settings/get", SettingsView{
		Port:               snap.Port,
		APIKey:             snap.APIKey,
		DefaultFormat:      snap.DefaultFormat,
		SavePath:           snap.SavePath,
		SilenceLevel:       snap.SilenceLevel,
		SilenceThresholdMs: snap.SilenceThresholdMs,
		UploadConfigured:   snap.Upload.Configured(),
		APIAuthConfigured:  snap.APIAuth.Configured(),
	})
}

// handleSettingsUpdate processes a settings/update command.
func (h *CommandHandler) handleSettingsUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(h, cmd, send, func(req *SettingsUpdateRequest) error {
		if req.DefaultFormat != nil {
			if err := h.store.SetDefaultFormat(types.Format(*req.DefaultFormat)); err != nil {
				return err
			}
		}
		if req.SavePath != nil {
			if err := h.store.SetSavePath(*req.SavePath); err != nil {
				return err
			}
		}
		if req.SilenceLevel != nil {
			if err := h.store.SetSilenceLevel(*req.SilenceLevel); err != nil {
				return err
			}
		}
		if req.SilenceThresholdMs != nil {
			if err := h.store.SetSilenceThresholdMs(*req.SilenceThresholdMs); err != nil {
				return err
			}
		}
		return nil
	})
}

// handleRegenerateAPIKey processes a settings/regenerate-key command.
func (h *CommandHandler) handleRegenerateAPIKey(send chan<- any) {
	HandleActionAsync(WSCommand{Type: "settings/regenerate-key"}, send, func() (any, error) {
		newKey, err := settings.GenerateAPIKey()
		if err != nil {
			return nil, err
		}

		if err := h.store.SetAPIKey(newKey); err != nil {
			return nil, err
		}

		slog.Info("API key regenerated")

		return map[string]string{"api_key": newKey}, nil
	})
}

// handleTestUpload processes a settings/test-upload command by uploading and
// deleting a small object in the configured bucket.
func (h *CommandHandler) handleTestUpload(send chan<- any) {
	snap := h.store.Snapshot()
	HandleActionAsync(WSCommand{Type: "settings/test-upload"}, send, func() (any, error) {
		cfg := recording.S3Config{
			Endpoint:        snap.Upload.Endpoint,
			Bucket:          snap.Upload.Bucket,
			AccessKeyID:     snap.Upload.AccessKeyID,
			SecretAccessKey: snap.Upload.SecretAccessKey,
		}
		if err := recording.TestS3Connection(&cfg); err != nil {
			return nil, err
		}
		return map[string]string{"bucket": cfg.Bucket}, nil
	})
}
