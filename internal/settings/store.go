// Package settings provides the persisted application settings store.
package settings

import (
	"cmp"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/asikmydeen/AudioCap/internal/types"
	"github.com/asikmydeen/AudioCap/internal/util"
)

// Settings defaults are used when values are not specified.
const (
	DefaultPort               = 8080
	DefaultFormat             = types.FormatWAV
	DefaultSilenceLevel       = 0.01 // Fraction of full scale
	DefaultSilenceThresholdMs = 2000
	DefaultBufferSize         = 4096 // Bytes per pipeline read
)

// ServerConfig holds HTTP server settings that require restart.
type ServerConfig struct {
	Port   int    `json:"port"`    // HTTP server port
	APIKey string `json:"api_key"` // API key for the recording REST endpoints
}

// DefaultsConfig holds the defaults applied to start requests that omit them.
type DefaultsConfig struct {
	Format   types.Format `json:"format"`    // Output format (wav, mp3, flac)
	SavePath string       `json:"save_path"` // Directory for new recordings
}

// SilenceConfig holds silence detection parameters.
type SilenceConfig struct {
	Level       float64 `json:"level"`        // Fraction of full scale below which audio is silent
	ThresholdMs int64   `json:"threshold_ms"` // Contiguous silent time before the event fires
}

// CaptureConfig holds capture pipeline settings.
type CaptureConfig struct {
	BufferSize int    `json:"buffer_size"` // Bytes per pipeline read
	FFmpegPath string `json:"ffmpeg_path"` // Path to FFmpeg binary (empty = use PATH)
}

// UploadConfig holds S3-compatible storage settings for finished recordings.
type UploadConfig struct {
	Endpoint        string `json:"endpoint"`          // S3-compatible endpoint URL
	Bucket          string `json:"bucket"`            // Bucket name
	AccessKeyID     string `json:"access_key_id"`     // Access key
	SecretAccessKey string `json:"secret_access_key"` // Secret key
}

// Configured reports whether all upload fields are set.
func (u *UploadConfig) Configured() bool {
	return util.IsConfigured(u.Endpoint, u.Bucket, u.AccessKeyID, u.SecretAccessKey)
}

// APIAuthConfig holds OAuth2 client-credentials settings used to authenticate
// api-call trigger actions. Empty means actions call endpoints anonymously.
type APIAuthConfig struct {
	TokenURL     string   `json:"token_url"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes,omitempty"`
}

// Configured reports whether client-credentials auth is fully set.
func (a *APIAuthConfig) Configured() bool {
	return util.IsConfigured(a.TokenURL, a.ClientID, a.ClientSecret)
}

// Store holds all persisted application settings. It is safe for concurrent
// use; every mutation writes through to the settings file.
type Store struct {
	Server      ServerConfig    `json:"server"`
	Defaults    DefaultsConfig  `json:"defaults"`
	Silence     SilenceConfig   `json:"silence"`
	Capture     CaptureConfig   `json:"capture"`
	Upload      UploadConfig    `json:"upload"`
	APIAuth     APIAuthConfig   `json:"api_auth"`
	TriggerList []types.Trigger `json:"triggers"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Store with default values.
func New(filePath string) *Store {
	return &Store{
		Server:      ServerConfig{Port: DefaultPort},
		Defaults:    DefaultsConfig{Format: DefaultFormat},
		Silence:     SilenceConfig{},
		Capture:     CaptureConfig{},
		TriggerList: []types.Trigger{},
		filePath:    filePath,
	}
}

// Load reads settings from file, creating a default file if none exists.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.applyDefaults()
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return util.WrapError("parse settings", err)
	}

	s.applyDefaults()

	if err := s.validate(); err != nil {
		return err
	}

	return nil
}

// validate checks all settings fields for correctness.
func (s *Store) validate() error {
	if !s.Defaults.Format.IsValid() {
		return fmt.Errorf("invalid default format %q: must be wav, mp3 or flac", s.Defaults.Format)
	}
	if err := util.ValidatePath("save_path", s.Defaults.SavePath); err != nil {
		return err
	}
	if s.Silence.Level < 0 || s.Silence.Level > 1 {
		return fmt.Errorf("invalid silence level %v: must be between 0 and 1", s.Silence.Level)
	}
	if s.Silence.ThresholdMs <= 0 {
		return fmt.Errorf("invalid silence threshold %dms: must be positive", s.Silence.ThresholdMs)
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (s *Store) applyDefaults() {
	if s.Server.Port == 0 {
		s.Server.Port = DefaultPort
	}
	if s.Defaults.Format == "" {
		s.Defaults.Format = DefaultFormat
	}
	if s.Defaults.SavePath == "" {
		s.Defaults.SavePath = defaultSavePath()
	}
	if s.Silence.Level == 0 {
		s.Silence.Level = DefaultSilenceLevel
	}
	if s.Silence.ThresholdMs == 0 {
		s.Silence.ThresholdMs = DefaultSilenceThresholdMs
	}
	if s.Capture.BufferSize == 0 {
		s.Capture.BufferSize = DefaultBufferSize
	}
	if s.TriggerList == nil {
		s.TriggerList = []types.Trigger{}
	}
	for i := range s.TriggerList {
		if s.TriggerList[i].CreatedAt == 0 {
			s.TriggerList[i].CreatedAt = time.Now().UnixMilli()
		}
	}
}

// defaultSavePath returns the recordings directory under the user's home.
func defaultSavePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "Recordings")
	}
	return filepath.Join(home, "AudioCap", "Recordings")
}

// saveLocked persists settings. Caller must hold s.mu.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return util.WrapError("marshal settings", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create settings directory", err)
	}

	if err := os.WriteFile(s.filePath, data, 0o600); err != nil {
		return util.WrapError("write settings", err)
	}

	return nil
}

// --- Trigger persistence ---

// Triggers returns a copy of the persisted trigger list.
func (s *Store) Triggers() []types.Trigger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.TriggerList)
}

// SetTriggers replaces the persisted trigger list and saves the settings.
// The trigger engine writes through here; its in-memory list stays
// authoritative even if the save fails.
func (s *Store) SetTriggers(triggers []types.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TriggerList = slices.Clone(triggers)
	return s.saveLocked()
}

// --- Getters for individual settings ---

// APIKey returns the API key for the recording REST endpoints.
func (s *Store) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Server.APIKey
}

// FFmpegPath returns the configured FFmpeg binary path.
func (s *Store) FFmpegPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Capture.FFmpegPath
}

// --- Setters for individual settings ---

// SetAPIKey updates the API key and saves the settings.
func (s *Store) SetAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Server.APIKey = key
	return s.saveLocked()
}

// SetDefaultFormat updates the default output format and saves the settings.
func (s *Store) SetDefaultFormat(format types.Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Defaults.Format = format
	return s.saveLocked()
}

// SetSavePath updates the recordings directory and saves the settings.
func (s *Store) SetSavePath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Defaults.SavePath = path
	return s.saveLocked()
}

// SetSilenceLevel updates the silence level and saves the settings.
func (s *Store) SetSilenceLevel(level float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Silence.Level = level
	return s.saveLocked()
}

// SetSilenceThresholdMs updates the silence threshold and saves the settings.
func (s *Store) SetSilenceThresholdMs(ms int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Silence.ThresholdMs = ms
	return s.saveLocked()
}

// SetUpload updates the upload target and saves the settings.
func (s *Store) SetUpload(upload UploadConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Upload = upload
	return s.saveLocked()
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of settings values.
type Snapshot struct {
	Port   int
	APIKey string

	DefaultFormat types.Format
	SavePath      string

	SilenceLevel       float64
	SilenceThresholdMs int64

	BufferSize int
	FFmpegPath string

	Upload  UploadConfig
	APIAuth APIAuthConfig

	Triggers []types.Trigger
}

// Snapshot returns a point-in-time copy of all settings values.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Port:   cmp.Or(s.Server.Port, DefaultPort),
		APIKey: s.Server.APIKey,

		DefaultFormat: s.Defaults.Format,
		SavePath:      s.Defaults.SavePath,

		SilenceLevel:       cmp.Or(s.Silence.Level, DefaultSilenceLevel),
		SilenceThresholdMs: cmp.Or(s.Silence.ThresholdMs, int64(DefaultSilenceThresholdMs)),

		BufferSize: cmp.Or(s.Capture.BufferSize, DefaultBufferSize),
		FFmpegPath: s.Capture.FFmpegPath,

		Upload:  s.Upload,
		APIAuth: s.APIAuth,

		Triggers: slices.Clone(s.TriggerList),
	}
}

// --- Utility functions ---

// GenerateAPIKey generates a new random 32-character alphanumeric API key.
func GenerateAPIKey() (string, error) {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 32
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		result[i] = chars[n.Int64()]
	}
	return string(result), nil
}
