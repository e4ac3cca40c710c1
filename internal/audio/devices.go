package audio

import (
	"log/slog"
	"os/exec"
	"regexp"
	"strings"

	"github.com/asikmydeen/AudioCap/internal/types"
)

// systemAudioPattern matches device names that indicate a loopback or
// monitor style device carrying system output rather than a microphone.
var systemAudioPattern = regexp.MustCompile(`(?i)(monitor|loopback|stereo mix|what u hear|blackhole|soundflower|virtual)`)

// Devices enumerates available audio input devices for the current platform.
// IDs are assigned by enumeration order and are stable only within one call.
func Devices() []types.Device {
	cfg := getPlatformConfig()
	devices := parseDeviceList(cfg.ListConfig())
	for i := range devices {
		devices[i].ID = i
		devices[i].IsSystemAudio = systemAudioPattern.MatchString(devices[i].Name)
	}
	return devices
}

// DeviceByID re-enumerates devices and returns the one with the given ID.
func DeviceByID(id int) (types.Device, bool) {
	for _, d := range Devices() {
		if d.ID == id {
			return d, true
		}
	}
	return types.Device{}, false
}

// Enumerator adapts the package-level device functions to the provider
// interface consumed by the session manager.
type Enumerator struct{}

// Devices returns the current device enumeration.
func (Enumerator) Devices() []types.Device { return Devices() }

// DeviceByID looks up a device in the current enumeration.
func (Enumerator) DeviceByID(id int) (types.Device, bool) { return DeviceByID(id) }

// DeviceListConfig defines how to list audio devices for a platform.
type DeviceListConfig struct {
	// Command and args to list devices.
	Command []string

	// AudioStartMarker indicates the start of the audio devices section.
	AudioStartMarker string

	// AudioStopMarker indicates the end of the audio devices section (optional).
	AudioStopMarker string

	// DevicePattern is the regex to extract device info.
	DevicePattern *regexp.Regexp

	// ParseDevice converts regex matches to a Device.
	ParseDevice func(matches []string) *types.Device

	// FallbackDevices are returned if detection fails.
	FallbackDevices []types.Device
}

// parseDeviceList parses command output to extract audio device information.
func parseDeviceList(cfg DeviceListConfig) []types.Device {
	if len(cfg.Command) == 0 {
		return cfg.FallbackDevices
	}

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil && len(output) == 0 {
		slog.Error("failed to list audio devices", "error", err)
		return cfg.FallbackDevices
	}

	var devices []types.Device
	lines := strings.Split(string(output), "\n")
	inAudioSection := cfg.AudioStartMarker == "" // If no marker, always in section

	for _, line := range lines {
		if cfg.AudioStartMarker != "" && strings.Contains(line, cfg.AudioStartMarker) {
			inAudioSection = true
			continue
		}
		if cfg.AudioStopMarker != "" && strings.Contains(line, cfg.AudioStopMarker) {
			inAudioSection = false
			continue
		}

		if !inAudioSection {
			continue
		}

		// Skip alternative name lines (Windows DirectShow).
		if strings.Contains(line, "Alternative name") {
			continue
		}

		if cfg.DevicePattern == nil {
			continue
		}

		matches := cfg.DevicePattern.FindStringSubmatch(line)
		if len(matches) > 0 && cfg.ParseDevice != nil {
			if dev := cfg.ParseDevice(matches); dev != nil {
				devices = append(devices, *dev)
			}
		}
	}

	if len(devices) == 0 {
		return cfg.FallbackDevices
	}

	return devices
}
