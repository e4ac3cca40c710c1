//go:build windows

package audio

import (
	"regexp"
	"strings"

	"github.com/asikmydeen/AudioCap/internal/types"
)

func getPlatformConfig() CaptureConfig {
	return CaptureConfig{
		Command:          "ffmpeg",
		DefaultCaptureID: "", // Auto-detect, no safe default on Windows
		UsesFFmpeg:       true,
		StopWithStdin:    true,
		BuildArgs:        buildWindowsArgs,
		ListConfig:       windowsListConfig,
	}
}

func buildWindowsArgs(captureID string, channels, sampleRate int) []string {
	return buildFFmpegCaptureArgs("dshow", captureID, channels, sampleRate)
}

func windowsListConfig() DeviceListConfig {
	return DeviceListConfig{
		Command: []string{"ffmpeg", "-hide_banner", "-f", "dshow", "-list_devices", "true", "-i", "dummy"},
		// No section markers: FFmpeg versions vary in output format, so
		// filter by lines ending with "(audio)" instead.
		AudioStartMarker: "",
		AudioStopMarker:  "",
		// Match lines like: [dshow @ addr] "Device Name" (audio)
		DevicePattern: regexp.MustCompile(`\[dshow[^\]]*\]\s*"([^"]+)"\s*\(audio\)`),
		ParseDevice: func(matches []string) *types.Device {
			if len(matches) < 2 {
				return nil
			}
			name := strings.TrimSpace(matches[1])
			return &types.Device{
				Name:              name,
				CaptureID:         "audio=" + name,
				HostAPIName:       "dshow",
				MaxInputChannels:  types.DefaultChannels,
				DefaultSampleRate: types.DefaultSampleRate,
			}
		},
		FallbackDevices: nil,
	}
}
