//go:build darwin

package audio

import (
	"regexp"

	"github.com/asikmydeen/AudioCap/internal/types"
)

func getPlatformConfig() CaptureConfig {
	return CaptureConfig{
		Command:          "ffmpeg",
		DefaultCaptureID: ":0",
		UsesFFmpeg:       true,
		BuildArgs:        buildDarwinArgs,
		ListConfig:       darwinListConfig,
	}
}

func buildDarwinArgs(captureID string, channels, sampleRate int) []string {
	return buildFFmpegCaptureArgs("avfoundation", captureID, channels, sampleRate)
}

func darwinListConfig() DeviceListConfig {
	return DeviceListConfig{
		Command:          []string{"ffmpeg", "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", ""},
		AudioStartMarker: "AVFoundation audio devices:",
		AudioStopMarker:  "AVFoundation video devices:",
		DevicePattern:    regexp.MustCompile(`\[AVFoundation[^\]]*\]\s*\[(\d+)\]\s*(.+)`),
		ParseDevice: func(matches []string) *types.Device {
			if len(matches) < 3 {
				return nil
			}
			return &types.Device{
				Name:              matches[2],
				CaptureID:         ":" + matches[1],
				HostAPIName:       "avfoundation",
				MaxInputChannels:  types.DefaultChannels,
				DefaultSampleRate: types.DefaultSampleRate,
			}
		},
		FallbackDevices: nil,
	}
}
