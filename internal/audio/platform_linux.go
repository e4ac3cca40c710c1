//go:build linux

package audio

import (
	"regexp"
	"strconv"

	"github.com/asikmydeen/AudioCap/internal/types"
)

func getPlatformConfig() CaptureConfig {
	return CaptureConfig{
		Command:          "arecord",
		DefaultCaptureID: "default",
		BuildArgs:        buildLinuxArgs,
		ListConfig:       linuxListConfig,
	}
}

func buildLinuxArgs(captureID string, channels, sampleRate int) []string {
	return []string{
		"-D", captureID,
		"-f", "S16_LE",
		"-r", strconv.Itoa(sampleRate),
		"-c", strconv.Itoa(channels),
		"-t", "raw",
		"-q",
		"-",
	}
}

func linuxListConfig() DeviceListConfig {
	return DeviceListConfig{
		Command:          []string{"arecord", "-l"},
		AudioStartMarker: "", // No marker, parse all lines
		DevicePattern:    regexp.MustCompile(`card\s+(\d+):\s+(\w+)\s+\[([^\]]+)\]`),
		ParseDevice: func(matches []string) *types.Device {
			if len(matches) < 4 {
				return nil
			}
			return &types.Device{
				Name:              matches[3],
				CaptureID:         "default:CARD=" + matches[2],
				HostAPIName:       "alsa",
				MaxInputChannels:  types.DefaultChannels,
				DefaultSampleRate: types.DefaultSampleRate,
			}
		},
		FallbackDevices: []types.Device{
			{
				Name:              "Default capture device",
				CaptureID:         "default",
				HostAPIName:       "alsa",
				MaxInputChannels:  types.DefaultChannels,
				DefaultSampleRate: types.DefaultSampleRate,
			},
		},
	}
}
