// Package audio provides PCM metering, silence detection, and platform
// capture for audio input devices.
package audio

import (
	"encoding/binary"
)

// PeakAmplitude scans a buffer of interleaved signed 16-bit little-endian
// samples and returns the largest absolute sample value across all channels.
// A trailing odd byte is ignored.
func PeakAmplitude(buf []byte) int {
	peak := 0
	for i := 0; i+1 < len(buf); i += 2 {
		sample := int(int16(binary.LittleEndian.Uint16(buf[i:])))
		if sample < 0 {
			sample = -sample
		}
		if sample > peak {
			peak = sample
		}
	}
	return peak
}
