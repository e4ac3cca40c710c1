//go:build !linux && !windows

package audio

import "strconv"

// buildFFmpegCaptureArgs constructs FFmpeg arguments for raw PCM capture.
func buildFFmpegCaptureArgs(inputFormat, captureID string, channels, sampleRate int) []string {
	return []string{
		"-f", inputFormat,
		"-i", captureID,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-vn",
		"-f", "s16le",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	}
}
