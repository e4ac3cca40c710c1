//go:build windows

package audio

import "strconv"

// buildFFmpegCaptureArgs constructs FFmpeg arguments for raw PCM capture on
// Windows. -nostdin is NOT used here so the process can be wound down with
// the 'q' command over stdin, since SIGINT cannot be delivered.
func buildFFmpegCaptureArgs(inputFormat, captureID string, channels, sampleRate int) []string {
	return []string{
		"-f", inputFormat,
		"-i", captureID,
		"-hide_banner",
		"-loglevel", "warning",
		"-vn",
		"-f", "s16le",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	}
}
