package recording

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/asikmydeen/AudioCap/internal/types"
	"github.com/asikmydeen/AudioCap/internal/util"
)

// Sink receives raw PCM audio and finalizes an encoded file on Close.
type Sink interface {
	io.Writer
	Close() error
}

// SinkOpener opens sinks for new session files.
type SinkOpener interface {
	OpenSink(path string, format types.Format, channels, sampleRate int) (Sink, error)
}

// FFmpegSinkOpener encodes PCM into the target format through an FFmpeg
// subprocess: raw s16le in over stdin, encoded file out.
type FFmpegSinkOpener struct {
	// FFmpegPath overrides the FFmpeg binary. Empty means use PATH.
	FFmpegPath string
}

// OpenSink starts an FFmpeg encoder writing to path.
func (o FFmpegSinkOpener) OpenSink(path string, format types.Format, channels, sampleRate int) (Sink, error) {
	preset := types.PresetFor(format)

	args := []string{
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"-i", "pipe:0",
	}
	args = append(args, "-c:a")
	args = append(args, preset.CodecArgs...)
	args = append(args,
		"-f", preset.Container,
		"-hide_banner",
		"-loglevel", "warning",
		"-y",
		path,
	)

	command := o.FFmpegPath
	if command == "" {
		command = "ffmpeg"
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	sink := &ffmpegSink{
		cmd:    cmd,
		cancel: cancel,
		stdin:  stdin,
		path:   path,
	}
	cmd.Stderr = &sink.stderr

	if err := cmd.Start(); err != nil {
		cancel()
		util.SafeClose(stdin, "encoder stdin")
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	slog.Info("encoder started", "file", filepath.Base(path), "format", format)
	return sink, nil
}

// ffmpegSink wraps a running FFmpeg encode subprocess.
type ffmpegSink struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	stderr bytes.Buffer
	path   string
}

func (s *ffmpegSink) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

// Close closes the PCM stream and waits for the encoder to flush the file.
// If the encoder does not exit in time it is killed, which may leave the
// container trailer unwritten.
func (s *ffmpegSink) Close() error {
	if err := s.stdin.Close(); err != nil {
		slog.Warn("failed to close encoder stdin", "file", filepath.Base(s.path), "error", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			if lastLine := util.ExtractLastError(s.stderr.String()); lastLine != "" {
				return fmt.Errorf("encoder: %s", lastLine)
			}
			return util.WrapError("wait for encoder", err)
		}
		return nil
	case <-time.After(types.SinkFlushTimeout):
		s.cancel()
		return fmt.Errorf("encoder for %s did not flush in time", filepath.Base(s.path))
	}
}
