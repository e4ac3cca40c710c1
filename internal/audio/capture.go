package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/asikmydeen/AudioCap/internal/types"
	"github.com/asikmydeen/AudioCap/internal/util"
)

// ErrNoAudioDevice is returned when no audio input device is available.
var ErrNoAudioDevice = errors.New("no audio input device found")

// Source is a live capture stream delivering interleaved s16le PCM.
type Source interface {
	io.Reader
	// Stop asks the capture process to finish gracefully and waits for exit.
	Stop() error
	// Kill terminates the capture process immediately.
	Kill() error
}

// Opener starts capture sources for devices.
type Opener interface {
	Open(device types.Device, channels, sampleRate int) (Source, error)
}

// CaptureConfig defines platform-specific audio capture configuration.
type CaptureConfig struct {
	// Command is the executable name (e.g., "arecord", "ffmpeg").
	Command string

	// DefaultCaptureID is used when the device carries no capture token.
	DefaultCaptureID string

	// UsesFFmpeg indicates if this platform captures through FFmpeg.
	UsesFFmpeg bool

	// StopWithStdin stops the capture process by sending 'q' over stdin
	// instead of a signal. Used on Windows where SIGINT cannot reach a
	// child process.
	StopWithStdin bool

	// BuildArgs returns the capture command arguments for a device token.
	BuildArgs func(captureID string, channels, sampleRate int) []string

	// ListConfig describes how to enumerate input devices on this platform.
	ListConfig func() DeviceListConfig
}

// CaptureOpener opens capture processes using the platform's capture tool.
type CaptureOpener struct {
	// FFmpegPath overrides the FFmpeg binary on platforms that capture
	// through FFmpeg. Empty means use the platform default command.
	FFmpegPath string
}

// Open starts a capture process for the device and returns its PCM stream.
func (o CaptureOpener) Open(device types.Device, channels, sampleRate int) (Source, error) {
	cfg := getPlatformConfig()

	captureID := device.CaptureID
	if captureID == "" {
		captureID = cfg.DefaultCaptureID
	}
	if captureID == "" {
		return nil, ErrNoAudioDevice
	}

	command := cfg.Command
	if cfg.UsesFFmpeg && o.FFmpegPath != "" {
		command = o.FFmpegPath
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, command, cfg.BuildArgs(captureID, channels, sampleRate)...)

	src := &processSource{
		cmd:     cmd,
		cancel:  cancel,
		device:  device.Name,
		waitErr: make(chan error, 1),
	}
	cmd.Stderr = &src.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, util.WrapError("open capture stdout", err)
	}
	src.stdout = stdout

	if cfg.StopWithStdin {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			cancel()
			return nil, util.WrapError("open capture stdin", err)
		}
		src.stdin = stdin
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, util.WrapError("start capture process", err)
	}

	go func() {
		src.waitErr <- cmd.Wait()
	}()

	return src, nil
}

// processSource wraps a running capture subprocess.
type processSource struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	stdout  io.ReadCloser
	stdin   io.WriteCloser
	stderr  bytes.Buffer
	device  string
	waitErr chan error
}

func (s *processSource) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Stop signals the capture process to finish and waits for it to exit.
// If the process ignores the signal the context is canceled, which kills it.
func (s *processSource) Stop() error {
	if s.stdin != nil {
		if err := util.StopViaStdin(s.stdin); err != nil {
			s.cancel()
		}
	} else if s.cmd.Process != nil {
		if err := util.GracefulSignal(s.cmd.Process); err != nil {
			s.cancel()
		}
	}

	select {
	case err := <-s.waitErr:
		return s.exitError(err)
	case <-time.After(types.StopTimeout):
		s.cancel()
	}

	select {
	case err := <-s.waitErr:
		return s.exitError(err)
	case <-time.After(types.StopTimeout):
		return fmt.Errorf("capture process for %s did not exit", s.device)
	}
}

// Kill terminates the capture process without waiting for a graceful exit.
func (s *processSource) Kill() error {
	s.cancel()
	select {
	case <-s.waitErr:
	case <-time.After(types.StopTimeout):
		return fmt.Errorf("capture process for %s did not die", s.device)
	}
	return nil
}

// exitError converts a Wait result into a useful error. Exits caused by the
// stop signal or context kill are expected and reported as success.
func (s *processSource) exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Capture tools exit non-zero when interrupted; that is the
		// normal stop path, not a failure.
		return nil
	}
	if lastLine := util.ExtractLastError(s.stderr.String()); lastLine != "" {
		return fmt.Errorf("capture process: %s", lastLine)
	}
	return util.WrapError("wait for capture process", err)
}
