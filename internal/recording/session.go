package recording

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/asikmydeen/AudioCap/internal/audio"
	"github.com/asikmydeen/AudioCap/internal/types"
)

// Session is one live recording: a capture source feeding an encode sink
// through a single pipeline goroutine that also meters for silence.
type Session struct {
	id       string
	filePath string
	device   types.Device
	format   types.Format
	started  time.Time

	source     audio.Source
	sink       Sink
	detector   *audio.SilenceDetector
	silenceCfg audio.SilenceConfig
	bufferSize int

	// onSilence fires once per contiguous silent stretch.
	onSilence func(sessionID string)
	// onFailure is called from the pipeline goroutine when a stream error
	// ends the session.
	onFailure func(s *Session, err error)

	mu    sync.RWMutex
	state types.SessionState
	err   error

	done chan struct{}
}

// run is the session pipeline: read a chunk, meter it, detect silence,
// hand it to the encoder. Runs until the source ends or the sink fails.
func (s *Session) run() {
	defer close(s.done)

	buf := make([]byte, s.bufferSize)
	for {
		n, err := s.source.Read(buf)
		if n > 0 {
			peak := audio.PeakAmplitude(buf[:n])
			if s.detector.Update(peak, s.silenceCfg, time.Now()) {
				s.onSilence(s.id)
			}
			if _, werr := s.sink.Write(buf[:n]); werr != nil {
				s.fail(&types.StreamError{Stage: "encode", Err: werr})
				return
			}
		}
		if err != nil {
			if s.State() == types.SessionStopping {
				return
			}
			if errors.Is(err, io.EOF) {
				err = errors.New("capture stream ended unexpectedly")
			}
			s.fail(&types.StreamError{Stage: "capture", Err: err})
			return
		}
	}
}

// fail marks the session failed and notifies the manager. Runs on the
// pipeline goroutine.
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.state == types.SessionStopping || s.state == types.SessionStopped {
		// A stop raced the failure; the stop path owns cleanup.
		s.mu.Unlock()
		return
	}
	s.state = types.SessionFailed
	s.err = err
	s.mu.Unlock()

	slog.Error("recording session failed", "id", s.id, "error", err)
	s.onFailure(s, err)
}

// stop winds the session down: graceful source stop, pipeline drain, sink
// flush. Collected errors are joined. A session that already failed is
// returned as-is; its pipeline owns that cleanup.
func (s *Session) stop() error {
	s.mu.Lock()
	if s.state == types.SessionFailed {
		err := s.err
		s.mu.Unlock()
		return err
	}
	s.state = types.SessionStopping
	s.mu.Unlock()

	var errs []error

	if err := s.source.Stop(); err != nil {
		slog.Warn("graceful capture stop failed, killing", "id", s.id, "error", err)
		errs = append(errs, err)
		if err := s.source.Kill(); err != nil {
			errs = append(errs, err)
		}
	}

	select {
	case <-s.done:
	case <-time.After(types.StopTimeout):
		slog.Warn("session pipeline did not drain in time", "id", s.id)
		if err := s.source.Kill(); err != nil {
			errs = append(errs, err)
		}
		select {
		case <-s.done:
		case <-time.After(types.StopTimeout):
			errs = append(errs, errors.New("session pipeline stuck"))
		}
	}

	if err := s.sink.Close(); err != nil {
		errs = append(errs, err)
	}

	s.setState(types.SessionStopped)
	return errors.Join(errs...)
}

// State returns the current session state.
func (s *Session) State() types.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(state types.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Duration returns the elapsed recording time in seconds.
func (s *Session) Duration() float64 {
	return time.Since(s.started).Seconds()
}

// Summary returns a read-only view of the session.
func (s *Session) Summary() types.SessionSummary {
	return types.SessionSummary{
		ID:              s.id,
		FilePath:        s.filePath,
		DeviceName:      s.device.Name,
		Format:          s.format,
		State:           s.State(),
		DurationSeconds: s.Duration(),
		IsSystemAudio:   s.device.IsSystemAudio,
	}
}
