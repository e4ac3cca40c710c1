package recording

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asikmydeen/AudioCap/internal/audio"
	"github.com/asikmydeen/AudioCap/internal/types"
)

// --- Fakes ---

type fakeDevices struct {
	devices []types.Device
}

func (f fakeDevices) Devices() []types.Device { return f.devices }

func (f fakeDevices) DeviceByID(id int) (types.Device, bool) {
	for _, d := range f.devices {
		if d.ID == id {
			return d, true
		}
	}
	return types.Device{}, false
}

// fakeSource delivers scripted PCM chunks and ends its stream on Stop.
type fakeSource struct {
	chunks   chan []byte
	stopOnce sync.Once
	stopped  chan struct{}
	killed   atomic.Bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		chunks:  make(chan []byte, 16),
		stopped: make(chan struct{}),
	}
}

func (s *fakeSource) Read(p []byte) (int, error) {
	select {
	case chunk := <-s.chunks:
		return copy(p, chunk), nil
	case <-s.stopped:
		return 0, io.EOF
	}
}

func (s *fakeSource) Stop() error {
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

func (s *fakeSource) Kill() error {
	s.killed.Store(true)
	return s.Stop()
}

// fakeOpener hands out a fresh source per session and records the last
// open parameters. Preloaded chunks are readable the moment a session's
// pipeline starts.
type fakeOpener struct {
	err     error
	preload [][]byte

	mu         sync.Mutex
	sources    []*fakeSource
	channels   int
	sampleRate int
}

func (o *fakeOpener) Open(device types.Device, channels, sampleRate int) (audio.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.channels = channels
	o.sampleRate = sampleRate
	if o.err != nil {
		return nil, o.err
	}
	src := newFakeSource()
	for _, chunk := range o.preload {
		src.chunks <- chunk
	}
	o.sources = append(o.sources, src)
	return src, nil
}

func (o *fakeOpener) last() *fakeSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sources[len(o.sources)-1]
}

func (o *fakeOpener) openedWith() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.channels, o.sampleRate
}

type fakeSink struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	writeErr error
	closeErr error
	closes   int
}

func (s *fakeSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	return s.buf.Write(p)
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.closeErr
}

func (s *fakeSink) isClosed() bool {
	return s.closeCount() > 0
}

func (s *fakeSink) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *fakeSink) written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.buf.Bytes())
}

type fakeSinkOpener struct {
	sink *fakeSink
	err  error
}

func (o *fakeSinkOpener) OpenSink(path string, format types.Format, channels, sampleRate int) (Sink, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.sink, nil
}

type recordedEvent struct {
	name    types.EventName
	payload types.EventPayload
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) OnEvent(name types.EventName, payload types.EventPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{name, payload})
}

func (r *eventRecorder) names() []types.EventName {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]types.EventName, len(r.events))
	for i, e := range r.events {
		names[i] = e.name
	}
	return names
}

func (r *eventRecorder) count(name types.EventName) int {
	n := 0
	for _, got := range r.names() {
		if got == name {
			n++
		}
	}
	return n
}

// --- Test harness ---

type managerFixture struct {
	manager *Manager
	opener  *fakeOpener
	sink    *fakeSink
	events  *eventRecorder
	opts    StartOptions
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	device := types.Device{
		ID:                1,
		Name:              "Test Mic",
		MaxInputChannels:  2,
		DefaultSampleRate: 48000,
		CaptureID:         "test",
	}
	opener := &fakeOpener{}
	sink := &fakeSink{}
	events := &eventRecorder{}

	manager := NewManager(fakeDevices{[]types.Device{device}}, opener, &fakeSinkOpener{sink: sink}, nil)
	manager.AddEventSink(events)

	return &managerFixture{
		manager: manager,
		opener:  opener,
		sink:    sink,
		events:  events,
		opts: StartOptions{
			DeviceID:           1,
			SavePath:           t.TempDir(),
			SilenceLevel:       0.01,
			SilenceThresholdMs: 2000,
		},
	}
}

// --- Tests ---

func TestStartAndStopSession(t *testing.T) {
	f := newManagerFixture(t)

	summary, err := f.manager.Start(f.opts)
	require.NoError(t, err)
	assert.Equal(t, types.SessionActive, summary.State)
	assert.Equal(t, "Test Mic", summary.DeviceName)
	assert.Equal(t, types.FormatWAV, summary.Format)
	assert.True(t, strings.HasPrefix(filepath.Base(summary.FilePath), "recording-"))
	assert.Equal(t, ".wav", filepath.Ext(summary.FilePath))

	// Device defaults fill unset options.
	channels, sampleRate := f.opener.openedWith()
	assert.Equal(t, types.DefaultChannels, channels)
	assert.Equal(t, 48000, sampleRate)

	// Feed some loud audio through the pipeline.
	chunk := pcmChunk(t, 8000, -8000, 4000)
	f.opener.last().chunks <- chunk
	require.Eventually(t, func() bool {
		return len(f.sink.written()) == len(chunk)
	}, time.Second, 5*time.Millisecond)

	result, err := f.manager.Stop(summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, result.ID)
	assert.Equal(t, summary.FilePath, result.FilePath)
	assert.True(t, f.sink.isClosed())
	assert.Empty(t, f.manager.List())

	assert.Equal(t, []types.EventName{types.EventRecordingStarted, types.EventRecordingStopped}, f.events.names())
}

func TestStartUnknownDevice(t *testing.T) {
	f := newManagerFixture(t)
	f.opts.DeviceID = 99

	_, err := f.manager.Start(f.opts)
	assert.ErrorIs(t, err, types.ErrDeviceNotFound)
	assert.Empty(t, f.events.names())
}

func TestStartInvalidFormat(t *testing.T) {
	f := newManagerFixture(t)
	f.opts.Format = "ogg"

	_, err := f.manager.Start(f.opts)
	assert.ErrorIs(t, err, types.ErrInvalidFormat)
}

func TestStartClampsChannelsToDevice(t *testing.T) {
	f := newManagerFixture(t)
	f.opts.Channels = 8

	summary, err := f.manager.Start(f.opts)
	require.NoError(t, err)
	defer func() { _, _ = f.manager.Stop(summary.ID) }()

	channels, _ := f.opener.openedWith()
	assert.Equal(t, 2, channels)
}

func TestStartSinkFailureReleasesSource(t *testing.T) {
	device := types.Device{ID: 1, Name: "Test Mic", MaxInputChannels: 2, DefaultSampleRate: 48000}
	opener := &fakeOpener{}
	manager := NewManager(
		fakeDevices{[]types.Device{device}},
		opener,
		&fakeSinkOpener{err: errors.New("encoder unavailable")},
		nil,
	)

	_, err := manager.Start(StartOptions{DeviceID: 1, SavePath: t.TempDir()})
	require.Error(t, err)

	var streamErr *types.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "encode", streamErr.Stage)
	assert.True(t, opener.last().killed.Load(), "capture source should be killed when the sink cannot open")
}

func TestStopUnknownSession(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.manager.Stop("missing")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
}

func TestStopRemovesSessionDespiteFinalizeError(t *testing.T) {
	f := newManagerFixture(t)
	f.sink.closeErr = errors.New("did not flush in time")

	summary, err := f.manager.Start(f.opts)
	require.NoError(t, err)

	_, err = f.manager.Stop(summary.ID)
	require.Error(t, err)

	// The session left the live set and cannot be stopped twice.
	assert.Empty(t, f.manager.List())
	_, err = f.manager.Stop(summary.ID)
	assert.ErrorIs(t, err, types.ErrSessionNotFound)

	// No clean-stop event for a failed finalize.
	assert.Equal(t, 0, f.events.count(types.EventRecordingStopped))
}

func TestWriteErrorFailsSession(t *testing.T) {
	f := newManagerFixture(t)
	f.sink.writeErr = errors.New("encoder pipe broken")

	summary, err := f.manager.Start(f.opts)
	require.NoError(t, err)

	f.opener.last().chunks <- pcmChunk(t, 1000)

	require.Eventually(t, func() bool {
		return f.events.count(types.EventRecordingError) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Empty(t, f.manager.List())
	assert.True(t, f.opener.last().killed.Load())
	assert.True(t, f.sink.isClosed())

	_, err = f.manager.Stop(summary.ID)
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
}

func TestSourceEndFailsSession(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.manager.Start(f.opts)
	require.NoError(t, err)

	// The capture process dying unexpectedly surfaces as a stream error.
	require.NoError(t, f.opener.last().Stop())

	require.Eventually(t, func() bool {
		return f.events.count(types.EventRecordingError) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.manager.List())
}

func TestSilenceDetectionFiresOnce(t *testing.T) {
	f := newManagerFixture(t)
	f.opts.SilenceThresholdMs = 20

	summary, err := f.manager.Start(f.opts)
	require.NoError(t, err)
	defer func() { _, _ = f.manager.Stop(summary.ID) }()

	src := f.opener.last()
	silent := pcmChunk(t, 0, 0, 0, 0)
	deadline := time.Now().Add(time.Second)
	for f.events.count(types.EventSilenceDetected) == 0 && time.Now().Before(deadline) {
		src.chunks <- silent
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, f.events.count(types.EventSilenceDetected))

	// Continued silence does not refire.
	for range 10 {
		src.chunks <- silent
		time.Sleep(2 * time.Millisecond)
	}
	assert.Equal(t, 1, f.events.count(types.EventSilenceDetected))
}

func TestStartedEventPrecedesSilenceDetection(t *testing.T) {
	f := newManagerFixture(t)
	f.opener.preload = [][]byte{pcmChunk(t, 0, 0, 0, 0)}
	f.opts.SilenceThresholdMs = 0

	summary, err := f.manager.Start(f.opts)
	require.NoError(t, err)
	defer func() { _, _ = f.manager.Stop(summary.ID) }()

	require.Eventually(t, func() bool {
		return f.events.count(types.EventSilenceDetected) == 1
	}, time.Second, time.Millisecond)

	names := f.events.names()
	require.NotEmpty(t, names)
	assert.Equal(t, types.EventRecordingStarted, names[0])
}

func TestStopAfterFailureReportsPipelineError(t *testing.T) {
	f := newManagerFixture(t)
	f.sink.writeErr = errors.New("encoder pipe broken")

	_, err := f.manager.Start(f.opts)
	require.NoError(t, err)

	f.manager.mu.RLock()
	var session *Session
	for _, s := range f.manager.sessions {
		session = s
	}
	f.manager.mu.RUnlock()
	require.NotNil(t, session)

	f.opener.last().chunks <- pcmChunk(t, 1000)
	require.Eventually(t, func() bool {
		return f.events.count(types.EventRecordingError) == 1
	}, time.Second, 5*time.Millisecond)

	// A stop racing the failure must not tear the source and sink down a
	// second time; the pipeline already did.
	err = session.stop()
	assert.ErrorContains(t, err, "encoder pipe broken")
	assert.Equal(t, types.SessionFailed, session.State())
	assert.Equal(t, 1, f.sink.closeCount())
}

func TestListSortsByID(t *testing.T) {
	f := newManagerFixture(t)

	first, err := f.manager.Start(f.opts)
	require.NoError(t, err)
	second, err := f.manager.Start(f.opts)
	require.NoError(t, err)

	list := f.manager.List()
	require.Len(t, list, 2)
	assert.LessOrEqual(t, list[0].ID, list[1].ID)

	require.NoError(t, stopQuietly(f.manager, first.ID, second.ID))
	assert.Empty(t, f.manager.List())
}

func TestStopAll(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.manager.Start(f.opts)
	require.NoError(t, err)
	_, err = f.manager.Start(f.opts)
	require.NoError(t, err)

	require.NoError(t, f.manager.StopAll())
	assert.Empty(t, f.manager.List())
}

func stopQuietly(m *Manager, ids ...string) error {
	var errs []error
	for _, id := range ids {
		if _, err := m.Stop(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pcmChunk packs int16 samples as little-endian PCM bytes.
func pcmChunk(t *testing.T, samples ...int16) []byte {
	t.Helper()
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}
