package audio

import (
	"sync"
	"time"

	"github.com/asikmydeen/AudioCap/internal/types"
)

// SilenceConfig holds the configurable thresholds for silence detection.
type SilenceConfig struct {
	Level       float64 // Fraction of full scale (0..1) below which a chunk counts as silent
	ThresholdMs int64   // Milliseconds of contiguous silence before the event fires
}

// AmplitudeThreshold converts the level fraction to a raw sample amplitude.
func (c SilenceConfig) AmplitudeThreshold() int {
	return int(c.Level * types.MaxSampleAmplitude)
}

// SilenceDetector tracks per-session silence state. It fires exactly once per
// contiguous silent stretch: after the peak amplitude has stayed below the
// threshold for the configured duration, and not again until a loud chunk
// resets the run. It is safe for concurrent use.
type SilenceDetector struct {
	mu          sync.Mutex
	silentSince time.Time // start of the current silent run, zero when loud
	fired       bool      // event already emitted for this run
}

// NewSilenceDetector creates a new silence detector.
func NewSilenceDetector() *SilenceDetector {
	return &SilenceDetector{}
}

// Update feeds one chunk's peak amplitude into the detector and reports
// whether a silence event should be emitted for this chunk.
func (d *SilenceDetector) Update(peak int, cfg SilenceConfig, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if peak >= cfg.AmplitudeThreshold() {
		// Loud chunk ends the silent run and re-arms the detector.
		d.silentSince = time.Time{}
		d.fired = false
		return false
	}

	if d.silentSince.IsZero() {
		d.silentSince = now
	}

	if !d.fired && now.Sub(d.silentSince).Milliseconds() >= cfg.ThresholdMs {
		d.fired = true
		return true
	}

	return false
}

// Reset clears the silence detection state.
func (d *SilenceDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silentSince = time.Time{}
	d.fired = false
}
