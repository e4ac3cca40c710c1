package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSilenceConfigAmplitudeThreshold(t *testing.T) {
	tests := []struct {
		name     string
		level    float64
		expected int
	}{
		{"one percent", 0.01, 327},
		{"half scale", 0.5, 16383},
		{"zero", 0, 0},
		{"full scale", 1, 32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := SilenceConfig{Level: tt.level}
			assert.Equal(t, tt.expected, cfg.AmplitudeThreshold())
		})
	}
}

func TestSilenceDetectorFiresOncePerRun(t *testing.T) {
	d := NewSilenceDetector()
	cfg := SilenceConfig{Level: 0.01, ThresholdMs: 2000}
	base := time.Now()

	// Silent run begins; nothing fires before the threshold elapses.
	assert.False(t, d.Update(0, cfg, base))
	assert.False(t, d.Update(10, cfg, base.Add(1*time.Second)))

	// Threshold reached: fires exactly once.
	assert.True(t, d.Update(0, cfg, base.Add(2*time.Second)))

	// Still silent: no refire.
	assert.False(t, d.Update(0, cfg, base.Add(3*time.Second)))
	assert.False(t, d.Update(0, cfg, base.Add(10*time.Second)))
}

func TestSilenceDetectorLoudChunkRearms(t *testing.T) {
	d := NewSilenceDetector()
	cfg := SilenceConfig{Level: 0.01, ThresholdMs: 2000}
	base := time.Now()

	assert.False(t, d.Update(0, cfg, base))
	assert.True(t, d.Update(0, cfg, base.Add(2*time.Second)))

	// A loud chunk ends the run.
	assert.False(t, d.Update(5000, cfg, base.Add(3*time.Second)))

	// The next silent run fires again once its own threshold elapses.
	assert.False(t, d.Update(0, cfg, base.Add(4*time.Second)))
	assert.False(t, d.Update(0, cfg, base.Add(5*time.Second)))
	assert.True(t, d.Update(0, cfg, base.Add(6*time.Second)))
}

func TestSilenceDetectorLoudChunkBeforeThreshold(t *testing.T) {
	d := NewSilenceDetector()
	cfg := SilenceConfig{Level: 0.01, ThresholdMs: 2000}
	base := time.Now()

	// Loud audio just before the threshold resets the run timer.
	assert.False(t, d.Update(0, cfg, base))
	assert.False(t, d.Update(5000, cfg, base.Add(1900*time.Millisecond)))
	assert.False(t, d.Update(0, cfg, base.Add(2*time.Second)))
	assert.False(t, d.Update(0, cfg, base.Add(3900*time.Millisecond)))
	assert.True(t, d.Update(0, cfg, base.Add(4*time.Second)))
}

func TestSilenceDetectorReset(t *testing.T) {
	d := NewSilenceDetector()
	cfg := SilenceConfig{Level: 0.01, ThresholdMs: 1000}
	base := time.Now()

	assert.False(t, d.Update(0, cfg, base))
	d.Reset()

	// After a reset the silent run starts over.
	assert.False(t, d.Update(0, cfg, base.Add(1*time.Second)))
	assert.True(t, d.Update(0, cfg, base.Add(2*time.Second)))
}

func TestSilenceDetectorPeakAtThresholdIsLoud(t *testing.T) {
	d := NewSilenceDetector()
	cfg := SilenceConfig{Level: 0.5, ThresholdMs: 100}
	base := time.Now()

	// A peak equal to the amplitude threshold counts as loud.
	assert.False(t, d.Update(cfg.AmplitudeThreshold(), cfg, base))
	assert.False(t, d.Update(cfg.AmplitudeThreshold(), cfg, base.Add(time.Second)))

	// One below is silent.
	assert.False(t, d.Update(cfg.AmplitudeThreshold()-1, cfg, base.Add(2*time.Second)))
	assert.True(t, d.Update(cfg.AmplitudeThreshold()-1, cfg, base.Add(3*time.Second)))
}
