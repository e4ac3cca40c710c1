package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pcmChunk(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestPeakAmplitude(t *testing.T) {
	tests := []struct {
		name     string
		buf      []byte
		expected int
	}{
		{"empty buffer", nil, 0},
		{"all zeros", pcmChunk(0, 0, 0, 0), 0},
		{"positive peak", pcmChunk(100, 2000, 30), 2000},
		{"negative peak wins", pcmChunk(100, -3000, 30), 3000},
		{"minimum sample value", pcmChunk(-32768, 12), 32768},
		{"full scale positive", pcmChunk(32767), 32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PeakAmplitude(tt.buf))
		})
	}
}

func TestPeakAmplitudeIgnoresTrailingOddByte(t *testing.T) {
	buf := append(pcmChunk(500), 0xff)
	assert.Equal(t, 500, PeakAmplitude(buf))
}
