package audio

import (
	"fmt"
	"math"
)

// DefaultBitDepth is used when a buffer does not come from a PCM source.
const DefaultBitDepth = 16

// Buffer is a mono sample buffer. Samples are in [-1, 1].
// A Buffer is never mutated once loaded; Slice shares the backing array.
type Buffer struct {
	Samples    []float64
	SampleRate int
	// BitDepth is the PCM depth the samples were decoded from and the depth
	// clips are written back at.
	BitDepth int
}

// Len returns the number of samples.
func (b Buffer) Len() int {
	return len(b.Samples)
}

// Duration returns the buffer length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Slice returns samples [start, end) clamped to the buffer bounds.
func (b Buffer) Slice(start, end int) Buffer {
	start = max(0, min(start, len(b.Samples)))
	end = max(start, min(end, len(b.Samples)))
	return Buffer{
		Samples:    b.Samples[start:end],
		SampleRate: b.SampleRate,
		BitDepth:   b.BitDepth,
	}
}

// Peak returns the largest absolute sample value.
func (b Buffer) Peak() float64 {
	var peak float64
	for _, s := range b.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// PeakDBFS returns the peak level in dBFS, -Inf for silence.
func (b Buffer) PeakDBFS() float64 {
	return AmplitudeToDB(b.Peak())
}

// Validate checks that the buffer can be encoded.
func (b Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidBuffer, b.SampleRate)
	}
	switch b.bitDepth() {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: bit depth %d", ErrInvalidBuffer, b.BitDepth)
	}
	return nil
}

// bitDepth returns BitDepth, or DefaultBitDepth when unset.
func (b Buffer) bitDepth() int {
	if b.BitDepth == 0 {
		return DefaultBitDepth
	}
	return b.BitDepth
}

// AmplitudeToDB converts a linear amplitude to decibels relative to full scale.
func AmplitudeToDB(a float64) float64 {
	if a <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(a)
}

// DBToAmplitude converts decibels relative to full scale to a linear amplitude.
func DBToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}
