// Package pitch maps a segment's dominant frequency to a piano note name.
package pitch

import (
	"fmt"
	"math"

	"github.com/alnah/vstprep/internal/dsp"
)

// Unclassified is the label of segments with no usable pitch, typically
// hammer or damper noise.
const Unclassified = "hammer"

// Piano range in MIDI note numbers (A0..C8).
const (
	LowestMIDI  = 21
	HighestMIDI = 108
)

// ReferenceA4 is the concert pitch the note table is built on, in Hz.
const ReferenceA4 = 440.0

var pitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the name of a piano key ("A0" to "C8").
func NoteName(midi int) (string, bool) {
	if midi < LowestMIDI || midi > HighestMIDI {
		return "", false
	}
	return fmt.Sprintf("%s%d", pitchClasses[midi%12], midi/12-1), true
}

// NoteForFrequency returns the nearest piano key for freq after removing a
// tuning offset of cents. Positive cents mean the piano is tuned flat: the
// frequency is pulled down by that many cents before rounding, so a 60-cent
// flat A4 at 440 Hz maps to G#4.
func NoteForFrequency(freq, cents float64) (midi int, name string, ok bool) {
	if !(freq > 0) || math.IsInf(freq, 0) || math.IsNaN(cents) {
		return 0, "", false
	}
	adjusted := freq * math.Pow(2, -cents/1200)
	midi = int(math.Round(69 + 12*math.Log2(adjusted/ReferenceA4)))
	name, ok = NoteName(midi)
	if !ok {
		return midi, "", false
	}
	return midi, name, true
}

// Classification is the outcome of pitch detection for one segment.
type Classification struct {
	Frequency    float64 // estimated Hz, valid when HasFrequency
	HasFrequency bool
	MIDI         int    // valid when Classified
	Note         string // note name or Unclassified
}

// Classified reports whether a note name was assigned.
func (c Classification) Classified() bool {
	return c.Note != "" && c.Note != Unclassified
}

// Classifier assigns note names using an injected frequency estimator.
type Classifier struct {
	TuningCents float64
	analyzer    dsp.Analyzer
}

// NewClassifier creates a Classifier with the given tuning offset.
func NewClassifier(analyzer dsp.Analyzer, tuningCents float64) *Classifier {
	return &Classifier{TuningCents: tuningCents, analyzer: analyzer}
}

// Classify estimates the dominant frequency of samples and names it.
// Silent, noisy or out-of-range segments are Unclassified.
func (c *Classifier) Classify(samples []float64, sampleRate int) Classification {
	out := Classification{Note: Unclassified}
	if c.analyzer == nil {
		return out
	}

	freq, ok := c.analyzer.DominantFrequency(samples, sampleRate)
	if !ok || freq <= 0 {
		return out
	}
	out.Frequency = freq
	out.HasFrequency = true

	midi, name, ok := NoteForFrequency(freq, c.TuningCents)
	if !ok {
		return out
	}
	out.MIDI = midi
	out.Note = name
	return out
}
