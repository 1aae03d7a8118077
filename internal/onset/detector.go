// Package onset finds note attacks in a mono buffer by peak-picking an
// onset-strength envelope.
package onset

import (
	"fmt"
	"math"

	"github.com/alnah/vstprep/internal/audio"
	"github.com/alnah/vstprep/internal/dsp"
)

// Default detection parameters.
const (
	DefaultRelativeThreshold = 0.05
	DefaultMinSeparation     = 0.3
	DefaultHopLength         = dsp.DefaultHopLength
)

// Event is one detected attack.
type Event struct {
	Time     float64 // seconds from the start of the buffer
	Frame    int     // envelope frame index
	Strength float64 // envelope value at Frame
}

// Times returns the event times in order.
func Times(events []Event) []float64 {
	out := make([]float64, len(events))
	for i, e := range events {
		out[i] = e.Time
	}
	return out
}

// Detector picks onsets from an analyzer's envelope.
type Detector struct {
	analyzer          dsp.Analyzer
	relativeThreshold float64
	minSeparation     float64
	hopLength         int
}

// Option configures a Detector.
type Option func(*Detector)

// WithRelativeThreshold sets the peak threshold as a fraction of the
// envelope maximum.
func WithRelativeThreshold(r float64) Option {
	return func(d *Detector) { d.relativeThreshold = r }
}

// WithMinSeparation sets the minimum time between accepted onsets in seconds.
func WithMinSeparation(seconds float64) Option {
	return func(d *Detector) { d.minSeparation = seconds }
}

// WithHopLength sets the envelope stride in samples.
func WithHopLength(n int) Option {
	return func(d *Detector) { d.hopLength = n }
}

// NewDetector creates a Detector backed by analyzer.
func NewDetector(analyzer dsp.Analyzer, opts ...Option) (*Detector, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("%w: nil analyzer", ErrInvalidOption)
	}
	d := &Detector{
		analyzer:          analyzer,
		relativeThreshold: DefaultRelativeThreshold,
		minSeparation:     DefaultMinSeparation,
		hopLength:         DefaultHopLength,
	}
	for _, opt := range opts {
		opt(d)
	}

	if !(d.relativeThreshold > 0 && d.relativeThreshold <= 1) {
		return nil, fmt.Errorf("%w: threshold %v not in (0, 1]", ErrInvalidOption, d.relativeThreshold)
	}
	if d.minSeparation < 0 || math.IsNaN(d.minSeparation) {
		return nil, fmt.Errorf("%w: min separation %v", ErrInvalidOption, d.minSeparation)
	}
	if d.hopLength < 1 {
		return nil, fmt.Errorf("%w: hop length %d", ErrInvalidOption, d.hopLength)
	}
	return d, nil
}

// Detect returns the onsets of buf in strictly ascending time order, all
// inside [0, buf.Duration()). A silent buffer yields no events.
func (d *Detector) Detect(buf audio.Buffer) ([]Event, error) {
	if buf.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", audio.ErrInvalidBuffer, buf.SampleRate)
	}

	env, err := d.analyzer.OnsetEnvelope(buf.Samples, buf.SampleRate, d.hopLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvelope, err)
	}

	minFrames := int(d.minSeparation * float64(buf.SampleRate) / float64(d.hopLength))
	frames := PickPeaks(env, d.relativeThreshold, minFrames)

	duration := buf.Duration()
	events := make([]Event, 0, len(frames))
	for _, f := range frames {
		t := float64(f*d.hopLength) / float64(buf.SampleRate)
		if t >= duration {
			break
		}
		events = append(events, Event{Time: t, Frame: f, Strength: env[f]})
	}
	return events, nil
}

// PickPeaks returns the frames of env that are local maxima strictly above
// relativeThreshold*max(env), keeping only peaks at least minFrames after the
// previously kept one. A plateau resolves to its first frame.
func PickPeaks(env []float64, relativeThreshold float64, minFrames int) []int {
	peak := 0.0
	for _, v := range env {
		peak = math.Max(peak, v)
	}
	if peak <= 0 {
		return nil
	}
	threshold := relativeThreshold * peak

	var out []int
	last := math.MinInt / 2
	for i, v := range env {
		if v <= threshold {
			continue
		}
		if i > 0 && v <= env[i-1] {
			continue
		}
		if i+1 < len(env) && v < env[i+1] {
			continue
		}
		if len(out) > 0 && i-last < minFrames {
			continue
		}
		out = append(out, i)
		last = i
	}
	return out
}
