// Package dsp provides the spectral primitives the note splitter builds on:
// an onset-strength envelope (log-band spectral flux) and a dominant
// frequency estimate (peak of the averaged magnitude spectrum).
//
// Both are pure functions of their input samples. Frames are centered: frame
// i of the envelope is the window centered on sample i*hop.
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Compile-time interface implementation check.
var _ Analyzer = (*Spectral)(nil)

// Default analysis parameters.
const (
	// DefaultFrameSize is the STFT window for onset analysis.
	DefaultFrameSize = 2048

	// DefaultHopLength is the default stride between onset frames in samples.
	DefaultHopLength = 512

	// DefaultPitchFrameSize is the STFT window for pitch estimation.
	// Long windows resolve the low piano register (A0 = 27.5 Hz).
	DefaultPitchFrameSize = 8192

	// DefaultBands is the number of log-spaced bands the flux is summed over.
	DefaultBands = 128

	// DefaultMinFrequency and DefaultMaxFrequency bound the pitch search.
	// They bracket the 88-key range with a little slack for tuning offsets.
	DefaultMinFrequency = 25.0
	DefaultMaxFrequency = 4500.0

	// bandLowEdge is the lowest band edge of the flux filterbank in Hz.
	bandLowEdge = 30.0

	// topDB clamps log power to this range below the loudest band, so
	// noise far under the signal does not contribute flux.
	topDB = 80.0

	// minPower is the power floor before taking the log.
	minPower = 1e-10

	// silencePeak is the sample peak under which a slice has no pitch.
	silencePeak = 1e-4

	// minPeakRatio is the ratio between the strongest bin and the mean of
	// the searched band below which the spectrum is treated as noise.
	minPeakRatio = 8.0
)

// Analyzer is the spectral boundary the onset detector and pitch classifier
// depend on.
type Analyzer interface {
	// OnsetEnvelope returns one onset-strength value per hop samples.
	OnsetEnvelope(samples []float64, sampleRate, hop int) ([]float64, error)

	// DominantFrequency returns the strongest pitched frequency in Hz, or
	// false when the samples are silent or noise-like.
	DominantFrequency(samples []float64, sampleRate int) (float64, bool)
}

// Spectral implements Analyzer with gonum's real FFT.
type Spectral struct {
	frameSize      int
	pitchFrameSize int
	bands          int
	minFrequency   float64
	maxFrequency   float64
}

// SpectralOption configures a Spectral analyzer.
type SpectralOption func(*Spectral)

// WithFrameSize sets the onset STFT window size.
func WithFrameSize(n int) SpectralOption {
	return func(s *Spectral) { s.frameSize = n }
}

// WithPitchFrameSize sets the pitch STFT window size.
func WithPitchFrameSize(n int) SpectralOption {
	return func(s *Spectral) { s.pitchFrameSize = n }
}

// WithFrequencyRange bounds the dominant frequency search.
func WithFrequencyRange(lo, hi float64) SpectralOption {
	return func(s *Spectral) {
		s.minFrequency = lo
		s.maxFrequency = hi
	}
}

// NewSpectral creates a Spectral analyzer.
func NewSpectral(opts ...SpectralOption) (*Spectral, error) {
	s := &Spectral{
		frameSize:      DefaultFrameSize,
		pitchFrameSize: DefaultPitchFrameSize,
		bands:          DefaultBands,
		minFrequency:   DefaultMinFrequency,
		maxFrequency:   DefaultMaxFrequency,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.frameSize < 2 || s.pitchFrameSize < 2 {
		return nil, fmt.Errorf("%w: frame sizes %d/%d", ErrInvalidParams, s.frameSize, s.pitchFrameSize)
	}
	if s.minFrequency <= 0 || s.maxFrequency <= s.minFrequency {
		return nil, fmt.Errorf("%w: frequency range %.1f-%.1f Hz", ErrInvalidParams, s.minFrequency, s.maxFrequency)
	}
	return s, nil
}

// OnsetEnvelope computes half-wave rectified spectral flux over log-spaced
// bands. The first frame is always 0. Digital silence yields all zeros.
// Frames whose window runs past the last sample are 0: the zero padding
// there would read a recording that stops mid-note as a new attack.
func (s *Spectral) OnsetEnvelope(samples []float64, sampleRate, hop int) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}
	if hop < 1 {
		return nil, fmt.Errorf("%w: hop length %d", ErrInvalidParams, hop)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	n := s.frameSize
	frames := 1 + len(samples)/hop
	env := make([]float64, frames)
	// Last frame whose centered window lies inside the signal.
	last := -1
	if len(samples) >= n/2 {
		last = min(frames-1, (len(samples)-n/2)/hop)
	}
	if last < 1 {
		return env, nil
	}
	bandOf := bandMapping(n, sampleRate, s.bands)

	fft := fourier.NewFFT(n)
	win := hann(n)
	buf := make([]float64, n)
	coeffs := make([]complex128, n/2+1)

	// Log band power per frame; the clamp needs the global maximum.
	logPower := make([][]float64, last+1)
	maxDB := math.Inf(-1)
	for t := 0; t <= last; t++ {
		windowFrame(samples, t*hop-n/2, win, buf)
		coeffs = fft.Coefficients(coeffs, buf)

		power := make([]float64, s.bands)
		for k := 1; k < len(coeffs); k++ {
			m := cmplx.Abs(coeffs[k])
			power[bandOf[k]] += m * m
		}
		for b, p := range power {
			power[b] = 10 * math.Log10(math.Max(p, minPower))
		}
		maxDB = math.Max(maxDB, floats.Max(power))
		logPower[t] = power
	}

	floor := maxDB - topDB
	for t := 1; t <= last; t++ {
		var flux float64
		for b := 0; b < s.bands; b++ {
			d := math.Max(logPower[t][b], floor) - math.Max(logPower[t-1][b], floor)
			if d > 0 {
				flux += d
			}
		}
		env[t] = flux / float64(s.bands)
	}
	return env, nil
}

// DominantFrequency averages magnitude spectra over the slice and returns the
// interpolated frequency of the strongest bin inside the search range.
func (s *Spectral) DominantFrequency(samples []float64, sampleRate int) (float64, bool) {
	if sampleRate <= 0 || len(samples) == 0 {
		return 0, false
	}
	if floats.Max(absAll(samples)) < silencePeak {
		return 0, false
	}

	n := s.pitchFrameSize
	hop := n / 2
	fft := fourier.NewFFT(n)
	win := hann(n)
	buf := make([]float64, n)
	coeffs := make([]complex128, n/2+1)
	avg := make([]float64, n/2+1)

	frames := 0
	for start := 0; start == 0 || start+n <= len(samples); start += hop {
		windowFrame(samples, start, win, buf)
		coeffs = fft.Coefficients(coeffs, buf)
		for k, c := range coeffs {
			avg[k] += cmplx.Abs(c)
		}
		frames++
	}
	floats.Scale(1/float64(frames), avg)

	binHz := float64(sampleRate) / float64(n)
	lo := max(1, int(math.Ceil(s.minFrequency/binHz)))
	hi := min(len(avg)-2, int(math.Floor(s.maxFrequency/binHz)))
	if hi <= lo {
		return 0, false
	}

	band := avg[lo : hi+1]
	peak := floats.MaxIdx(band) + lo
	mean := floats.Sum(band) / float64(len(band))
	if mean <= 0 || avg[peak]/mean < minPeakRatio {
		return 0, false
	}

	offset := parabolicOffset(logMag(avg[peak-1]), logMag(avg[peak]), logMag(avg[peak+1]))
	freq := (float64(peak) + offset) * binHz
	if freq <= 0 {
		return 0, false
	}
	return freq, true
}

// windowFrame copies the windowed frame starting at sample start into dst,
// zero-padding outside the signal.
func windowFrame(samples []float64, start int, win, dst []float64) {
	for k := range dst {
		i := start + k
		if i >= 0 && i < len(samples) {
			dst[k] = samples[i] * win[k]
		} else {
			dst[k] = 0
		}
	}
}

// bandMapping assigns each FFT bin to one of n log-spaced bands between
// bandLowEdge and Nyquist. Bins below the low edge fall in band 0.
func bandMapping(frameSize, sampleRate, n int) []int {
	bins := frameSize/2 + 1
	nyquist := float64(sampleRate) / 2
	lowEdge := math.Min(bandLowEdge, nyquist/2)
	span := math.Log(nyquist / lowEdge)

	out := make([]int, bins)
	for k := 1; k < bins; k++ {
		f := float64(k) * float64(sampleRate) / float64(frameSize)
		b := 0
		if f > lowEdge {
			b = int(float64(n) * math.Log(f/lowEdge) / span)
		}
		out[k] = min(max(b, 0), n-1)
	}
	return out
}

// parabolicOffset returns the sub-bin offset of a peak from its neighbours,
// in [-0.5, 0.5]. Fed log magnitudes, it is close to exact for a Hann window.
func parabolicOffset(a, b, c float64) float64 {
	denom := a - 2*b + c
	if denom == 0 {
		return 0
	}
	return math.Max(-0.5, math.Min(0.5, 0.5*(a-c)/denom))
}

func logMag(m float64) float64 {
	return math.Log(math.Max(m, minPower))
}

// hann returns a periodic Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

// absAll returns |x| for each sample.
func absAll(samples []float64) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = math.Abs(v)
	}
	return out
}
