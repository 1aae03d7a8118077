// Package segment turns onset times into per-note time ranges.
package segment

import (
	"errors"
	"fmt"
	"math"

	"github.com/alnah/vstprep/internal/format"
)

// DefaultPreRoll is how far before each onset a segment starts, in seconds.
const DefaultPreRoll = 0.025

// ErrDegenerate indicates a segment whose start is not before its end.
var ErrDegenerate = errors.New("degenerate segment")

// Segment is a half-open time range [Start, End) in seconds.
// Index is 1-based and matches the onset it was planned from.
type Segment struct {
	Index int
	Start float64
	End   float64
}

// Duration returns End-Start, or 0 for a degenerate segment.
func (s Segment) Duration() float64 {
	return math.Max(0, s.End-s.Start)
}

// Validate reports ErrDegenerate when the segment is empty.
func (s Segment) Validate() error {
	if !(s.Start < s.End) {
		return fmt.Errorf("%w: #%d %s", ErrDegenerate, s.Index, s)
	}
	return nil
}

// String formats the range for logs.
func (s Segment) String() string {
	return format.Span(s.Start, s.End)
}

// Planner computes segments from onsets.
type Planner struct {
	PreRoll float64
}

// NewPlanner returns a Planner with the given pre-roll. Negative values
// become 0.
func NewPlanner(preRoll float64) Planner {
	return Planner{PreRoll: math.Max(0, preRoll)}
}

// Plan returns one segment per onset. Segment i starts PreRoll before onset
// i (never before 0) and ends PreRoll before onset i+1; the last segment ends
// at duration. Onsets must be ascending and inside [0, duration); see
// Sanitize. Degenerate segments are kept so indices stay aligned.
func (p Planner) Plan(onsets []float64, duration float64) []Segment {
	if len(onsets) == 0 {
		return nil
	}
	preRoll := math.Max(0, p.PreRoll)

	out := make([]Segment, len(onsets))
	for i, t := range onsets {
		start := math.Max(0, t-preRoll)
		end := duration
		if i+1 < len(onsets) {
			end = math.Max(start, onsets[i+1]-preRoll)
		}
		out[i] = Segment{Index: i + 1, Start: start, End: end}
	}
	return out
}

// Sanitize drops onsets that are NaN, negative, at or past duration, or not
// strictly greater than the previous kept onset. It returns the kept onsets
// and the number dropped.
func Sanitize(onsets []float64, duration float64) ([]float64, int) {
	kept := make([]float64, 0, len(onsets))
	for _, t := range onsets {
		if math.IsNaN(t) || t < 0 || t >= duration {
			continue
		}
		if len(kept) > 0 && t <= kept[len(kept)-1] {
			continue
		}
		kept = append(kept, t)
	}
	return kept, len(onsets) - len(kept)
}
