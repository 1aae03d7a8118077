package segment_test

// Notes:
// - Expected boundaries are exact sums of the inputs; comparisons use a
//   1e-9 tolerance to absorb float subtraction.

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"testing"

	"github.com/alnah/vstprep/internal/segment"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func equalSegments(t *testing.T, got, want []segment.Segment) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d segments %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range got {
		if got[i].Index != want[i].Index || !approx(got[i].Start, want[i].Start) || !approx(got[i].End, want[i].End) {
			t.Errorf("segment[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// TestPlan - Boundaries from onsets
// ---------------------------------------------------------------------------

func TestPlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		onsets   []float64
		duration float64
		preRoll  float64
		want     []segment.Segment
	}{
		{
			name:     "three onsets",
			onsets:   []float64{0.5, 1.2, 2.0},
			duration: 3.0,
			preRoll:  0.05,
			want: []segment.Segment{
				{Index: 1, Start: 0.45, End: 1.15},
				{Index: 2, Start: 1.15, End: 1.95},
				{Index: 3, Start: 1.95, End: 3.0},
			},
		},
		{
			name:     "first onset inside pre-roll clamps to zero",
			onsets:   []float64{0.01, 1.0},
			duration: 2.0,
			preRoll:  0.025,
			want: []segment.Segment{
				{Index: 1, Start: 0, End: 0.975},
				{Index: 2, Start: 0.975, End: 2.0},
			},
		},
		{
			name:     "single onset spans to the end",
			onsets:   []float64{0.3},
			duration: 1.0,
			preRoll:  0.025,
			want:     []segment.Segment{{Index: 1, Start: 0.275, End: 1.0}},
		},
		{
			name:     "zero pre-roll",
			onsets:   []float64{0, 0.5},
			duration: 1.0,
			preRoll:  0,
			want: []segment.Segment{
				{Index: 1, Start: 0, End: 0.5},
				{Index: 2, Start: 0.5, End: 1.0},
			},
		},
		{
			name:     "crowded onsets stay indexed as degenerate",
			onsets:   []float64{0.01, 0.02, 0.5},
			duration: 1.0,
			preRoll:  0.025,
			want: []segment.Segment{
				{Index: 1, Start: 0, End: 0},
				{Index: 2, Start: 0, End: 0.475},
				{Index: 3, Start: 0.475, End: 1.0},
			},
		},
		{
			name:     "no onsets",
			onsets:   nil,
			duration: 1.0,
			preRoll:  0.025,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := segment.NewPlanner(tt.preRoll).Plan(tt.onsets, tt.duration)
			equalSegments(t, got, tt.want)
		})
	}
}

func TestNewPlanner_NegativePreRoll(t *testing.T) {
	t.Parallel()

	if p := segment.NewPlanner(-1); p.PreRoll != 0 {
		t.Errorf("NewPlanner(-1).PreRoll = %v, want 0", p.PreRoll)
	}
	// A zero-value Planner with a negative field behaves like zero pre-roll.
	got := segment.Planner{PreRoll: -1}.Plan([]float64{0.5}, 1)
	equalSegments(t, got, []segment.Segment{{Index: 1, Start: 0.5, End: 1}})
}

// TestPlan_Invariants checks ordering, non-overlap and coverage over random
// sanitized onset sets.
func TestPlan_Invariants(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	for trial := range 200 {
		duration := 1 + rng.Float64()*60
		raw := make([]float64, rng.IntN(20))
		for i := range raw {
			raw[i] = rng.Float64()*duration*1.1 - 0.05*duration
		}
		sort.Float64s(raw)
		onsets, _ := segment.Sanitize(raw, duration)
		preRoll := rng.Float64() * 0.1

		segs := segment.NewPlanner(preRoll).Plan(onsets, duration)
		if len(segs) != len(onsets) {
			t.Fatalf("trial %d: %d segments for %d onsets", trial, len(segs), len(onsets))
		}
		for i, s := range segs {
			if s.Index != i+1 {
				t.Fatalf("trial %d: segment %d has index %d", trial, i, s.Index)
			}
			if s.Start < 0 || s.End < s.Start || s.End > duration {
				t.Fatalf("trial %d: segment %+v out of [0, %v]", trial, s, duration)
			}
			if i > 0 && s.Start < segs[i-1].End {
				t.Fatalf("trial %d: segment %+v overlaps %+v", trial, s, segs[i-1])
			}
		}
		if n := len(segs); n > 0 && segs[n-1].End != duration {
			t.Fatalf("trial %d: last end %v, want %v", trial, segs[n-1].End, duration)
		}
	}
}

// ---------------------------------------------------------------------------
// TestSegment - Methods
// ---------------------------------------------------------------------------

func TestSegment_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		seg     segment.Segment
		wantErr bool
	}{
		{name: "valid", seg: segment.Segment{Index: 1, Start: 0.1, End: 0.2}},
		{name: "empty", seg: segment.Segment{Index: 2, Start: 0.2, End: 0.2}, wantErr: true},
		{name: "inverted", seg: segment.Segment{Index: 3, Start: 0.3, End: 0.2}, wantErr: true},
		{name: "NaN", seg: segment.Segment{Index: 4, Start: math.NaN(), End: 0.2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.seg.Validate()
			if tt.wantErr {
				if !errors.Is(err, segment.ErrDegenerate) {
					t.Errorf("Validate() = %v, want ErrDegenerate", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestSegment_DurationAndString(t *testing.T) {
	t.Parallel()

	s := segment.Segment{Index: 1, Start: 0.45, End: 1.15}
	if !approx(s.Duration(), 0.7) {
		t.Errorf("Duration() = %v, want 0.7", s.Duration())
	}
	if got, want := s.String(), "[00:00.450, 00:01.150)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if d := (segment.Segment{Start: 1, End: 0.5}).Duration(); d != 0 {
		t.Errorf("degenerate Duration() = %v, want 0", d)
	}
}

// ---------------------------------------------------------------------------
// TestSanitize - Onset filtering
// ---------------------------------------------------------------------------

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		onsets      []float64
		duration    float64
		want        []float64
		wantDropped int
	}{
		{name: "clean", onsets: []float64{0, 0.5, 1}, duration: 2, want: []float64{0, 0.5, 1}},
		{name: "negative dropped", onsets: []float64{-0.1, 0.5}, duration: 2, want: []float64{0.5}, wantDropped: 1},
		{name: "at duration dropped", onsets: []float64{0.5, 2}, duration: 2, want: []float64{0.5}, wantDropped: 1},
		{name: "duplicate dropped", onsets: []float64{0.5, 0.5, 1}, duration: 2, want: []float64{0.5, 1}, wantDropped: 1},
		{name: "out of order dropped", onsets: []float64{1, 0.5, 1.5}, duration: 2, want: []float64{1, 1.5}, wantDropped: 1},
		{name: "NaN dropped", onsets: []float64{math.NaN(), 0.5}, duration: 2, want: []float64{0.5}, wantDropped: 1},
		{name: "empty", onsets: nil, duration: 2, want: []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, dropped := segment.Sanitize(tt.onsets, tt.duration)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Sanitize() = %v, want %v", got, tt.want)
			}
			if dropped != tt.wantDropped {
				t.Errorf("dropped = %d, want %d", dropped, tt.wantDropped)
			}
		})
	}
}
