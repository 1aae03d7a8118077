package format

import (
	"fmt"
	"math"
)

// Timestamp formats a position in seconds as MM:SS.mmm, or HH:MM:SS.mmm
// once it reaches an hour.
func Timestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	s := (ms / 1000) % 60
	frac := ms % 1000
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac)
	}
	return fmt.Sprintf("%02d:%02d.%03d", m, s, frac)
}

// Span formats a half-open time range for segment logs.
// Example: "[00:00.450, 00:01.150)"
func Span(start, end float64) string {
	return "[" + Timestamp(start) + ", " + Timestamp(end) + ")"
}

// Decibels formats a level in dB with one decimal.
// Silence (-Inf) is rendered as "-inf dB".
func Decibels(db float64) string {
	if math.IsInf(db, -1) {
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", db)
}
