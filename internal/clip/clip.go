// Package clip writes segment slices to disk and names them after their note.
//
// Layout inside a file's output directory:
//
//	note_<i>.wav             unclassified (hammer) clip
//	<note>_note_<i>.wav      classified clip, e.g. C#4_note_3.wav
//	normalized_<name>.wav    normalized counterpart of either
package clip

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alnah/vstprep/internal/audio"
	"github.com/alnah/vstprep/internal/pitch"
)

// NormalizedPrefix marks clips produced by the normalizer.
const NormalizedPrefix = "normalized_"

// ClipName returns the file name of the i-th clip before classification.
func ClipName(index int) string {
	return "note_" + strconv.Itoa(index) + ".wav"
}

// ClassifiedName returns the file name of the i-th clip labelled note.
func ClassifiedName(note string, index int) string {
	return note + "_" + ClipName(index)
}

// NormalizedName returns the path of the normalized counterpart of path.
func NormalizedName(path string) string {
	return filepath.Join(filepath.Dir(path), NormalizedPrefix+filepath.Base(path))
}

// IsNormalized reports whether path names a normalized clip.
func IsNormalized(path string) bool {
	return strings.HasPrefix(filepath.Base(path), NormalizedPrefix)
}

// Writer saves clips through an audio.Saver.
type Writer struct {
	saver   audio.Saver
	renamer renamer
	logger  *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger for clip events.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// withRenamer sets a custom renamer (for testing).
func withRenamer(r renamer) Option {
	return func(w *Writer) { w.renamer = r }
}

// NewWriter creates a Writer that encodes with saver.
func NewWriter(saver audio.Saver, opts ...Option) *Writer {
	w := &Writer{
		saver:   saver,
		renamer: osRenamer{},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SampleRange converts a time range to sample indices clamped to the buffer.
func SampleRange(buf audio.Buffer, start, end float64) (int, int) {
	s := max(0, int(start*float64(buf.SampleRate)))
	e := min(int(end*float64(buf.SampleRate)), buf.Len())
	return s, e
}

// Write saves buf[start, end) (seconds) to dest at the buffer's bit depth.
// It returns false without touching the file system when the range holds no
// samples.
func (w *Writer) Write(buf audio.Buffer, start, end float64, dest string) (bool, error) {
	s, e := SampleRange(buf, start, end)
	if s >= e {
		w.logger.Debug("empty clip skipped", "dest", dest, "start", s, "end", e)
		return false, nil
	}

	if err := w.saver.Save(buf.Slice(s, e), dest); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrWrite, dest, err)
	}
	w.logger.Debug("clip written", "dest", dest, "samples", e-s)
	return true, nil
}

// Rename prefixes a written clip with its note name and returns the new path.
// Unclassified clips keep their name.
func (w *Writer) Rename(path string, c pitch.Classification) (string, error) {
	if !c.Classified() {
		return path, nil
	}
	target := filepath.Join(filepath.Dir(path), c.Note+"_"+filepath.Base(path))
	if err := w.renamer.Rename(path, target); err != nil {
		return path, fmt.Errorf("%w: %s: %w", ErrRename, path, err)
	}
	return target, nil
}
