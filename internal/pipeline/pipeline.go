// Package pipeline wires the splitting stages together: load a recording,
// detect onsets, plan segments, then write, name and queue one clip per
// segment for normalization.
//
// Files are processed one at a time in the order given. A file that cannot
// be loaded is logged and skipped; the run continues with the next one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alnah/vstprep/internal/audio"
	"github.com/alnah/vstprep/internal/clip"
	"github.com/alnah/vstprep/internal/dsp"
	"github.com/alnah/vstprep/internal/format"
	"github.com/alnah/vstprep/internal/normalize"
	"github.com/alnah/vstprep/internal/observe"
	"github.com/alnah/vstprep/internal/onset"
	"github.com/alnah/vstprep/internal/pitch"
	"github.com/alnah/vstprep/internal/segment"
)

// Reasons a segment yields no clip.
const (
	SkipDegenerate = "degenerate"
	SkipEmpty      = "empty"
	SkipWriteError = "write_error"
)

// dirPerm is the permission of per-file output directories.
const dirPerm = 0o750

// Config holds the splitting parameters.
type Config struct {
	PreRoll           float64
	RelativeThreshold float64
	MinSeparation     float64
	HopLength         int
	TuningCents       float64
}

// DefaultConfig returns the default splitting parameters.
func DefaultConfig() Config {
	return Config{
		PreRoll:           segment.DefaultPreRoll,
		RelativeThreshold: onset.DefaultRelativeThreshold,
		MinSeparation:     onset.DefaultMinSeparation,
		HopLength:         onset.DefaultHopLength,
		TuningCents:       0,
	}
}

// FileResult describes what happened to one input file.
type FileResult struct {
	Input        string
	OutputDir    string
	Onsets       int
	Clips        int
	Unclassified int
	Degenerate   int
	Empty        int
}

// Summary aggregates a run over several files.
type Summary struct {
	Files        int // files that produced a result, with or without clips
	Skipped      int // files that could not be processed
	Clips        int
	Unclassified int
	Degenerate   int
	Interrupted  bool
}

func (s *Summary) add(r FileResult) {
	s.Clips += r.Clips
	s.Unclassified += r.Unclassified
	s.Degenerate += r.Degenerate
}

// Processor runs the splitting pipeline.
type Processor struct {
	loader     audio.Loader
	detector   *onset.Detector
	planner    segment.Planner
	classifier *pitch.Classifier
	writer     *clip.Writer
	submitter  normalize.Submitter
	dirs       dirCreator
	logger     *slog.Logger
	metrics    *observe.Metrics
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithMetrics sets the instruments updated per file and clip.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// withDirCreator sets a custom directory creator (for testing).
func withDirCreator(d dirCreator) Option {
	return func(p *Processor) { p.dirs = d }
}

// NewProcessor builds a Processor. The codec loads inputs and writes clips;
// the analyzer backs onset detection and pitch estimation; written clips are
// handed to submitter.
func NewProcessor(cfg Config, codec audio.Codec, analyzer dsp.Analyzer, submitter normalize.Submitter, opts ...Option) (*Processor, error) {
	if codec == nil || analyzer == nil || submitter == nil {
		return nil, errors.New("pipeline: codec, analyzer and submitter are required")
	}

	p := &Processor{
		loader:    codec,
		submitter: submitter,
		dirs:      osDirCreator{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}

	detector, err := onset.NewDetector(analyzer,
		onset.WithRelativeThreshold(cfg.RelativeThreshold),
		onset.WithMinSeparation(cfg.MinSeparation),
		onset.WithHopLength(cfg.HopLength),
	)
	if err != nil {
		return nil, err
	}
	p.detector = detector
	p.planner = segment.NewPlanner(cfg.PreRoll)
	p.classifier = pitch.NewClassifier(analyzer, cfg.TuningCents)
	p.writer = clip.NewWriter(codec, clip.WithLogger(p.logger))
	return p, nil
}

// OutputDirFor returns the directory clips of input are written to.
func OutputDirFor(outputRoot, input string) string {
	base := filepath.Base(input)
	return filepath.Join(outputRoot, strings.TrimSuffix(base, filepath.Ext(base)))
}

// ProcessFiles processes inputs in order. Per-file failures are logged and
// counted, never returned. Cancelling ctx stops before the next file or clip.
func (p *Processor) ProcessFiles(ctx context.Context, inputs []string, outputRoot string) Summary {
	var sum Summary
	for i, in := range inputs {
		if ctx.Err() != nil {
			p.logger.Warn("interrupted, skipping remaining files", "remaining", len(inputs)-i)
			sum.Interrupted = true
			break
		}

		res, err := p.ProcessFile(ctx, in, outputRoot)
		sum.add(res)
		switch {
		case err == nil:
			sum.Files++
			p.metrics.RecordFile(ctx, false)
		case errors.Is(err, ErrNoTransients):
			sum.Files++
			p.metrics.RecordFile(ctx, false)
			p.logger.Warn("no transients detected, no clips written", "file", in)
		case errors.Is(err, context.Canceled):
			sum.Files++
			sum.Interrupted = true
			p.metrics.RecordFile(ctx, false)
			p.logger.Warn("interrupted", "file", in, "clips", res.Clips)
		default:
			sum.Skipped++
			p.metrics.RecordFile(ctx, true)
			p.logger.Error("skipping file", "file", in, "error", err)
		}
	}
	return sum
}

// ProcessFile splits one recording into outputRoot/<name>/.
func (p *Processor) ProcessFile(ctx context.Context, input, outputRoot string) (FileResult, error) {
	res := FileResult{Input: input, OutputDir: OutputDirFor(outputRoot, input)}

	p.logger.Info("processing", "file", input)
	buf, err := p.loader.Load(ctx, input)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	p.logger.Debug("loaded", "file", input,
		"duration", format.Timestamp(buf.Duration()),
		"sample_rate", buf.SampleRate,
		"bit_depth", buf.BitDepth)

	events, err := p.detector.Detect(buf)
	if err != nil {
		return res, err
	}
	duration := buf.Duration()
	onsets, dropped := segment.Sanitize(onset.Times(events), duration)
	if dropped > 0 {
		p.logger.Debug("dropped invalid onsets", "count", dropped)
	}
	res.Onsets = len(onsets)
	if len(onsets) == 0 {
		return res, ErrNoTransients
	}
	p.logger.Info("transients detected", "file", input, "count", len(onsets))

	if err := p.dirs.MkdirAll(res.OutputDir, dirPerm); err != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrOutputDir, res.OutputDir, err)
	}

	for _, seg := range p.planner.Plan(onsets, duration) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p.processSegment(ctx, buf, seg, onsets[seg.Index-1], &res)
	}
	return res, nil
}

// processSegment writes, classifies and queues one clip.
func (p *Processor) processSegment(ctx context.Context, buf audio.Buffer, seg segment.Segment, raw float64, res *FileResult) {
	p.logger.Debug("segment",
		"index", seg.Index,
		"onset", format.Timestamp(raw),
		"start", format.Timestamp(seg.Start),
		"end", format.Timestamp(seg.End))

	if err := seg.Validate(); err != nil {
		res.Degenerate++
		p.metrics.RecordSkippedSegment(ctx, SkipDegenerate)
		p.logger.Debug("skipping segment", "error", err)
		return
	}

	dest := filepath.Join(res.OutputDir, clip.ClipName(seg.Index))
	written, err := p.writer.Write(buf, seg.Start, seg.End, dest)
	if err != nil {
		p.metrics.RecordSkippedSegment(ctx, SkipWriteError)
		p.logger.Error("clip not written", "index", seg.Index, "error", err)
		return
	}
	if !written {
		res.Empty++
		p.metrics.RecordSkippedSegment(ctx, SkipEmpty)
		p.logger.Debug("segment holds no samples", "index", seg.Index, "span", seg.String())
		return
	}

	s, e := clip.SampleRange(buf, seg.Start, seg.End)
	c := p.classifier.Classify(buf.Slice(s, e).Samples, buf.SampleRate)

	path, err := p.writer.Rename(dest, c)
	if err != nil {
		p.logger.Warn("keeping unlabelled clip name", "clip", dest, "error", err)
	}

	res.Clips++
	if !c.Classified() {
		res.Unclassified++
	}
	p.metrics.RecordClip(ctx, c.Classified())
	p.logger.Info("clip",
		"name", filepath.Base(path),
		"note", c.Note,
		"frequency", fmt.Sprintf("%.2f", c.Frequency),
		"span", seg.String())

	if err := p.submitter.Submit(path, clip.NormalizedName(path)); err != nil {
		p.logger.Error("normalization not queued", "clip", path, "error", err)
	}
}
