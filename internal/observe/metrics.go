// Package observe holds the OpenTelemetry instruments of a split run and the
// in-process reader main uses to print a summary at exit.
//
// Components take a *Metrics and tolerate a nil one, so tests that do not
// care about telemetry can skip it.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope of every vstprep instrument.
const meterName = "github.com/alnah/vstprep"

// Instrument names.
const (
	MetricFiles        = "vstprep.files"
	MetricClips        = "vstprep.clips"
	MetricSegmentsSkip = "vstprep.segments.skipped"
	MetricJobs         = "vstprep.normalize.jobs"
	MetricJobDuration  = "vstprep.normalize.duration"
	MetricQueueDepth   = "vstprep.normalize.queue_depth"
)

// Attribute keys.
const (
	AttrResult = "result"
	AttrNote   = "note"
	AttrReason = "reason"
	AttrStatus = "status"
)

// Attribute values.
const (
	ResultProcessed = "processed"
	ResultSkipped   = "skipped"
	NoteClassified  = "classified"
	NoteHammer      = "unclassified"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// durationBuckets are histogram boundaries in seconds for one normalization.
var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics holds the run's instruments. All fields are safe for concurrent use.
type Metrics struct {
	// Files counts input files by result (processed, skipped).
	Files metric.Int64Counter

	// Clips counts written clips by note (classified, unclassified).
	Clips metric.Int64Counter

	// SegmentsSkipped counts segments that produced no clip, by reason.
	SegmentsSkipped metric.Int64Counter

	// Jobs counts finished normalization jobs by status.
	Jobs metric.Int64Counter

	// JobDuration tracks the wall time of a normalization job.
	JobDuration metric.Float64Histogram

	// QueueDepth tracks jobs submitted but not yet picked up by a worker.
	QueueDepth metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Files, err = m.Int64Counter(MetricFiles,
		metric.WithDescription("Input files by result."),
	); err != nil {
		return nil, err
	}
	if met.Clips, err = m.Int64Counter(MetricClips,
		metric.WithDescription("Clips written by classification."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsSkipped, err = m.Int64Counter(MetricSegmentsSkip,
		metric.WithDescription("Segments that produced no clip, by reason."),
	); err != nil {
		return nil, err
	}
	if met.Jobs, err = m.Int64Counter(MetricJobs,
		metric.WithDescription("Finished normalization jobs by status."),
	); err != nil {
		return nil, err
	}
	if met.JobDuration, err = m.Float64Histogram(MetricJobDuration,
		metric.WithDescription("Duration of one normalization job."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter(MetricQueueDepth,
		metric.WithDescription("Normalization jobs waiting for a worker."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordFile counts one input file.
func (m *Metrics) RecordFile(ctx context.Context, skipped bool) {
	if m == nil {
		return
	}
	result := ResultProcessed
	if skipped {
		result = ResultSkipped
	}
	m.Files.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrResult, result)))
}

// RecordClip counts one written clip.
func (m *Metrics) RecordClip(ctx context.Context, classified bool) {
	if m == nil {
		return
	}
	note := NoteHammer
	if classified {
		note = NoteClassified
	}
	m.Clips.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrNote, note)))
}

// RecordSkippedSegment counts a segment that produced no clip.
func (m *Metrics) RecordSkippedSegment(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.SegmentsSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrReason, reason)))
}

// RecordJob counts a finished normalization job and its duration.
func (m *Metrics) RecordJob(ctx context.Context, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrStatus, status))
	m.Jobs.Add(ctx, 1, attrs)
	m.JobDuration.Record(ctx, d.Seconds(), attrs)
}

// QueueChanged adjusts the queue depth by delta.
func (m *Metrics) QueueChanged(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.QueueDepth.Add(ctx, delta)
}
