package observe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// serviceName is reported as the service.name resource attribute.
const serviceName = "vstprep"

// Provider is an in-process meter provider read on demand.
type Provider struct {
	*sdkmetric.MeterProvider
	reader *sdkmetric.ManualReader
}

// NewProvider creates a MeterProvider backed by a ManualReader.
// Call Shutdown when done.
func NewProvider(version string) *Provider {
	reader := sdkmetric.NewManualReader()
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	return &Provider{MeterProvider: mp, reader: reader}
}

// Totals is the run summary derived from the collected counters.
type Totals struct {
	Files         int64
	SkippedFiles  int64
	Clips         int64
	Unclassified  int64
	SkippedClips  int64
	JobsSucceeded int64
	JobsFailed    int64
	JobSecondsSum float64
	JobsMeasured  uint64
}

// Totals collects the current counter values.
func (p *Provider) Totals(ctx context.Context) (Totals, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return Totals{}, fmt.Errorf("collect metrics: %w", err)
	}
	return SummarizeMetrics(rm), nil
}

// SummarizeMetrics folds collected data into Totals.
func SummarizeMetrics(rm metricdata.ResourceMetrics) Totals {
	var t Totals
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					addPoint(&t, m.Name, dp)
				}
			case metricdata.Histogram[float64]:
				if m.Name != MetricJobDuration {
					continue
				}
				for _, dp := range data.DataPoints {
					t.JobSecondsSum += dp.Sum
					t.JobsMeasured += dp.Count
				}
			}
		}
	}
	return t
}

func addPoint(t *Totals, name string, dp metricdata.DataPoint[int64]) {
	attr := func(key string) string {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		return v.AsString()
	}

	switch name {
	case MetricFiles:
		t.Files += dp.Value
		if attr(AttrResult) == ResultSkipped {
			t.SkippedFiles += dp.Value
		}
	case MetricClips:
		t.Clips += dp.Value
		if attr(AttrNote) == NoteHammer {
			t.Unclassified += dp.Value
		}
	case MetricSegmentsSkip:
		t.SkippedClips += dp.Value
	case MetricJobs:
		switch attr(AttrStatus) {
		case StatusSucceeded:
			t.JobsSucceeded += dp.Value
		case StatusFailed:
			t.JobsFailed += dp.Value
		}
	}
}
