package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SearchMetrics records provider outcomes so absorbed failures stay visible.
type SearchMetrics struct {
	providerCalls    metric.Int64Counter
	providerFailures metric.Int64Counter
	providerItems    metric.Int64Counter
	providerDuration metric.Float64Histogram
	searches         metric.Int64Counter
}

func NewSearchMetrics(meter metric.Meter) (*SearchMetrics, error) {
	var err error
	m := &SearchMetrics{}
	if m.providerCalls, err = meter.Int64Counter("search.provider.calls",
		metric.WithDescription("Number of provider executions"),
		metric.WithUnit("{call}")); err != nil {
		return nil, fmt.Errorf("create provider calls counter: %w", err)
	}
	if m.providerFailures, err = meter.Int64Counter("search.provider.failures",
		metric.WithDescription("Number of provider executions that failed and contributed no items"),
		metric.WithUnit("{call}")); err != nil {
		return nil, fmt.Errorf("create provider failures counter: %w", err)
	}
	if m.providerItems, err = meter.Int64Counter("search.provider.items",
		metric.WithDescription("Number of items returned by providers before filtering"),
		metric.WithUnit("{item}")); err != nil {
		return nil, fmt.Errorf("create provider items counter: %w", err)
	}
	if m.providerDuration, err = meter.Float64Histogram("search.provider.duration",
		metric.WithDescription("Provider execution duration"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("create provider duration histogram: %w", err)
	}
	if m.searches, err = meter.Int64Counter("search.requests",
		metric.WithDescription("Number of search requests by path and outcome"),
		metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("create search requests counter: %w", err)
	}
	return m, nil
}

// RecordProvider records one provider execution. stage is empty on success.
func (m *SearchMetrics) RecordProvider(ctx context.Context, provider, stage string, items int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	m.providerCalls.Add(ctx, 1, attrs)
	m.providerDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	if stage != "" {
		m.providerFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("stage", stage)))
		return
	}
	m.providerItems.Add(ctx, int64(items), attrs)
}

// RecordSearch counts a search request. path is "fresh" or "page".
func (m *SearchMetrics) RecordSearch(ctx context.Context, path, outcome string) {
	if m == nil {
		return
	}
	m.searches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("outcome", outcome)))
}
