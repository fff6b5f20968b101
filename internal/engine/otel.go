package engine

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/indicator/internal/engine"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type engineMetrics struct {
	processed metric.Int64Counter
	skipped   metric.Int64Counter
	pruned    metric.Int64Counter
	duration  metric.Float64Histogram
}

func newEngineMetrics(m metric.Meter) (*engineMetrics, error) {
	if m == nil {
		m = meter()
	}

	var (
		em  engineMetrics
		err error
	)
	em.processed, err = m.Int64Counter(
		"engine.ticks.processed",
		metric.WithDescription("Ticks that ran a projection pass"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	em.skipped, err = m.Int64Counter(
		"engine.ticks.skipped",
		metric.WithDescription("Ticks skipped by the update throttle"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating skipped counter: %w", err)
	}

	em.pruned, err = m.Int64Counter(
		"engine.targets.pruned",
		metric.WithDescription("Targets removed because they were no longer valid"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pruned counter: %w", err)
	}

	em.duration, err = m.Float64Histogram(
		"engine.tick.duration",
		metric.WithDescription("Duration of a projection pass"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &em, nil
}
