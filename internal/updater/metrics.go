package updater

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("cmmnedit.updater")

var (
	splitsTotal         metric.Int64Counter
	planningTablesTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		splitsTotal, err = meter.Int64Counter(
			"cmmnedit_splits_total",
			metric.WithDescription("Shared definitions and sentries split by a move"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		planningTablesTotal, err = meter.Int64Counter(
			"cmmnedit_planning_tables_total",
			metric.WithDescription("Planning tables created or deleted implicitly"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordSplit counts a split; kind is "definition" or "sentry".
func recordSplit(kind string) {
	if initMetrics() != nil {
		return
	}
	splitsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind)))
}

// recordPlanningTable counts an implicit table change; op is "create" or
// "delete".
func recordPlanningTable(op string) {
	if initMetrics() != nil {
		return
	}
	planningTablesTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("op", op)))
}
