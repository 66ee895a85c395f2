package command

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("cmmnedit.command")

var (
	commandsTotal  metric.Int64Counter
	rollbacksTotal metric.Int64Counter
	undoTotal      metric.Int64Counter
	redoTotal      metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments once. Until the host installs a
// meter provider they are no-ops.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		commandsTotal, err = meter.Int64Counter(
			"cmmnedit_commands_total",
			metric.WithDescription("Top-level commands executed successfully"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rollbacksTotal, err = meter.Int64Counter(
			"cmmnedit_rollbacks_total",
			metric.WithDescription("Atomic operations rolled back after a failure"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		undoTotal, err = meter.Int64Counter(
			"cmmnedit_undo_total",
			metric.WithDescription("Atomic operations undone"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		redoTotal, err = meter.Int64Counter(
			"cmmnedit_redo_total",
			metric.WithDescription("Atomic operations redone"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordExecuted(command string) {
	if initMetrics() != nil {
		return
	}
	commandsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("command", command)))
}

func recordRollback(command string) {
	if initMetrics() != nil {
		return
	}
	rollbacksTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("command", command)))
}

func recordUndo() {
	if initMetrics() != nil {
		return
	}
	undoTotal.Add(context.Background(), 1)
}

func recordRedo() {
	if initMetrics() != nil {
		return
	}
	redoTotal.Add(context.Background(), 1)
}
