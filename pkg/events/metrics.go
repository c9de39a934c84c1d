package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink turns events into Prometheus metrics.
type MetricsSink struct {
	fetched      *prometheus.CounterVec
	pushed       *prometheus.CounterVec
	discarded    *prometheus.CounterVec
	conflicts    *prometheus.CounterVec
	entityErrors *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
}

// NewMetricsSink creates the collectors and registers them with reg.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	m := &MetricsSink{
		fetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hubsync",
				Subsystem: "sync",
				Name:      "records_fetched_total",
				Help:      "Total number of records fetched by side and entity",
			},
			[]string{"side", "entity"},
		),
		pushed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hubsync",
				Subsystem: "sync",
				Name:      "records_pushed_total",
				Help:      "Total number of record pushes by side, entity and result",
			},
			[]string{"side", "entity", "result"},
		),
		discarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hubsync",
				Subsystem: "sync",
				Name:      "records_discarded_total",
				Help:      "Total number of records discarded during consolidation by reason",
			},
			[]string{"entity", "reason"},
		),
		conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hubsync",
				Subsystem: "sync",
				Name:      "conflicts_total",
				Help:      "Total number of conflicts by winning side",
			},
			[]string{"entity", "winner"},
		),
		entityErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hubsync",
				Subsystem: "sync",
				Name:      "entity_failures_total",
				Help:      "Total number of aborted entity synchronizations",
			},
			[]string{"entity"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hubsync",
				Subsystem: "sync",
				Name:      "runs_total",
				Help:      "Total number of organization synchronizations by status",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hubsync",
				Subsystem: "sync",
				Name:      "run_duration_seconds",
				Help:      "Duration of organization synchronizations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
			},
			[]string{"status"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.fetched, m.pushed, m.discarded, m.conflicts, m.entityErrors, m.runs, m.runDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Emit implements Sink.
func (m *MetricsSink) Emit(_ context.Context, e Event) {
	switch e.Stage {
	case FetchDone:
		m.fetched.WithLabelValues(e.Side, e.Entity).Add(float64(e.Count))
	case RecordPushed:
		m.pushed.WithLabelValues(e.Side, e.Entity, "success").Inc()
	case RecordFailed:
		m.pushed.WithLabelValues(e.Side, e.Entity, "error").Inc()
	case Discard:
		m.discarded.WithLabelValues(e.Entity, e.Reason).Inc()
	case Conflict:
		m.conflicts.WithLabelValues(e.Entity, e.Side).Inc()
	case EntityFailed:
		m.entityErrors.WithLabelValues(e.Entity).Inc()
	case SyncDone:
		m.runs.WithLabelValues(e.Reason).Inc()
		m.runDuration.WithLabelValues(e.Reason).Observe(e.Duration.Seconds())
	}
}
