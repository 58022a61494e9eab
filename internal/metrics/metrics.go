package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchesLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symbol_loader_batches_inserted_total",
		Help: "Batches inserted inside a load transaction, before commit",
	}, []string{"table"})

	RowsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symbol_loader_rows_inserted_total",
		Help: "Rows inserted inside a load transaction, before commit",
	}, []string{"table"})

	RowsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symbol_loader_rows_committed_total",
		Help: "Rows made visible by a committed load",
	}, []string{"table"})

	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symbol_loader_runs_total",
		Help: "Pipeline runs by outcome",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "symbol_loader_stage_duration_seconds",
		Help:    "Time spent in each pipeline stage",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"stage"})
)
