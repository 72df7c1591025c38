package traverse

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal tracks traverser operations by kind.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obreplay_traverse_operations_total",
			Help: "Total number of traverser operations",
		},
		[]string{"op"},
	)

	// RecordsAppliedTotal tracks delta records applied to the live state.
	RecordsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_traverse_records_applied_total",
		Help: "Total number of delta records applied",
	})

	// CheckpointsStoredTotal tracks checkpoints inserted into the cache.
	CheckpointsStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_traverse_checkpoints_stored_total",
		Help: "Total number of checkpoints inserted into the cache",
	})

	// CacheHitsTotal tracks seeks served from a checkpoint.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_traverse_cache_hits_total",
		Help: "Total number of seeks restored from a checkpoint",
	})

	// CacheMissesTotal tracks seeks that had to restart from the snapshot.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_traverse_cache_misses_total",
		Help: "Total number of seeks with no usable checkpoint",
	})

	// ReadLoopDuration tracks time spent in the transcript read loop.
	ReadLoopDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "obreplay_traverse_read_loop_duration_seconds",
		Help:    "Time spent reading and applying transcript records",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)
