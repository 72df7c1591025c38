package compress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal tracks raw feed messages consumed, by message type.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obreplay_compress_messages_total",
			Help: "Total number of raw feed messages consumed",
		},
		[]string{"type"},
	)

	// RecordsEmittedTotal tracks compressed delta records emitted.
	RecordsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_compress_records_emitted_total",
		Help: "Total number of compressed delta records emitted",
	})

	// EmptyDeltasTotal tracks inputs that changed nothing within the top-N.
	EmptyDeltasTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_compress_empty_deltas_total",
		Help: "Total number of inputs producing no compressed record",
	})

	// UnknownLevelDeletesTotal tracks deletes for levels that never existed.
	UnknownLevelDeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_compress_unknown_level_deletes_total",
		Help: "Total number of delete updates for levels not present in the book",
	})

	// ProcessingDuration tracks per-message compression time.
	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "obreplay_compress_processing_duration_seconds",
		Help:    "Time to compress a single raw message",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	// CompressionRatio tracks output/input byte ratio of the last file run.
	CompressionRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "obreplay_compress_ratio",
		Help: "Output/input byte ratio of the most recent file compression",
	})
)
