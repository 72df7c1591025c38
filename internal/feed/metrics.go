package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesRecordedTotal tracks recorded feed messages by type.
	MessagesRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obreplay_feed_messages_recorded_total",
			Help: "Total number of feed messages written to the raw file",
		},
		[]string{"type"},
	)

	// BytesRecordedTotal tracks raw bytes written.
	BytesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_feed_bytes_recorded_total",
		Help: "Total number of raw bytes written",
	})

	// ReconnectAttemptsTotal tracks reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_feed_reconnect_attempts_total",
		Help: "Total number of reconnection attempts",
	})

	// ReconnectFailuresTotal tracks failed reconnection attempts.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_feed_reconnect_failures_total",
		Help: "Total number of failed reconnection attempts",
	})
)
