package replay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsSelectedTotal tracks market selections.
	MarketsSelectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_replay_markets_selected_total",
		Help: "Total number of market selections",
	})

	// OperationErrorsTotal tracks failed replay operations.
	OperationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "obreplay_replay_operation_errors_total",
		Help: "Total number of failed replay operations",
	})
)
