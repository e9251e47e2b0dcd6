// Package metrics holds the Prometheus collectors of the exchange backend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rwax"

var (
	chainOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "operations_total",
		Help:      "Count of chain RPC operations.",
	}, []string{"operation", "status"})
	chainOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "operation_duration_seconds",
		Help:      "Duration of chain RPC operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// ChainClient tracks metrics for calls made by the chain client.
type ChainClient struct{}

// NewChainClient constructs a metrics collector for chain calls.
func NewChainClient() *ChainClient {
	return &ChainClient{}
}

// Observe records a single chain call outcome and duration.
func (ChainClient) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	chainOperationsTotal.WithLabelValues(operation, status).Inc()
	chainOperationDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
