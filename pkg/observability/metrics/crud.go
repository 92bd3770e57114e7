package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomeSuccess labels a CRUD operation that produced data.
const OutcomeSuccess = "success"

var (
	// Labels: entity, operation, outcome (success or the error kind)
	crudOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crud_operations_total",
			Help: "Total number of service-level CRUD operations by outcome",
		},
		[]string{"entity", "operation", "outcome"},
	)

	// Labels: collection, operation, result (ok or error)
	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "document_store_operation_duration_seconds",
			Help:    "Duration of document store calls in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"collection", "operation", "result"},
	)
)

// RecordCRUDOperation counts one service call.
func RecordCRUDOperation(entity, operation, outcome string) {
	crudOperationsTotal.WithLabelValues(entity, operation, outcome).Inc()
}

// ObserveStoreOperation records the duration of a single store round trip.
func ObserveStoreOperation(collection, operation string, err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeOperationDuration.WithLabelValues(collection, operation, result).Observe(duration.Seconds())
}
