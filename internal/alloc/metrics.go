package alloc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var allocFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "graphblas_alloc_failures_total",
	Help: "Total number of failed storage allocations",
})

// ReportFailure records an allocation failure from an external allocator.
func ReportFailure() {
	allocFailures.Inc()
}
