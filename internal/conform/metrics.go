package conform

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var conformFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "graphblas_conform_failures_total",
	Help: "Conform calls that failed and cleared the matrix",
})
