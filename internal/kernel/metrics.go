package kernel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var kernelRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "graphblas_kernel_runs_total",
	Help: "Total kernel executions, by algorithm variant",
}, []string{"variant"})
