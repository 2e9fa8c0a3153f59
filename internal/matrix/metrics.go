package matrix

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var conversions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "graphblas_format_conversions_total",
	Help: "Total number of format conversions, by source and target format",
}, []string{"from", "to"})
