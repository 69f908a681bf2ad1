package compute

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bodkin_dispatches_total",
		Help: "Kernel dispatches submitted to a queue",
	})

	dispatchNoops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bodkin_dispatch_noops_total",
		Help: "Dispatches skipped because the range was zero",
	})

	dispatchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bodkin_dispatch_errors_total",
		Help: "Dispatches that failed before or during submission",
	})
)
