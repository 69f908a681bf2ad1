package device

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buffersAllocated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bodkin_buffers_allocated_total",
		Help: "Total number of device buffer allocations",
	})

	buffersReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bodkin_buffers_released_total",
		Help: "Total number of device buffers freed",
	})

	bufferBytesInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bodkin_buffer_bytes_in_use",
		Help: "Current bytes held by live device buffers",
	})

	usmBytesInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bodkin_usm_bytes_in_use",
		Help: "Current bytes held by live USM allocations",
	})

	queueSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bodkin_queue_submissions_total",
		Help: "Total number of command groups submitted to queues",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bodkin_queue_depth",
		Help: "Commands currently enqueued and not yet executed",
	})
)
