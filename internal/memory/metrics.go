package memory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storagesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bodkin_storages_created_total",
		Help: "Total storage objects created, by memory API kind",
	}, []string{"kind"})

	mapWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bodkin_map_waits_total",
		Help: "Host mappings that synchronized with pending device work",
	})
)
