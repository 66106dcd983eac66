package persist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autostate",
		Subsystem: "persist",
		Name:      "writes_total",
		Help:      "Write-behind jobs by operation and result.",
	}, []string{"op", "result"})

	writesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autostate",
		Subsystem: "persist",
		Name:      "writes_dropped_total",
		Help:      "Write-behind jobs dropped before running.",
	}, []string{"op", "reason"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "autostate",
		Subsystem: "persist",
		Name:      "queue_depth",
		Help:      "Jobs waiting in the write-behind queue.",
	})
)
