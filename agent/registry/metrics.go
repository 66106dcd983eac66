package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "autostate",
	Subsystem: "flow",
	Name:      "transitions_total",
	Help:      "Stage transitions by source and target stage.",
}, []string{"from", "to"})
