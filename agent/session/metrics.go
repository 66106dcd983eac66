package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "autostate",
	Subsystem: "session",
	Name:      "started_total",
	Help:      "Sessions started, by whether a durable row was created.",
}, []string{"mode"})
