package flow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autostate",
		Subsystem: "flow",
		Name:      "actions_total",
		Help:      "Action invocations by action and result.",
	}, []string{"action", "result"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autostate",
		Subsystem: "flow",
		Name:      "order_notifications_total",
		Help:      "Order notifications by result.",
	}, []string{"result"})
)
