package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studyhall",
		Subsystem: "chat",
		Name:      "messages_sent_total",
		Help:      "Messages persisted, duplicates excluded.",
	})
	broadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studyhall",
		Subsystem: "chat",
		Name:      "broadcast_failures_total",
		Help:      "Failed realtime broadcasts of sent messages.",
	})
	notifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studyhall",
		Subsystem: "chat",
		Name:      "notify_failures_total",
		Help:      "Failed notification deliveries, push and realtime.",
	})
)
