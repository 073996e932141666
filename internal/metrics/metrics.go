// Package metrics holds the broker's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks currently connected clients.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mqttd_active_connections",
		Help: "Number of currently connected MQTT clients",
	})

	// PacketsReceived counts packets read off the wire, by kind.
	PacketsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mqttd_packets_received_total",
		Help: "Total number of MQTT packets received, by kind",
	}, []string{"kind"})

	// PacketsSent counts packets written to the wire, by kind.
	PacketsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mqttd_packets_sent_total",
		Help: "Total number of MQTT packets sent, by kind",
	}, []string{"kind"})

	// PacketsRejected counts packets the dispatcher refused, by reason.
	PacketsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mqttd_packets_rejected_total",
		Help: "Total number of packets rejected by the dispatcher, by reason code",
	}, []string{"reason"})

	// DispatcherQueueDepth tracks how many PacketInfo entries are
	// currently queued for the dispatcher to consume.
	DispatcherQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mqttd_dispatcher_queue_depth",
		Help: "Number of packets currently queued for the dispatcher",
	})

	// SubscriptionsActive tracks live entries in the subscription index.
	SubscriptionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mqttd_subscriptions_active",
		Help: "Number of active topic filter subscriptions",
	})
)
