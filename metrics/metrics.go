// Package metrics exposes prometheus collectors for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_connections_active",
		Help: "Live websocket connections.",
	})

	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_rooms_active",
		Help: "Rooms currently held by the registry.",
	})

	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_messages_received_total",
		Help: "Accepted inbound edit messages by record type.",
	}, []string{"type"})

	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_messages_dropped_total",
		Help: "Inbound messages dropped before any room mutation, by reason.",
	}, []string{"reason"})

	BroadcastFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_broadcast_frames_total",
		Help: "Frames fanned out to room clients.",
	})
)

// Handler serves the prometheus exposition endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
