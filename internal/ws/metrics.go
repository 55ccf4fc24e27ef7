package ws

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Currently open websocket connections",
		},
	)
	ActiveRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_rooms",
			Help: "Rooms currently held in the store",
		},
	)
	HubRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_requests_total",
			Help: "Requests processed by the hub",
		},
		[]string{"type"},
	)
	EventsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_sent_total",
			Help: "Events fanned out to endpoints",
		},
		[]string{"type"},
	)
	DroppedFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_dropped_frames_total",
			Help: "Inbound frames dropped as malformed",
		},
	)
)

func init() {
	prometheus.MustRegister(ActiveConnections)
	prometheus.MustRegister(ActiveRooms)
	prometheus.MustRegister(HubRequests)
	prometheus.MustRegister(EventsSent)
	prometheus.MustRegister(DroppedFrames)
}
