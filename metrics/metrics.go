package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spinner_rooms_created_total",
		Help: "Number of rooms created since process start.",
	})
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spinner_ws_connections",
		Help: "Number of currently bound websocket sessions.",
	})
	EventsBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spinner_events_broadcast_total",
		Help: "Number of events fanned out to room members.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
