package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	events   *prometheus.CounterVec
	fanout   prometheus.Counter
	control  *prometheus.CounterVec
	rejects  *prometheus.CounterVec
	sessions prometheus.Gauge
	users    prometheus.Gauge
	rooms    prometheus.Gauge
	saves    *prometheus.CounterVec
	saveTime prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coopcanvas",
			Name:      "events_total",
			Help:      "Datagram events received, by type",
		}, []string{"type"}),

		fanout: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "coopcanvas",
			Name:      "event_forwards_total",
			Help:      "Datagram events forwarded to other peers",
		}),

		control: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coopcanvas",
			Name:      "control_messages_total",
			Help:      "Control messages received, by type",
		}, []string{"type"}),

		rejects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coopcanvas",
			Name:      "rejects_total",
			Help:      "Refused control requests, by reason",
		}, []string{"reason"}),

		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "coopcanvas",
			Name:      "sessions",
			Help:      "Open control connections",
		}),

		users: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "coopcanvas",
			Name:      "users",
			Help:      "Logged in users across all rooms",
		}),

		rooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "coopcanvas",
			Name:      "rooms",
			Help:      "Rooms created since start",
		}),

		saves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coopcanvas",
			Name:      "saves_total",
			Help:      "Snapshot writes, by result",
		}, []string{"result"}),

		saveTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coopcanvas",
			Name:      "save_duration_seconds",
			Help:      "Time spent encoding and writing a snapshot",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
