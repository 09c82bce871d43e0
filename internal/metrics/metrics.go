// Package metrics holds the process-wide instrumentation counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tinysocial_socket_connects_total",
		Help: "Successful websocket connections, including reconnects.",
	})

	FramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tinysocial_frames_received_total",
		Help: "Inbound frames handed to the dispatcher.",
	})

	KeepAlives = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tinysocial_keepalive_pings_total",
		Help: "Keep-alive pings written to the socket.",
	})

	DroppedSends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tinysocial_dropped_sends_total",
		Help: "Outbound frames dropped because the socket was down.",
	})

	EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tinysocial_events_dispatched_total",
		Help: "Decoded inbound events routed to a state mutation, by kind.",
	}, []string{"kind"})

	UnrecognizedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tinysocial_unrecognized_frames_total",
		Help: "Inbound frames with no usable type marker, discarded.",
	})
)
