package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "stars_party"
)

var (
	// FramesReceived counts frames read from the authority
	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames received from the party authority",
		},
		[]string{"kind"},
	)

	// FramesSent counts frames written to the authority
	FramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames sent to the party authority",
		},
		[]string{"kind", "status"}, // status: ok/error
	)

	// MalformedFrames counts frames that could not be decoded or applied
	MalformedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Inbound frames discarded as malformed",
		},
	)

	// DialAttempts counts connection attempts by outcome
	DialAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dial_attempts_total",
			Help:      "Connection attempts to the party authority",
		},
		[]string{"status"}, // ok/error
	)

	// Connected is 1 while the upstream connection is live
	Connected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "Whether the authority connection is up",
		},
	)

	// Viewers tracks subscribed local viewers
	Viewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "viewers",
			Help:      "Local viewers subscribed to the session",
		},
	)

	// ViewersDropped counts viewers dropped for falling behind
	ViewersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "viewers_dropped_total",
			Help:      "Viewers dropped because their outbox was full",
		},
	)

	// Notices counts toasts by level
	Notices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notices_total",
			Help:      "Notifications shown, by level",
		},
		[]string{"level"},
	)
)
