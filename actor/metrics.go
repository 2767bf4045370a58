package actor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labelled metrics carry "subsystem" and "actor".

//nolint:gochecknoglobals
var latencyBuckets = []float64{
	0.001, // 1ms
	0.01,  // 10ms
	0.1,   // 100ms
	1,     // 1s
	10,    // 10s
	60,    // 1m
	300,   // 5m
}

var (
	actorStarted = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_started",
		Help: "The total number of actors started",
	})

	actorStopped = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_stopped",
		Help: "The total number of actors stopped",
	})

	aliveActors = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "actor_alive_actors",
		Help: "The total number of actors alive",
	}, []string{"subsystem", "actor"})

	actorPanic = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_panic",
		Help: "The total number of actors that recovered from a panic",
	}, []string{"subsystem", "actor"})

	// enqueuedMessages is sampled at each admission.
	enqueuedMessages = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "actor_enqueued_messages",
		Help: "The number of messages waiting in the mailbox",
	}, []string{"subsystem", "actor"})

	inFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "actor_in_flight_messages",
		Help: "The number of messages currently being handled",
	}, []string{"subsystem", "actor"})

	submitCount = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_submit_count",
		Help: "The total number of messages submitted",
	}, []string{"subsystem", "actor"})

	admittedMessages = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_admitted_messages",
		Help: "The total number of messages admitted for handling",
	}, []string{"subsystem", "actor"})

	rejectedMessages = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_rejected_messages",
		Help: "The total number of queued messages answered with mailbox closed",
	}, []string{"subsystem", "actor"})

	processedMessages = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "actor_processed_messages",
		Help: "The total number of messages processed",
	}, []string{"subsystem", "actor"})

	submitTime = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "actor_submit_time",
		Help:    "The time spent waiting for room in the mailbox",
		Buckets: latencyBuckets,
	}, []string{"subsystem", "actor"})

	receiveTime = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "actor_receive_time",
		Help:    "The time spent waiting for a reply",
		Buckets: latencyBuckets,
	}, []string{"subsystem", "actor"})

	processingTime = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "actor_processing_time",
		Help:    "The time spent processing a message",
		Buckets: latencyBuckets,
	}, []string{"subsystem", "actor"})
)
