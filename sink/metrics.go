package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const outcomeFailed = "failed"

var itemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
	Name: "sink_items_total",
	Help: "Posts handled by the sink, by outcome",
}, []string{"outcome"})
