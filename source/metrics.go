package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	itemsFetched = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "source_items_fetched_total",
		Help: "Posts fetched from the photo service",
	})

	itemsForwarded = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "source_items_forwarded_total",
		Help: "Posts the sink accepted",
	})

	profileCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "source_profile_cache_lookups_total",
		Help: "Profile cache lookups, by result",
	}, []string{"result"})
)
