package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/woedy/ProxyHome/internal/database"
)

var (
	// ProxiesFetched counts harvested candidates before deduplication.
	ProxiesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proxyhome",
		Name:      "proxies_fetched_total",
		Help:      "Candidates harvested from sources, by tier.",
	}, []string{"tier"})

	// ProbesTotal counts validation probes by outcome.
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proxyhome",
		Name:      "probes_total",
		Help:      "Validation probes, by result.",
	}, []string{"result"})

	// JobsTotal counts fetch jobs reaching a terminal status.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proxyhome",
		Name:      "fetch_jobs_total",
		Help:      "Fetch jobs by type and terminal status.",
	}, []string{"type", "status"})

	// ProbeSeconds tracks the latency of successful probes.
	ProbeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "proxyhome",
		Name:      "probe_duration_seconds",
		Help:      "Latency of successful validation probes.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "proxyhome",
		Name:      "working_proxies",
		Help:      "Proxies whose most recent probe succeeded.",
	}, func() float64 {
		count, err := database.CountWorkingProxies()
		if err != nil {
			return 0
		}
		return float64(count)
	})
)
