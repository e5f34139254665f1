package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stagecoach_status_cache_hits_total",
		Help: "Status requests answered from the fresh cache without an upstream fetch.",
	})

	refetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stagecoach_status_refetch_attempts_total",
		Help: "Upstream directory fetch attempts.",
	})

	refetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stagecoach_status_refetch_failures_total",
		Help: "Upstream directory fetch attempts that failed.",
	})

	responses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagecoach_status_responses_total",
		Help: "Status responses served, by outcome.",
	}, []string{"outcome"})
)
