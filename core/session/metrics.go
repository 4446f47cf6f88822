package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	navigationsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wings",
		Subsystem: "session",
		Name:      "navigations_denied_total",
		Help:      "Admin navigations refused for lack of capability.",
	})

	staleResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wings",
		Subsystem: "session",
		Name:      "stale_results_total",
		Help:      "Backend results discarded because the view or modal they were fetched for is gone.",
	}, []string{"kind"})

	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wings",
		Subsystem: "session",
		Name:      "submissions_total",
		Help:      "Draft submissions by kind and outcome.",
	}, []string{"kind", "outcome"})
)
