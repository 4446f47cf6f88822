package backendsvc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wings",
	Subsystem: "backend",
	Name:      "requests_total",
	Help:      "Backend requests by operation and outcome.",
}, []string{"op", "outcome"})
