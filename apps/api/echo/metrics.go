package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "wings",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "API request latencies by route and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)

		// on error, the error handler has not written the response yet
		status := strconv.Itoa(ctx.Response().Status)
		if herr, ok := err.(*echo.HTTPError); ok {
			status = strconv.Itoa(herr.Code)
		} else if err != nil {
			status = "error"
		}
		requestDuration.
			WithLabelValues(ctx.Request().Method, ctx.Path(), status).
			Observe(time.Since(start).Seconds())
		return err
	}
}
