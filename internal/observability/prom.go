package observability

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Password hashing (CPU bound, bounded by semaphore)
	HashDuration   *prometheus.HistogramVec
	HashesInFlight prometheus.Gauge
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authhub",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "authhub",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "authhub",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "authhub",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authhub",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		HashDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "authhub",
				Subsystem: "password",
				Name:      "hash_duration_seconds",
				Help:      "bcrypt hash/compare latency by op and result.",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"op", "result"}, // op=hash|compare result=ok|mismatch|error
		),
		HashesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "authhub",
				Subsystem: "password",
				Name:      "hashes_in_flight",
				Help:      "Current number of bcrypt operations executing.",
			},
		),
	}
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.DbQueryDuration, p.DbErrorsTotal, p.HashDuration, p.HashesInFlight)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// ObserveHash records one bcrypt operation. Safe on a nil receiver so the
// security package works without metrics wired (tests, CLIs).
func (p *Prom) ObserveHash(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	p.HashesInFlight.Inc()
	defer p.HashesInFlight.Dec()

	start := time.Now()
	err := fn()

	result := "ok"
	switch {
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		result = "mismatch"
	case err != nil:
		result = "error"
	}

	p.HashDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
	return err
}
