package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lysyi3m/milestone-timeline/app/timeline"
)

var _ timeline.Observer = (*Metrics)(nil)

type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	loadsTotal        *prometheus.CounterVec
	loadDuration      prometheus.Histogram
	milestones        prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		loadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timeline_loads_total",
			Help: "Timeline load attempts by outcome (success, fetch, decode, normalization, unknown).",
		}, []string{"outcome"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timeline_load_duration_seconds",
			Help:    "Histogram of timeline load durations, fallbacks included.",
			Buckets: prometheus.DefBuckets,
		}),
		milestones: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timeline_milestones",
			Help: "Number of milestones returned by the latest load.",
		}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.loadsTotal,
		m.loadDuration,
		m.milestones,
	)

	return m
}

func (m *Metrics) ObserveLoad(result timeline.LoadResult) {
	outcome := "success"
	if result.Fallback {
		outcome = result.FailureKind
	}
	m.loadsTotal.WithLabelValues(outcome).Inc()
	m.loadDuration.Observe(result.Duration.Seconds())
	m.milestones.Set(float64(result.Milestones))
}

// Middleware records request counts and durations keyed by route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
