package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventures",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eventures",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})

	// Upstream fetch metrics
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventures",
		Subsystem: "fetch",
		Name:      "pages_total",
		Help:      "Total result pages downloaded from the event API",
	})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventures",
		Subsystem: "fetch",
		Name:      "errors_total",
		Help:      "Total failed page downloads by error kind",
	}, []string{"kind"})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eventures",
		Subsystem: "fetch",
		Name:      "duration_seconds",
		Help:      "Duration of single page downloads",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "eventures",
		Subsystem: "fetch",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	// Pipeline metrics
	RecordsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventures",
		Subsystem: "pipeline",
		Name:      "records_total",
		Help:      "Total event records decoded from result pages",
	})

	RecordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventures",
		Subsystem: "pipeline",
		Name:      "records_skipped_total",
		Help:      "Total items excluded from aggregation by reason",
	}, []string{"reason"})

	UniqueLocations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eventures",
		Subsystem: "pipeline",
		Name:      "unique_locations",
		Help:      "Unique locations produced by the most recent run",
	})

	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventures",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total ingestion runs by outcome and failing stage",
	}, []string{"outcome", "stage"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eventures",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Duration of complete ingestion runs",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventures",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventures",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	MarkersPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventures",
		Subsystem: "publish",
		Name:      "batches_total",
		Help:      "Total marker batches published to the message broker",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
