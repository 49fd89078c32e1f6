package middleware

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/imago-dev/imago/pkg/imaerr"
	"github.com/imago-dev/imago/pkg/page"
	"github.com/imago-dev/imago/pkg/route"
	"github.com/imago-dev/imago/pkg/router"
)

// MetricsConfig configures the Prometheus middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "imago").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets of page durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is where metrics are registered.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "imago",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metrics struct {
	pagesTotal    *prometheus.CounterVec
	pageDuration  *prometheus.HistogramVec
	pageErrors    *prometheus.CounterVec
	inFlight      prometheus.Gauge
	responsesSent *prometheus.CounterVec
}

// Metrics are registered once per process, on the registry of the first
// Prometheus call.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		pagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pages_total",
			Help:        "Total number of managed pages by route and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "status"}),

		pageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "page_duration_seconds",
			Help:        "Time to load and render a page in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		pageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "page_errors_total",
			Help:        "Total number of pages that failed to load or render",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "error_type"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pages_in_flight",
			Help:        "Number of pages being loaded",
			ConstLabels: config.ConstLabels,
		}),

		responsesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "responses_total",
			Help:        "Total number of HTTP responses sent by status code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),
	}
}

// Prometheus creates middleware that collects metrics of managed pages:
//   - imago_pages_total: pages by route and status ("aborted" or "error"
//     when no page was rendered)
//   - imago_page_duration_seconds: duration of Manage by route
//   - imago_page_errors_total: failures by route and error type
//   - imago_pages_in_flight: pages being loaded
//   - imago_responses_total: HTTP responses, see RecordResponse
func Prometheus(opts ...MetricsOption) Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return func(next router.PageManager) router.PageManager {
		return ManagerFunc(func(ctx context.Context, h route.Handler, options route.Options, params route.Params, action page.Action) (*page.Response, error) {
			name := h.Name()

			m.inFlight.Inc()
			start := time.Now()
			resp, err := next.Manage(ctx, h, options, params, action)
			m.pageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			m.inFlight.Dec()

			status := "error"
			switch {
			case errors.Is(err, page.ErrNavigationAborted):
				status = "aborted"
			case err != nil:
				m.pageErrors.WithLabelValues(name, categorizeError(err)).Inc()
			case resp != nil && resp.Status != 0:
				status = strconv.Itoa(resp.Status)
			default:
				status = "200"
			}
			m.pagesTotal.WithLabelValues(name, status).Inc()
			return resp, err
		})
	}
}

// categorizeError keeps the error_type label low-cardinality.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case imaerr.IsRedirection(err):
		return "redirect"
	case imaerr.IsClientError(err):
		return "client"
	default:
		return "internal"
	}
}

// RecordResponse counts a sent HTTP response. The application calls it
// once per request.
func RecordResponse(status int) {
	globalMetricsMu.Lock()
	m := globalMetrics
	globalMetricsMu.Unlock()
	if m != nil {
		m.responsesSent.WithLabelValues(strconv.Itoa(status)).Inc()
	}
}

// Collector exposes the metrics for custom registrations.
type Collector struct {
	PagesTotal    *prometheus.CounterVec
	PageDuration  *prometheus.HistogramVec
	PageErrors    *prometheus.CounterVec
	InFlight      prometheus.Gauge
	ResponsesSent *prometheus.CounterVec
}

// GetMetrics returns the metrics, or nil before Prometheus is first called.
func GetMetrics() *Collector {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		return nil
	}
	return &Collector{
		PagesTotal:    globalMetrics.pagesTotal,
		PageDuration:  globalMetrics.pageDuration,
		PageErrors:    globalMetrics.pageErrors,
		InFlight:      globalMetrics.inFlight,
		ResponsesSent: globalMetrics.responsesSent,
	}
}
