package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nazeru/storefront-checkout-go/pkg/action"
	"github.com/nazeru/storefront-checkout-go/pkg/store"
)

const namespace = "storefront"

var latencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

// NewServerMetrics registers HTTP server metrics on reg, or on the default
// registerer when reg is nil.
func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   latencyBuckets,
	}, []string{"handler"})

	registerer(reg).MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Observe records one handled request.
func (m *ServerMetrics) Observe(handler string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
}

// ClientMetrics tracks outbound requests to the commerce backend.
type ClientMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewClientMetrics(reg prometheus.Registerer, service string) *ClientMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "backend_requests_total",
		Help:      "Total number of requests sent to the commerce backend.",
	}, []string{"method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "backend_request_duration_ms",
		Help:      "Commerce backend request latency in milliseconds.",
		Buckets:   latencyBuckets,
	}, []string{"method"})

	registerer(reg).MustRegister(requests, latency)
	return &ClientMetrics{Requests: requests, LatencyMS: latency}
}

// Observe records one outbound request; status 0 means a transport error.
func (m *ClientMetrics) Observe(method string, status int, start time.Time) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(method, label).Inc()
	m.LatencyMS.WithLabelValues(method).Observe(float64(time.Since(start).Milliseconds()))
}

// ActionMiddleware counts dispatched actions by type and outcome.
func ActionMiddleware[S any](reg prometheus.Registerer, service string) store.Middleware[S] {
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "actions_dispatched_total",
		Help:      "Total number of actions dispatched into the store.",
	}, []string{"type", "error"})
	registerer(reg).MustRegister(dispatched)

	return func(getState func() S, next store.DispatchFunc) store.DispatchFunc {
		return func(a action.Action) {
			next(a)
			dispatched.WithLabelValues(a.Type.String(), strconv.FormatBool(a.Error)).Inc()
		}
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func registerer(reg prometheus.Registerer) prometheus.Registerer {
	if reg == nil {
		return prometheus.DefaultRegisterer
	}
	return reg
}
