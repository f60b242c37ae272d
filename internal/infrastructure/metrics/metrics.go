package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Ventas-api/internal/application/checkout"
)

var _ checkout.Recorder = (*Metrics)(nil)

// Metrics métricas Prometheus de la API de ventas, con registro propio.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	FinalizeTotal          *prometheus.CounterVec
	FinalizeDuration       *prometheus.HistogramVec
	LineMutationsTotal     *prometheus.CounterVec
	InsufficientStockTotal *prometheus.CounterVec
}

// New registra las métricas bajo el namespace dado (p. ej. "ventas").
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total de requests HTTP",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de requests HTTP en segundos",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
	m.FinalizeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "finalize_total",
			Help:      "Finalizaciones de venta por resultado",
		},
		[]string{"outcome"},
	)
	m.FinalizeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "finalize_duration_seconds",
			Help:      "Duración de la finalización (transacción incluida)",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	m.LineMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "line_mutations_total",
			Help:      "Mutaciones de líneas (add, update, remove) por resultado",
		},
		[]string{"op", "outcome"},
	)
	m.InsufficientStockTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "insufficient_stock_products_total",
			Help:      "Productos rechazados por stock insuficiente",
		},
		[]string{"op"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.FinalizeTotal,
		m.FinalizeDuration,
		m.LineMutationsTotal,
		m.InsufficientStockTotal,
	)
	return m
}

// Handler expone el registro en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry devuelve el registro (tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest registra un request terminado.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) ObserveFinalize(outcome string, elapsed time.Duration) {
	m.FinalizeTotal.WithLabelValues(outcome).Inc()
	m.FinalizeDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) CountLineMutation(op, outcome string) {
	m.LineMutationsTotal.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) CountInsufficientStock(op string, products int) {
	m.InsufficientStockTotal.WithLabelValues(op).Add(float64(products))
}
