// Package metrics expone los contadores Prometheus del servicio.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los colectores sobre un registro propio. Los métodos aceptan
// receptor nil y en ese caso no hacen nada.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	tokensIssued        *prometheus.CounterVec
	tokenRejections     *prometheus.CounterVec
	membershipRejected  *prometheus.CounterVec
	mailFailures        *prometheus.CounterVec
}

// New crea y registra los colectores, más los de proceso y runtime de Go.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Peticiones HTTP en curso.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total de peticiones HTTP.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latencia de las peticiones HTTP en segundos.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens emitidos por tipo.",
		}, []string{"type"}),
		tokenRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_rejections_total",
			Help:      "Tokens rechazados por tipo esperado.",
		}, []string{"type"}),
		membershipRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_rejections_total",
			Help:      "Mutaciones de vínculos rechazadas por motivo.",
		}, []string{"reason"}),
		mailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_failures_total",
			Help:      "Correos que no se pudieron entregar.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.tokensIssued,
		m.tokenRejections,
		m.membershipRejected,
		m.mailFailures,
	)
	return m
}

// Handler handler HTTP de exposición en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry registro subyacente (tests).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// InFlight incrementa (delta=1) o decrementa (delta=-1) las peticiones en curso.
func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.httpInFlight.Add(delta)
}

// ObserveRequest registra una petición terminada.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.httpRequestDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}

// TokenIssued cuenta un token emitido.
func (m *Metrics) TokenIssued(typ string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(typ).Inc()
}

// TokenRejected cuenta un token rechazado.
func (m *Metrics) TokenRejected(typ string) {
	if m == nil {
		return
	}
	m.tokenRejections.WithLabelValues(typ).Inc()
}

// MembershipRejected cuenta una mutación de vínculo rechazada.
func (m *Metrics) MembershipRejected(reason string) {
	if m == nil {
		return
	}
	m.membershipRejected.WithLabelValues(reason).Inc()
}

// MailFailed cuenta un envío fallido.
func (m *Metrics) MailFailed(kind string) {
	if m == nil {
		return
	}
	m.mailFailures.WithLabelValues(kind).Inc()
}
