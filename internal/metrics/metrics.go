// Package metrics define las métricas Prometheus del servicio. Vive en un
// paquete propio para que social, store y http las usen sin ciclos.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/socialconnect/internal/store"
)

// Metrics agrupa los collectors de un registry.
type Metrics struct {
	registry *prometheus.Registry

	SocialOutcomes    *prometheus.CounterVec
	ConnectionChanges *prometheus.CounterVec
	ProviderLatency   *prometheus.HistogramVec
	OAuthExchanges    *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec
	rateLimited         *prometheus.CounterVec
}

// New crea y registra las métricas. Con reg nil usa un registry propio
// (útil en tests); Handler expone siempre el registry usado.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		SocialOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "social_signin_outcomes_total",
			Help: "Resultados del flujo social por provider, flujo y resultado",
		}, []string{"provider", "flow", "outcome"}),
		ConnectionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "social_connection_changes_total",
			Help: "Altas y bajas de conexiones por provider",
		}, []string{"provider", "op"}), // op: added|removed|rejected
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "social_provider_call_duration_seconds",
			Help:    "Latencia de las llamadas a la API del provider",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"provider", "call"}),
		OAuthExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "social_oauth_exchanges_total",
			Help: "Intercambios contra el token endpoint por provider, grant y resultado",
		}, []string{"provider", "grant", "result"}), // result: ok|error
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método y ruta",
		}, []string{"method", "path"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rechazadas por rate limit",
		}, []string{"path"}),
	}
	for _, c := range []prometheus.Collector{
		m.SocialOutcomes, m.ConnectionChanges, m.ProviderLatency, m.OAuthExchanges,
		m.httpRequestsTotal, m.httpRequestDuration, m.httpInflight, m.rateLimited,
	} {
		if err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RegisterPool expone las stats del pool de la conexión si las tiene.
func (m *Metrics) RegisterPool(conn store.AdapterConnection) error {
	ps, ok := conn.(store.PoolStatser)
	if !ok {
		return nil
	}
	return registerCollector(m.registry, newPoolCollector(conn.Name(), ps))
}

// Handler expone /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome implementa social.OutcomeRecorder.
func (m *Metrics) Outcome(providerID, flow, outcome string) {
	m.SocialOutcomes.WithLabelValues(providerID, flow, outcome).Inc()
}

// ConnectionChanged registra una alta, baja o rechazo.
func (m *Metrics) ConnectionChanged(providerID, op string) {
	m.ConnectionChanges.WithLabelValues(providerID, op).Inc()
}

// ObserveProviderCall registra la duración de una llamada al provider.
func (m *Metrics) ObserveProviderCall(providerID, call string, d time.Duration) {
	m.ProviderLatency.WithLabelValues(providerID, call).Observe(d.Seconds())
}

// OAuthExchange registra un intercambio de tokens.
func (m *Metrics) OAuthExchange(providerID, grant string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OAuthExchanges.WithLabelValues(providerID, grant, result).Inc()
}

// RateLimited registra un rechazo del rate limiter.
func (m *Metrics) RateLimited(path string) {
	m.rateLimited.WithLabelValues(normalizePath(path)).Inc()
}

// registerCollector registra el collector, ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// poolCollector expone gauges del pool de la DB de conexiones.
type poolCollector struct {
	stats store.PoolStatser

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func newPoolCollector(engine string, stats store.PoolStatser) *poolCollector {
	labels := prometheus.Labels{"engine": engine}
	return &poolCollector{
		stats:        stats,
		acquiredDesc: prometheus.NewDesc("db_pool_acquired", "Conexiones de DB adquiridas", nil, labels),
		idleDesc:     prometheus.NewDesc("db_pool_idle", "Conexiones de DB inactivas", nil, labels),
		totalDesc:    prometheus.NewDesc("db_pool_total", "Conexiones de DB totales", nil, labels),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.stats.PoolStats()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(st.Acquired))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(st.Idle))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(st.Total))
}
