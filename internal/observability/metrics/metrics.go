// Package metrics registra los collectors Prometheus del servicio.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once    sync.Once
	initErr error

	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	// Record engine
	recordOpsTotal     *prometheus.CounterVec
	recordOpDuration   *prometheus.HistogramVec
	hookFailuresTotal  *prometheus.CounterVec
	accessDenialsTotal *prometheus.CounterVec
	migrationsTotal    *prometheus.CounterVec
)

// Config dependencias para exponer /metrics.
type Config struct {
	// Registry donde registrar; nil = prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
	// Gatherer para el handler; nil = prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// Extra collectors opcionales (ej: stats del pool SQL).
	Extra []prometheus.Collector
}

// Register inicializa las métricas y devuelve el handler de /metrics.
func Register(cfg Config) (http.Handler, error) {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	once.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método y ruta",
		}, []string{"method", "path"})

		recordOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_record_operations_total",
			Help: "Operaciones sobre records por colección, operación y resultado",
		}, []string{"collection", "op", "result"}) // result: ok|error|hook_error

		recordOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cms_record_operation_duration_seconds",
			Help:    "Duración de operaciones sobre records",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"collection", "op"})

		hookFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_hook_failures_total",
			Help: "Fallos de hooks por colección y hook",
		}, []string{"collection", "hook"})

		accessDenialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_access_denials_total",
			Help: "Requests rechazadas por control de acceso",
		}, []string{"collection", "verb", "reason"})

		migrationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_record_migrations_total",
			Help: "Records migrados a la versión declarada de su colección",
		}, []string{"collection"})

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration, httpInflight,
			recordOpsTotal, recordOpDuration, hookFailuresTotal,
			accessDenialsTotal, migrationsTotal,
		} {
			if err := registerCollector(reg, c); err != nil {
				initErr = err
				return
			}
		}
	})
	if initErr != nil {
		return nil, initErr
	}

	for _, c := range cfg.Extra {
		if err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}

	if cfg.Gatherer != nil {
		return promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}), nil
	}
	return promhttp.Handler(), nil
}

// registerCollector registra ignorando duplicados.
func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// Las funciones Observe*/Record* son no-op hasta que se llama Register.

// HTTPStart marca un request en vuelo y retorna la función que lo cierra.
func HTTPStart(method, path string) func(status int) {
	if httpInflight == nil {
		return func(int) {}
	}
	httpInflight.WithLabelValues(method, path).Inc()
	start := time.Now()
	return func(status int) {
		httpInflight.WithLabelValues(method, path).Dec()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	}
}

// RecordOp registra una operación del record engine.
func RecordOp(collection, op, result string, d time.Duration) {
	if recordOpsTotal == nil {
		return
	}
	recordOpsTotal.WithLabelValues(collection, op, result).Inc()
	recordOpDuration.WithLabelValues(collection, op).Observe(d.Seconds())
}

// HookFailure cuenta un fallo de hook.
func HookFailure(collection, hook string) {
	if hookFailuresTotal != nil {
		hookFailuresTotal.WithLabelValues(collection, hook).Inc()
	}
}

// AccessDenied cuenta un rechazo del evaluador.
func AccessDenied(collection, verb, reason string) {
	if accessDenialsTotal != nil {
		accessDenialsTotal.WithLabelValues(collection, verb, reason).Inc()
	}
}

// RecordMigrated cuenta una migración de versión aplicada en un update.
func RecordMigrated(collection string) {
	if migrationsTotal != nil {
		migrationsTotal.WithLabelValues(collection).Inc()
	}
}

func statusLabel(code int) string {
	if code == 0 {
		code = http.StatusOK
	}
	return strconv.Itoa(code)
}
