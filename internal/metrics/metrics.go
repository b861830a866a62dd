// Package metrics собирает метрики операций над дисками и плейлистами.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"XmediaCenter/internal/apperr"
)

// Ops записывает результат и длительность операции.
type Ops interface {
	Observe(op string, err error, d time.Duration)
}

// Noop — реализация для выключенных метрик.
type Noop struct{}

func (Noop) Observe(string, error, time.Duration) {}

// Registry — метрики сервера на собственном prometheus.Registry.
type Registry struct {
	reg      *prometheus.Registry
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New создаёт реестр с метриками операций и стандартными коллекторами процесса.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg: reg,
		total: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "xms_operations_total",
				Help: "Total number of core operations by name and result kind",
			},
			[]string{"op", "kind"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xms_operation_duration_seconds",
				Help:    "Duration of core operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

// Observe учитывает операцию; kind "ok" для успешных.
func (r *Registry) Observe(op string, err error, d time.Duration) {
	kind := "ok"
	if err != nil {
		kind = string(apperr.KindOf(err))
	}
	r.total.WithLabelValues(op, kind).Inc()
	r.duration.WithLabelValues(op).Observe(d.Seconds())
}

// Handler отдаёт метрики в формате Prometheus.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Track — удобная обёртка: defer metrics.Track(ops, "drive.rename", time.Now(), &err).
func Track(ops Ops, op string, start time.Time, err *error) {
	if ops == nil {
		return
	}
	var e error
	if err != nil {
		e = *err
	}
	ops.Observe(op, e, time.Since(start))
}
