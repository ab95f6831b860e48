package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Результаты прогона для метки result.
const (
	ResultSuccess          = "success"
	ResultPartial          = "partial"
	ResultConnectionFailed = "connection_failed"
	ResultPublishFailed    = "publish_failed"
)

// Metrics — счётчики самого сборщика, отдаются на /metrics в режиме сервера.
type Metrics struct {
	Registry       *prometheus.Registry
	Runs           *prometheus.CounterVec
	QueryFailures  *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	LastSuccess    prometheus.Gauge
	SnapshotValues *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lemmy_stats",
			Name:      "runs_total",
			Help:      "Количество прогонов сбора по результату.",
		}, []string{"result"}),
		QueryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lemmy_stats",
			Name:      "query_failures_total",
			Help:      "Количество неудавшихся агрегирующих запросов по метрике.",
		}, []string{"metric"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lemmy_stats",
			Name:      "run_duration_seconds",
			Help:      "Длительность прогона от подключения до записи.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lemmy_stats",
			Name:      "last_success_timestamp_seconds",
			Help:      "Время последней успешной записи снимка.",
		}),
		SnapshotValues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lemmy_stats",
			Name:      "snapshot_value",
			Help:      "Значения счётчиков последнего собранного снимка.",
		}, []string{"field"}),
	}
	m.Registry.MustRegister(m.Runs, m.QueryFailures, m.RunDuration, m.LastSuccess, m.SnapshotValues)
	return m
}
