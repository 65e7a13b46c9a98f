// Package observability exposes Prometheus metrics for the sync flows.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments shared by the flows.
type Metrics struct {
	PoolsFetched  *prometheus.CounterVec
	AdapterErrors *prometheus.CounterVec
	RowsPersisted *prometheus.CounterVec
	RunsTotal     *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
}

// Register creates the instrument set and registers it with a
// registry, usually prometheus.DefaultRegisterer.
func Register(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PoolsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultscan_pools_fetched_total",
				Help: "Total number of raw pool rows fetched, per source",
			},
			[]string{"source"},
		),
		AdapterErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultscan_adapter_errors_total",
				Help: "Total number of adapter fetch failures, per source",
			},
			[]string{"source"},
		),
		RowsPersisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultscan_rows_persisted_total",
				Help: "Total number of rows upserted, per table",
			},
			[]string{"table"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultscan_runs_total",
				Help: "Total number of flow runs, per flow and outcome",
			},
			[]string{"flow", "status"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultscan_run_duration_seconds",
				Help:    "Flow run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"flow"},
		),
	}
	reg.MustRegister(
		m.PoolsFetched,
		m.AdapterErrors,
		m.RowsPersisted,
		m.RunsTotal,
		m.RunDuration,
	)
	return m
}

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
