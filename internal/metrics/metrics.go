// Package metrics exposes pipeline counters on a private Prometheus registry.
//
// Metrics:
//   - s1t_search_queries_total{outcome} - catalog queries by outcome
//   - s1t_search_chunk_days - chunk size currently in effect
//   - s1t_items_total{stage} - items found, intersecting and grouped
//   - s1t_downloads_total{band,state} - download tasks by terminal state
//   - s1t_download_bytes_total{band} - bytes written by completed downloads
//   - s1t_download_duration_seconds{band} - transfer time of completed downloads
package metrics

import (
	"fmt"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry *prometheus.Registry

	SearchQueries    *prometheus.CounterVec
	SearchChunkDays  prometheus.Gauge
	Items            *prometheus.CounterVec
	Downloads        *prometheus.CounterVec
	DownloadBytes    *prometheus.CounterVec
	DownloadDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SearchQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s1t_search_queries_total",
				Help: "Catalog search queries by outcome",
			},
			[]string{"outcome"}, // "ok", "failed", "skipped"
		),
		SearchChunkDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "s1t_search_chunk_days",
			Help: "Search chunk size in days currently in effect",
		}),
		Items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s1t_items_total",
				Help: "Catalog items per pipeline stage",
			},
			[]string{"stage"}, // "found", "intersecting", "grouped"
		),
		Downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s1t_downloads_total",
				Help: "Download tasks by band and terminal state",
			},
			[]string{"band", "state"},
		),
		DownloadBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s1t_download_bytes_total",
				Help: "Bytes written by completed downloads",
			},
			[]string{"band"},
		),
		DownloadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "s1t_download_duration_seconds",
				Help:    "Duration of completed downloads",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"band"},
		),
	}

	m.registry.MustRegister(
		m.SearchQueries,
		m.SearchChunkDays,
		m.Items,
		m.Downloads,
		m.DownloadBytes,
		m.DownloadDuration,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTask records one resolved download task.
func (m *Metrics) ObserveTask(result domain.TaskResult, seconds float64) {
	band := string(result.Task.Band)
	m.Downloads.WithLabelValues(band, string(result.State)).Inc()
	if result.State == domain.TaskCompleted {
		m.DownloadBytes.WithLabelValues(band).Add(float64(result.Bytes))
		m.DownloadDuration.WithLabelValues(band).Observe(seconds)
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
