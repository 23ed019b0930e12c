// Package exporter publishes the tracked PostgreSQL statistics as Prometheus
// metrics. Gauges are republished as read; resettable counters pass through
// the monotone reconciler so the published stream never decreases across
// pg_stat_reset calls.
package exporter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pgpulse/pgpulse/internal/observability"
	"github.com/pgpulse/pgpulse/internal/stats"
)

// RawFetcher obtains the current raw reading for one statistic. It must
// resolve failures internally to the 0 sentinel and never block beyond the
// supplied context.
type RawFetcher interface {
	FetchRaw(ctx context.Context, stat stats.Stat) float64
}

// CounterReconciler converts raw resettable readings into non-decreasing
// corrected values per key.
type CounterReconciler interface {
	Reconcile(key string, raw float64) float64
}

type Config struct {
	// Namespace prefixes every metric name, e.g. "postgres".
	Namespace string
	// Database is attached as a const label to every metric.
	Database string
	// FetchTimeout bounds the whole collection round.
	FetchTimeout time.Duration
}

type statDesc struct {
	stat stats.Stat
	desc *prometheus.Desc
}

type Collector struct {
	cfg        Config
	fetcher    RawFetcher
	reconciler CounterReconciler
	descs      []statDesc
}

// New builds a collector for the given catalog. Register the result with a
// prometheus.Registerer; each scrape then runs one fetch-and-reconcile round
// per tracked statistic.
func New(cfg Config, catalog []stats.Stat, fetcher RawFetcher, reconciler CounterReconciler) (*Collector, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("reconciler is required")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "postgres"
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 3 * time.Second
	}

	descs := make([]statDesc, 0, len(catalog))
	for _, stat := range catalog {
		descs = append(descs, statDesc{
			stat: stat,
			desc: prometheus.NewDesc(
				metricName(cfg.Namespace, stat),
				stat.Help,
				nil, prometheus.Labels{"database": cfg.Database},
			),
		})
	}
	return &Collector{cfg: cfg, fetcher: fetcher, reconciler: reconciler, descs: descs}, nil
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, sd := range c.descs {
		ch <- sd.desc
	}
}

// Collect implements prometheus.Collector. One reconcile call per tracked
// counter key per scrape.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FetchTimeout)
	defer cancel()

	for _, sd := range c.descs {
		raw := c.fetcher.FetchRaw(ctx, sd.stat)
		switch sd.stat.Kind {
		case stats.ResettableCounter:
			corrected := c.reconciler.Reconcile(sd.stat.Key, raw)
			ch <- prometheus.MustNewConstMetric(sd.desc, prometheus.CounterValue, corrected)
		default:
			ch <- prometheus.MustNewConstMetric(sd.desc, prometheus.GaugeValue, raw)
		}
	}

	observability.ObserveScrape(time.Since(start))
}

func metricName(namespace string, stat stats.Stat) string {
	parts := []string{namespace, stat.Key}
	if stat.Unit != "" {
		parts = append(parts, stat.Unit)
	}
	if stat.Kind == stats.ResettableCounter {
		parts = append(parts, "total")
	}
	return strings.Join(parts, "_")
}
