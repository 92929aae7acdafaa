// Package metrics exposes sync and reset outcomes as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ckdake/fitler/pkg/ledger"
	"github.com/ckdake/fitler/pkg/sync"
)

const namespace = "fitler"

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry prometheus.Gatherer

	fetched    *prometheus.CounterVec
	created    *prometheus.CounterVec
	updated    *prometheus.CounterVec
	warnings   *prometheus.CounterVec
	failures   *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	lastSynced *prometheus.GaugeVec
	duration   prometheus.Histogram

	resets         prometheus.Counter
	linksRemoved   prometheus.Counter
	recordsDeleted prometheus.Counter
}

// New registers the collectors with reg. A nil reg uses a fresh registry,
// which is also what Gatherer returns.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		fetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "activities_fetched_total",
			Help:      "Raw activities fetched, by source.",
		}, []string{"source"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_created_total",
			Help:      "Canonical records created, by seeding source.",
		}, []string{"source"}),
		updated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_updated_total",
			Help:      "Canonical records changed by a merge, by source.",
		}, []string{"source"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "warnings_total",
			Help:      "Merge conflicts and ambiguous matches, by source.",
		}, []string{"source"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "source_failures_total",
			Help:      "Sources that failed to sync, by source and reason.",
		}, []string{"source", "reason"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "sources_skipped_total",
			Help:      "Sources skipped because the ledger already marks them synced.",
		}, []string{"source"}),
		lastSynced: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time a source last synced a period successfully.",
		}, []string{"source"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "period_duration_seconds",
			Help:      "Time spent syncing one period.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "resets_total",
			Help:      "Periods reset.",
		}),
		linksRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "links_removed_total",
			Help:      "Source links stripped by resets.",
		}),
		recordsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "records_deleted_total",
			Help:      "Records deleted by resets because no links remained.",
		}),
	}
	reg.MustRegister(m.fetched, m.created, m.updated, m.warnings, m.failures,
		m.skipped, m.lastSynced, m.duration, m.resets, m.linksRemoved, m.recordsDeleted)
	return m
}

// Gatherer returns the registry the collectors live in.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// ObserveSync records a finished period. Dry runs are not counted.
func (m *Metrics) ObserveSync(r *sync.Report) {
	if m == nil || r == nil || r.DryRun {
		return
	}
	m.duration.Observe(r.Duration.Seconds())
	for _, sr := range r.Sources {
		src := string(sr.Source)
		switch sr.Status {
		case sync.StatusSkipped:
			m.skipped.WithLabelValues(src).Inc()
			continue
		case sync.StatusFailed:
			m.failures.WithLabelValues(src, sr.Reason).Inc()
			continue
		}
		m.fetched.WithLabelValues(src).Add(float64(sr.Fetched))
		m.created.WithLabelValues(src).Add(float64(sr.Created))
		m.updated.WithLabelValues(src).Add(float64(sr.Updated))
		m.warnings.WithLabelValues(src).Add(float64(len(sr.Warnings)))
		m.lastSynced.WithLabelValues(src).Set(float64(r.StartedAt.Add(r.Duration).Unix()))
	}
}

// ObserveReset records a completed reset.
func (m *Metrics) ObserveReset(r *ledger.ResetResult) {
	if m == nil || r == nil {
		return
	}
	m.resets.Inc()
	m.linksRemoved.Add(float64(r.LinksRemoved))
	m.recordsDeleted.Add(float64(len(r.RecordsDeleted)))
}

// WriteTextfile writes the current values in the node exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
