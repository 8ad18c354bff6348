package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "hours2days"

// Metrics holds the Prometheus counters and gauges for one merge run.
type Metrics struct {
	GroupsClassified *prometheus.CounterVec // labels: family, verdict
	PartsFetched     *prometheus.CounterVec // labels: family
	DaysMerged       *prometheus.CounterVec // labels: family
	DaysUploaded     *prometheus.CounterVec // labels: family
	UploadFailures   prometheus.Counter
	RemoteDeletes    prometheus.Counter
	GroupFailures    *prometheus.CounterVec // labels: stage
	FilesSkipped     prometheus.Counter
	FilesSwept       prometheus.Counter

	RunDuration      prometheus.Gauge
	LastRunTimestamp prometheus.Gauge
	DiskUsedPercent  prometheus.Gauge

	gatherer prometheus.Gatherer
}

func newMetrics() *Metrics {
	return &Metrics{
		GroupsClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_classified_total",
			Help:      "Station/day groups classified, by content family and verdict.",
		}, []string{"family", "verdict"}),
		PartsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parts_fetched_total",
			Help:      "Hourly parts downloaded from the drop server.",
		}, []string{"family"}),
		DaysMerged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_merged_total",
			Help:      "Daily files produced by the merge tool.",
		}, []string{"family"}),
		DaysUploaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_uploaded_total",
			Help:      "Daily files stored back on the drop server.",
		}, []string{"family"}),
		UploadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_failures_total",
			Help:      "Daily files quarantined locally after a failed upload.",
		}),
		RemoteDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_deletes_total",
			Help:      "Hourly parts deleted from the drop server.",
		}),
		GroupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_failures_total",
			Help:      "Per-group failures that did not abort the run, by stage.",
		}, []string{"stage"}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Remote names that did not follow the hourly naming convention.",
		}),
		FilesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_swept_total",
			Help:      "Temporary files removed from the work directory at run end.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		DiskUsedPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "disk_used_percent",
			Help:      "Local disk utilisation sampled at run end.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.GroupsClassified,
		m.PartsFetched,
		m.DaysMerged,
		m.DaysUploaded,
		m.UploadFailures,
		m.RemoteDeletes,
		m.GroupFailures,
		m.FilesSkipped,
		m.FilesSwept,
		m.RunDuration,
		m.LastRunTimestamp,
		m.DiskUsedPercent,
	}
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	m.gatherer = reg
	return m
}

// Gatherer exposes the registry the metrics were registered with.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// Push sends the current values to a Prometheus Pushgateway, replacing the
// previous push for job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	err := push.New(url, job).
		Gatherer(m.gatherer).
		Grouping("instance", "hours2days").
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
