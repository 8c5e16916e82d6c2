// Package metrics exposes prometheus instruments for the sync core.
package metrics

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Config carries constant labels stamped on every series.
type Config struct {
	ServiceName string
	Environment string
}

// SyncMetrics captures repository health signals: full-sync outcomes,
// write outcomes by operation, and retry pressure against the backend.
type SyncMetrics struct {
	syncRuns     *prometheus.CounterVec
	syncDuration prometheus.Observer
	writeOps     *prometheus.CounterVec
	retries      *prometheus.CounterVec
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// Sync returns the singleton sync metrics registry.
func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

// SyncWithConfig returns the singleton sync metrics registry using config labels.
func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest resets the sync metrics singleton for tests.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "ledgerline"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	syncRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ledgerline_sync_runs_total",
		Help:        "Full-sync runs by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	syncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "ledgerline_sync_duration_seconds",
		Help:        "Full-sync latency including all three collection fetches.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	})
	writeOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ledgerline_write_ops_total",
		Help:        "Repository write operations by name and result.",
		ConstLabels: constLabels,
	}, []string{"op", "result"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ledgerline_remote_retries_total",
		Help:        "Remote operation retries by failure class.",
		ConstLabels: constLabels,
	}, []string{"class"})

	for _, collector := range []prometheus.Collector{syncRuns, syncDuration, writeOps, retries} {
		if err := registerer.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}

	return &SyncMetrics{
		syncRuns:     syncRuns,
		syncDuration: syncDuration,
		writeOps:     writeOps,
		retries:      retries,
	}
}

// IncSyncRun records one full-sync outcome.
func (m *SyncMetrics) IncSyncRun(result string) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(result).Inc()
}

// ObserveSyncDuration records full-sync latency.
func (m *SyncMetrics) ObserveSyncDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.syncDuration.Observe(d.Seconds())
}

// IncWriteOp records one write operation outcome.
func (m *SyncMetrics) IncWriteOp(op, result string) {
	if m == nil {
		return
	}
	m.writeOps.WithLabelValues(op, result).Inc()
}

// IncRetry records a retried remote failure.
func (m *SyncMetrics) IncRetry(class string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(class).Inc()
}
