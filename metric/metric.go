// Package metric defines the Prometheus collectors of the worker bootstrap.
package metric

import (
	"time"

	"github.com/leo-stone-dot/worker_boot_go/log"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespaceBootstrap = "bootstrap"
	namespaceLoader    = "loader"
	namespaceWorker    = "worker"
)

var (
	// BootstrapRuns counts bootstrap sequences by final state.
	BootstrapRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceBootstrap,
			Name:      "runs_total",
			Help:      "Bootstrap sequences run, partitioned by outcome.",
		}, []string{"state"})

	// ScriptsFetched counts scripts fetched, by address scheme.
	ScriptsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceLoader,
			Name:      "scripts_fetched_total",
			Help:      "Scripts fetched successfully.",
		}, []string{"scheme"})

	// FetchFailures counts failed script fetches, by address scheme.
	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceLoader,
			Name:      "fetch_failures_total",
			Help:      "Script fetches that failed.",
		}, []string{"scheme"})

	// BytesFetched sums the size of fetched scripts.
	BytesFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceLoader,
			Name:      "bytes_fetched_total",
			Help:      "Bytes of script source fetched.",
		})

	// FetchDuration is the time spent fetching a script in milliseconds.
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespaceLoader,
			Name:      "fetch_duration_ms",
			Help:      "Script fetch latency in milliseconds.",
		}, []string{"scheme"})

	// ScriptsExecuted counts scripts run by worker runtimes.
	ScriptsExecuted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceWorker,
			Name:      "scripts_executed_total",
			Help:      "Scripts executed by worker runtimes.",
		})
)

func init() {
	if err := registerCollectors(); err != nil {
		log.Error(err)
	}
}

func registerCollectors() error {
	for _, c := range []prometheus.Collector{
		BootstrapRuns,
		ScriptsFetched,
		FetchFailures,
		BytesFetched,
		FetchDuration,
		ScriptsExecuted,
	} {
		if err := registerCollector(c); err != nil {
			return err
		}
	}
	return nil
}

func registerCollector(collector prometheus.Collector) error {
	err := prometheus.Register(collector)
	if err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}
	return nil
}

// MeasureDuration measures the time elapsed since start and saves it into a
// histogram metric
func MeasureDuration(histogram *prometheus.HistogramVec, start time.Time, lvs ...string) {
	duration := time.Since(start)
	histogram.WithLabelValues(lvs...).Observe(float64(duration.Milliseconds()))
}
