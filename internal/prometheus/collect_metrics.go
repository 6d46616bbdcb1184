package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CollectedFiles = factory.NewCounterVec(prometheus.CounterOpts{
		Name:      "files_total",
		Namespace: Namespace,
		Subsystem: CollectSubsystem,
		Help:      "Files copied into staging trees, by resource category",
	}, []string{"category"})

	CollectedBytes = factory.NewCounterVec(prometheus.CounterOpts{
		Name:      "bytes_total",
		Namespace: Namespace,
		Subsystem: CollectSubsystem,
		Help:      "Bytes copied into staging trees, by resource category",
	}, []string{"category"})

	FailedPatterns = factory.NewCounterVec(prometheus.CounterOpts{
		Name:      "failed_patterns_total",
		Namespace: Namespace,
		Subsystem: CollectSubsystem,
		Help:      "Resource patterns that could not be copied, by resource category",
	}, []string{"category"})
)

func CollectMetrics(category string, files, bytes int64, failed int) {
	CollectedFiles.WithLabelValues(category).Add(float64(files))
	CollectedBytes.WithLabelValues(category).Add(float64(bytes))
	if failed > 0 {
		FailedPatterns.WithLabelValues(category).Add(float64(failed))
	}
}
