package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Modules = factory.NewCounterVec(prometheus.CounterOpts{
		Name:      "modules_total",
		Namespace: Namespace,
		Subsystem: BuildSubsystem,
		Help:      "Locale modules handled, by result",
	}, []string{"result"})
)

var (
	BuildDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "duration_seconds",
		Namespace: Namespace,
		Subsystem: BuildSubsystem,
		Help:      "Duration of building one locale module",
		Buckets:   prometheus.ExponentialBuckets(15, 2, 8),
	}, []string{"result"})
)

var (
	LastRun = factory.NewGauge(prometheus.GaugeOpts{
		Name:      "last_run_timestamp_seconds",
		Namespace: Namespace,
		Subsystem: BuildSubsystem,
		Help:      "Time the last batch finished",
	})
)

const (
	ResultBuilt   = "built"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

func ModuleBuilt(started time.Time) {
	Modules.WithLabelValues(ResultBuilt).Inc()
	BuildDuration.WithLabelValues(ResultBuilt).Observe(time.Since(started).Seconds())
}

func ModuleFailed(started time.Time) {
	Modules.WithLabelValues(ResultFailed).Inc()
	BuildDuration.WithLabelValues(ResultFailed).Observe(time.Since(started).Seconds())
}

func ModuleSkipped() {
	Modules.WithLabelValues(ResultSkipped).Inc()
}

func BatchFinished(finished time.Time) {
	LastRun.Set(float64(finished.Unix()))
}
