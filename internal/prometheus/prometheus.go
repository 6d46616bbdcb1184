package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "langpack_composer"

	BuildSubsystem   = "build"
	CollectSubsystem = "collect"
)

// Registry holds only the metrics of this tool, the textfile collector of
// node-exporter already exports the process and runtime metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// WriteTextfile atomically writes all metrics to name in the text
// exposition format.
func WriteTextfile(name string) error {
	return prometheus.WriteToTextfile(name, Registry)
}
