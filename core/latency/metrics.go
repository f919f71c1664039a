package latency

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"v2ray-launcher/core/store"
)

var (
	probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_probes_total",
			Help: "Total number of endpoint probes by outcome.",
		},
		[]string{"outcome"},
	)
	probeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "launcher_probe_duration_seconds",
			Help:    "Wall time of a full probe, engine restart included.",
			Buckets: prometheus.DefBuckets,
		},
	)
	batchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_batch_runs_total",
			Help: "Total number of latency batches by how they ended.",
		},
		[]string{"reason"},
	)

	registerOnce sync.Once
)

// Register adds the latency collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(probesTotal, probeDuration, batchRunsTotal)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func outcomeLabel(d store.Delay) string {
	switch d.State {
	case store.Errored:
		return "errored"
	case store.Unreachable:
		return "unreachable"
	case store.Measured:
		return "measured"
	default:
		return "untested"
	}
}
