// Package metrics implements the kernel's metrics capability on top of
// prometheus. The kernel's default stays a no-op; hosts that want
// observability plug this recorder in and expose it via promhttp.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements the kernel metrics capability. Record maps onto a
// gauge (last value) plus a counter of samples; Begin/End pairs observe
// wall-clock durations into a histogram.
type Recorder struct {
	values    *prometheus.GaugeVec
	samples   *prometheus.CounterVec
	durations *prometheus.HistogramVec

	mu     sync.Mutex
	starts map[string]time.Time
}

// NewRecorder creates a recorder and registers its collectors. Pass
// prometheus.DefaultRegisterer outside tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		values: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swarm_kernel_value",
				Help: "Last value recorded under each metric name by kernel processes",
			},
			[]string{"name"},
		),
		samples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarm_kernel_samples_total",
				Help: "Number of samples recorded under each metric name",
			},
			[]string{"name"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarm_kernel_span_seconds",
				Help:    "Wall-clock duration of Begin/End spans",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"name"},
		),
		starts: make(map[string]time.Time),
	}

	reg.MustRegister(r.values)
	reg.MustRegister(r.samples)
	reg.MustRegister(r.durations)

	return r
}

// Record stores a sample under name.
func (r *Recorder) Record(name string, value float64) {
	r.values.WithLabelValues(name).Set(value)
	r.samples.WithLabelValues(name).Inc()
}

// Begin opens a named span. A second Begin under the same name before End
// restarts the span.
func (r *Recorder) Begin(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts[name] = time.Now()
}

// End closes a named span and observes its duration. End without a
// matching Begin is a no-op.
func (r *Recorder) End(name string) {
	r.mu.Lock()
	start, ok := r.starts[name]
	if ok {
		delete(r.starts, name)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	r.durations.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
