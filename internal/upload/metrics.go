package upload

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for upload cycles. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	files          *prometheus.CounterVec
	orphans        *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	cyclesInFlight prometheus.Gauge
}

// NewMetrics registers the upload collectors with reg. Collectors that are
// already registered are reused, so the same registry can back several
// coordinators.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filedrop",
			Subsystem: "upload",
			Name:      "files_total",
			Help:      "Files attempted per upload cycle, by result.",
		}, []string{"result"}),
		orphans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filedrop",
			Subsystem: "upload",
			Name:      "orphans_total",
			Help:      "Blobs written without a metadata row, by what happened to them.",
		}, []string{"action"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "filedrop",
			Subsystem: "upload",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a complete upload cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		cyclesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "filedrop",
			Subsystem: "upload",
			Name:      "cycles_in_flight",
			Help:      "Upload cycles currently running.",
		}),
	}

	var err error
	m.files, err = register(reg, m.files)
	if err != nil {
		return nil, err
	}
	m.orphans, err = register(reg, m.orphans)
	if err != nil {
		return nil, err
	}
	m.cycleDuration, err = register(reg, m.cycleDuration)
	if err != nil {
		return nil, err
	}
	m.cyclesInFlight, err = register(reg, m.cyclesInFlight)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observeFile(failed bool) {
	if m == nil {
		return
	}
	result := "success"
	if failed {
		result = "error"
	}
	m.files.WithLabelValues(result).Inc()
}

// observeOrphan records an orphaned blob; action is "removed", "kept" or
// "remove_failed".
func (m *Metrics) observeOrphan(action string) {
	if m == nil {
		return
	}
	m.orphans.WithLabelValues(action).Inc()
}

func (m *Metrics) cycleStarted() func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.cyclesInFlight.Inc()
	return func() {
		m.cyclesInFlight.Dec()
		m.cycleDuration.Observe(time.Since(start).Seconds())
	}
}
