package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostel",
		Subsystem: "store",
		Name:      "mutations_total",
		Help:      "Store mutations applied in memory, by slot and operation.",
	}, []string{"slot", "op"})

	persistFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostel",
		Subsystem: "store",
		Name:      "persist_failures_total",
		Help:      "Slot writes that failed after a mutation.",
	}, []string{"slot"})

	recordsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hostel",
		Subsystem: "store",
		Name:      "records",
		Help:      "Records currently held by a store.",
	}, []string{"slot"})
)

// TrackRecords keeps the records gauge of the store's slot in step with its mutations.
// It returns the function that stops tracking.
func (s *Store[T]) TrackRecords() (stop func()) {
	gauge := recordsGauge.WithLabelValues(s.conf.Slot)
	stop = s.Subscribe(func(records []T) { gauge.Set(float64(len(records))) })

	s.notifyMu.Lock()
	gauge.Set(float64(s.Len()))
	s.notifyMu.Unlock()
	return stop
}
