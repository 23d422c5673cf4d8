package mem

import (
	"github.com/prometheus/client_golang/prometheus"
)

// accounting tracks per-Kind live-byte usage and the historical watermark,
// optionally mirrored into Prometheus gauges. Protected by the allocator's
// main lock (spec.md §5: "LiveTable and accounting are implicitly
// protected by the main lock").
type accounting struct {
	usage     [numKinds]uintptr
	watermark [numKinds]uintptr

	usageGauge     *prometheus.GaugeVec
	watermarkGauge *prometheus.GaugeVec
}

func newAccounting(reg prometheus.Registerer) *accounting {
	a := &accounting{}
	if reg == nil {
		return a
	}
	a.usageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "asyncmem",
		Name:      "usage_bytes",
		Help:      "Live bytes currently held by clients, per memory kind.",
	}, []string{"kind"})
	a.watermarkGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "asyncmem",
		Name:      "watermark_bytes",
		Help:      "Historical maximum of live bytes, per memory kind.",
	}, []string{"kind"})
	reg.MustRegister(a.usageGauge, a.watermarkGauge)
	return a
}

// grow records a newly-live allocation of size bytes under kind. Caller
// must hold the main lock.
func (a *accounting) grow(kind Kind, size uintptr) {
	a.usage[kind] += size
	if a.usage[kind] > a.watermark[kind] {
		a.watermark[kind] = a.usage[kind]
	}
	a.publish(kind)
}

// shrink records a pointer leaving LiveTable. Caller must hold the main
// lock.
func (a *accounting) shrink(kind Kind, size uintptr) {
	a.usage[kind] -= size
	a.publish(kind)
}

func (a *accounting) publish(kind Kind) {
	if a.usageGauge == nil {
		return
	}
	label := kind.String()
	a.usageGauge.WithLabelValues(label).Set(float64(a.usage[kind]))
	a.watermarkGauge.WithLabelValues(label).Set(float64(a.watermark[kind]))
}

// snapshot returns a defensive copy of usage/watermark, for P1 property
// tests. Caller must hold the main lock.
func (a *accounting) snapshot() (usage, watermark [numKinds]uintptr) {
	return a.usage, a.watermark
}
