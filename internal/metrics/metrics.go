package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the domain-level Prometheus collectors. A nil *Metrics is
// valid and records nothing, which keeps handler tests free of registry
// setup.
type Metrics struct {
	bookingsTotal     *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
	slotLookupSeconds prometheus.Histogram
	outboxPublished   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salonbook_bookings_total",
			Help: "Booking attempts by outcome (created, conflict, rejected, error).",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salonbook_status_transitions_total",
			Help: "Appointment status transitions by target status.",
		}, []string{"to"}),
		slotLookupSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "salonbook_slot_lookup_seconds",
			Help:    "Latency of availability slot computations.",
			Buckets: prometheus.DefBuckets,
		}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salonbook_outbox_published_total",
			Help: "Outbox events delivered to the broker.",
		}),
	}
}

func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	if m == nil {
		return
	}
	reg.MustRegister(m.bookingsTotal, m.transitionsTotal, m.slotLookupSeconds, m.outboxPublished)
}

func (m *Metrics) BookingOutcome(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StatusTransition(to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(to).Inc()
}

func (m *Metrics) ObserveSlotLookup(d time.Duration) {
	if m == nil {
		return
	}
	m.slotLookupSeconds.Observe(d.Seconds())
}

func (m *Metrics) OutboxPublished(n int) {
	if m == nil {
		return
	}
	m.outboxPublished.Add(float64(n))
}
