package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"campusev/backend/services/charging-service/internal/models"
)

const namespace = "charging"

// Collector records reservation engine activity.
type Collector struct {
	reservations *prometheus.CounterVec
	expired      prometheus.Counter
	transitions  *prometheus.CounterVec
}

// NewCollector registers the charging metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reserve attempts by outcome.",
		}, []string{"outcome"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_expired_total",
			Help:      "Reservations cancelled by the sweeper.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session state transitions by target state.",
		}, []string{"to"}),
	}
	reg.MustRegister(c.reservations, c.expired, c.transitions)
	return c
}

func (c *Collector) RecordReservation(outcome string) {
	c.reservations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordExpired(n int) {
	c.expired.Add(float64(n))
}

func (c *Collector) RecordTransition(to models.SessionStatus) {
	c.transitions.WithLabelValues(string(to)).Inc()
}
