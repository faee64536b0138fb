package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the generation pipeline collectors.
type Metrics struct {
	Generations *prometheus.CounterVec
	Credits     *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betslip_generations_total",
			Help: "generation requests by terminal state and error kind",
		}, []string{"state", "kind"}),
		Credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betslip_credits_total",
			Help: "credits moved by direction",
		}, []string{"direction"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "betslip_generation_duration_seconds",
			Help:    "end-to-end generation latency",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60, 90},
		}, []string{"state"}),
	}
	reg.MustRegister(m.Generations, m.Credits, m.Duration)
	return m
}

// ObserveGeneration records one finished request.
func (m *Metrics) ObserveGeneration(state, kind string, d time.Duration) {
	m.Generations.WithLabelValues(state, kind).Inc()
	m.Duration.WithLabelValues(state).Observe(d.Seconds())
}

// AddCredits records credits charged or refunded.
func (m *Metrics) AddCredits(direction string, n int) {
	if n <= 0 {
		return
	}
	m.Credits.WithLabelValues(direction).Add(float64(n))
}
