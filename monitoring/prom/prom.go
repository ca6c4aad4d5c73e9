// Package prom exports stroke snapshots as Prometheus metrics.
package prom

import (
	"sync"

	"github.com/osmike/strokes/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// Monitoring implements domain.Monitoring on top of Prometheus collectors.
type Monitoring struct {
	jobs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retired  *prometheus.CounterVec
	live     prometheus.Gauge

	mu    sync.Mutex
	alive map[string]struct{}
}

// New creates the collectors and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Monitoring {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Monitoring{
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strokes_jobs_total",
				Help: "Total number of executed stroke jobs",
			},
			[]string{"strategy", "phase", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strokes_job_duration_seconds",
				Help:    "Execution duration of stroke jobs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy", "phase"},
		),
		retired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strokes_retired_total",
				Help: "Total number of retired strokes by final status",
			},
			[]string{"strategy", "status"},
		),
		live: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "strokes_live",
				Help: "Number of strokes currently in the queue",
			},
		),
		alive: make(map[string]struct{}),
	}
	reg.MustRegister(m.jobs, m.duration, m.retired, m.live)
	return m
}

func (m *Monitoring) SaveMetrics(state domain.StateDTO) {
	if job := state.LastJob; job != nil {
		result := "ok"
		if job.Error != nil {
			result = "error"
		}
		phase := job.Phase.String()
		m.jobs.WithLabelValues(state.StrategyID, phase, result).Inc()
		m.duration.WithLabelValues(state.StrategyID, phase).Observe(float64(job.ExecutionTime) / 1e9)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch state.Status {
	case domain.Finished, domain.Cancelled:
		if _, ok := m.alive[state.UUID]; ok {
			delete(m.alive, state.UUID)
			m.retired.WithLabelValues(state.StrategyID, string(state.Status)).Inc()
		}
	default:
		m.alive[state.UUID] = struct{}{}
	}
	m.live.Set(float64(len(m.alive)))
}
