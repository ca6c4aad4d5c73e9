package testutil

import (
	"sync"

	"github.com/osmike/strokes/internal/domain"
)

// Monitoring records every snapshot it receives.
type Monitoring struct {
	mu     sync.Mutex
	states []domain.StateDTO
	last   map[string]domain.StateDTO
}

func NewMonitoring() *Monitoring {
	return &Monitoring{last: make(map[string]domain.StateDTO)}
}

func (m *Monitoring) SaveMetrics(state domain.StateDTO) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
	m.last[state.UUID] = state
}

// States returns a copy of every recorded snapshot in arrival order.
func (m *Monitoring) States() []domain.StateDTO {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StateDTO(nil), m.states...)
}

// Last returns the latest snapshot recorded for the stroke with the given UUID.
func (m *Monitoring) Last(uuid string) (domain.StateDTO, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.last[uuid]
	return st, ok
}

// Retired returns the latest snapshots of strokes that reached a terminal status.
func (m *Monitoring) Retired() []domain.StateDTO {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StateDTO
	for _, st := range m.last {
		if st.Status == domain.Finished || st.Status == domain.Cancelled {
			out = append(out, st)
		}
	}
	return out
}
