package monitoring

import (
	"sync"

	"github.com/osmike/strokes/internal/domain"
)

// Monitoring provides an in-memory, thread-safe implementation of the domain.Monitoring interface.
//
// It keeps the latest snapshot of every stroke, keyed by the stroke's UUID.
// Retired strokes stay in the map, so it grows with the number of strokes;
// use it for debugging and tests.
type Monitoring struct {
	data *sync.Map
}

// New creates and initializes a new Monitoring instance.
func New() *Monitoring {
	return &Monitoring{
		data: &sync.Map{},
	}
}

// SaveMetrics stores the snapshot, replacing the previous one of the same stroke.
func (m *Monitoring) SaveMetrics(dto domain.StateDTO) {
	m.data.Store(dto.UUID, dto)
}

// GetMetrics returns the latest snapshot of every stroke seen so far, keyed by UUID.
func (m *Monitoring) GetMetrics() map[string]domain.StateDTO {
	result := make(map[string]domain.StateDTO)
	m.data.Range(func(key, value any) bool {
		result[key.(string)] = value.(domain.StateDTO)
		return true
	})
	return result
}
