package monitoring

import "github.com/osmike/strokes/internal/domain"

// Multi fans every snapshot out to several sinks, in order.
type Multi []domain.Monitoring

// NewMulti drops nil sinks.
func NewMulti(sinks ...domain.Monitoring) Multi {
	m := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m Multi) SaveMetrics(dto domain.StateDTO) {
	for _, s := range m {
		s.SaveMetrics(dto)
	}
}
