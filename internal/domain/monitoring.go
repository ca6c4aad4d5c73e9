package domain

// Monitoring defines an interface for collecting stroke execution metrics.
//
// Implementations of this interface can persist metrics in various ways, such as:
// - In-memory storage for simple debugging and development purposes.
// - Metric exporters for dashboards.
// - Databases keeping a history of strokes.
//
// SaveMetrics is called from worker goroutines and from caller goroutines,
// possibly concurrently, so implementations must be safe for concurrent use.
type Monitoring interface {
	// SaveMetrics stores a snapshot taken after a job completed or a stroke changed state.
	SaveMetrics(dto StateDTO)
}
