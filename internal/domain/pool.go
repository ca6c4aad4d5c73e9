package domain

import (
	"time"

	"go.uber.org/zap"
)

// Pool configures a scheduler instance.
// Zero values are replaced with defaults when the scheduler is created.
type Pool struct {
	// MaxWorkers is the size of the worker pool. Default is GOMAXPROCS.
	MaxWorkers int

	// CheckInterval is how often the dispatcher re-evaluates the queues without a wake-up signal.
	CheckInterval time.Duration

	// BalancingRatio is the default target of stroke jobs per update job.
	BalancingRatio float64

	// LevelOfDetail > 0 enables preview twin strokes for strategies that support cloning.
	LevelOfDetail int

	// UpdateQueueSize bounds the number of pending update jobs.
	UpdateQueueSize int

	// Logger receives structured logs. Nil disables logging.
	Logger *zap.Logger

	// Hooks receives stroke lifecycle notifications.
	Hooks Hooks
}
