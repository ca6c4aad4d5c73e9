package domain

import (
	"context"
	"time"
)

// StateDTO is a snapshot of a stroke used for hooks and monitoring.
// It is a copy; mutating it has no effect on the queue.
type StateDTO struct {
	// StrokeID is the printable queue identifier (slot and generation).
	// Slots are reused, so it is unique only among live strokes.
	StrokeID string

	// UUID identifies the stroke uniquely for the lifetime of the process.
	UUID string

	// StrategyID and Name come from the stroke's Strategy.
	StrategyID string
	Name       string

	// Status is the lifecycle state at the time the snapshot was taken.
	Status StrokeStatus

	// LevelOfDetail is 0 for full-resolution strokes and > 0 for preview twins.
	LevelOfDetail int

	Exclusive          bool
	SupportsWrapAround bool

	// EndedByUser is set once the caller called EndStroke.
	EndedByUser bool

	// Blocked is true while the stroke waits for the exclusivity token or is suspended.
	Blocked bool

	// StartAt is when the stroke was queued; EndAt is when it was retired.
	StartAt time.Time
	EndAt   time.Time

	// JobsDone counts completed jobs, JobsPending counts queued, not dispatched jobs.
	JobsDone    int
	JobsPending int

	// Error holds the first body error reported by one of the stroke's jobs.
	Error error

	// LastJob describes the job whose completion produced this snapshot, if any.
	LastJob *JobReport
}

// JobReport describes one executed job.
type JobReport struct {
	Phase   Phase
	Class   JobClass
	Mutated bool
	StartAt time.Time
	EndAt   time.Time

	// ExecutionTime is the body duration in nanoseconds.
	ExecutionTime int64
	Error         error
}

// UpdateJob is a unit of background canvas work (redraw, regeneration)
// produced outside the stroke queue.
type UpdateJob struct {
	ID string
	Fn func(ctx context.Context) error
}
