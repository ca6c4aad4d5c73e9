package domain

import "context"

// JobControl gives a running job body access to its execution context.
//
// A JobControl is valid only while the job it was handed to is executing.
// Calling AddMutatedJobs after the job body returned fails with an
// invalid-context error.
type JobControl interface {
	// Context is cancelled when the owning stroke is cancelled or the scheduler is killed.
	// Job bodies may use it to stop early; the scheduler never interrupts them.
	Context() context.Context

	// StrokeID returns the printable identifier of the owning stroke.
	StrokeID() string

	// LevelOfDetail returns the detail level the job runs at; 0 is full resolution.
	LevelOfDetail() int

	// Payload returns the opaque payload the job was created with.
	Payload() any

	// AddMutatedJobs injects jobs into the owning stroke.
	//
	// The new jobs run after the current job completes and before the next
	// non-mutated job of the stroke.
	AddMutatedJobs(jobs ...*JobData) error
}

// Fn is the job body executed by a worker.
// It should return nil on success or an error describing why the body failed.
type Fn func(ctrl JobControl) error

// JobData describes a single unit of work produced by a Strategy.
type JobData struct {
	// Class decides which jobs of the same stroke this job may overlap with.
	Class JobClass

	// Phase is filled in by the queue from the factory method that produced the job.
	Phase Phase

	// NonCancellable jobs are kept when their stroke is cancelled.
	NonCancellable bool

	// Payload is handed to the body through JobControl.Payload.
	Payload any

	// Fn is the job body. A nil Fn is a no-op job that still takes part in ordering.
	Fn Fn
}
