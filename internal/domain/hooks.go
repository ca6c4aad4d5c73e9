package domain

// Hooks is the notification sink for stroke lifecycle events.
//
// Hooks run synchronously. OnStrokeStarted and OnStrokeEnded run on the
// caller's goroutine, OnStrokeRetired on the worker that completed the last
// job. Hooks must not call back into the scheduler synchronously.
type Hooks struct {
	// OnStrokeStarted runs after a stroke was queued.
	OnStrokeStarted func(state StateDTO)

	// OnStrokeEnded runs after the caller (or another stroke's policy) ended a stroke.
	OnStrokeEnded func(state StateDTO)

	// OnStrokeRetired runs once a stroke reached Finished or Cancelled.
	OnStrokeRetired func(state StateDTO)

	// OnUpdateError runs when an update job returns an error.
	OnUpdateError func(id string, err error)
}
