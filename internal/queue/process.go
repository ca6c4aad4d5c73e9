package queue

import (
	"github.com/osmike/strokes/internal/stroke"
)

// Next removes and returns the next eligible stroke job, or nil when no job
// may start right now.
//
// othersRunning is the number of non-stroke jobs (updates) in flight; an
// exclusive stroke only starts once it is zero.
func (q *Queue) Next(othersRunning int) *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	s, e := q.selectLocked(othersRunning)
	if e == nil {
		return nil
	}
	s.Take(e)
	q.running++
	return q.newTaskLocked(s, e)
}

// HasEligible reports whether Next would return a job.
func (q *Queue) HasEligible(othersRunning int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, e := q.selectLocked(othersRunning)
	return e != nil
}

// selectLocked walks the strokes in arrival order and returns the first one
// whose front job may start.
//
// Only the head stroke may start sequential and barrier jobs; younger strokes
// are limited to concurrent jobs. While an exclusive stroke runs, only it and
// strokes that are already ending may dispatch. An exclusive stroke that has
// not started yet waits to become the head with nothing running, and holds
// back every stroke queued after it.
func (q *Queue) selectLocked(othersRunning int) (*stroke.Stroke, *stroke.Entry) {
	head := q.headLocked()

	if active := q.activeExclusiveLocked(); active != nil {
		for _, s := range q.strokes {
			if s != active && (!s.Ended() || s.Exclusive()) {
				continue
			}
			// the active stroke keeps its ordering rights even if an older
			// stroke is resumed in front of it
			if e := s.Next(s == head || s == active); e != nil {
				return s, e
			}
		}
		return nil, nil
	}

	for _, s := range q.strokes {
		if s.Exclusive() && !s.Suspended() {
			if s == head && q.running == 0 && othersRunning == 0 {
				if e := s.Next(true); e != nil {
					return s, e
				}
			}
			return nil, nil
		}
		if e := s.Next(s == head); e != nil {
			return s, e
		}
	}
	return nil, nil
}
