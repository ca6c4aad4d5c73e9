package domain

import "fmt"

// StrokeID identifies a live stroke.
//
// It is an index into the queue's stroke table plus a generation counter, so an
// ID of a retired stroke never resolves to a newer stroke reusing the slot.
// The zero value is never a valid ID.
type StrokeID struct {
	Slot uint32
	Gen  uint32
}

func (id StrokeID) String() string {
	return fmt.Sprintf("stroke-%d.%d", id.Slot, id.Gen)
}

// IsZero reports whether the ID was never assigned.
func (id StrokeID) IsZero() bool {
	return id.Gen == 0
}
