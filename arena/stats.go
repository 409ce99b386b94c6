package arena

import "fmt"

// Stats is a snapshot of an arena's slot bookkeeping.
type Stats struct {
	Kind    string
	Live    int    // slots holding a constructed resource
	Dormant int    // retired slots waiting in the free list
	Slots   int    // Live + Dormant
	Created uint64 // generations handed out, including failed constructions
}

func (s Stats) String() string {
	return fmt.Sprintf("%s[live %d, dormant %d, slots %d, created %d]",
		s.Kind, s.Live, s.Dormant, s.Slots, s.Created)
}

// Stats returns a snapshot of the arena's bookkeeping.
func (a *Arena[T]) Stats() Stats {
	return Stats{
		Kind:    a.kind,
		Live:    a.Len(),
		Dormant: a.Dormant(),
		Slots:   a.Cap(),
		Created: a.next,
	}
}
