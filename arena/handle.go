package arena

import "fmt"

// Handle identifies one occupancy of an arena slot. It is a plain value: copying
// a Handle never affects ownership of the resource it names.
//
// The zero Handle is invalid. Generations are stored offset by one so that the
// first resource created in an arena still reports Generation() == 0.
type Handle struct {
	index uint64
	gen   uint64
}

func newHandle(index, generation uint64) Handle {
	return Handle{index: index, gen: generation + 1}
}

// Index returns the slot index the handle points at.
func (h Handle) Index() uint64 {
	return h.index
}

// Generation returns the creation counter assigned to the handle. Calling it on
// a handle without a generation is a fatal assertion.
func (h Handle) Generation() uint64 {
	if h.gen == 0 {
		fatalf(Logger(), "arena: Generation called on an invalid handle")
	}
	return h.gen - 1
}

// HasGeneration reports whether the handle was produced by Create.
func (h Handle) HasGeneration() bool {
	return h.gen != 0
}

// Equal reports whether both handles name the same creation. Only generations
// are compared; a stale handle never equals the handle of a later occupant of
// the same slot.
func (h Handle) Equal(o Handle) bool {
	return h.gen == o.gen
}

func (h Handle) String() string {
	if !h.HasGeneration() {
		return "handle(invalid)"
	}
	return fmt.Sprintf("handle(%d@%d)", h.index, h.gen-1)
}
