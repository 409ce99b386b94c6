package descriptor

import "fmt"

// Stats is a snapshot of an Allocator's pools.
type Stats struct {
	ReadyPools int
	FullPools  int
	// Capacity is the sum of the max set counts of every pool.
	Capacity uint64
	// Allocated counts sets handed out since the last ClearPools.
	Allocated uint64
	// NextPoolSets is the capacity the next created pool will have.
	NextPoolSets uint32
}

func (s Stats) String() string {
	return fmt.Sprintf("pools[ready %d, full %d, capacity %d, allocated %d, next %d]",
		s.ReadyPools, s.FullPools, s.Capacity, s.Allocated, s.NextPoolSets)
}

// Stats returns a snapshot of the allocator's pools.
func (a *Allocator[L, S]) Stats() Stats {
	s := Stats{
		ReadyPools:   len(a.ready),
		FullPools:    len(a.full),
		NextPoolSets: a.setsPerPool,
	}
	for _, pools := range [][]*pool[L, S]{a.ready, a.full} {
		for _, p := range pools {
			s.Capacity += uint64(p.capacity)
			s.Allocated += uint64(p.allocated)
		}
	}
	return s
}
