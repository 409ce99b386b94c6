package descriptor

import (
	"github.com/cockroachdb/errors"
)

// HostLayout describes a set layout for HostBackend as the number of
// descriptors of each kind one set consumes.
type HostLayout []PoolSize

// HostSet is a set allocated by HostBackend.
type HostSet struct {
	// Pool is the creation index of the pool the set came from.
	Pool int
	// Slot is the set's position within its pool since the last reset.
	Slot uint32
}

// HostBackend is an in-memory Factory that accounts for sets and descriptors
// the way a driver pool would, without any device. It reports
// ErrOutOfPoolMemory when a pool runs out of sets or of any descriptor kind.
type HostBackend struct {
	created   int
	destroyed int
}

var _ Factory[HostLayout, HostSet] = (*HostBackend)(nil)

// CreatePool implements Factory.
func (b *HostBackend) CreatePool(maxSets uint32, sizes []PoolSize) (Pool[HostLayout, HostSet], error) {
	if maxSets == 0 {
		return nil, errors.New("descriptor: pool needs room for at least one set")
	}
	p := &hostPool{
		backend: b,
		id:      b.created,
		maxSets: maxSets,
		limit:   make(map[Kind]uint32, len(sizes)),
		used:    make(map[Kind]uint32, len(sizes)),
	}
	for _, s := range sizes {
		p.limit[s.Kind] += s.Count
	}
	b.created++
	return p, nil
}

// Created returns the number of pools created so far.
func (b *HostBackend) Created() int { return b.created }

// Live returns the number of pools created and not yet destroyed.
func (b *HostBackend) Live() int { return b.created - b.destroyed }

type hostPool struct {
	backend   *HostBackend
	id        int
	maxSets   uint32
	sets      uint32
	limit     map[Kind]uint32
	used      map[Kind]uint32
	destroyed bool
}

func (p *hostPool) Allocate(layout HostLayout) (HostSet, error) {
	if p.destroyed {
		return HostSet{}, errors.AssertionFailedf("descriptor: allocate from destroyed host pool %d", p.id)
	}
	if p.sets >= p.maxSets {
		return HostSet{}, errors.Wrapf(ErrOutOfPoolMemory, "host pool %d holds %d sets", p.id, p.maxSets)
	}
	for _, s := range layout {
		if p.used[s.Kind]+s.Count > p.limit[s.Kind] {
			return HostSet{}, errors.Wrapf(ErrOutOfPoolMemory,
				"host pool %d has %d of %d descriptors of kind %d in use, need %d more",
				p.id, p.used[s.Kind], p.limit[s.Kind], s.Kind, s.Count)
		}
	}
	for _, s := range layout {
		p.used[s.Kind] += s.Count
	}
	set := HostSet{Pool: p.id, Slot: p.sets}
	p.sets++
	return set, nil
}

func (p *hostPool) Reset() error {
	if p.destroyed {
		return errors.Newf("descriptor: reset of destroyed host pool %d", p.id)
	}
	p.sets = 0
	for k := range p.used {
		delete(p.used, k)
	}
	return nil
}

func (p *hostPool) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.backend.destroyed++
}
