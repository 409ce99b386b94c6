package descriptor

import (
	"math"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const (
	// DefaultMaxSetsPerPool caps the size of grown pools.
	DefaultMaxSetsPerPool = 4092

	// DefaultGrowthFactor scales the size of each new pool over the last.
	DefaultGrowthFactor = 1.5
)

// ErrNotInitialized is returned by Allocate before Init.
var ErrNotInitialized = errors.New("descriptor: allocator not initialized")

// Config tunes pool growth. The zero value uses the defaults.
type Config struct {
	MaxSetsPerPool uint32
	GrowthFactor   float64
	Logger         *zap.Logger
}

type pool[L, S any] struct {
	Pool[L, S]
	capacity  uint32
	allocated uint32
}

// Allocator hands out descriptor sets from a growing set of pools, so callers
// never have to know up front how many sets a scene needs.
//
// Pools with spare room sit in the ready list. A pool that reports exhaustion
// moves to the full list and stays there until ClearPools. When no ready pool
// is left a new one is created, each one GrowthFactor larger than the last up
// to MaxSetsPerPool.
//
// Allocator is not safe for concurrent use.
type Allocator[L, S any] struct {
	factory Factory[L, S]
	ratios  []Ratio

	ready       []*pool[L, S]
	full        []*pool[L, S]
	setsPerPool uint32

	maxSets uint32
	growth  float64
	log     *zap.Logger
}

// NewAllocator creates an allocator drawing pools from factory. Call Init
// before Allocate.
func NewAllocator[L, S any](factory Factory[L, S], cfg Config) *Allocator[L, S] {
	if cfg.MaxSetsPerPool == 0 {
		cfg.MaxSetsPerPool = DefaultMaxSetsPerPool
	}
	if cfg.GrowthFactor <= 1 {
		cfg.GrowthFactor = DefaultGrowthFactor
	}
	if cfg.Logger == nil {
		cfg.Logger = Logger()
	}
	return &Allocator[L, S]{
		factory: factory,
		maxSets: cfg.MaxSetsPerPool,
		growth:  cfg.GrowthFactor,
		log:     cfg.Logger,
	}
}

// Init creates the first pool with room for initialSets sets, provisioning
// descriptors of each kind in proportion to ratios.
//
// The ratios are not checked against the layouts later passed to Allocate. A
// layout needing a kind that was never provisioned exhausts every pool.
func (a *Allocator[L, S]) Init(initialSets uint32, ratios []Ratio) error {
	if a.ratios != nil {
		return errors.New("descriptor: allocator already initialized")
	}
	if initialSets == 0 {
		return errors.New("descriptor: initial set count must be positive")
	}
	if len(ratios) == 0 {
		return errors.New("descriptor: at least one pool size ratio is required")
	}

	a.ratios = append([]Ratio(nil), ratios...)
	p, err := a.createPool(initialSets)
	if err != nil {
		a.ratios = nil
		return err
	}
	a.ready = append(a.ready, p)
	a.setsPerPool = a.grow(initialSets)
	return nil
}

// Allocate allocates one set with layout. If the pool it draws from is
// exhausted the pool is retired and the allocation is retried once on a fresh
// pool. Failing again is a fatal assertion: the pool sizing cannot satisfy the
// layout at all.
//
// Other backend errors are returned to the caller.
func (a *Allocator[L, S]) Allocate(layout L) (S, error) {
	var zero S
	if a.ratios == nil {
		return zero, ErrNotInitialized
	}

	p, err := a.getPool()
	if err != nil {
		return zero, err
	}

	set, err := p.Allocate(layout)
	if exhausted(err) {
		a.log.Debug("descriptor pool exhausted",
			zap.Uint32("capacity", p.capacity),
			zap.Uint32("allocated", p.allocated),
			zap.Error(err))
		a.full = append(a.full, p)

		p, err = a.getPool()
		if err != nil {
			return zero, err
		}
		set, err = p.Allocate(layout)
		if err != nil {
			a.ready = append(a.ready, p)
			err = errors.AssertionFailedf("descriptor set allocation failed after growing to a %d set pool: %v", p.capacity, err)
			a.log.Error("descriptor allocation failed twice", zap.Error(err))
			panic(err)
		}
	} else if err != nil {
		a.ready = append(a.ready, p)
		return zero, errors.Wrap(err, "allocating descriptor set")
	}

	p.allocated++
	a.ready = append(a.ready, p)
	return set, nil
}

// ClearPools resets every pool, returning all of their sets, and makes the
// full pools ready again. Pools are kept for reuse.
func (a *Allocator[L, S]) ClearPools() error {
	var errs []error
	for _, p := range a.ready {
		errs = append(errs, a.reset(p))
	}
	for _, p := range a.full {
		errs = append(errs, a.reset(p))
		a.ready = append(a.ready, p)
	}
	a.full = a.full[:0]
	return errors.Join(errs...)
}

// DestroyPools releases every pool. The allocator stays initialized and
// creates a new pool on the next Allocate.
func (a *Allocator[L, S]) DestroyPools() {
	for _, p := range a.ready {
		p.Destroy()
	}
	for _, p := range a.full {
		p.Destroy()
	}
	a.ready = nil
	a.full = nil
}

// NextPoolSets returns the capacity the next created pool will have.
func (a *Allocator[L, S]) NextPoolSets() uint32 {
	return a.setsPerPool
}

func (a *Allocator[L, S]) reset(p *pool[L, S]) error {
	p.allocated = 0
	if err := p.Reset(); err != nil {
		return errors.Wrapf(err, "resetting %d set descriptor pool", p.capacity)
	}
	return nil
}

func (a *Allocator[L, S]) getPool() (*pool[L, S], error) {
	if n := len(a.ready); n > 0 {
		p := a.ready[n-1]
		a.ready = a.ready[:n-1]
		return p, nil
	}

	p, err := a.createPool(a.setsPerPool)
	if err != nil {
		return nil, err
	}
	a.setsPerPool = a.grow(a.setsPerPool)
	return p, nil
}

// grow returns the pool size following sets.
func (a *Allocator[L, S]) grow(sets uint32) uint32 {
	next := math.Ceil(float64(sets) * a.growth)
	if next >= float64(a.maxSets) {
		a.log.Warn("descriptor pool size saturated",
			zap.Uint32("sets", a.maxSets),
			zap.Float64("wanted", next))
		return a.maxSets
	}
	return uint32(next)
}

func (a *Allocator[L, S]) createPool(sets uint32) (*pool[L, S], error) {
	sizes := make([]PoolSize, 0, len(a.ratios))
	for _, r := range a.ratios {
		sizes = append(sizes, PoolSize{
			Kind:  r.Kind,
			Count: uint32(r.PerSet * float32(sets)),
		})
	}

	p, err := a.factory.CreatePool(sets, sizes)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %d set descriptor pool", sets)
	}
	a.log.Debug("created descriptor pool", zap.Uint32("sets", sets))
	return &pool[L, S]{Pool: p, capacity: sets}, nil
}
