package descriptor

import "github.com/cockroachdb/errors"

// Pool exhaustion errors. A Pool reports either of these when it cannot fit
// another set; the Allocator answers by retiring the pool and growing.
var (
	ErrOutOfPoolMemory = errors.New("descriptor: out of pool memory")
	ErrFragmentedPool  = errors.New("descriptor: fragmented pool")
)

// Kind identifies a descriptor type, for example a uniform buffer or a
// combined image sampler. Its values are defined by the backend.
type Kind uint32

// Ratio says how many descriptors of Kind to provision per set in a pool.
type Ratio struct {
	Kind   Kind
	PerSet float32
}

// PoolSize is the number of descriptors of one Kind a pool is created with.
type PoolSize struct {
	Kind  Kind
	Count uint32
}

// Pool is one fixed-capacity backend pool.
type Pool[L, S any] interface {
	// Allocate allocates a set with the given layout. Exhaustion must be
	// reported with an error matching ErrOutOfPoolMemory or ErrFragmentedPool.
	Allocate(layout L) (S, error)

	// Reset returns every set allocated from the pool.
	Reset() error

	// Destroy releases the pool's backing memory.
	Destroy()
}

// Factory creates backend pools.
type Factory[L, S any] interface {
	CreatePool(maxSets uint32, sizes []PoolSize) (Pool[L, S], error)
}

func exhausted(err error) bool {
	return errors.Is(err, ErrOutOfPoolMemory) || errors.Is(err, ErrFragmentedPool)
}
