package descriptor

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	uniformBuffer Kind = iota + 1
	combinedImageSampler
)

var (
	materialRatios = []Ratio{{Kind: uniformBuffer, PerSet: 1}, {Kind: combinedImageSampler, PerSet: 2}}
	materialLayout = HostLayout{{Kind: uniformBuffer, Count: 1}, {Kind: combinedImageSampler, Count: 2}}
)

// recordingFactory wraps HostBackend and remembers the size of every pool.
type recordingFactory struct {
	HostBackend
	sets []uint32
}

func (f *recordingFactory) CreatePool(maxSets uint32, sizes []PoolSize) (Pool[HostLayout, HostSet], error) {
	f.sets = append(f.sets, maxSets)
	return f.HostBackend.CreatePool(maxSets, sizes)
}

func newHostAllocator(t *testing.T, cfg Config, initial uint32) (*Allocator[HostLayout, HostSet], *recordingFactory) {
	t.Helper()
	f := &recordingFactory{}
	a := NewAllocator[HostLayout, HostSet](f, cfg)
	require.NoError(t, a.Init(initial, materialRatios))
	return a, f
}

func requireAssertion(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a fatal assertion")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.True(t, errors.IsAssertionFailure(err), "unexpected panic: %v", err)
	}()
	fn()
}

func TestAllocateGrowsWhenExhausted(t *testing.T) {
	a, f := newHostAllocator(t, Config{}, 10)
	assert.Equal(t, uint32(15), a.NextPoolSets())

	for i := 0; i < 10; i++ {
		set, err := a.Allocate(materialLayout)
		require.NoError(t, err)
		assert.Equal(t, 0, set.Pool)
		assert.Equal(t, uint32(i), set.Slot)
	}
	assert.Equal(t, []uint32{10}, f.sets)

	set, err := a.Allocate(materialLayout)
	require.NoError(t, err)
	assert.Equal(t, HostSet{Pool: 1, Slot: 0}, set)
	assert.Equal(t, []uint32{10, 15}, f.sets)

	assert.Equal(t, Stats{
		ReadyPools:   1,
		FullPools:    1,
		Capacity:     25,
		Allocated:    11,
		NextPoolSets: 23,
	}, a.Stats())
}

func TestPoolSizesFollowRatios(t *testing.T) {
	var got []PoolSize
	f := factoryFunc(func(maxSets uint32, sizes []PoolSize) (Pool[HostLayout, HostSet], error) {
		got = sizes
		return (&HostBackend{}).CreatePool(maxSets, sizes)
	})
	a := NewAllocator[HostLayout, HostSet](f, Config{})
	require.NoError(t, a.Init(8, []Ratio{{Kind: uniformBuffer, PerSet: 0.5}, {Kind: combinedImageSampler, PerSet: 3}}))
	assert.Equal(t, []PoolSize{{Kind: uniformBuffer, Count: 4}, {Kind: combinedImageSampler, Count: 24}}, got)
}

func TestGrowthIsMonotonicAndCapped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a, f := newHostAllocator(t, Config{MaxSetsPerPool: 50, Logger: zap.New(core)}, 10)

	for len(f.sets) < 8 {
		_, err := a.Allocate(materialLayout)
		require.NoError(t, err)
	}

	assert.Equal(t, []uint32{10, 15, 23, 35, 50, 50, 50, 50}, f.sets)
	for i := 1; i < len(f.sets); i++ {
		assert.GreaterOrEqual(t, f.sets[i], f.sets[i-1])
	}
	assert.Equal(t, uint32(50), a.NextPoolSets())
	assert.NotZero(t, logs.FilterMessage("descriptor pool size saturated").Len())
}

func TestDefaultCeiling(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a, _ := newHostAllocator(t, Config{Logger: zap.New(core)}, 3000)

	assert.Equal(t, uint32(DefaultMaxSetsPerPool), a.NextPoolSets())
	entries := logs.FilterMessage("descriptor pool size saturated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, uint32(4092), entries[0].ContextMap()["sets"])
}

func TestCeilingReachedExactlyWarns(t *testing.T) {
	for _, tc := range []struct {
		initial uint32
		next    uint32
		warns   int
	}{
		{2727, 4091, 0},
		{2728, 4092, 1},
	} {
		core, logs := observer.New(zapcore.WarnLevel)
		a, _ := newHostAllocator(t, Config{Logger: zap.New(core)}, tc.initial)

		assert.Equal(t, tc.next, a.NextPoolSets(), "initial %d", tc.initial)
		assert.Equal(t, tc.warns, logs.FilterMessage("descriptor pool size saturated").Len(), "initial %d", tc.initial)
	}
}

func TestUnprovisionedKindIsFatal(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	a, f := newHostAllocator(t, Config{Logger: zap.New(core)}, 10)

	storage := HostLayout{{Kind: 99, Count: 1}}
	requireAssertion(t, func() { a.Allocate(storage) })

	assert.Equal(t, []uint32{10, 15}, f.sets)
	assert.Equal(t, 1, logs.FilterMessage("descriptor allocation failed twice").Len())
}

func TestFragmentedPoolRetries(t *testing.T) {
	fails := map[int]error{0: ErrFragmentedPool}
	a := NewAllocator[HostLayout, HostSet](&scriptedFactory{fails: fails}, Config{})
	require.NoError(t, a.Init(4, materialRatios))

	set, err := a.Allocate(materialLayout)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Pool)
	assert.Equal(t, 1, a.Stats().FullPools)
}

func TestBackendErrorIsReturned(t *testing.T) {
	lost := errors.New("device lost")
	a := NewAllocator[HostLayout, HostSet](&scriptedFactory{fails: map[int]error{0: lost}}, Config{})
	require.NoError(t, a.Init(4, materialRatios))

	_, err := a.Allocate(materialLayout)
	require.ErrorIs(t, err, lost)
	assert.Equal(t, Stats{ReadyPools: 1, Capacity: 4, NextPoolSets: 6}, a.Stats())
}

func TestPoolCreationErrorIsReturned(t *testing.T) {
	oom := errors.New("out of host memory")
	a := NewAllocator[HostLayout, HostSet](factoryFunc(func(uint32, []PoolSize) (Pool[HostLayout, HostSet], error) {
		return nil, oom
	}), Config{})

	err := a.Init(4, materialRatios)
	require.ErrorIs(t, err, oom)

	_, err = a.Allocate(materialLayout)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestClearPools(t *testing.T) {
	a, f := newHostAllocator(t, Config{}, 10)
	for i := 0; i < 11; i++ {
		_, err := a.Allocate(materialLayout)
		require.NoError(t, err)
	}

	require.NoError(t, a.ClearPools())
	assert.Equal(t, Stats{ReadyPools: 2, Capacity: 25, NextPoolSets: 23}, a.Stats())

	// both pools have room again, no new pool is needed for another 25 sets
	for i := 0; i < 25; i++ {
		_, err := a.Allocate(materialLayout)
		require.NoError(t, err)
	}
	assert.Len(t, f.sets, 2)
}

func TestDestroyPools(t *testing.T) {
	a, f := newHostAllocator(t, Config{}, 10)
	for i := 0; i < 11; i++ {
		_, err := a.Allocate(materialLayout)
		require.NoError(t, err)
	}

	a.DestroyPools()
	assert.Equal(t, 0, f.Live())
	assert.Equal(t, Stats{NextPoolSets: 23}, a.Stats())

	_, err := a.Allocate(materialLayout)
	require.NoError(t, err)
	assert.Equal(t, []uint32{10, 15, 23}, f.sets)
	assert.Equal(t, 1, f.Live())
}

func TestInitValidation(t *testing.T) {
	tests := []struct {
		name   string
		sets   uint32
		ratios []Ratio
	}{
		{name: "zero sets", sets: 0, ratios: materialRatios},
		{name: "no ratios", sets: 10},
		{name: "empty ratios", sets: 10, ratios: []Ratio{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAllocator[HostLayout, HostSet](&HostBackend{}, Config{})
			assert.Error(t, a.Init(tt.sets, tt.ratios))
		})
	}

	a, _ := newHostAllocator(t, Config{}, 10)
	assert.Error(t, a.Init(10, materialRatios))
}

func TestAllocateBeforeInit(t *testing.T) {
	a := NewAllocator[HostLayout, HostSet](&HostBackend{}, Config{})
	_, err := a.Allocate(materialLayout)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

type factoryFunc func(uint32, []PoolSize) (Pool[HostLayout, HostSet], error)

func (f factoryFunc) CreatePool(maxSets uint32, sizes []PoolSize) (Pool[HostLayout, HostSet], error) {
	return f(maxSets, sizes)
}

// scriptedFactory creates pools whose first Allocate fails with the error
// scripted for the pool's creation index.
type scriptedFactory struct {
	fails   map[int]error
	created int
}

func (f *scriptedFactory) CreatePool(uint32, []PoolSize) (Pool[HostLayout, HostSet], error) {
	p := &scriptedPool{id: f.created, fail: f.fails[f.created]}
	f.created++
	return p, nil
}

type scriptedPool struct {
	id   int
	fail error
	n    uint32
}

func (p *scriptedPool) Allocate(HostLayout) (HostSet, error) {
	if err := p.fail; err != nil {
		p.fail = nil
		return HostSet{}, err
	}
	p.n++
	return HostSet{Pool: p.id, Slot: p.n - 1}, nil
}

func (p *scriptedPool) Reset() error { p.n = 0; return nil }
func (p *scriptedPool) Destroy()     {}
