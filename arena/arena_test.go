package arena

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type counter struct {
	destroyed map[string]int
}

func newCounter() *counter {
	return &counter{destroyed: make(map[string]int)}
}

type testResource struct {
	name    string
	handle  Handle
	counter *counter
}

func (r testResource) Release() {
	if r.counter == nil {
		return
	}
	r.counter.destroyed[r.name]++
}

func (c *counter) build(name string) Constructor[testResource] {
	return func(h Handle) (testResource, error) {
		return testResource{name: name, handle: h, counter: c}, nil
	}
}

func create(t *testing.T, a *Arena[testResource], c *counter, name string) *Owner[testResource] {
	t.Helper()
	o, err := a.Create(name, c.build(name))
	require.NoError(t, err)
	return o
}

// requireAssertion runs fn and checks it panicked with an assertion failure.
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

func TestCreateDestroyReuse(t *testing.T) {
	c := newCounter()
	a := New[testResource]("test")

	h1 := create(t, a, c, "a").Handle()
	assert.Equal(t, uint64(0), h1.Generation())
	assert.True(t, a.IsValid(h1))

	a.Destroy(h1)
	assert.Equal(t, 1, c.destroyed["a"])

	h2 := create(t, a, c, "b").Handle()
	assert.Equal(t, h1.Index(), h2.Index())
	assert.Equal(t, uint64(1), h2.Generation())
	assert.False(t, a.IsValid(h1))
	assert.True(t, a.IsValid(h2))
	assert.False(t, h1.Equal(h2))
}

func TestSlotReuseIsLIFO(t *testing.T) {
	c := newCounter()
	a := New[testResource]("test")

	var hs []Handle
	for _, name := range []string{"a", "b", "c", "d"} {
		hs = append(hs, create(t, a, c, name).Handle())
	}

	a.Destroy(hs[1])
	a.Destroy(hs[3])

	next := create(t, a, c, "e").Handle()
	assert.Equal(t, hs[3].Index(), next.Index())
	assert.Greater(t, next.Generation(), hs[3].Generation())

	next = create(t, a, c, "f").Handle()
	assert.Equal(t, hs[1].Index(), next.Index())

	next = create(t, a, c, "g").Handle()
	assert.Equal(t, uint64(4), next.Index())
}

func TestGenerationsAreUnique(t *testing.T) {
	c := newCounter()
	a := New[testResource]("test")

	seen := make(map[uint64]bool)
	var live []Handle
	for i := 0; i < 500; i++ {
		if i%3 == 2 && len(live) > 0 {
			a.Destroy(live[0])
			live = live[1:]
			continue
		}
		h := create(t, a, c, "r").Handle()
		require.False(t, seen[h.Generation()], "generation %d handed out twice", h.Generation())
		seen[h.Generation()] = true
		live = append(live, h)
	}

	assert.Equal(t, len(live), a.Len())
	assert.Equal(t, a.Cap(), a.Len()+a.Dormant())
	a.Each(func(h Handle, r testResource) bool {
		assert.True(t, a.IsValid(h))
		assert.True(t, r.handle.Equal(h))
		return true
	})
}

func TestStaleHandlesStayInvalid(t *testing.T) {
	c := newCounter()
	a := New[testResource]("test")

	var dead []Handle
	for i := 0; i < 50; i++ {
		h := create(t, a, c, "r").Handle()
		if i%2 == 0 {
			a.Destroy(h)
			dead = append(dead, h)
		}
	}
	for i := 0; i < 50; i++ {
		create(t, a, c, "again")
	}
	for _, h := range dead {
		assert.False(t, a.IsValid(h), "%s revalidated", h)
	}
}

func TestInvalidHandles(t *testing.T) {
	c := newCounter()
	a := New[testResource]("test")
	h := create(t, a, c, "tex").Handle()

	assert.False(t, a.IsValid(Handle{}))
	assert.False(t, a.IsValid(newHandle(7, 0)))

	requireAssertion(t, func() { a.Access(Handle{}) })
	requireAssertion(t, func() { a.Destroy(newHandle(9, 0)) })

	a.Destroy(h)
	requireAssertion(t, func() { a.Destroy(h) })
	requireAssertion(t, func() { a.Access(h) })
	assert.Equal(t, 1, c.destroyed["tex"])
}

func TestConstructorFailureConsumesNoSlot(t *testing.T) {
	c := newCounter()
	a := New[testResource]("test")

	boom := errors.New("vkCreateBuffer failed")
	o, err := a.Create("broken", func(Handle) (testResource, error) {
		return testResource{}, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, o)
	assert.Equal(t, 0, a.Cap())

	h := create(t, a, c, "ok").Handle()
	assert.Equal(t, uint64(0), h.Index())
	assert.Equal(t, uint64(1), h.Generation())
}

func TestReentrantCreatePanics(t *testing.T) {
	c := newCounter()
	a := New[testResource]("test")

	requireAssertion(t, func() {
		a.Create("outer", func(Handle) (testResource, error) {
			a.Create("inner", c.build("inner"))
			return testResource{}, nil
		})
	})

	// the arena recovers once the panic unwinds
	create(t, a, c, "after")
	assert.Equal(t, 1, a.Len())
}

func TestBacklogWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newCounter()
	a := New[testResource]("test", WithLogger(zap.New(core)))

	var hs []Handle
	for i := 0; i < 101; i++ {
		hs = append(hs, create(t, a, c, "r").Handle())
	}
	assert.Equal(t, 0, logs.FilterMessage("dormant slot backlog above threshold").Len())

	for _, h := range hs {
		a.Destroy(h)
	}
	assert.Equal(t, 101, a.Dormant())

	create(t, a, c, "r")
	entries := logs.FilterMessage("dormant slot backlog above threshold").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(101), entries[0].ContextMap()["dormant"])
	assert.Equal(t, 100, a.Dormant())
}

func TestBacklogThresholdOption(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newCounter()
	a := New[testResource]("test", WithLogger(zap.New(core)), WithBacklogThreshold(2), WithCapacity(8))

	for i := 0; i < 3; i++ {
		a.Destroy(create(t, a, c, "r").Handle())
	}
	// only one slot ever cycles, the backlog never grows past 1
	create(t, a, c, "r")
	assert.Equal(t, 0, logs.Len())

	var hs []Handle
	for i := 0; i < 3; i++ {
		hs = append(hs, create(t, a, c, "r").Handle())
	}
	for _, h := range hs {
		a.Destroy(h)
	}
	create(t, a, c, "r")
	assert.Equal(t, 1, logs.Len())
}

func TestDestroyAll(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newCounter()
	a := New[testResource]("test", WithLogger(zap.New(core)))

	create(t, a, c, "a")
	b := create(t, a, c, "b")
	create(t, a, c, "c")
	b.Release()

	assert.Equal(t, 2, a.DestroyAll())
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 2, logs.FilterMessage("destroying leaked resource").Len())
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, c.destroyed)
}

func TestStats(t *testing.T) {
	c := newCounter()
	a := New[testResource]("image")
	create(t, a, c, "a")
	create(t, a, c, "b").Release()

	s := a.Stats()
	assert.Equal(t, Stats{Kind: "image", Live: 1, Dormant: 1, Slots: 2, Created: 2}, s)
	assert.Equal(t, "image[live 1, dormant 1, slots 2, created 2]", s.String())
}

func TestNameSurvivesDestroy(t *testing.T) {
	c := newCounter()
	a := New[testResource]("test")
	h := create(t, a, c, "albedo").Handle()
	a.Destroy(h)
	assert.Equal(t, "albedo", a.Name(h))
	assert.Equal(t, "", a.Name(newHandle(42, 3)))
}
