package arena

import (
	"go.uber.org/zap"
)

// DefaultBacklogThreshold is the number of dormant slots above which Create
// warns that resources are retired faster than their slots are reused.
const DefaultBacklogThreshold = 100

// Resource is implemented by every value an Arena manages. Release frees
// whatever the value holds; releasing a zero value must be a no-op.
type Resource interface {
	Release()
}

// Constructor builds the resource that will occupy the slot named by h. A
// failed construction leaves the arena untouched.
type Constructor[T Resource] func(h Handle) (T, error)

type slot[T Resource] struct {
	value  T
	handle Handle
	name   string
}

// Arena is a generational store of resources. Create and Destroy are O(1)
// amortized, dormant slots are reused most-recently-freed first, and a handle
// whose slot has been reused never validates again.
//
// Arena is not safe for concurrent use. All calls must come from the goroutine
// that owns the arena.
type Arena[T Resource] struct {
	noCopy noCopy

	kind     string
	slots    []slot[T]
	free     []uint64
	next     uint64
	building bool

	backlog int
	log     *zap.Logger
}

// Option configures an Arena.
type Option func(*options)

type options struct {
	log      *zap.Logger
	backlog  int
	capacity int
}

// WithLogger sets the logger receiving the arena's warnings and assertion
// failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithBacklogThreshold overrides DefaultBacklogThreshold.
func WithBacklogThreshold(n int) Option {
	return func(o *options) { o.backlog = n }
}

// WithCapacity preallocates room for n slots.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// New creates an empty arena. kind names the resource type in diagnostics,
// for example "buffer" or "texture".
func New[T Resource](kind string, opts ...Option) *Arena[T] {
	o := options{backlog: DefaultBacklogThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = Logger()
	}
	if o.backlog <= 0 {
		o.backlog = DefaultBacklogThreshold
	}
	return &Arena[T]{
		kind:    kind,
		slots:   make([]slot[T], 0, o.capacity),
		free:    make([]uint64, 0, 16),
		backlog: o.backlog,
		log:     o.log.With(zap.String("kind", kind)),
	}
}

// Kind returns the diagnostic name given to New.
func (a *Arena[T]) Kind() string {
	return a.kind
}

// Create builds a resource with build and stores it, reusing the most recently
// freed slot when one exists. The returned Owner carries the obligation to
// destroy the resource.
//
// If build fails its error is returned and no slot is consumed. The generation
// reserved for the attempt is never handed out again.
func (a *Arena[T]) Create(name string, build Constructor[T]) (*Owner[T], error) {
	if a.building {
		fatalf(a.log, "%s arena: Create(%q) called while constructing another resource", a.kind, name)
	}

	if len(a.free) > a.backlog {
		a.log.Warn("dormant slot backlog above threshold",
			zap.Int("dormant", len(a.free)),
			zap.Int("threshold", a.backlog),
			zap.String("name", name))
	}

	index := uint64(len(a.slots))
	reuse := len(a.free) > 0
	if reuse {
		index = a.free[len(a.free)-1]
	}

	h := newHandle(index, a.next)
	a.next++

	a.building = true
	value, err := func() (T, error) {
		defer func() { a.building = false }()
		return build(h)
	}()
	if err != nil {
		return nil, err
	}

	s := slot[T]{value: value, handle: h, name: name}
	if reuse {
		a.free = a.free[:len(a.free)-1]
		a.slots[index] = s
		a.log.Debug("reused dormant slot", zap.String("name", name), zap.Stringer("handle", h))
	} else {
		a.slots = append(a.slots, s)
	}

	return &Owner[T]{arena: a, handle: h}, nil
}

// Destroy releases the resource named by h and queues its slot for reuse.
// Destroying a stale, foreign or zero handle is a fatal assertion.
func (a *Arena[T]) Destroy(h Handle) {
	if a.building {
		fatalf(a.log, "%s arena: Destroy(%s) called while constructing another resource", a.kind, h)
	}
	s := a.mustSlot("Destroy", h)

	value := s.value
	var zero T
	s.value = zero
	s.handle = Handle{}
	a.free = append(a.free, h.index)

	value.Release()
}

// Access returns a borrowed view of the resource named by h. A View never
// destroys the resource; the Owner returned by Create stays responsible for
// that.
func (a *Arena[T]) Access(h Handle) View[T] {
	a.mustSlot("Access", h)
	return View[T]{arena: a, handle: h}
}

// IsValid reports whether h names a live resource of this arena.
func (a *Arena[T]) IsValid(h Handle) bool {
	return h.HasGeneration() &&
		h.index < uint64(len(a.slots)) &&
		a.slots[h.index].handle.gen == h.gen
}

// Name returns the last name recorded for the slot h points at, or "" when the
// index was never allocated.
func (a *Arena[T]) Name(h Handle) string {
	if h.index >= uint64(len(a.slots)) {
		return ""
	}
	return a.slots[h.index].name
}

// Len returns the number of live resources.
func (a *Arena[T]) Len() int {
	return len(a.slots) - len(a.free)
}

// Cap returns the number of slots, live or dormant.
func (a *Arena[T]) Cap() int {
	return len(a.slots)
}

// Dormant returns the number of retired slots awaiting reuse.
func (a *Arena[T]) Dormant() int {
	return len(a.free)
}

// Each calls fn for every live resource in slot order until fn returns false.
// fn must not create or destroy resources in this arena.
func (a *Arena[T]) Each(fn func(Handle, T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.handle.HasGeneration() {
			continue
		}
		if !fn(s.handle, s.value) {
			return
		}
	}
}

// DestroyAll destroys every live resource and returns how many there were.
// Each one is logged as a leak. Owners still referring to these resources
// become stale and must not be released afterwards.
func (a *Arena[T]) DestroyAll() int {
	var live []Handle
	a.Each(func(h Handle, _ T) bool {
		live = append(live, h)
		return true
	})
	n := 0
	for _, h := range live {
		if !a.IsValid(h) {
			// released by an earlier resource that owned it
			continue
		}
		a.log.Warn("destroying leaked resource",
			zap.String("name", a.slots[h.index].name),
			zap.Stringer("handle", h))
		a.Destroy(h)
		n++
	}
	return n
}

func (a *Arena[T]) get(op string, h Handle) T {
	return a.mustSlot(op, h).value
}

func (a *Arena[T]) update(op string, h Handle, fn func(*T)) {
	fn(&a.mustSlot(op, h).value)
}

func (a *Arena[T]) mustSlot(op string, h Handle) *slot[T] {
	if !a.IsValid(h) {
		fatalf(a.log, "%s arena: %s on invalid %s (last known name %q)", a.kind, op, h, a.Name(h))
	}
	return &a.slots[h.index]
}

// noCopy may be embedded into structs which must not be copied after first
// use. See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
