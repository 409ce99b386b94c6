package arena

// Owner is the owning accessor returned by Arena.Create. It holds the single
// obligation to destroy its resource and must not be copied: use Move to hand
// the obligation to someone else.
//
// An Owner is either owning or moved-from. Release destroys the resource when
// owning and does nothing when moved-from, so the resource is destroyed
// exactly once however many times ownership changes hands.
type Owner[T Resource] struct {
	noCopy noCopy

	arena  *Arena[T]
	handle Handle
}

// Handle returns the handle of the owned resource. It stays readable after a
// move so callers can log what they used to own.
func (o *Owner[T]) Handle() Handle {
	return o.handle
}

// Owning reports whether o still carries the destroy obligation.
func (o *Owner[T]) Owning() bool {
	return o != nil && o.arena != nil
}

// Move transfers the destroy obligation to a new Owner and leaves o moved-from.
func (o *Owner[T]) Move() *Owner[T] {
	a := o.mustOwn("Move")
	n := &Owner[T]{arena: a, handle: o.handle}
	o.arena = nil
	return n
}

// Release destroys the resource if o is owning. Calling Release on a nil or
// moved-from Owner is a no-op, which makes it safe to defer.
func (o *Owner[T]) Release() {
	if !o.Owning() {
		return
	}
	a := o.arena
	o.arena = nil
	a.Destroy(o.handle)
}

// View returns a borrowed, non-owning view of the resource.
func (o *Owner[T]) View() View[T] {
	return o.mustOwn("View").Access(o.handle)
}

// Get returns the resource, resolving the handle on every call.
func (o *Owner[T]) Get() T {
	return o.mustOwn("Get").get("Get", o.handle)
}

// Update calls fn with a pointer to the resource stored in the arena. The
// pointer is only valid for the duration of fn.
func (o *Owner[T]) Update(fn func(*T)) {
	o.mustOwn("Update").update("Update", o.handle, fn)
}

func (o *Owner[T]) mustOwn(op string) *Arena[T] {
	if o.arena == nil {
		fatalf(Logger(), "arena: %s on moved-from owner of %s", op, o.handle)
	}
	return o.arena
}

// View is a borrowed accessor. It is a plain value that may be copied freely
// and can read or update the resource, but can never destroy it. A View must
// not outlive the Owner of its resource; using it afterwards is a fatal
// assertion.
type View[T Resource] struct {
	arena  *Arena[T]
	handle Handle
}

// Handle returns the handle the view resolves through.
func (v View[T]) Handle() Handle {
	return v.handle
}

// Valid reports whether the viewed resource is still alive.
func (v View[T]) Valid() bool {
	return v.arena != nil && v.arena.IsValid(v.handle)
}

// Get returns the resource, resolving the handle on every call.
func (v View[T]) Get() T {
	return v.mustArena("Get").get("Get", v.handle)
}

// Update calls fn with a pointer to the resource stored in the arena. The
// pointer is only valid for the duration of fn.
func (v View[T]) Update(fn func(*T)) {
	v.mustArena("Update").update("Update", v.handle, fn)
}

// Name returns the name the resource was created with.
func (v View[T]) Name() string {
	return v.mustArena("Name").Name(v.handle)
}

func (v View[T]) mustArena(op string) *Arena[T] {
	if v.arena == nil {
		fatalf(Logger(), "arena: %s on zero view", op)
	}
	return v.arena
}
