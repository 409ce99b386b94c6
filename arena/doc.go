// Package arena implements a generational arena for GPU-adjacent resources.
//
// Resources live in a contiguous slot slice and are named by a Handle, a
// (slot index, generation) pair. Every Create hands out a new generation, so a
// handle kept after its resource was destroyed never validates again, even
// once the slot is reused.
//
// # Ownership
//
// Create returns an *Owner, the only accessor that can destroy the resource:
//
//	buf, err := buffers.Create("vertices", func(h arena.Handle) (Buffer, error) {
//		return newBuffer(device, h, info)
//	})
//	if err != nil {
//		return err
//	}
//	defer buf.Release()
//
// Ownership is transferred with Move; the source becomes moved-from and its
// Release is a no-op. Transient access goes through a View, obtained from
// Owner.View or Arena.Access, which can read the resource but never destroy it.
//
// # Failure model
//
// Using a stale or zero handle, releasing twice through a stale handle, or
// touching a moved-from Owner are programming errors. They are logged and then
// panic with an assertion failure (see errors.IsAssertionFailure in
// github.com/cockroachdb/errors). A failing constructor is not a programming
// error: its error is returned and the arena is left unchanged.
//
// # Threading
//
// Arenas are single-threaded. Background loaders must hand their results back
// to the owning goroutine before calling Create or Destroy.
package arena
