// Package descriptor allocates descriptor sets from a list of pools that
// grows on demand.
//
// The Allocator is generic over the backend: L is the set layout type and S
// the set type. The root vkres package supplies a Vulkan backend; HostBackend
// is an in-memory one that needs no device.
//
//	alloc := descriptor.NewAllocator[descriptor.HostLayout, descriptor.HostSet](&descriptor.HostBackend{}, descriptor.Config{})
//	if err := alloc.Init(10, []descriptor.Ratio{{Kind: 1, PerSet: 1}}); err != nil {
//		return err
//	}
//	set, err := alloc.Allocate(descriptor.HostLayout{{Kind: 1, Count: 1}})
//
// Running out of room in a pool is never visible to the caller. Running out of
// room in a freshly grown pool is a fatal assertion.
package descriptor
