/*
Package vkres manages the lifetime of Vulkan resources for go: buffers, images, textures and the
descriptor sets that bind them to shaders.

Vulkan leaves every allocation to the application. Each buffer and image needs device memory of
the right type, data has to be staged through host visible memory and copied on a queue, and
descriptor pools have to be sized up front even though nobody knows how many sets a scene will
need. This package takes care of that bookkeeping so an application can say "make me a texture
from this file" and get back something it can bind.

Handles and ownership

Every resource lives in an arena (see package arena) and is referred to by a small generational
Handle. Creating a resource returns an Owner, which is the one value responsible for destroying
it. Handing a resource to something else is a Move; anything that only needs to look at a
resource borrows a Ref (BufferRef, ImageRef, TextureRef) instead. Using a handle after its
resource has been destroyed is caught every time, because the slot's generation no longer
matches, and it is treated as a programming error.

Resources may own other resources. A Texture owns the Image backing it, so releasing the
texture's Owner releases the image as well.

Descriptor sets

Descriptor sets come out of a growable allocator (see package descriptor). It starts with one
pool and, when a pool runs out, creates another one half again as large, up to a ceiling. Sets are
given back in bulk with ClearDescriptorPools, typically once per scene load.

Native Vulkan terms
	PhysicalDevice	the physical hardware device
	Device		the logical device, the target of most of the vulkan apis
	Queue		a queue which command buffers may be submitted to
	DeviceMemory	an allocation of memory on the host or device for use by buffers and images
	Buffer		a range of bytes (vertex, index, uniform or storage data)
	Image		a texel array, with an ImageView describing how it is read
	Sampler		filtering and addressing state used when a shader reads an image
	DescriptorSet	a mapping of buffers and images for use by shaders
	DescriptorSetLayout a description of what is in a descriptor set

A typical sequence looks like:

	1. Create the instance and logical device elsewhere, then wrap it with WrapDevice
	2. Create a ResourceManager for the device
	3. Create buffers and textures, uploading their data through the manager's staging buffer
	4. Describe the set layouts the pipelines use and allocate descriptor sets for them
	5. Write buffer and texture references into the sets
	6. Release the Owners when the scene is unloaded and clear the descriptor pools
	7. Destroy the ResourceManager before the device

Native vulkan structures are exposed on every object in fields prefixed with 'VK', so
applications aren't limited by what this package wraps.
*/
package vkres
