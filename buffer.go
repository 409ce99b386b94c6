package vkres

import (
	"github.com/celer/vkres/arena"
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// BufferInfo describes a buffer to create.
type BufferInfo struct {
	Size  uint64
	Usage vk.BufferUsageFlagBits
	// Memory selects the memory type. Zero means device local. Host visible
	// memory stays mapped for the life of the buffer.
	Memory vk.MemoryPropertyFlagBits
}

// Buffer is a buffer with its own dedicated memory allocation.
type Buffer struct {
	Device   *Device
	VKBuffer vk.Buffer
	Memory   *DeviceMemory
	Size     uint64
	Usage    vk.BufferUsageFlags
}

// CreateBuffer creates a buffer, allocates and binds its memory and, for host
// visible memory, maps it.
func (d *Device) CreateBuffer(info BufferInfo) (Buffer, error) {
	if info.Size == 0 {
		return Buffer{}, errors.New("vkres: buffer size must be positive")
	}
	props := vk.MemoryPropertyFlags(info.Memory)
	if props == 0 {
		props = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(info.Size),
		Usage:       vk.BufferUsageFlags(info.Usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(d.VKDevice, &bufferCreateInfo, nil, &buffer)); err != nil {
		return Buffer{}, errors.Wrapf(err, "creating %d byte buffer", info.Size)
	}
	b := Buffer{
		Device:   d,
		VKBuffer: buffer,
		Size:     info.Size,
		Usage:    bufferCreateInfo.Usage,
	}

	var mr vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.VKDevice, buffer, &mr)
	mr.Deref()

	mem, err := d.Allocate(uint64(mr.Size), mr.MemoryTypeBits, props)
	if err != nil {
		b.Release()
		return Buffer{}, err
	}
	b.Memory = mem

	if err := vk.Error(vk.BindBufferMemory(d.VKDevice, buffer, mem.VKDeviceMemory, 0)); err != nil {
		b.Release()
		return Buffer{}, errors.Wrap(err, "binding buffer memory")
	}

	if mem.HostVisible() {
		if _, err := mem.Map(); err != nil {
			b.Release()
			return Buffer{}, err
		}
	}
	return b, nil
}

// HostVisible reports whether the buffer's memory is mapped.
func (b Buffer) HostVisible() bool {
	return b.Memory != nil && b.Memory.IsMapped()
}

// Release destroys the buffer and frees its memory.
func (b Buffer) Release() {
	if b.Device == nil {
		return
	}
	vk.DestroyBuffer(b.Device.VKDevice, b.VKBuffer, nil)
	b.Memory.Destroy()
}

// BufferRef is a borrowed reference to a Buffer in a ResourceManager.
type BufferRef struct {
	arena.View[Buffer]
}

func (r BufferRef) VK() vk.Buffer {
	return r.Get().VKBuffer
}

func (r BufferRef) Size() uint64 {
	return r.Get().Size
}

// DescriptorInfo describes the buffer from offset to its end. An offset that
// leaves no bytes to bind is a fatal assertion.
func (r BufferRef) DescriptorInfo(offset uint64) vk.DescriptorBufferInfo {
	b := r.Get()
	if offset >= b.Size {
		fatalf("vkres: descriptor offset %d is past the end of buffer %q of %d bytes", offset, r.Name(), b.Size)
	}
	return vk.DescriptorBufferInfo{
		Buffer: b.VKBuffer,
		Offset: vk.DeviceSize(offset),
		Range:  vk.DeviceSize(b.Size - offset),
	}
}

// Bytes returns the buffer's mapped memory. It fails with ErrNotHostVisible
// for device local buffers.
func (r BufferRef) Bytes() ([]byte, error) {
	b := r.Get()
	if !b.HostVisible() {
		return nil, errors.Wrapf(ErrNotHostVisible, "buffer %q", r.Name())
	}
	return b.Memory.Bytes()[:b.Size], nil
}

// Write copies data to the start of a host visible buffer.
func (r BufferRef) Write(data []byte) error {
	dst, err := r.Bytes()
	if err != nil {
		return err
	}
	if len(data) > len(dst) {
		return errors.Newf("vkres: %d bytes do not fit buffer %q of %d bytes", len(data), r.Name(), len(dst))
	}
	copy(dst, data)
	return nil
}
