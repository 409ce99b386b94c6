package vkres

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DeviceMemory maps to Vulkan DeviceMemory and can either be memory on the host or on the device
type DeviceMemory struct {
	Device         *Device
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
	Properties     vk.MemoryPropertyFlags
	// Ptr is the start of the mapping while the memory is mapped.
	Ptr unsafe.Pointer
}

// HostVisible reports whether the memory can be mapped.
func (d *DeviceMemory) HostVisible() bool {
	return d.Properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
}

// IsMapped returns true if the device memory is currently mapped
func (d *DeviceMemory) IsMapped() bool {
	return d.Ptr != nil
}

// Map maps the whole allocation and keeps it mapped until Unmap.
func (d *DeviceMemory) Map() (unsafe.Pointer, error) {
	if d.Ptr != nil {
		return d.Ptr, nil
	}
	if !d.HostVisible() {
		return nil, ErrNotHostVisible
	}
	var res unsafe.Pointer
	err := vk.Error(vk.MapMemory(d.Device.VKDevice, d.VKDeviceMemory, 0, vk.DeviceSize(d.Size), 0, &res))
	if err != nil {
		return nil, errors.Wrap(err, "mapping device memory")
	}
	d.Ptr = res
	return res, nil
}

// Bytes returns the mapped allocation. It is nil while the memory is not
// mapped.
func (d *DeviceMemory) Bytes() []byte {
	if d.Ptr == nil {
		return nil
	}
	return ToBytes(d.Ptr, int(d.Size))
}

// Unmap this memory
func (d *DeviceMemory) Unmap() {
	if d.Ptr == nil {
		return
	}
	d.Ptr = nil
	vk.UnmapMemory(d.Device.VKDevice, d.VKDeviceMemory)
}

// Destroy frees the memory, unmapping it first if needed.
func (d *DeviceMemory) Destroy() {
	if d == nil || d.Device == nil {
		return
	}
	d.Unmap()
	vk.FreeMemory(d.Device.VKDevice, d.VKDeviceMemory, nil)
}
