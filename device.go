package vkres

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Device wraps a logical device created by the caller. vkres never creates or
// destroys the device itself.
type Device struct {
	PhysicalDevice *PhysicalDevice
	VKDevice       vk.Device
}

// WrapDevice wraps a logical device and the physical device it was created
// from.
func WrapDevice(physical vk.PhysicalDevice, device vk.Device) *Device {
	return &Device{
		PhysicalDevice: newPhysicalDevice(physical),
		VKDevice:       device,
	}
}

func (d *Device) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s }", d.PhysicalDevice)
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() error {
	return vk.Error(vk.DeviceWaitIdle(d.VKDevice))
}

// GetQueue returns the first queue of the given family.
func (d *Device) GetQueue(qf *QueueFamily) *Queue {
	var vkq vk.Queue
	vk.GetDeviceQueue(d.VKDevice, uint32(qf.Index), 0, &vkq)

	return &Queue{
		Device:      d,
		QueueFamily: qf,
		VKQueue:     vkq,
	}
}

// Allocate allocates sizeInBytes of device memory from a memory type allowed
// by memoryTypeBits that has all of props.
func (d *Device) Allocate(sizeInBytes uint64, memoryTypeBits uint32, props vk.MemoryPropertyFlags) (*DeviceMemory, error) {
	typeIndex, err := d.PhysicalDevice.FindMemoryType(memoryTypeBits, props)
	if err != nil {
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(sizeInBytes),
		MemoryTypeIndex: typeIndex,
	}

	var deviceMemory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(d.VKDevice, &allocateInfo, nil, &deviceMemory)); err != nil {
		return nil, errors.Wrapf(err, "allocating %d bytes of device memory", sizeInBytes)
	}

	return &DeviceMemory{
		Device:         d,
		VKDeviceMemory: deviceMemory,
		Size:           sizeInBytes,
		Properties:     props,
	}, nil
}
