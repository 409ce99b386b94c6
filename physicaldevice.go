package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

type PhysicalDevice struct {
	DeviceName                 string
	VKPhysicalDevice           vk.PhysicalDevice
	VKPhysicalDeviceProperties vk.PhysicalDeviceProperties
}

func newPhysicalDevice(pd vk.PhysicalDevice) *PhysicalDevice {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	props.Limits.Deref()

	return &PhysicalDevice{
		DeviceName:                 vk.ToString(props.DeviceName[:]),
		VKPhysicalDevice:           pd,
		VKPhysicalDeviceProperties: props,
	}
}

func (p *PhysicalDevice) String() string {
	return p.DeviceName
}

// QueueFamilies lists the device's queue families.
func (p *PhysicalDevice) QueueFamilies() QueueFamilySlice {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &count, nil)
	if count == 0 {
		return nil
	}

	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &count, props)

	ret := make(QueueFamilySlice, count)
	for i := range props {
		props[i].Deref()
		ret[i] = &QueueFamily{Index: i, VKQueueFamilyProperties: props[i]}
	}
	return ret
}

// MemoryTypes lists the device's memory types in index order.
func (p *PhysicalDevice) MemoryTypes() []vk.MemoryType {
	var mp vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(p.VKPhysicalDevice, &mp)
	mp.Deref()

	ret := make([]vk.MemoryType, 0, mp.MemoryTypeCount)
	for i := uint32(0); i < mp.MemoryTypeCount; i++ {
		mt := mp.MemoryTypes[i]
		mt.Deref()
		ret = append(ret, mt)
	}
	return ret
}

// FindMemoryType returns the index of the first memory type allowed by
// memoryTypeBits that has all of props.
func (p *PhysicalDevice) FindMemoryType(memoryTypeBits uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	return findMemoryType(p.MemoryTypes(), memoryTypeBits, props)
}

func findMemoryType(types []vk.MemoryType, memoryTypeBits uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	for i, mt := range types {
		if memoryTypeBits&(1<<uint(i)) != 0 && mt.PropertyFlags&props == props {
			return uint32(i), nil
		}
	}
	return 0, errors.Newf("no memory type in mask %#x has properties %#x", memoryTypeBits, uint32(props))
}
