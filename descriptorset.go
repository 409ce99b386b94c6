package vkres

import (
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorSet is a binding of resources to a descriptor, per a specific DescriptorSetLayout
type DescriptorSet struct {
	Device          *Device
	VKDescriptorSet vk.DescriptorSet
	writes          []vk.WriteDescriptorSet
}

// AddBuffer queues a write of buf from offset to its end into dstBinding.
func (s *DescriptorSet) AddBuffer(dstBinding uint32, dtype vk.DescriptorType, buf BufferRef, offset uint64) *DescriptorSet {
	s.writes = append(s.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      dstBinding,
		DescriptorCount: 1,
		DescriptorType:  dtype,
		PBufferInfo:     []vk.DescriptorBufferInfo{buf.DescriptorInfo(offset)},
	})
	return s
}

// AddCombinedImageSampler queues a write of tex into dstBinding.
func (s *DescriptorSet) AddCombinedImageSampler(dstBinding uint32, tex TextureRef) *DescriptorSet {
	s.writes = append(s.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      dstBinding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{tex.DescriptorInfo()},
	})
	return s
}

// Pending returns the number of queued writes.
func (s *DescriptorSet) Pending() int {
	return len(s.writes)
}

// Write applies and clears the queued writes.
func (s *DescriptorSet) Write() {
	if len(s.writes) == 0 {
		return
	}
	for i := range s.writes {
		s.writes[i].DstSet = s.VKDescriptorSet
	}
	vk.UpdateDescriptorSets(s.Device.VKDevice, uint32(len(s.writes)), s.writes, 0, nil)
	s.writes = s.writes[:0]
}
