package vkres

import (
	"github.com/celer/vkres/descriptor"
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorSetLayout describes the layout of a descriptorset
type DescriptorSetLayout struct {
	Device                        *Device
	VKDescriptorSetLayout         vk.DescriptorSetLayout
	VKDescriptorSetLayoutBindings []vk.DescriptorSetLayoutBinding
}

func (d *Device) NewDescriptorSetLayout() *DescriptorSetLayout {
	return &DescriptorSetLayout{Device: d}
}

// AddBinding adds a binding of count descriptors visible to stages.
func (l *DescriptorSetLayout) AddBinding(binding uint32, dtype vk.DescriptorType, count uint32, stages vk.ShaderStageFlagBits) *DescriptorSetLayout {
	l.VKDescriptorSetLayoutBindings = append(l.VKDescriptorSetLayoutBindings, vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  dtype,
		DescriptorCount: count,
		StageFlags:      vk.ShaderStageFlags(stages),
	})
	return l
}

// Create creates the Vulkan layout from the added bindings.
func (l *DescriptorSetLayout) Create() error {
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(l.VKDescriptorSetLayoutBindings)),
		PBindings:    l.VKDescriptorSetLayoutBindings,
	}

	var layout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(l.Device.VKDevice, &createInfo, nil, &layout)); err != nil {
		return errors.Wrap(err, "creating descriptor set layout")
	}
	l.VKDescriptorSetLayout = layout
	return nil
}

// Counts returns how many descriptors of each type one set of this layout
// uses, in order of first appearance.
func (l *DescriptorSetLayout) Counts() []descriptor.PoolSize {
	var sizes []descriptor.PoolSize
	index := make(map[descriptor.Kind]int)
	for _, b := range l.VKDescriptorSetLayoutBindings {
		k := DescriptorKind(b.DescriptorType)
		i, ok := index[k]
		if !ok {
			i = len(sizes)
			index[k] = i
			sizes = append(sizes, descriptor.PoolSize{Kind: k})
		}
		sizes[i].Count += b.DescriptorCount
	}
	return sizes
}

// Destroy destroys this descriptor set layout
func (l *DescriptorSetLayout) Destroy() {
	vk.DestroyDescriptorSetLayout(l.Device.VKDevice, l.VKDescriptorSetLayout, nil)
}
