package vkres

import (
	"github.com/celer/vkres/descriptor"
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorAllocator grows Vulkan descriptor pools on demand.
type DescriptorAllocator = descriptor.Allocator[*DescriptorSetLayout, *DescriptorSet]

// DescriptorKind converts a descriptor type for the descriptor package.
func DescriptorKind(t vk.DescriptorType) descriptor.Kind {
	return descriptor.Kind(t)
}

// DescriptorRatio provisions perSet descriptors of type t for every set in a
// pool.
func DescriptorRatio(t vk.DescriptorType, perSet float32) descriptor.Ratio {
	return descriptor.Ratio{Kind: DescriptorKind(t), PerSet: perSet}
}

// NewDescriptorAllocator returns an allocator creating pools on d.
func NewDescriptorAllocator(d *Device, cfg descriptor.Config) *DescriptorAllocator {
	return descriptor.NewAllocator[*DescriptorSetLayout, *DescriptorSet](descriptorPoolFactory{device: d}, cfg)
}

type descriptorPoolFactory struct {
	device *Device
}

func (f descriptorPoolFactory) CreatePool(maxSets uint32, sizes []descriptor.PoolSize) (descriptor.Pool[*DescriptorSetLayout, *DescriptorSet], error) {
	p, err := f.device.CreateDescriptorPool(maxSets, sizes)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DescriptorPool is one fixed-size Vulkan descriptor pool.
type DescriptorPool struct {
	Device           *Device
	VKDescriptorPool vk.DescriptorPool
	MaxSets          uint32
}

// CreateDescriptorPool creates a pool holding maxSets sets and the given
// number of descriptors of each kind.
func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []descriptor.PoolSize) (*DescriptorPool, error) {
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(sizes))
	for _, s := range sizes {
		if s.Count == 0 {
			continue
		}
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            vk.DescriptorType(s.Kind),
			DescriptorCount: s.Count,
		})
	}

	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var pool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(d.VKDevice, &createInfo, nil, &pool)); err != nil {
		return nil, errors.Wrapf(err, "creating descriptor pool for %d sets", maxSets)
	}
	return &DescriptorPool{Device: d, VKDescriptorPool: pool, MaxSets: maxSets}, nil
}

// Allocate allocates one set with layout.
func (p *DescriptorPool) Allocate(layout *DescriptorSetLayout) (*DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.VKDescriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.VKDescriptorSetLayout},
	}

	var set vk.DescriptorSet
	if err := allocateResultError(vk.AllocateDescriptorSets(p.Device.VKDevice, &allocateInfo, &set)); err != nil {
		return nil, err
	}
	return &DescriptorSet{Device: p.Device, VKDescriptorSet: set}, nil
}

// Reset returns every set allocated from the pool.
func (p *DescriptorPool) Reset() error {
	return vk.Error(vk.ResetDescriptorPool(p.Device.VKDevice, p.VKDescriptorPool, 0))
}

func (p *DescriptorPool) Destroy() {
	vk.DestroyDescriptorPool(p.Device.VKDevice, p.VKDescriptorPool, nil)
}

// allocateResultError maps the pool exhaustion results of
// vkAllocateDescriptorSets to the descriptor package's errors.
func allocateResultError(res vk.Result) error {
	switch res {
	case vk.ErrorOutOfPoolMemory:
		return errors.Wrap(descriptor.ErrOutOfPoolMemory, "vkAllocateDescriptorSets")
	case vk.ErrorFragmentedPool:
		return errors.Wrap(descriptor.ErrFragmentedPool, "vkAllocateDescriptorSets")
	}
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, "vkAllocateDescriptorSets")
	}
	return nil
}
