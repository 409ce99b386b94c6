package vkres

import (
	"github.com/celer/vkres/arena"
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// TextureInfo describes a sampled texture.
type TextureInfo struct {
	Extent vk.Extent2D
	// Format defaults to R8G8B8A8 unorm.
	Format vk.Format
	// Nearest selects nearest filtering instead of linear.
	Nearest bool
	// AddressMode applies to all three coordinates. The zero value repeats.
	AddressMode vk.SamplerAddressMode
}

func (t TextureInfo) imageInfo() ImageInfo {
	format := t.Format
	if format == vk.FormatUndefined {
		format = vk.FormatR8g8b8a8Unorm
	}
	return ImageInfo{
		Extent: t.Extent,
		Format: format,
		Tiling: vk.ImageTilingOptimal,
		Usage:  vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit,
	}
}

func (t TextureInfo) samplerInfo() vk.SamplerCreateInfo {
	filter := vk.FilterLinear
	mipmap := vk.SamplerMipmapModeLinear
	if t.Nearest {
		filter = vk.FilterNearest
		mipmap = vk.SamplerMipmapModeNearest
	}
	return vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapMode:   mipmap,
		AddressModeU: t.AddressMode,
		AddressModeV: t.AddressMode,
		AddressModeW: t.AddressMode,
		CompareOp:    vk.CompareOpAlways,
		BorderColor:  vk.BorderColorIntOpaqueBlack,
	}
}

func (d *Device) createSampler(info TextureInfo) (vk.Sampler, error) {
	createInfo := info.samplerInfo()
	var sampler vk.Sampler
	if err := vk.Error(vk.CreateSampler(d.VKDevice, &createInfo, nil, &sampler)); err != nil {
		return sampler, errors.Wrap(err, "creating sampler")
	}
	return sampler, nil
}

// Texture is an image paired with a sampler. The texture owns its image, and
// releasing the texture releases the image.
type Texture struct {
	Device    *Device
	VKSampler vk.Sampler
	image     *arena.Owner[Image]
}

// Release destroys the sampler and the owned image.
func (t Texture) Release() {
	if t.Device != nil {
		vk.DestroySampler(t.Device.VKDevice, t.VKSampler, nil)
	}
	t.image.Release()
}

// TextureRef is a borrowed reference to a Texture in a ResourceManager.
type TextureRef struct {
	arena.View[Texture]
}

// Image returns the texture's image.
func (r TextureRef) Image() ImageRef {
	return ImageRef{r.Get().image.View()}
}

func (r TextureRef) ImageView() vk.ImageView {
	return r.Image().ImageView()
}

func (r TextureRef) Sampler() vk.Sampler {
	return r.Get().VKSampler
}

// DescriptorInfo describes the texture as a combined image sampler in the
// image's current layout.
func (r TextureRef) DescriptorInfo() vk.DescriptorImageInfo {
	img := r.Image().Get()
	return vk.DescriptorImageInfo{
		Sampler:     r.Sampler(),
		ImageView:   img.VKImageView,
		ImageLayout: img.Layout,
	}
}
