package vkres

import (
	"github.com/celer/vkres/arena"
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ImageInfo describes a 2D image to create.
type ImageInfo struct {
	Extent vk.Extent2D
	Format vk.Format
	Tiling vk.ImageTiling
	Usage  vk.ImageUsageFlagBits
}

// Image is a 2D device local image with its own memory and a color view.
type Image struct {
	Device      *Device
	VKImage     vk.Image
	VKImageView vk.ImageView
	Memory      *DeviceMemory
	Extent      vk.Extent2D
	Format      vk.Format
	// Layout is the layout the image is in once submitted work completes.
	Layout vk.ImageLayout
}

// CreateImage creates an image, allocates and binds device local memory for
// it and creates its view.
func (d *Device) CreateImage(info ImageInfo) (Image, error) {
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		return Image{}, errors.Newf("vkres: empty image extent %dx%d", info.Extent.Width, info.Extent.Height)
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    info.Format,
		Extent: vk.Extent3D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        info.Tiling,
		Usage:         vk.ImageUsageFlags(info.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var image vk.Image
	if err := vk.Error(vk.CreateImage(d.VKDevice, &imageInfo, nil, &image)); err != nil {
		return Image{}, errors.Wrapf(err, "creating %dx%d image", info.Extent.Width, info.Extent.Height)
	}
	img := Image{
		Device:  d,
		VKImage: image,
		Extent:  info.Extent,
		Format:  info.Format,
		Layout:  vk.ImageLayoutUndefined,
	}

	var mr vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.VKDevice, image, &mr)
	mr.Deref()

	mem, err := d.Allocate(uint64(mr.Size), mr.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		img.Release()
		return Image{}, err
	}
	img.Memory = mem

	if err := vk.Error(vk.BindImageMemory(d.VKDevice, image, mem.VKDeviceMemory, 0)); err != nil {
		img.Release()
		return Image{}, errors.Wrap(err, "binding image memory")
	}

	img.VKImageView, err = d.createImageView(image, info.Format, vk.ImageAspectColorBit)
	if err != nil {
		img.Release()
		return Image{}, err
	}
	return img, nil
}

// Release destroys the view, the image and its memory.
func (i Image) Release() {
	if i.Device == nil {
		return
	}
	var noView vk.ImageView
	if i.VKImageView != noView {
		vk.DestroyImageView(i.Device.VKDevice, i.VKImageView, nil)
	}
	vk.DestroyImage(i.Device.VKDevice, i.VKImage, nil)
	i.Memory.Destroy()
}

// ImageRef is a borrowed reference to an Image in a ResourceManager.
type ImageRef struct {
	arena.View[Image]
}

func (r ImageRef) VK() vk.Image {
	return r.Get().VKImage
}

func (r ImageRef) ImageView() vk.ImageView {
	return r.Get().VKImageView
}

func (r ImageRef) Extent() vk.Extent2D {
	return r.Get().Extent
}

func (r ImageRef) Format() vk.Format {
	return r.Get().Format
}

func (r ImageRef) Layout() vk.ImageLayout {
	return r.Get().Layout
}

func (r ImageRef) setLayout(l vk.ImageLayout) {
	r.Update(func(i *Image) { i.Layout = l })
}
