package vkres

import (
	"fmt"
	"image"
	"time"

	"github.com/celer/vkres/arena"
	"github.com/celer/vkres/descriptor"
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

const (
	DefaultDescriptorSets = 64
	DefaultStagingSize    = 64 << 20
	DefaultUploadTimeout  = 100 * time.Second
)

// DefaultDescriptorRatios provisions pools for material sets made of
// uniform buffers and a handful of textures.
var DefaultDescriptorRatios = []descriptor.Ratio{
	DescriptorRatio(vk.DescriptorTypeUniformBuffer, 1),
	DescriptorRatio(vk.DescriptorTypeCombinedImageSampler, 4),
	DescriptorRatio(vk.DescriptorTypeStorageBuffer, 1),
}

// ResourceManagerConfig configures a ResourceManager. Zero fields take the
// defaults.
type ResourceManagerConfig struct {
	// Queue receives uploads. Defaults to the first queue of the first
	// graphics family, which must have been enabled on the device.
	Queue *Queue

	// BacklogThreshold is passed to every arena.
	BacklogThreshold int

	DescriptorSets   uint32
	DescriptorRatios []descriptor.Ratio
	MaxSetsPerPool   uint32

	StagingSize   uint64
	UploadTimeout time.Duration

	// MaxTextureExtent bounds the sides of textures loaded from images.
	// Defaults to the device's 2D image limit.
	MaxTextureExtent uint32

	Logger *zap.Logger
}

func (c ResourceManagerConfig) withDefaults() ResourceManagerConfig {
	if c.DescriptorSets == 0 {
		c.DescriptorSets = DefaultDescriptorSets
	}
	if len(c.DescriptorRatios) == 0 {
		c.DescriptorRatios = DefaultDescriptorRatios
	}
	if c.StagingSize == 0 {
		c.StagingSize = DefaultStagingSize
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = DefaultUploadTimeout
	}
	if c.Logger == nil {
		c.Logger = Logger()
	}
	return c
}

// ResourceManager owns every buffer, image and texture created through it,
// along with the descriptor pools sets are allocated from. Resources are
// handed out as arena owners; the caller releases them.
//
// A ResourceManager is not safe for concurrent use.
type ResourceManager struct {
	device      *Device
	log         *zap.Logger
	maxExtent   uint32
	buffers     *arena.Arena[Buffer]
	images      *arena.Arena[Image]
	textures    *arena.Arena[Texture]
	descriptors *DescriptorAllocator
	uploader    *Uploader
}

// NewResourceManager creates a resource manager on d.
func NewResourceManager(d *Device, cfg ResourceManagerConfig) (*ResourceManager, error) {
	cfg = cfg.withDefaults()

	queue := cfg.Queue
	if queue == nil {
		families := d.PhysicalDevice.QueueFamilies().FilterGraphics()
		if len(families) == 0 {
			return nil, errors.New("vkres: device has no graphics queue family")
		}
		queue = d.GetQueue(families[0])
	}

	maxExtent := cfg.MaxTextureExtent
	if maxExtent == 0 {
		maxExtent = d.PhysicalDevice.VKPhysicalDeviceProperties.Limits.MaxImageDimension2D
	}

	arenaOpts := []arena.Option{
		arena.WithLogger(cfg.Logger),
		arena.WithBacklogThreshold(cfg.BacklogThreshold),
	}
	m := &ResourceManager{
		device:    d,
		log:       cfg.Logger,
		maxExtent: maxExtent,
		buffers:   arena.New[Buffer]("buffer", arenaOpts...),
		images:    arena.New[Image]("image", arenaOpts...),
		textures:  arena.New[Texture]("texture", arenaOpts...),
		descriptors: NewDescriptorAllocator(d, descriptor.Config{
			MaxSetsPerPool: cfg.MaxSetsPerPool,
			Logger:         cfg.Logger,
		}),
	}

	if err := m.descriptors.Init(cfg.DescriptorSets, cfg.DescriptorRatios); err != nil {
		return nil, err
	}

	uploader, err := newUploader(d, queue, cfg.StagingSize, cfg.UploadTimeout, cfg.Logger)
	if err != nil {
		m.descriptors.DestroyPools()
		return nil, err
	}
	m.uploader = uploader
	return m, nil
}

// Device returns the device resources are created on.
func (m *ResourceManager) Device() *Device {
	return m.device
}

// CreateBuffer creates a buffer.
func (m *ResourceManager) CreateBuffer(name string, info BufferInfo) (*arena.Owner[Buffer], error) {
	o, err := m.buffers.Create(name, func(arena.Handle) (Buffer, error) {
		return m.device.CreateBuffer(info)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "buffer %q", name)
	}
	return o, nil
}

// CreateBufferWithData creates a device local buffer sized to src and
// uploads src into it. Index sources get index buffer usage added.
func (m *ResourceManager) CreateBufferWithData(name string, usage vk.BufferUsageFlagBits, src ByteSource) (*arena.Owner[Buffer], error) {
	data := src.Bytes()
	o, err := m.CreateBuffer(name, BufferInfo{
		Size:  uint64(len(data)),
		Usage: usage | usageFor(src) | vk.BufferUsageTransferDstBit,
	})
	if err != nil {
		return nil, err
	}

	ref := m.Buffer(o.Handle())
	if err := m.uploader.Submit(func(b *UploadBatch) error {
		return b.CopyBuffer(ref, data)
	}); err != nil {
		discardFailedUpload(m, o, err)
		return nil, errors.Wrapf(err, "uploading buffer %q", name)
	}
	return o, nil
}

// discardFailedUpload releases the destination of a failed upload, unless the
// GPU may still be writing it. Such a resource stays in its arena until
// Destroy, which waits for the device first.
func discardFailedUpload[T arena.Resource](m *ResourceManager, o *arena.Owner[T], err error) {
	if errors.Is(err, ErrUploadInFlight) {
		m.log.Warn("keeping upload destination until teardown",
			zap.Stringer("handle", o.Handle()),
			zap.Error(err))
		return
	}
	o.Release()
}

// CreateImage creates a device local image.
func (m *ResourceManager) CreateImage(name string, info ImageInfo) (*arena.Owner[Image], error) {
	o, err := m.images.Create(name, func(arena.Handle) (Image, error) {
		return m.device.CreateImage(info)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "image %q", name)
	}
	return o, nil
}

// CreateTexture creates a texture and the image it owns. The image is left
// undefined until something is uploaded into it.
func (m *ResourceManager) CreateTexture(name string, info TextureInfo) (*arena.Owner[Texture], error) {
	o, err := m.textures.Create(name, func(arena.Handle) (Texture, error) {
		img, err := m.CreateImage(name, info.imageInfo())
		if err != nil {
			return Texture{}, err
		}
		sampler, err := m.device.createSampler(info)
		if err != nil {
			img.Release()
			return Texture{}, err
		}
		return Texture{Device: m.device, VKSampler: sampler, image: img}, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "texture %q", name)
	}
	return o, nil
}

// CreateTextureFromImage creates an R8G8B8A8 texture holding src, shrunk to
// the maximum texture extent if needed.
func (m *ResourceManager) CreateTextureFromImage(name string, src *image.RGBA, info TextureInfo) (*arena.Owner[Texture], error) {
	src = ShrinkRGBA(src, int(m.maxExtent))
	b := src.Bounds()
	info.Extent = vk.Extent2D{Width: uint32(b.Dx()), Height: uint32(b.Dy())}
	info.Format = vk.FormatR8g8b8a8Unorm

	o, err := m.CreateTexture(name, info)
	if err != nil {
		return nil, err
	}

	img := m.Texture(o.Handle()).Image()
	if err := m.uploader.Submit(func(b *UploadBatch) error {
		return b.CopyImage(img, src.Pix)
	}); err != nil {
		discardFailedUpload(m, o, err)
		return nil, errors.Wrapf(err, "uploading texture %q", name)
	}
	return o, nil
}

// CreateTextureFromFile loads an image file into a new texture named after
// the file.
func (m *ResourceManager) CreateTextureFromFile(path string, info TextureInfo) (*arena.Owner[Texture], error) {
	src, err := LoadRGBA(path)
	if err != nil {
		return nil, err
	}
	return m.CreateTextureFromImage(path, src, info)
}

// Upload records several copies in a single submission.
func (m *ResourceManager) Upload(record func(b *UploadBatch) error) error {
	return m.uploader.Submit(record)
}

func (m *ResourceManager) Buffer(h arena.Handle) BufferRef {
	return BufferRef{m.buffers.Access(h)}
}

func (m *ResourceManager) Image(h arena.Handle) ImageRef {
	return ImageRef{m.images.Access(h)}
}

func (m *ResourceManager) Texture(h arena.Handle) TextureRef {
	return TextureRef{m.textures.Access(h)}
}

// AllocateDescriptorSet allocates a set with layout, growing the descriptor
// pools when they run out.
func (m *ResourceManager) AllocateDescriptorSet(layout *DescriptorSetLayout) (*DescriptorSet, error) {
	return m.descriptors.Allocate(layout)
}

// ClearDescriptorPools returns every descriptor set allocated so far. Sets
// must no longer be in use by the device.
func (m *ResourceManager) ClearDescriptorPools() error {
	return m.descriptors.ClearPools()
}

// ManagerStats is a snapshot of a ResourceManager.
type ManagerStats struct {
	Buffers     arena.Stats
	Images      arena.Stats
	Textures    arena.Stats
	Descriptors descriptor.Stats
}

func (s ManagerStats) String() string {
	return fmt.Sprintf("%s %s %s %s", s.Buffers, s.Images, s.Textures, s.Descriptors)
}

func (m *ResourceManager) Stats() ManagerStats {
	return ManagerStats{
		Buffers:     m.buffers.Stats(),
		Images:      m.images.Stats(),
		Textures:    m.textures.Stats(),
		Descriptors: m.descriptors.Stats(),
	}
}

// Destroy waits for the device to go idle and releases everything the
// manager holds. Resources still owned by the caller are logged as leaks and
// their owners must not be released afterwards.
func (m *ResourceManager) Destroy() {
	if err := m.device.WaitIdle(); err != nil {
		m.log.Warn("device wait idle failed", zap.Error(err))
	}

	leaked := m.textures.DestroyAll() + m.images.DestroyAll() + m.buffers.DestroyAll()
	if leaked > 0 {
		m.log.Warn("resource manager destroyed with live resources", zap.Int("leaked", leaked))
	}

	m.descriptors.DestroyPools()
	m.uploader.Destroy()
}
