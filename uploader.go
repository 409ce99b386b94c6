package vkres

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

// stagingAlign keeps every staged range valid as a copy source for any
// texel size up to 16 bytes.
const stagingAlign = 16

// Uploader copies data into device local buffers and images. Work is
// recorded into one command buffer per batch, staged through a single host
// visible buffer and submitted with a fence the uploader waits on.
type Uploader struct {
	device  *Device
	queue   *Queue
	pool    *CommandPool
	cmd     *CommandBuffer
	fence   *Fence
	staging Buffer
	alloc   stagingAllocator
	timeout time.Duration
	log     *zap.Logger

	// wait blocks on the batch fence and drain on the whole queue.
	wait  func(time.Duration) error
	drain func() error
	// failed is set once a batch could not be confirmed finished.
	failed error
}

func newUploader(d *Device, queue *Queue, stagingSize uint64, timeout time.Duration, log *zap.Logger) (_ *Uploader, err error) {
	u := &Uploader{device: d, queue: queue, timeout: timeout, log: log}
	defer func() {
		if err != nil {
			u.Destroy()
		}
	}()

	if u.pool, err = d.CreateCommandPool(queue.QueueFamily); err != nil {
		return nil, err
	}
	if u.cmd, err = u.pool.AllocateBuffer(); err != nil {
		return nil, err
	}
	if u.fence, err = d.CreateFence(); err != nil {
		return nil, err
	}
	u.wait = u.fence.Wait
	u.drain = queue.WaitIdle
	u.staging, err = d.CreateBuffer(BufferInfo{
		Size:   stagingSize,
		Usage:  vk.BufferUsageTransferSrcBit,
		Memory: vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating staging buffer")
	}
	u.alloc = stagingAllocator{size: stagingSize}
	return u, nil
}

// UploadBatch records the copies of one Submit.
type UploadBatch struct {
	u       *Uploader
	layouts []pendingLayout
}

type pendingLayout struct {
	image  ImageRef
	layout vk.ImageLayout
}

// Submit records the copies made by record, submits them and waits for them
// to complete. If record fails nothing is submitted.
//
// An error matching ErrUploadInFlight means the GPU may still be running the
// batch. The destinations must not be destroyed before the device is idle,
// and the uploader refuses every later batch.
func (u *Uploader) Submit(record func(b *UploadBatch) error) error {
	if u.failed != nil {
		return errors.Wrap(u.failed, "uploader disabled")
	}
	u.alloc.reset()
	if err := u.cmd.Reset(); err != nil {
		return errors.Wrap(err, "resetting upload command buffer")
	}
	if err := u.cmd.BeginOneTime(); err != nil {
		return errors.Wrap(err, "beginning upload command buffer")
	}

	b := &UploadBatch{u: u}
	if err := record(b); err != nil {
		_ = u.cmd.End()
		return err
	}
	if err := u.cmd.End(); err != nil {
		return errors.Wrap(err, "ending upload command buffer")
	}

	if err := u.fence.Reset(); err != nil {
		return errors.Wrap(err, "resetting upload fence")
	}
	if err := u.queue.SubmitWithFence(u.fence, u.cmd); err != nil {
		return errors.Wrap(err, "submitting uploads")
	}
	err := u.await()
	if errors.Is(err, ErrUploadInFlight) {
		return err
	}
	// a drained batch has finished, its transitions happened
	for _, p := range b.layouts {
		p.image.setLayout(p.layout)
	}
	if err != nil {
		return err
	}
	u.log.Debug("uploaded batch",
		zap.Uint64("staged", u.alloc.used()),
		zap.Int("images", len(b.layouts)))
	return nil
}

// await waits for the submitted batch. When the fence does not signal in
// time the queue is drained, so that staging memory and the batch's
// destinations are no longer in use when the error is returned.
func (u *Uploader) await() error {
	err := u.wait(u.timeout)
	if err == nil {
		return nil
	}
	err = errors.Wrap(err, "waiting for uploads")
	if idleErr := u.drain(); idleErr != nil {
		u.failed = errors.Mark(errors.CombineErrors(err, idleErr), ErrUploadInFlight)
		u.log.Error("upload batch may still be running, uploader disabled", zap.Error(u.failed))
		return u.failed
	}
	u.log.Warn("upload fence timed out, queue drained", zap.Duration("timeout", u.timeout))
	return err
}

func (b *UploadBatch) stage(data []byte) (uint64, error) {
	offset, err := b.u.alloc.allocate(uint64(len(data)), stagingAlign)
	if err != nil {
		return 0, err
	}
	copy(b.u.staging.Memory.Bytes()[offset:], data)
	return offset, nil
}

// CopyBuffer copies data to the start of dst.
func (b *UploadBatch) CopyBuffer(dst BufferRef, data []byte) error {
	if uint64(len(data)) > dst.Size() {
		return errors.Newf("vkres: %d bytes do not fit buffer %q of %d bytes", len(data), dst.Name(), dst.Size())
	}
	offset, err := b.stage(data)
	if err != nil {
		return errors.Wrapf(err, "staging buffer %q", dst.Name())
	}
	b.u.cmd.CmdCopyBuffer(b.u.staging.VKBuffer, dst.VK(), offset, 0, uint64(len(data)))
	return nil
}

// CopyImage replaces the contents of dst with tightly packed 32-bit texels
// and leaves it ready for sampling.
func (b *UploadBatch) CopyImage(dst ImageRef, pix []byte) error {
	img := dst.Get()
	want := uint64(img.Extent.Width) * uint64(img.Extent.Height) * 4
	if uint64(len(pix)) != want {
		return errors.Newf("vkres: image %q needs %d bytes of texels, got %d", dst.Name(), want, len(pix))
	}

	from := img.Layout
	if n := len(b.layouts); n > 0 {
		// a second copy into the same image in this batch
		for i := n - 1; i >= 0; i-- {
			if b.layouts[i].image.Handle().Equal(dst.Handle()) {
				from = b.layouts[i].layout
				break
			}
		}
	}

	offset, err := b.stage(pix)
	if err != nil {
		return errors.Wrapf(err, "staging image %q", dst.Name())
	}

	cmd := b.u.cmd
	if err := cmd.TransitionImageLayout(img.VKImage, from, vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}
	cmd.CmdCopyBufferToImage(b.u.staging.VKBuffer, offset, img.VKImage, img.Extent)
	if err := cmd.TransitionImageLayout(img.VKImage, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return err
	}

	b.layouts = append(b.layouts, pendingLayout{image: dst, layout: vk.ImageLayoutShaderReadOnlyOptimal})
	return nil
}

// Destroy releases the staging buffer and the command objects.
func (u *Uploader) Destroy() {
	u.staging.Release()
	u.staging = Buffer{}
	if u.fence != nil {
		u.fence.Destroy()
		u.fence = nil
	}
	if u.pool != nil {
		// freeing the pool frees its command buffer
		u.pool.Destroy()
		u.pool = nil
		u.cmd = nil
	}
}
