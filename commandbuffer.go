package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// CommandBuffers describe a sequence of commands that will be executed
// upon being sent to a device queue. Only the copy and barrier commands the
// uploader records are wrapped here.
type CommandBuffer struct {
	VKCommandBuffer vk.CommandBuffer
}

// VK is a utility function for accessing the native vulkan command buffer
func (c *CommandBuffer) VK() vk.CommandBuffer {
	return c.VKCommandBuffer
}

// Reset this command buffer
func (c *CommandBuffer) Reset() error {
	return vk.Error(vk.ResetCommandBuffer(c.VKCommandBuffer, 0))
}

// BeginOneTime begins recording for a single submission.
func (c *CommandBuffer) BeginOneTime() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// End describing work for this command buffer
func (c *CommandBuffer) End() error {
	return vk.Error(vk.EndCommandBuffer(c.VKCommandBuffer))
}

// CmdCopyBuffer copies size bytes between two buffers.
func (c *CommandBuffer) CmdCopyBuffer(src, dst vk.Buffer, srcOffset, dstOffset, size uint64) {
	vk.CmdCopyBuffer(c.VKCommandBuffer, src, dst, 1, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}})
}

// CmdCopyBufferToImage copies tightly packed pixels at srcOffset into the
// first mip level of img, which must be in the transfer destination layout.
func (c *CommandBuffer) CmdCopyBufferToImage(src vk.Buffer, srcOffset uint64, img vk.Image, extent vk.Extent2D) {
	vk.CmdCopyBufferToImage(c.VKCommandBuffer, src, img, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
		BufferOffset: vk.DeviceSize(srcOffset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
	}})
}

type layoutTransition struct {
	srcAccess, dstAccess vk.AccessFlagBits
	srcStage, dstStage   vk.PipelineStageFlagBits
}

// layoutTransitions lists the transitions the uploader performs.
var layoutTransitions = map[[2]vk.ImageLayout]layoutTransition{
	{vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal}: {
		dstAccess: vk.AccessTransferWriteBit,
		srcStage:  vk.PipelineStageTopOfPipeBit,
		dstStage:  vk.PipelineStageTransferBit,
	},
	{vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferDstOptimal}: {
		srcAccess: vk.AccessShaderReadBit,
		dstAccess: vk.AccessTransferWriteBit,
		srcStage:  vk.PipelineStageFragmentShaderBit,
		dstStage:  vk.PipelineStageTransferBit,
	},
	{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: vk.AccessTransferWriteBit,
		dstAccess: vk.AccessShaderReadBit,
		srcStage:  vk.PipelineStageTransferBit,
		dstStage:  vk.PipelineStageFragmentShaderBit,
	},
}

func lookupTransition(oldLayout, newLayout vk.ImageLayout) (layoutTransition, error) {
	t, ok := layoutTransitions[[2]vk.ImageLayout{oldLayout, newLayout}]
	if !ok {
		return layoutTransition{}, errors.Newf("unsupported image layout transition %d -> %d", oldLayout, newLayout)
	}
	return t, nil
}

// TransitionImageLayout records a barrier moving the color aspect of img
// from oldLayout to newLayout.
func (c *CommandBuffer) TransitionImageLayout(img vk.Image, oldLayout, newLayout vk.ImageLayout) error {
	t, err := lookupTransition(oldLayout, newLayout)
	if err != nil {
		return err
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(t.srcAccess),
		DstAccessMask:       vk.AccessFlags(t.dstAccess),
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	vk.CmdPipelineBarrier(c.VKCommandBuffer,
		vk.PipelineStageFlags(t.srcStage), vk.PipelineStageFlags(t.dstStage),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}
