package gpu

import "fmt"

// CommandRecorder records the per-image frame command buffers and runs
// one-shot transfer work.
type CommandRecorder struct {
	device   Device
	families QueueFamilies
}

func NewCommandRecorder(device Device) *CommandRecorder {
	return &CommandRecorder{device: device, families: device.QueueFamilies()}
}

// RecordFrames records one reusable command buffer per swapchain image:
// take the image from the present queue in GENERAL layout, dispatch one
// invocation per pixel, and hand it back for presentation.
func (r *CommandRecorder) RecordFrames(pipeline Pipeline, layout PipelineLayout, sets []DescriptorSet, swap SwapchainInfo) ([]CommandBuffer, error) {
	if len(sets) != len(swap.Images) {
		return nil, fmt.Errorf("gpu: %d descriptor sets for %d swapchain images", len(sets), len(swap.Images))
	}
	cbs, err := r.device.AllocateCommandBuffers(len(swap.Images))
	if err != nil {
		return nil, &ResourceError{Op: "allocate command buffers", Resource: "frame", Err: err}
	}

	for i, cb := range cbs {
		if err := r.device.BeginCommandBuffer(cb, UsageSimultaneous); err != nil {
			r.device.FreeCommandBuffers(cbs)
			return nil, &ResourceError{Op: "begin command buffer", Resource: fmt.Sprintf("frame %d", i), Err: err}
		}
		r.device.CmdBindComputePipeline(cb, pipeline)
		r.device.CmdBindDescriptorSet(cb, layout, sets[i])
		r.device.CmdImageBarrier(cb, ImageBarrier{
			Image:          swap.Images[i],
			OldLayout:      LayoutUndefined,
			NewLayout:      LayoutGeneral,
			SrcAccess:      AccessNone,
			DstAccess:      AccessShaderWrite,
			SrcStage:       StageTopOfPipe,
			DstStage:       StageComputeShader,
			SrcQueueFamily: r.families.Present,
			DstQueueFamily: r.families.Compute,
		})
		r.device.CmdDispatch(cb, swap.Extent.Width, swap.Extent.Height, 1)
		r.device.CmdImageBarrier(cb, ImageBarrier{
			Image:          swap.Images[i],
			OldLayout:      LayoutGeneral,
			NewLayout:      LayoutPresentSrc,
			SrcAccess:      AccessShaderWrite,
			DstAccess:      AccessNone,
			SrcStage:       StageComputeShader,
			DstStage:       StageBottomOfPipe,
			SrcQueueFamily: r.families.Compute,
			DstQueueFamily: r.families.Present,
		})
		if err := r.device.EndCommandBuffer(cb); err != nil {
			r.device.FreeCommandBuffers(cbs)
			return nil, &ResourceError{Op: "end command buffer", Resource: fmt.Sprintf("frame %d", i), Err: err}
		}
	}
	return cbs, nil
}

// OneShot records commands into a transient buffer, submits it without
// sync objects and blocks until the queue is idle.
func (r *CommandRecorder) OneShot(name string, record func(cb CommandBuffer)) error {
	cbs, err := r.device.AllocateCommandBuffers(1)
	if err != nil {
		return &ResourceError{Op: "allocate command buffer", Resource: name, Err: err}
	}
	defer r.device.FreeCommandBuffers(cbs)
	cb := cbs[0]

	if err := r.device.BeginCommandBuffer(cb, UsageOneTime); err != nil {
		return &ResourceError{Op: "begin command buffer", Resource: name, Err: err}
	}
	record(cb)
	if err := r.device.EndCommandBuffer(cb); err != nil {
		return &ResourceError{Op: "end command buffer", Resource: name, Err: err}
	}
	if err := r.device.Submit(SubmitInfo{CommandBuffer: cb}); err != nil {
		return &ResourceError{Op: "submit", Resource: name, Err: err}
	}
	if err := r.device.QueueWaitIdle(); err != nil {
		return &ResourceError{Op: "queue wait idle", Resource: name, Err: err}
	}
	return nil
}

func (r *CommandRecorder) CopyBuffer(src, dst Buffer, size uint64) error {
	return r.OneShot("copy buffer", func(cb CommandBuffer) {
		r.device.CmdCopyBuffer(cb, src, dst, size)
	})
}

// TransitionImage moves an image between layouts on the compute queue.
func (r *CommandRecorder) TransitionImage(img Image, from, to ImageLayout) error {
	return r.OneShot("transition image", func(cb CommandBuffer) {
		r.device.CmdImageBarrier(cb, transition(img, from, to))
	})
}

// CopyBufferToImage fills a whole image from a buffer, leaving it in GENERAL
// layout. Previous contents are discarded.
func (r *CommandRecorder) CopyBufferToImage(src Buffer, dst Image, width, height uint32) error {
	return r.OneShot("copy buffer to image", func(cb CommandBuffer) {
		r.device.CmdImageBarrier(cb, transition(dst, LayoutUndefined, LayoutTransferDst))
		r.device.CmdCopyBufferToImage(cb, src, dst, width, height)
		r.device.CmdImageBarrier(cb, transition(dst, LayoutTransferDst, LayoutGeneral))
	})
}

func transition(img Image, from, to ImageLayout) ImageBarrier {
	b := ImageBarrier{
		Image:          img,
		OldLayout:      from,
		NewLayout:      to,
		SrcStage:       StageTopOfPipe,
		DstStage:       StageComputeShader,
		SrcQueueFamily: QueueFamilyIgnored,
		DstQueueFamily: QueueFamilyIgnored,
	}
	switch {
	case to == LayoutTransferDst:
		b.DstAccess = AccessTransferWrite
		b.DstStage = StageTransfer
	case from == LayoutTransferDst:
		b.SrcAccess = AccessTransferWrite
		b.SrcStage = StageTransfer
		b.DstAccess = AccessShaderRead
	default:
		b.DstAccess = AccessShaderRead | AccessShaderWrite
	}
	return b
}
