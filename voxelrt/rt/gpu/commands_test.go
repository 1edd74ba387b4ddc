package gpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/voxcast/voxelrt/rt/gpu"
	"github.com/gekko3d/voxcast/voxelrt/rt/gpu/gputest"
)

func ops(cmds []gputest.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Op
	}
	return out
}

func TestRecordFrames(t *testing.T) {
	dev := gputest.NewDevice(3, 640, 360)
	swap := dev.Swapchain()
	binder, err := gpu.NewDescriptorBinder(dev, len(swap.Images), false)
	require.NoError(t, err)
	pipeline, layout, err := dev.CreateComputePipeline([]uint32{0x07230203}, binder.Layout())
	require.NoError(t, err)

	rec := gpu.NewCommandRecorder(dev)
	cbs, err := rec.RecordFrames(pipeline, layout, binder.Sets(), swap)
	require.NoError(t, err)
	require.Len(t, cbs, 3)

	for i, cb := range cbs {
		cmds := dev.Commands(cb)
		require.Equal(t, []string{"BindPipeline", "BindDescriptorSet", "Barrier", "Dispatch", "Barrier"}, ops(cmds))
		assert.Equal(t, pipeline, cmds[0].Pipeline)
		assert.Equal(t, binder.Sets()[i], cmds[1].Set)

		acquire := cmds[2].Barrier
		assert.Equal(t, swap.Images[i], acquire.Image)
		assert.Equal(t, gpu.LayoutUndefined, acquire.OldLayout)
		assert.Equal(t, gpu.LayoutGeneral, acquire.NewLayout)
		assert.Equal(t, gpu.AccessNone, acquire.SrcAccess)
		assert.Equal(t, gpu.AccessShaderWrite, acquire.DstAccess)
		assert.Equal(t, gpu.StageTopOfPipe, acquire.SrcStage)
		assert.Equal(t, gpu.StageComputeShader, acquire.DstStage)
		assert.Equal(t, uint32(1), acquire.SrcQueueFamily, "from the present family")
		assert.Equal(t, uint32(0), acquire.DstQueueFamily, "to the compute family")

		assert.Equal(t, [3]uint32{640, 360, 1}, cmds[3].Group)

		release := cmds[4].Barrier
		assert.Equal(t, gpu.LayoutGeneral, release.OldLayout)
		assert.Equal(t, gpu.LayoutPresentSrc, release.NewLayout)
		assert.Equal(t, gpu.StageComputeShader, release.SrcStage)
		assert.Equal(t, gpu.StageBottomOfPipe, release.DstStage)
		assert.Equal(t, uint32(0), release.SrcQueueFamily)
		assert.Equal(t, uint32(1), release.DstQueueFamily)
	}
	assert.Empty(t, dev.Violations)
}

func TestRecordFramesRejectsMismatchedSets(t *testing.T) {
	dev := gputest.NewDevice(2, 8, 8)
	rec := gpu.NewCommandRecorder(dev)
	_, err := rec.RecordFrames(1, 1, []gpu.DescriptorSet{1}, dev.Swapchain())
	require.Error(t, err)
}

func TestOneShotWaitsForQueue(t *testing.T) {
	dev := gputest.NewDevice(1, 8, 8)
	rec := gpu.NewCommandRecorder(dev)
	alloc := gpu.NewAllocator(dev)

	src, err := alloc.CreateBuffer(gpu.BufferSpec{Name: "src", Size: 4, Usage: gpu.BufferUsageTransferSrc, Properties: gpu.MemoryHostWritable})
	require.NoError(t, err)
	dst, err := alloc.CreateBuffer(gpu.BufferSpec{Name: "dst", Size: 4, Usage: gpu.BufferUsageTransferDst, Properties: gpu.MemoryDeviceLocal})
	require.NoError(t, err)
	require.NoError(t, alloc.Write(src, 0, []byte{9, 8, 7, 6}))

	require.NoError(t, rec.CopyBuffer(src.Buffer, dst.Buffer, 4))
	assert.Equal(t, []byte{9, 8, 7, 6}, dev.BufferContents(dst.Buffer))

	submit := dev.Find(0, "Submit")
	require.GreaterOrEqual(t, submit, 0)
	idle := dev.Find(submit, "QueueWaitIdle")
	free := dev.Find(submit, "FreeCommandBuffers")
	require.Greater(t, idle, submit)
	require.Greater(t, free, idle, "the transient buffer is freed after the queue drains")
	assert.Equal(t, 1, dev.Completed)
	assert.Empty(t, dev.Violations)
}

func TestDescriptorBinder(t *testing.T) {
	for _, palette := range []bool{false, true} {
		dev := gputest.NewDevice(2, 8, 8)
		binder, err := gpu.NewDescriptorBinder(dev, 2, palette)
		require.NoError(t, err)
		require.Len(t, binder.Sets(), 2)

		wantBindings := []gpu.DescriptorBinding{
			{Binding: gpu.BindingOutputImage, Type: gpu.DescriptorStorageImage},
			{Binding: gpu.BindingCamera, Type: gpu.DescriptorUniformBuffer},
			{Binding: gpu.BindingOctree, Type: gpu.DescriptorStorageBuffer},
		}
		if palette {
			wantBindings = append(wantBindings, gpu.DescriptorBinding{Binding: gpu.BindingPalette, Type: gpu.DescriptorStorageImage})
		}
		assert.Equal(t, wantBindings, dev.Layout(binder.Layout()))

		swap := dev.Swapchain()
		octreeBuf := &gpu.Allocation{Buffer: 900, Size: 2000}
		frames := []gpu.FrameBindings{
			{Output: swap.Views[0], Camera: &gpu.Allocation{Buffer: 100, Size: 80}, Octree: octreeBuf, Palette: 77},
			{Output: swap.Views[1], Camera: &gpu.Allocation{Buffer: 101, Size: 80}, Octree: octreeBuf, Palette: 77},
		}
		require.NoError(t, binder.Bind(frames))

		perSet := 3
		if palette {
			perSet = 4
		}
		require.Len(t, dev.Writes, 2*perSet)
		for i, set := range binder.Sets() {
			w := dev.Writes[i*perSet : (i+1)*perSet]
			for _, wr := range w {
				assert.Equal(t, set, wr.Set)
			}
			assert.Equal(t, swap.Views[i], w[0].View)
			assert.Equal(t, gpu.LayoutGeneral, w[0].Layout)
			assert.Equal(t, frames[i].Camera.Buffer, w[1].Buffer)
			assert.Equal(t, uint64(80), w[1].Range)
			assert.Equal(t, gpu.Buffer(900), w[2].Buffer, "every set shares the octree buffer")
			if palette {
				assert.Equal(t, gpu.ImageView(77), w[3].View)
			}
		}

		require.Error(t, binder.Bind(frames[:1]))
		binder.Destroy()
		assert.Empty(t, dev.Violations)
	}
}
