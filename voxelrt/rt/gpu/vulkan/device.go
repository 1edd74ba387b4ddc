package vulkan

import (
	"fmt"
	"math"
	"time"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/gekko3d/voxcast/voxelrt/rt/gpu"
)

func (b *Backend) MemoryTypes() []gpu.MemoryType { return b.memTypes }
func (b *Backend) Swapchain() gpu.SwapchainInfo  { return b.swap }
func (b *Backend) QueueFamilies() gpu.QueueFamilies {
	return gpu.QueueFamilies{Compute: b.family, Present: b.family}
}

func (b *Backend) CreateBuffer(size uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       bufferUsage(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if err := vk.Error(vk.CreateBuffer(b.device, &createInfo, nil, &buf)); err != nil {
		return 0, err
	}
	return b.buffers.put(buf), nil
}

func (b *Backend) BufferMemoryRequirements(h gpu.Buffer) gpu.MemoryRequirements {
	buf, _ := b.buffers.get(h)
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.device, buf, &req)
	req.Deref()
	return gpu.MemoryRequirements{Size: uint64(req.Size), Alignment: uint64(req.Alignment), TypeBits: req.MemoryTypeBits}
}

func (b *Backend) DestroyBuffer(h gpu.Buffer) {
	if buf, ok := b.buffers.take(h); ok {
		vk.DestroyBuffer(b.device, buf, nil)
	}
}

func (b *Backend) CreateImage(desc gpu.ImageDesc) (gpu.Image, error) {
	imageType := vk.ImageType2d
	if desc.Dimension == gpu.Image1D {
		imageType = vk.ImageType1d
	}
	createInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     imageType,
		Format:        toVkFormat(desc.Format),
		Extent:        vk.Extent3D{Width: desc.Width, Height: max(desc.Height, 1), Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsage(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var img vk.Image
	if err := vk.Error(vk.CreateImage(b.device, &createInfo, nil, &img)); err != nil {
		return 0, err
	}
	return b.images.put(img), nil
}

func (b *Backend) ImageMemoryRequirements(h gpu.Image) gpu.MemoryRequirements {
	img, _ := b.images.get(h)
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(b.device, img, &req)
	req.Deref()
	return gpu.MemoryRequirements{Size: uint64(req.Size), Alignment: uint64(req.Alignment), TypeBits: req.MemoryTypeBits}
}

// DestroyImage ignores swapchain images, which the swapchain owns.
func (b *Backend) DestroyImage(h gpu.Image) {
	if b.swapOwned[h] {
		return
	}
	if img, ok := b.images.take(h); ok {
		vk.DestroyImage(b.device, img, nil)
	}
}

func (b *Backend) CreateImageView(h gpu.Image, desc gpu.ImageDesc) (gpu.ImageView, error) {
	img, ok := b.images.get(h)
	if !ok {
		return 0, fmt.Errorf("unknown image %d", h)
	}
	viewType := vk.ImageViewType2d
	if desc.Dimension == gpu.Image1D {
		viewType = vk.ImageViewType1d
	}
	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: viewType,
		Format:   toVkFormat(desc.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: colorRange,
	}
	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(b.device, &createInfo, nil, &view)); err != nil {
		return 0, err
	}
	return b.views.put(view), nil
}

func (b *Backend) DestroyImageView(h gpu.ImageView) {
	if view, ok := b.views.take(h); ok {
		vk.DestroyImageView(b.device, view, nil)
	}
}

func (b *Backend) AllocateMemory(size uint64, typeIndex uint32) (gpu.Memory, error) {
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: typeIndex,
	}
	var mem vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(b.device, &allocInfo, nil, &mem)); err != nil {
		return 0, err
	}
	return b.memory.put(mem), nil
}

func (b *Backend) FreeMemory(h gpu.Memory) {
	if mem, ok := b.memory.take(h); ok {
		vk.FreeMemory(b.device, mem, nil)
	}
}

func (b *Backend) BindBufferMemory(hb gpu.Buffer, hm gpu.Memory) error {
	buf, _ := b.buffers.get(hb)
	mem, _ := b.memory.get(hm)
	return vk.Error(vk.BindBufferMemory(b.device, buf, mem, 0))
}

func (b *Backend) BindImageMemory(hi gpu.Image, hm gpu.Memory) error {
	img, _ := b.images.get(hi)
	mem, _ := b.memory.get(hm)
	return vk.Error(vk.BindImageMemory(b.device, img, mem, 0))
}

func (b *Backend) WriteMemory(h gpu.Memory, offset uint64, data []byte) error {
	mem, ok := b.memory.get(h)
	if !ok {
		return fmt.Errorf("unknown memory %d", h)
	}
	var ptr unsafe.Pointer
	if err := vk.Error(vk.MapMemory(b.device, mem, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &ptr)); err != nil {
		return err
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(b.device, mem)
	return nil
}

func (b *Backend) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayout, error) {
	native := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, bd := range bindings {
		native[i] = vk.DescriptorSetLayoutBinding{
			Binding:         bd.Binding,
			DescriptorType:  descriptorType(bd.Type),
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		}
	}
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(native)),
		PBindings:    native,
	}
	var layout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(b.device, &createInfo, nil, &layout)); err != nil {
		return 0, err
	}
	return b.setLayouts.put(layout), nil
}

func (b *Backend) DestroyDescriptorSetLayout(h gpu.DescriptorSetLayout) {
	if layout, ok := b.setLayouts.take(h); ok {
		vk.DestroyDescriptorSetLayout(b.device, layout, nil)
	}
}

func (b *Backend) CreateDescriptorPool(maxSets uint32, sizes []gpu.DescriptorPoolSize) (gpu.DescriptorPool, error) {
	native := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		native[i] = vk.DescriptorPoolSize{Type: descriptorType(s.Type), DescriptorCount: s.Count}
	}
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(native)),
		PPoolSizes:    native,
	}
	var pool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(b.device, &createInfo, nil, &pool)); err != nil {
		return 0, err
	}
	return b.descPools.put(pool), nil
}

// DestroyDescriptorPool also forgets the sets allocated from the pool.
func (b *Backend) DestroyDescriptorPool(h gpu.DescriptorPool) {
	pool, ok := b.descPools.take(h)
	if !ok {
		return
	}
	vk.DestroyDescriptorPool(b.device, pool, nil)
	for set, owner := range b.setPool {
		if owner == h {
			b.sets.take(set)
			delete(b.setPool, set)
		}
	}
}

func (b *Backend) AllocateDescriptorSets(hp gpu.DescriptorPool, hl gpu.DescriptorSetLayout, count int) ([]gpu.DescriptorSet, error) {
	pool, _ := b.descPools.get(hp)
	layout, _ := b.setLayouts.get(hl)
	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}
	native := make([]vk.DescriptorSet, count)
	if err := vk.Error(vk.AllocateDescriptorSets(b.device, &allocInfo, &native[0])); err != nil {
		return nil, err
	}
	sets := make([]gpu.DescriptorSet, count)
	for i, s := range native {
		sets[i] = b.sets.put(s)
		b.setPool[sets[i]] = hp
	}
	return sets, nil
}

func (b *Backend) UpdateDescriptorSets(writes []gpu.DescriptorWrite) {
	native := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		set, _ := b.sets.get(w.Set)
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      w.Binding,
			DescriptorType:  descriptorType(w.Type),
			DescriptorCount: 1,
		}
		if w.Type == gpu.DescriptorStorageImage {
			view, _ := b.views.get(w.View)
			write.PImageInfo = []vk.DescriptorImageInfo{{ImageView: view, ImageLayout: imageLayout(w.Layout)}}
		} else {
			buf, _ := b.buffers.get(w.Buffer)
			write.PBufferInfo = []vk.DescriptorBufferInfo{{Buffer: buf, Offset: 0, Range: vk.DeviceSize(w.Range)}}
		}
		native = append(native, write)
	}
	vk.UpdateDescriptorSets(b.device, uint32(len(native)), native, 0, nil)
}

func (b *Backend) CreateComputePipeline(spirv []uint32, hl gpu.DescriptorSetLayout) (gpu.Pipeline, gpu.PipelineLayout, error) {
	setLayout, ok := b.setLayouts.get(hl)
	if !ok {
		return 0, 0, fmt.Errorf("unknown descriptor set layout %d", hl)
	}

	moduleInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv) * 4),
		PCode:    spirv,
	}
	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(b.device, &moduleInfo, nil, &module)); err != nil {
		return 0, 0, fmt.Errorf("shader module: %w", err)
	}
	defer vk.DestroyShaderModule(b.device, module, nil)

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{setLayout},
	}
	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(b.device, &layoutInfo, nil, &layout)); err != nil {
		return 0, 0, fmt.Errorf("pipeline layout: %w", err)
	}

	createInfo := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: module,
			PName:  "main\x00",
		},
		Layout: layout,
	}
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateComputePipelines(b.device, vk.PipelineCache(vk.NullHandle), 1, []vk.ComputePipelineCreateInfo{createInfo}, nil, pipelines)
	if err := vk.Error(res); err != nil {
		vk.DestroyPipelineLayout(b.device, layout, nil)
		return 0, 0, fmt.Errorf("compute pipeline: %w", err)
	}
	return b.pipelines.put(pipelines[0]), b.plLayouts.put(layout), nil
}

func (b *Backend) DestroyPipeline(hp gpu.Pipeline, hl gpu.PipelineLayout) {
	if p, ok := b.pipelines.take(hp); ok {
		vk.DestroyPipeline(b.device, p, nil)
	}
	if l, ok := b.plLayouts.take(hl); ok {
		vk.DestroyPipelineLayout(b.device, l, nil)
	}
}

func (b *Backend) AllocateCommandBuffers(count int) ([]gpu.CommandBuffer, error) {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        b.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}
	native := make([]vk.CommandBuffer, count)
	if err := vk.Error(vk.AllocateCommandBuffers(b.device, &allocInfo, native)); err != nil {
		return nil, err
	}
	cbs := make([]gpu.CommandBuffer, count)
	for i, cb := range native {
		cbs[i] = b.cmds.put(cb)
	}
	return cbs, nil
}

func (b *Backend) FreeCommandBuffers(cbs []gpu.CommandBuffer) {
	native := make([]vk.CommandBuffer, 0, len(cbs))
	for _, h := range cbs {
		if cb, ok := b.cmds.take(h); ok {
			native = append(native, cb)
		}
	}
	if len(native) > 0 {
		vk.FreeCommandBuffers(b.device, b.pool, uint32(len(native)), native)
	}
}

func (b *Backend) BeginCommandBuffer(h gpu.CommandBuffer, usage gpu.CommandBufferUsage) error {
	cb, _ := b.cmds.get(h)
	flags := vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	if usage == gpu.UsageOneTime {
		flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	return vk.Error(vk.BeginCommandBuffer(cb, &beginInfo))
}

func (b *Backend) EndCommandBuffer(h gpu.CommandBuffer) error {
	cb, _ := b.cmds.get(h)
	return vk.Error(vk.EndCommandBuffer(cb))
}

func (b *Backend) CmdBindComputePipeline(h gpu.CommandBuffer, hp gpu.Pipeline) {
	cb, _ := b.cmds.get(h)
	p, _ := b.pipelines.get(hp)
	vk.CmdBindPipeline(cb, vk.PipelineBindPointCompute, p)
}

func (b *Backend) CmdBindDescriptorSet(h gpu.CommandBuffer, hl gpu.PipelineLayout, hs gpu.DescriptorSet) {
	cb, _ := b.cmds.get(h)
	layout, _ := b.plLayouts.get(hl)
	set, _ := b.sets.get(hs)
	vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointCompute, layout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
}

func (b *Backend) CmdImageBarrier(h gpu.CommandBuffer, barrier gpu.ImageBarrier) {
	cb, _ := b.cmds.get(h)
	img, _ := b.images.get(barrier.Image)
	native := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       accessFlags(barrier.SrcAccess),
		DstAccessMask:       accessFlags(barrier.DstAccess),
		OldLayout:           imageLayout(barrier.OldLayout),
		NewLayout:           imageLayout(barrier.NewLayout),
		SrcQueueFamilyIndex: barrier.SrcQueueFamily,
		DstQueueFamilyIndex: barrier.DstQueueFamily,
		Image:               img,
		SubresourceRange:    colorRange,
	}
	vk.CmdPipelineBarrier(cb,
		stageFlags(barrier.SrcStage), stageFlags(barrier.DstStage),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{native},
	)
}

func (b *Backend) CmdDispatch(h gpu.CommandBuffer, x, y, z uint32) {
	cb, _ := b.cmds.get(h)
	vk.CmdDispatch(cb, x, y, z)
}

func (b *Backend) CmdCopyBuffer(h gpu.CommandBuffer, src, dst gpu.Buffer, size uint64) {
	cb, _ := b.cmds.get(h)
	s, _ := b.buffers.get(src)
	d, _ := b.buffers.get(dst)
	vk.CmdCopyBuffer(cb, s, d, 1, []vk.BufferCopy{{Size: vk.DeviceSize(size)}})
}

func (b *Backend) CmdCopyBufferToImage(h gpu.CommandBuffer, src gpu.Buffer, dst gpu.Image, width, height uint32) {
	cb, _ := b.cmds.get(h)
	buf, _ := b.buffers.get(src)
	img, _ := b.images.get(dst)
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: width, Height: max(height, 1), Depth: 1},
	}
	vk.CmdCopyBufferToImage(cb, buf, img, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (b *Backend) CreateSemaphore() (gpu.Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var sem vk.Semaphore
	if err := vk.Error(vk.CreateSemaphore(b.device, &createInfo, nil, &sem)); err != nil {
		return 0, err
	}
	return b.semaphores.put(sem), nil
}

func (b *Backend) DestroySemaphore(h gpu.Semaphore) {
	if sem, ok := b.semaphores.take(h); ok {
		vk.DestroySemaphore(b.device, sem, nil)
	}
}

func (b *Backend) CreateFence(signaled bool) (gpu.Fence, error) {
	createInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(b.device, &createInfo, nil, &fence)); err != nil {
		return 0, err
	}
	return b.fences.put(fence), nil
}

func (b *Backend) DestroyFence(h gpu.Fence) {
	if fence, ok := b.fences.take(h); ok {
		vk.DestroyFence(b.device, fence, nil)
	}
}

func (b *Backend) WaitForFence(h gpu.Fence, timeout time.Duration) error {
	fence, _ := b.fences.get(h)
	res := vk.WaitForFences(b.device, 1, []vk.Fence{fence}, vk.True, nanos(timeout))
	if res == vk.Timeout {
		return gpu.ErrFenceTimeout
	}
	return vk.Error(res)
}

func (b *Backend) FenceSignaled(h gpu.Fence) (bool, error) {
	fence, _ := b.fences.get(h)
	switch res := vk.GetFenceStatus(b.device, fence); res {
	case vk.Success:
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, vk.Error(res)
	}
}

func (b *Backend) ResetFence(h gpu.Fence) error {
	fence, _ := b.fences.get(h)
	return vk.Error(vk.ResetFences(b.device, 1, []vk.Fence{fence}))
}

// AcquireNextImage treats a suboptimal swapchain as success.
func (b *Backend) AcquireNextImage(timeout time.Duration, signal gpu.Semaphore) (uint32, error) {
	sem, _ := b.semaphores.get(signal)
	var index uint32
	res := vk.AcquireNextImage(b.device, b.swapchain, nanos(timeout), sem, vk.NullFence, &index)
	switch res {
	case vk.Success, vk.Suboptimal:
		return index, nil
	case vk.ErrorOutOfDate:
		return 0, gpu.ErrSwapchainOutOfDate
	case vk.Timeout, vk.NotReady:
		return 0, gpu.ErrFenceTimeout
	default:
		return 0, vk.Error(res)
	}
}

func (b *Backend) Submit(info gpu.SubmitInfo) error {
	cb, _ := b.cmds.get(info.CommandBuffer)
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb},
	}
	if sem, ok := b.semaphores.get(info.Wait); ok {
		submit.WaitSemaphoreCount = 1
		submit.PWaitSemaphores = []vk.Semaphore{sem}
		submit.PWaitDstStageMask = []vk.PipelineStageFlags{stageFlags(info.WaitStage)}
	}
	if sem, ok := b.semaphores.get(info.Signal); ok {
		submit.SignalSemaphoreCount = 1
		submit.PSignalSemaphores = []vk.Semaphore{sem}
	}
	fence := vk.NullFence
	if f, ok := b.fences.get(info.Fence); ok {
		fence = f
	}
	return vk.Error(vk.QueueSubmit(b.queue, 1, []vk.SubmitInfo{submit}, fence))
}

func (b *Backend) Present(image uint32, wait gpu.Semaphore) error {
	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{b.swapchain},
		PImageIndices:  []uint32{image},
	}
	if sem, ok := b.semaphores.get(wait); ok {
		presentInfo.WaitSemaphoreCount = 1
		presentInfo.PWaitSemaphores = []vk.Semaphore{sem}
	}
	switch res := vk.QueuePresent(b.queue, &presentInfo); res {
	case vk.Success, vk.Suboptimal:
		return nil
	case vk.ErrorOutOfDate:
		return gpu.ErrSwapchainOutOfDate
	default:
		return vk.Error(res)
	}
}

func (b *Backend) QueueWaitIdle() error { return vk.Error(vk.QueueWaitIdle(b.queue)) }
func (b *Backend) WaitIdle() error { return vk.Error(vk.DeviceWaitIdle(b.device)) }

var colorRange = vk.ImageSubresourceRange{
	AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	LevelCount: 1,
	LayerCount: 1,
}

// nanos maps the "wait forever" duration onto UINT64_MAX.
func nanos(d time.Duration) uint64 {
	if d < 0 || d == math.MaxInt64 {
		return math.MaxUint64
	}
	return uint64(d)
}

func toVkFormat(f gpu.Format) vk.Format {
	switch f {
	case gpu.FormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case gpu.FormatB8G8R8A8Unorm:
		return vk.FormatB8g8r8a8Unorm
	}
	return vk.FormatUndefined
}

func fromVkFormat(f vk.Format) gpu.Format {
	switch f {
	case vk.FormatR8g8b8a8Unorm:
		return gpu.FormatR8G8B8A8Unorm
	case vk.FormatB8g8r8a8Unorm:
		return gpu.FormatB8G8R8A8Unorm
	}
	return gpu.FormatUndefined
}

func bufferUsage(u gpu.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if u&gpu.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if u&gpu.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageTransferDstBit
	}
	if u&gpu.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if u&gpu.BufferUsageStorage != 0 {
		flags |= vk.BufferUsageStorageBufferBit
	}
	return vk.BufferUsageFlags(flags)
}

func imageUsage(u gpu.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits
	if u&gpu.ImageUsageTransferDst != 0 {
		flags |= vk.ImageUsageTransferDstBit
	}
	if u&gpu.ImageUsageStorage != 0 {
		flags |= vk.ImageUsageStorageBit
	}
	return vk.ImageUsageFlags(flags)
}

func imageLayout(l gpu.ImageLayout) vk.ImageLayout {
	switch l {
	case gpu.LayoutGeneral:
		return vk.ImageLayoutGeneral
	case gpu.LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case gpu.LayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

func stageFlags(s gpu.PipelineStage) vk.PipelineStageFlags {
	var flags vk.PipelineStageFlagBits
	if s&gpu.StageTopOfPipe != 0 {
		flags |= vk.PipelineStageTopOfPipeBit
	}
	if s&gpu.StageTransfer != 0 {
		flags |= vk.PipelineStageTransferBit
	}
	if s&gpu.StageComputeShader != 0 {
		flags |= vk.PipelineStageComputeShaderBit
	}
	if s&gpu.StageBottomOfPipe != 0 {
		flags |= vk.PipelineStageBottomOfPipeBit
	}
	return vk.PipelineStageFlags(flags)
}

func accessFlags(a gpu.Access) vk.AccessFlags {
	var flags vk.AccessFlagBits
	if a&gpu.AccessShaderRead != 0 {
		flags |= vk.AccessShaderReadBit
	}
	if a&gpu.AccessShaderWrite != 0 {
		flags |= vk.AccessShaderWriteBit
	}
	if a&gpu.AccessTransferWrite != 0 {
		flags |= vk.AccessTransferWriteBit
	}
	return vk.AccessFlags(flags)
}

func descriptorType(t gpu.DescriptorType) vk.DescriptorType {
	switch t {
	case gpu.DescriptorUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case gpu.DescriptorStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	}
	return vk.DescriptorTypeStorageImage
}
