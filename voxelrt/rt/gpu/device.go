package gpu

import "time"

// Opaque handles. Zero is the null handle for every kind.
type (
	Buffer              uint64
	Memory              uint64
	Image               uint64
	ImageView           uint64
	Fence               uint64
	Semaphore           uint64
	CommandBuffer       uint64
	DescriptorSetLayout uint64
	DescriptorPool      uint64
	DescriptorSet       uint64
	Pipeline            uint64
	PipelineLayout      uint64
)

type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 1 << iota
	BufferUsageTransferDst
	BufferUsageUniform
	BufferUsageStorage
)

type ImageUsage uint32

const (
	ImageUsageTransferDst ImageUsage = 1 << iota
	ImageUsageStorage
)

// MemoryProperty bits share values with VkMemoryPropertyFlagBits.
type MemoryProperty uint32

const (
	MemoryDeviceLocal  MemoryProperty = 0x1
	MemoryHostVisible  MemoryProperty = 0x2
	MemoryHostCoherent MemoryProperty = 0x4
	MemoryHostCached   MemoryProperty = 0x8
)

// MemoryHostWritable is what every host-written allocation asks for.
const MemoryHostWritable = MemoryHostVisible | MemoryHostCoherent

type MemoryType struct {
	Properties MemoryProperty
	HeapIndex  uint32
}

type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	TypeBits  uint32
}

type Format uint32

const (
	FormatUndefined Format = iota
	FormatR8G8B8A8Unorm
	FormatB8G8R8A8Unorm
)

type ImageDimension uint32

const (
	Image2D ImageDimension = iota
	Image1D
)

type ImageDesc struct {
	Dimension     ImageDimension
	Width, Height uint32
	Format        Format
	Usage         ImageUsage
}

type ImageLayout uint32

const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutTransferDst
	LayoutPresentSrc
)

type PipelineStage uint32

const (
	StageTopOfPipe PipelineStage = 1 << iota
	StageTransfer
	StageComputeShader
	StageBottomOfPipe
)

type Access uint32

const (
	AccessNone          Access = 0
	AccessShaderRead    Access = 1 << 0
	AccessShaderWrite   Access = 1 << 1
	AccessTransferWrite Access = 1 << 2
)

// QueueFamilyIgnored leaves queue ownership unchanged across a barrier.
const QueueFamilyIgnored = ^uint32(0)

type ImageBarrier struct {
	Image                          Image
	OldLayout, NewLayout           ImageLayout
	SrcAccess, DstAccess           Access
	SrcStage, DstStage             PipelineStage
	SrcQueueFamily, DstQueueFamily uint32
}

type DescriptorType uint32

const (
	DescriptorStorageImage DescriptorType = iota
	DescriptorUniformBuffer
	DescriptorStorageBuffer
)

type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
}

type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

// DescriptorWrite points one binding of a set at a buffer range or an image view.
type DescriptorWrite struct {
	Set     DescriptorSet
	Binding uint32
	Type    DescriptorType
	Buffer  Buffer
	Range   uint64
	View    ImageView
	Layout  ImageLayout
}

type CommandBufferUsage uint32

const (
	UsageSimultaneous CommandBufferUsage = iota
	UsageOneTime
)

// SubmitInfo describes one command buffer submission. Null semaphores and
// fences are skipped.
type SubmitInfo struct {
	CommandBuffer CommandBuffer
	Wait          Semaphore
	WaitStage     PipelineStage
	Signal        Semaphore
	Fence         Fence
}

type Extent2D struct {
	Width, Height uint32
}

type SwapchainInfo struct {
	Images []Image
	Views  []ImageView
	Extent Extent2D
	Format Format
}

type QueueFamilies struct {
	Compute, Present uint32
}

// Device is the slice of a GPU API the renderer drives. Implementations run
// on the calling goroutine and are not safe for concurrent use.
type Device interface {
	MemoryTypes() []MemoryType
	Swapchain() SwapchainInfo
	QueueFamilies() QueueFamilies

	CreateBuffer(size uint64, usage BufferUsage) (Buffer, error)
	BufferMemoryRequirements(b Buffer) MemoryRequirements
	DestroyBuffer(b Buffer)
	CreateImage(desc ImageDesc) (Image, error)
	ImageMemoryRequirements(img Image) MemoryRequirements
	DestroyImage(img Image)
	CreateImageView(img Image, desc ImageDesc) (ImageView, error)
	DestroyImageView(view ImageView)

	AllocateMemory(size uint64, typeIndex uint32) (Memory, error)
	FreeMemory(m Memory)
	BindBufferMemory(b Buffer, m Memory) error
	BindImageMemory(img Image, m Memory) error
	// WriteMemory maps the range, copies data, and unmaps.
	WriteMemory(m Memory, offset uint64, data []byte) error

	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout DescriptorSetLayout)
	CreateDescriptorPool(maxSets uint32, sizes []DescriptorPoolSize) (DescriptorPool, error)
	DestroyDescriptorPool(pool DescriptorPool)
	AllocateDescriptorSets(pool DescriptorPool, layout DescriptorSetLayout, count int) ([]DescriptorSet, error)
	UpdateDescriptorSets(writes []DescriptorWrite)

	CreateComputePipeline(spirv []uint32, layout DescriptorSetLayout) (Pipeline, PipelineLayout, error)
	DestroyPipeline(p Pipeline, layout PipelineLayout)

	AllocateCommandBuffers(count int) ([]CommandBuffer, error)
	FreeCommandBuffers(cbs []CommandBuffer)
	BeginCommandBuffer(cb CommandBuffer, usage CommandBufferUsage) error
	EndCommandBuffer(cb CommandBuffer) error
	CmdBindComputePipeline(cb CommandBuffer, p Pipeline)
	CmdBindDescriptorSet(cb CommandBuffer, layout PipelineLayout, set DescriptorSet)
	CmdImageBarrier(cb CommandBuffer, barrier ImageBarrier)
	CmdDispatch(cb CommandBuffer, x, y, z uint32)
	CmdCopyBuffer(cb CommandBuffer, src, dst Buffer, size uint64)
	CmdCopyBufferToImage(cb CommandBuffer, src Buffer, dst Image, width, height uint32)

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(s Semaphore)
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(f Fence)
	// WaitForFence returns ErrFenceTimeout when the timeout elapses first.
	WaitForFence(f Fence, timeout time.Duration) error
	FenceSignaled(f Fence) (bool, error)
	ResetFence(f Fence) error

	// AcquireNextImage signals the semaphore once the image may be written.
	AcquireNextImage(timeout time.Duration, signal Semaphore) (uint32, error)
	Submit(info SubmitInfo) error
	Present(image uint32, wait Semaphore) error
	QueueWaitIdle() error
	WaitIdle() error
}
