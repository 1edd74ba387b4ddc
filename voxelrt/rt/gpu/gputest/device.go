// Package gputest provides an in-memory gpu.Device with a simulated GPU
// clock. Submissions complete only when the clock advances, either through
// Tick or because the host blocks on a fence or the queue.
package gputest

import (
	"errors"
	"fmt"
	"time"

	"github.com/gekko3d/voxcast/voxelrt/rt/gpu"
)

// Event is one recorded host call.
type Event struct {
	Op     string
	Handle uint64
	// Index is the swapchain image for Acquire and Present.
	Index uint32
	Size  uint64
	// Stall is set on WaitForFence when the host had to wait for the GPU.
	Stall bool
	Clock uint64
}

// Command is one recorded command buffer entry.
type Command struct {
	Op       string
	Pipeline gpu.Pipeline
	Set      gpu.DescriptorSet
	Barrier  gpu.ImageBarrier
	Group    [3]uint32
	Src, Dst uint64
	Size     uint64
}

type buffer struct {
	size   uint64
	usage  gpu.BufferUsage
	memory gpu.Memory
}

type memory struct {
	typeIndex uint32
	data      []byte
}

type image struct {
	desc   gpu.ImageDesc
	memory gpu.Memory
}

type fence struct {
	signaled bool
	pending  bool
}

type commandBuffer struct {
	recording bool
	usage     gpu.CommandBufferUsage
	commands  []Command
}

type submission struct {
	info       gpu.SubmitInfo
	completeAt uint64
}

// Device implements gpu.Device. Exported Func fields replace the default
// behavior of the matching method when set.
type Device struct {
	Types    []gpu.MemoryType
	Swap     gpu.SwapchainInfo
	Families gpu.QueueFamilies
	// Latency is how many ticks a submission takes to complete.
	Latency uint64
	// Hung makes pending submissions never complete; fence waits time out.
	Hung bool

	AcquireFunc        func(frame int) (uint32, error)
	CreateBufferFunc   func(size uint64, usage gpu.BufferUsage) (gpu.Buffer, error)
	AllocateMemoryFunc func(size uint64, typeIndex uint32) (gpu.Memory, error)
	PresentFunc        func(image uint32) error
	// Fail makes the named create or allocate call return its error.
	Fail map[string]error

	Events     []Event
	Violations []string
	Clock      uint64
	Completed  int
	Writes     []gpu.DescriptorWrite

	next        uint64
	acquires    int
	buffers     map[gpu.Buffer]*buffer
	memories    map[gpu.Memory]*memory
	images      map[gpu.Image]*image
	views       map[gpu.ImageView]gpu.Image
	fences      map[gpu.Fence]*fence
	semaphores  map[gpu.Semaphore]bool
	commands    map[gpu.CommandBuffer]*commandBuffer
	layouts     map[gpu.DescriptorSetLayout][]gpu.DescriptorBinding
	pools       map[gpu.DescriptorPool][]gpu.DescriptorSet
	pipelines   map[gpu.Pipeline]gpu.PipelineLayout
	queue       []submission
	bufferImage map[gpu.Image][]byte
}

// NewDevice returns a device with a host-visible and a device-local memory
// type and a swapchain of the given size.
func NewDevice(images int, width, height uint32) *Device {
	d := &Device{
		Types: []gpu.MemoryType{
			{Properties: gpu.MemoryDeviceLocal, HeapIndex: 0},
			{Properties: gpu.MemoryHostVisible | gpu.MemoryHostCoherent, HeapIndex: 1},
		},
		Families:    gpu.QueueFamilies{Compute: 0, Present: 1},
		Latency:     1,
		buffers:     map[gpu.Buffer]*buffer{},
		memories:    map[gpu.Memory]*memory{},
		images:      map[gpu.Image]*image{},
		views:       map[gpu.ImageView]gpu.Image{},
		fences:      map[gpu.Fence]*fence{},
		semaphores:  map[gpu.Semaphore]bool{},
		commands:    map[gpu.CommandBuffer]*commandBuffer{},
		layouts:     map[gpu.DescriptorSetLayout][]gpu.DescriptorBinding{},
		pools:       map[gpu.DescriptorPool][]gpu.DescriptorSet{},
		pipelines:   map[gpu.Pipeline]gpu.PipelineLayout{},
		bufferImage: map[gpu.Image][]byte{},
	}
	d.Swap.Extent = gpu.Extent2D{Width: width, Height: height}
	d.Swap.Format = gpu.FormatB8G8R8A8Unorm
	for i := 0; i < images; i++ {
		img := gpu.Image(d.handle())
		d.images[img] = &image{desc: gpu.ImageDesc{Width: width, Height: height, Format: d.Swap.Format}}
		view := gpu.ImageView(d.handle())
		d.views[view] = img
		d.Swap.Images = append(d.Swap.Images, img)
		d.Swap.Views = append(d.Swap.Views, view)
	}
	return d
}

func (d *Device) handle() uint64 {
	d.next++
	return d.next
}

func (d *Device) record(e Event) {
	e.Clock = d.Clock
	d.Events = append(d.Events, e)
}

func (d *Device) violate(format string, args ...any) {
	d.Violations = append(d.Violations, fmt.Sprintf(format, args...))
}

// Tick advances the GPU clock, completing due submissions.
func (d *Device) Tick(n uint64) {
	d.Clock += n
	d.complete()
}

func (d *Device) complete() {
	if d.Hung {
		return
	}
	for len(d.queue) > 0 && d.queue[0].completeAt <= d.Clock {
		s := d.queue[0]
		d.queue = d.queue[1:]
		if f, ok := d.fences[s.info.Fence]; ok {
			f.pending = false
			f.signaled = true
		}
		d.Completed++
	}
}

// runUntil advances the clock until pred holds or the queue is empty.
func (d *Device) runUntil(pred func() bool) {
	for !pred() && len(d.queue) > 0 && !d.Hung {
		if at := d.queue[0].completeAt; at > d.Clock {
			d.Clock = at
		}
		d.complete()
	}
}

func (d *Device) MemoryTypes() []gpu.MemoryType    { return d.Types }
func (d *Device) Swapchain() gpu.SwapchainInfo     { return d.Swap }
func (d *Device) QueueFamilies() gpu.QueueFamilies { return d.Families }

func (d *Device) CreateBuffer(size uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	if d.CreateBufferFunc != nil {
		return d.CreateBufferFunc(size, usage)
	}
	b := gpu.Buffer(d.handle())
	d.buffers[b] = &buffer{size: size, usage: usage}
	d.record(Event{Op: "CreateBuffer", Handle: uint64(b), Size: size})
	return b, nil
}

func (d *Device) BufferMemoryRequirements(b gpu.Buffer) gpu.MemoryRequirements {
	buf, ok := d.buffers[b]
	if !ok {
		d.violate("requirements of unknown buffer %d", b)
		return gpu.MemoryRequirements{}
	}
	return gpu.MemoryRequirements{Size: buf.size, Alignment: 16, TypeBits: d.allTypes()}
}

func (d *Device) allTypes() uint32 {
	return uint32(1)<<uint(len(d.Types)) - 1
}

func (d *Device) DestroyBuffer(b gpu.Buffer) {
	if _, ok := d.buffers[b]; !ok {
		d.violate("destroy of unknown buffer %d", b)
		return
	}
	delete(d.buffers, b)
	d.record(Event{Op: "DestroyBuffer", Handle: uint64(b)})
}

func (d *Device) CreateImage(desc gpu.ImageDesc) (gpu.Image, error) {
	if err := d.Fail["CreateImage"]; err != nil {
		return 0, err
	}
	img := gpu.Image(d.handle())
	d.images[img] = &image{desc: desc}
	d.record(Event{Op: "CreateImage", Handle: uint64(img)})
	return img, nil
}

func (d *Device) ImageMemoryRequirements(img gpu.Image) gpu.MemoryRequirements {
	im, ok := d.images[img]
	if !ok {
		d.violate("requirements of unknown image %d", img)
		return gpu.MemoryRequirements{}
	}
	return gpu.MemoryRequirements{
		Size:      uint64(im.desc.Width) * uint64(max(im.desc.Height, 1)) * 4,
		Alignment: 256,
		// Images only live in device-local memory.
		TypeBits: 1,
	}
}

func (d *Device) DestroyImage(img gpu.Image) {
	if _, ok := d.images[img]; !ok {
		d.violate("destroy of unknown image %d", img)
		return
	}
	delete(d.images, img)
	d.record(Event{Op: "DestroyImage", Handle: uint64(img)})
}

func (d *Device) CreateImageView(img gpu.Image, desc gpu.ImageDesc) (gpu.ImageView, error) {
	if _, ok := d.images[img]; !ok {
		return 0, fmt.Errorf("unknown image %d", img)
	}
	v := gpu.ImageView(d.handle())
	d.views[v] = img
	return v, nil
}

func (d *Device) DestroyImageView(view gpu.ImageView) {
	if _, ok := d.views[view]; !ok {
		d.violate("destroy of unknown image view %d", view)
		return
	}
	delete(d.views, view)
}

func (d *Device) AllocateMemory(size uint64, typeIndex uint32) (gpu.Memory, error) {
	if d.AllocateMemoryFunc != nil {
		return d.AllocateMemoryFunc(size, typeIndex)
	}
	if int(typeIndex) >= len(d.Types) {
		return 0, fmt.Errorf("memory type %d out of range", typeIndex)
	}
	m := gpu.Memory(d.handle())
	d.memories[m] = &memory{typeIndex: typeIndex, data: make([]byte, size)}
	d.record(Event{Op: "AllocateMemory", Handle: uint64(m), Size: size})
	return m, nil
}

func (d *Device) FreeMemory(m gpu.Memory) {
	if _, ok := d.memories[m]; !ok {
		d.violate("free of unknown memory %d", m)
		return
	}
	for b, buf := range d.buffers {
		if buf.memory == m {
			d.violate("memory %d freed before buffer %d", m, b)
		}
	}
	delete(d.memories, m)
	d.record(Event{Op: "FreeMemory", Handle: uint64(m)})
}

func (d *Device) BindBufferMemory(b gpu.Buffer, m gpu.Memory) error {
	buf, ok := d.buffers[b]
	if !ok {
		return fmt.Errorf("unknown buffer %d", b)
	}
	if _, ok := d.memories[m]; !ok {
		return fmt.Errorf("unknown memory %d", m)
	}
	buf.memory = m
	return nil
}

func (d *Device) BindImageMemory(img gpu.Image, m gpu.Memory) error {
	im, ok := d.images[img]
	if !ok {
		return fmt.Errorf("unknown image %d", img)
	}
	if _, ok := d.memories[m]; !ok {
		return fmt.Errorf("unknown memory %d", m)
	}
	im.memory = m
	return nil
}

func (d *Device) WriteMemory(m gpu.Memory, offset uint64, data []byte) error {
	mem, ok := d.memories[m]
	if !ok {
		return fmt.Errorf("unknown memory %d", m)
	}
	if d.Types[mem.typeIndex].Properties&gpu.MemoryHostVisible == 0 {
		return errors.New("map of device-local memory")
	}
	if offset+uint64(len(data)) > uint64(len(mem.data)) {
		return fmt.Errorf("write of %d bytes at %d overflows %d", len(data), offset, len(mem.data))
	}
	copy(mem.data[offset:], data)
	d.record(Event{Op: "WriteMemory", Handle: uint64(m), Size: uint64(len(data))})
	return nil
}

func (d *Device) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayout, error) {
	if err := d.Fail["CreateDescriptorSetLayout"]; err != nil {
		return 0, err
	}
	l := gpu.DescriptorSetLayout(d.handle())
	d.layouts[l] = append([]gpu.DescriptorBinding(nil), bindings...)
	return l, nil
}

func (d *Device) DestroyDescriptorSetLayout(l gpu.DescriptorSetLayout) {
	if _, ok := d.layouts[l]; !ok {
		d.violate("destroy of unknown descriptor set layout %d", l)
		return
	}
	delete(d.layouts, l)
}

func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []gpu.DescriptorPoolSize) (gpu.DescriptorPool, error) {
	if err := d.Fail["CreateDescriptorPool"]; err != nil {
		return 0, err
	}
	p := gpu.DescriptorPool(d.handle())
	d.pools[p] = nil
	return p, nil
}

func (d *Device) DestroyDescriptorPool(p gpu.DescriptorPool) {
	if _, ok := d.pools[p]; !ok {
		d.violate("destroy of unknown descriptor pool %d", p)
		return
	}
	delete(d.pools, p)
}

func (d *Device) AllocateDescriptorSets(p gpu.DescriptorPool, l gpu.DescriptorSetLayout, count int) ([]gpu.DescriptorSet, error) {
	if err := d.Fail["AllocateDescriptorSets"]; err != nil {
		return nil, err
	}
	if _, ok := d.pools[p]; !ok {
		return nil, fmt.Errorf("unknown descriptor pool %d", p)
	}
	if _, ok := d.layouts[l]; !ok {
		return nil, fmt.Errorf("unknown descriptor set layout %d", l)
	}
	sets := make([]gpu.DescriptorSet, count)
	for i := range sets {
		sets[i] = gpu.DescriptorSet(d.handle())
	}
	d.pools[p] = append(d.pools[p], sets...)
	return sets, nil
}

func (d *Device) UpdateDescriptorSets(writes []gpu.DescriptorWrite) {
	d.Writes = append(d.Writes, writes...)
}

// Layout returns the bindings a descriptor set layout was created with.
func (d *Device) Layout(l gpu.DescriptorSetLayout) []gpu.DescriptorBinding { return d.layouts[l] }

func (d *Device) CreateComputePipeline(spirv []uint32, layout gpu.DescriptorSetLayout) (gpu.Pipeline, gpu.PipelineLayout, error) {
	if len(spirv) == 0 {
		return 0, 0, errors.New("empty shader module")
	}
	if _, ok := d.layouts[layout]; !ok {
		return 0, 0, fmt.Errorf("unknown descriptor set layout %d", layout)
	}
	p := gpu.Pipeline(d.handle())
	pl := gpu.PipelineLayout(d.handle())
	d.pipelines[p] = pl
	return p, pl, nil
}

func (d *Device) DestroyPipeline(p gpu.Pipeline, layout gpu.PipelineLayout) {
	if _, ok := d.pipelines[p]; !ok {
		d.violate("destroy of unknown pipeline %d", p)
		return
	}
	delete(d.pipelines, p)
}

func (d *Device) AllocateCommandBuffers(count int) ([]gpu.CommandBuffer, error) {
	if err := d.Fail["AllocateCommandBuffers"]; err != nil {
		return nil, err
	}
	cbs := make([]gpu.CommandBuffer, count)
	for i := range cbs {
		cbs[i] = gpu.CommandBuffer(d.handle())
		d.commands[cbs[i]] = &commandBuffer{}
	}
	return cbs, nil
}

func (d *Device) FreeCommandBuffers(cbs []gpu.CommandBuffer) {
	for _, cb := range cbs {
		if _, ok := d.commands[cb]; !ok {
			d.violate("free of unknown command buffer %d", cb)
			continue
		}
		for _, s := range d.queue {
			if s.info.CommandBuffer == cb {
				d.violate("command buffer %d freed while pending", cb)
			}
		}
		delete(d.commands, cb)
	}
	d.record(Event{Op: "FreeCommandBuffers", Size: uint64(len(cbs))})
}

func (d *Device) BeginCommandBuffer(cb gpu.CommandBuffer, usage gpu.CommandBufferUsage) error {
	c, ok := d.commands[cb]
	if !ok {
		return fmt.Errorf("unknown command buffer %d", cb)
	}
	c.recording, c.usage, c.commands = true, usage, nil
	return nil
}

func (d *Device) EndCommandBuffer(cb gpu.CommandBuffer) error {
	c, ok := d.commands[cb]
	if !ok || !c.recording {
		return fmt.Errorf("command buffer %d is not recording", cb)
	}
	c.recording = false
	return nil
}

func (d *Device) cmd(cb gpu.CommandBuffer, c Command) {
	buf, ok := d.commands[cb]
	if !ok || !buf.recording {
		d.violate("%s outside recording on command buffer %d", c.Op, cb)
		return
	}
	buf.commands = append(buf.commands, c)
}

func (d *Device) CmdBindComputePipeline(cb gpu.CommandBuffer, p gpu.Pipeline) {
	d.cmd(cb, Command{Op: "BindPipeline", Pipeline: p})
}

func (d *Device) CmdBindDescriptorSet(cb gpu.CommandBuffer, layout gpu.PipelineLayout, set gpu.DescriptorSet) {
	d.cmd(cb, Command{Op: "BindDescriptorSet", Set: set})
}

func (d *Device) CmdImageBarrier(cb gpu.CommandBuffer, barrier gpu.ImageBarrier) {
	d.cmd(cb, Command{Op: "Barrier", Barrier: barrier})
}

func (d *Device) CmdDispatch(cb gpu.CommandBuffer, x, y, z uint32) {
	d.cmd(cb, Command{Op: "Dispatch", Group: [3]uint32{x, y, z}})
}

func (d *Device) CmdCopyBuffer(cb gpu.CommandBuffer, src, dst gpu.Buffer, size uint64) {
	d.cmd(cb, Command{Op: "CopyBuffer", Src: uint64(src), Dst: uint64(dst), Size: size})
}

func (d *Device) CmdCopyBufferToImage(cb gpu.CommandBuffer, src gpu.Buffer, dst gpu.Image, width, height uint32) {
	d.cmd(cb, Command{Op: "CopyBufferToImage", Src: uint64(src), Dst: uint64(dst), Size: uint64(width) * uint64(height) * 4})
}

// Commands returns what was recorded into a command buffer.
func (d *Device) Commands(cb gpu.CommandBuffer) []Command {
	if c, ok := d.commands[cb]; ok {
		return c.commands
	}
	return nil
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	if err := d.Fail["CreateSemaphore"]; err != nil {
		return 0, err
	}
	s := gpu.Semaphore(d.handle())
	d.semaphores[s] = false
	return s, nil
}

func (d *Device) DestroySemaphore(s gpu.Semaphore) {
	if _, ok := d.semaphores[s]; !ok {
		d.violate("destroy of unknown semaphore %d", s)
		return
	}
	delete(d.semaphores, s)
	d.record(Event{Op: "DestroySemaphore", Handle: uint64(s)})
}

func (d *Device) CreateFence(signaled bool) (gpu.Fence, error) {
	if err := d.Fail["CreateFence"]; err != nil {
		return 0, err
	}
	f := gpu.Fence(d.handle())
	d.fences[f] = &fence{signaled: signaled}
	return f, nil
}

func (d *Device) DestroyFence(f gpu.Fence) {
	fe, ok := d.fences[f]
	if !ok {
		d.violate("destroy of unknown fence %d", f)
		return
	}
	if fe.pending {
		d.violate("fence %d destroyed while pending", f)
	}
	delete(d.fences, f)
	d.record(Event{Op: "DestroyFence", Handle: uint64(f)})
}

func (d *Device) WaitForFence(f gpu.Fence, timeout time.Duration) error {
	fe, ok := d.fences[f]
	if !ok {
		d.violate("wait on unknown fence %d", f)
		return fmt.Errorf("unknown fence %d", f)
	}
	if fe.signaled {
		d.record(Event{Op: "WaitForFence", Handle: uint64(f)})
		return nil
	}
	if !fe.pending {
		d.violate("wait on fence %d with no pending submission", f)
		return gpu.ErrFenceTimeout
	}
	d.runUntil(func() bool { return fe.signaled })
	if !fe.signaled {
		return gpu.ErrFenceTimeout
	}
	d.record(Event{Op: "WaitForFence", Handle: uint64(f), Stall: true})
	return nil
}

func (d *Device) FenceSignaled(f gpu.Fence) (bool, error) {
	fe, ok := d.fences[f]
	if !ok {
		return false, fmt.Errorf("unknown fence %d", f)
	}
	return fe.signaled, nil
}

func (d *Device) ResetFence(f gpu.Fence) error {
	fe, ok := d.fences[f]
	if !ok {
		return fmt.Errorf("unknown fence %d", f)
	}
	if fe.pending {
		d.violate("fence %d reset while its submission is pending", f)
	}
	fe.signaled = false
	d.record(Event{Op: "ResetFence", Handle: uint64(f)})
	return nil
}

func (d *Device) AcquireNextImage(timeout time.Duration, signal gpu.Semaphore) (uint32, error) {
	frame := d.acquires
	d.acquires++
	var idx uint32
	if d.AcquireFunc != nil {
		var err error
		if idx, err = d.AcquireFunc(frame); err != nil {
			return 0, err
		}
	} else {
		idx = uint32(frame % len(d.Swap.Images))
	}
	if signaled, ok := d.semaphores[signal]; !ok {
		d.violate("acquire signals unknown semaphore %d", signal)
	} else if signaled {
		d.violate("acquire signals semaphore %d that is still signaled", signal)
	}
	d.semaphores[signal] = true
	d.record(Event{Op: "Acquire", Handle: uint64(signal), Index: idx})
	return idx, nil
}

func (d *Device) Submit(info gpu.SubmitInfo) error {
	cb, ok := d.commands[info.CommandBuffer]
	if !ok || cb.recording {
		return fmt.Errorf("command buffer %d is not executable", info.CommandBuffer)
	}
	if info.Wait != 0 {
		if !d.semaphores[info.Wait] {
			d.violate("submit waits on unsignaled semaphore %d", info.Wait)
		}
		d.semaphores[info.Wait] = false
	}
	if info.Signal != 0 {
		d.semaphores[info.Signal] = true
	}
	if info.Fence != 0 {
		fe, ok := d.fences[info.Fence]
		if !ok {
			return fmt.Errorf("unknown fence %d", info.Fence)
		}
		if fe.signaled || fe.pending {
			d.violate("submit with fence %d that was not reset", info.Fence)
		}
		fe.pending = true
	}
	// Transfers land at submit; the fake has no real GPU timeline for data.
	for _, c := range cb.commands {
		d.execute(c)
	}
	d.queue = append(d.queue, submission{info: info, completeAt: d.Clock + d.Latency})
	d.record(Event{Op: "Submit", Handle: uint64(info.Fence), Size: uint64(info.CommandBuffer)})
	return nil
}

func (d *Device) execute(c Command) {
	switch c.Op {
	case "CopyBuffer":
		src, dst := d.bufferData(gpu.Buffer(c.Src)), d.bufferData(gpu.Buffer(c.Dst))
		if src == nil || dst == nil || uint64(len(src)) < c.Size || uint64(len(dst)) < c.Size {
			d.violate("copy of %d bytes between buffers %d and %d", c.Size, c.Src, c.Dst)
			return
		}
		copy(dst[:c.Size], src[:c.Size])
	case "CopyBufferToImage":
		src := d.bufferData(gpu.Buffer(c.Src))
		if uint64(len(src)) < c.Size {
			d.violate("image copy reads past buffer %d", c.Src)
			return
		}
		d.bufferImage[gpu.Image(c.Dst)] = append([]byte(nil), src[:c.Size]...)
	}
}

func (d *Device) bufferData(b gpu.Buffer) []byte {
	buf, ok := d.buffers[b]
	if !ok {
		return nil
	}
	mem, ok := d.memories[buf.memory]
	if !ok {
		return nil
	}
	return mem.data[:buf.size]
}

// BufferContents returns the bytes backing a buffer.
func (d *Device) BufferContents(b gpu.Buffer) []byte { return d.bufferData(b) }

// ImageContents returns the last bytes copied into an image.
func (d *Device) ImageContents(img gpu.Image) []byte { return d.bufferImage[img] }

func (d *Device) Present(idx uint32, wait gpu.Semaphore) error {
	if wait != 0 {
		if !d.semaphores[wait] {
			d.violate("present waits on unsignaled semaphore %d", wait)
		}
		d.semaphores[wait] = false
	}
	d.record(Event{Op: "Present", Handle: uint64(wait), Index: idx})
	if d.PresentFunc != nil {
		return d.PresentFunc(idx)
	}
	return nil
}

func (d *Device) QueueWaitIdle() error {
	d.runUntil(func() bool { return len(d.queue) == 0 })
	if len(d.queue) != 0 {
		return errors.New("queue hung")
	}
	d.record(Event{Op: "QueueWaitIdle"})
	return nil
}

func (d *Device) WaitIdle() error {
	if err := d.QueueWaitIdle(); err != nil {
		return err
	}
	d.record(Event{Op: "WaitIdle"})
	return nil
}

// Live counts objects not yet destroyed, excluding swapchain images and views.
func (d *Device) Live() int {
	n := len(d.buffers) + len(d.memories) + len(d.fences) + len(d.semaphores) +
		len(d.commands) + len(d.layouts) + len(d.pools) + len(d.pipelines)
	n += len(d.images) - len(d.Swap.Images)
	n += len(d.views) - len(d.Swap.Views)
	return n
}

// Find returns the index of the first event at or after from matching op, or -1.
func (d *Device) Find(from int, op string) int {
	for i := from; i < len(d.Events); i++ {
		if d.Events[i].Op == op {
			return i
		}
	}
	return -1
}

// Count returns how many events match op.
func (d *Device) Count(op string) int {
	n := 0
	for _, e := range d.Events {
		if e.Op == op {
			n++
		}
	}
	return n
}
