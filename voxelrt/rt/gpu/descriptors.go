package gpu

import "fmt"

// Bindings of the kernel's single descriptor set.
const (
	BindingOutputImage uint32 = 0
	BindingCamera      uint32 = 1
	BindingOctree      uint32 = 2
	BindingPalette     uint32 = 3
)

// FrameBindings are the resources one swapchain image's set points at.
type FrameBindings struct {
	Output  ImageView
	Camera  *Allocation
	Octree  *Allocation
	Palette ImageView
}

// DescriptorBinder owns the set layout, the pool and one set per swapchain image.
type DescriptorBinder struct {
	device  Device
	layout  DescriptorSetLayout
	pool    DescriptorPool
	sets    []DescriptorSet
	palette bool
}

func NewDescriptorBinder(device Device, images int, palette bool) (*DescriptorBinder, error) {
	b := &DescriptorBinder{device: device, palette: palette}

	bindings := []DescriptorBinding{
		{Binding: BindingOutputImage, Type: DescriptorStorageImage},
		{Binding: BindingCamera, Type: DescriptorUniformBuffer},
		{Binding: BindingOctree, Type: DescriptorStorageBuffer},
	}
	storageImages := uint32(images)
	if palette {
		bindings = append(bindings, DescriptorBinding{Binding: BindingPalette, Type: DescriptorStorageImage})
		storageImages *= 2
	}

	var err error
	b.layout, err = device.CreateDescriptorSetLayout(bindings)
	if err != nil {
		return nil, &ResourceError{Op: "create descriptor set layout", Resource: "frame", Err: err}
	}
	b.pool, err = device.CreateDescriptorPool(uint32(images), []DescriptorPoolSize{
		{Type: DescriptorStorageImage, Count: storageImages},
		{Type: DescriptorUniformBuffer, Count: uint32(images)},
		{Type: DescriptorStorageBuffer, Count: uint32(images)},
	})
	if err != nil {
		b.Destroy()
		return nil, &ResourceError{Op: "create descriptor pool", Resource: "frame", Err: err}
	}
	b.sets, err = device.AllocateDescriptorSets(b.pool, b.layout, images)
	if err != nil {
		b.Destroy()
		return nil, &ResourceError{Op: "allocate descriptor sets", Resource: "frame", Err: err}
	}
	return b, nil
}

func (b *DescriptorBinder) Layout() DescriptorSetLayout { return b.layout }

func (b *DescriptorBinder) Sets() []DescriptorSet { return b.sets }

// Bind points set i at frames[i]. All sets share the octree buffer and
// palette view passed in frames.
func (b *DescriptorBinder) Bind(frames []FrameBindings) error {
	if len(frames) != len(b.sets) {
		return fmt.Errorf("gpu: %d frame bindings for %d descriptor sets", len(frames), len(b.sets))
	}
	writes := make([]DescriptorWrite, 0, len(frames)*4)
	for i, f := range frames {
		set := b.sets[i]
		writes = append(writes,
			DescriptorWrite{Set: set, Binding: BindingOutputImage, Type: DescriptorStorageImage, View: f.Output, Layout: LayoutGeneral},
			DescriptorWrite{Set: set, Binding: BindingCamera, Type: DescriptorUniformBuffer, Buffer: f.Camera.Buffer, Range: f.Camera.Size},
			DescriptorWrite{Set: set, Binding: BindingOctree, Type: DescriptorStorageBuffer, Buffer: f.Octree.Buffer, Range: f.Octree.Size},
		)
		if b.palette {
			writes = append(writes, DescriptorWrite{Set: set, Binding: BindingPalette, Type: DescriptorStorageImage, View: f.Palette, Layout: LayoutGeneral})
		}
	}
	b.device.UpdateDescriptorSets(writes)
	return nil
}

// Destroy releases the pool, which frees its sets, and the layout.
func (b *DescriptorBinder) Destroy() {
	if b.pool != 0 {
		b.device.DestroyDescriptorPool(b.pool)
		b.pool = 0
		b.sets = nil
	}
	if b.layout != 0 {
		b.device.DestroyDescriptorSetLayout(b.layout)
		b.layout = 0
	}
}
