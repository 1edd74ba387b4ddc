package gpu

import (
	"errors"
	"fmt"
)

// Allocation is a buffer or image bound to its own memory.
type Allocation struct {
	Name       string
	Buffer     Buffer
	Image      Image
	Memory     Memory
	Size       uint64
	Properties MemoryProperty
}

type BufferSpec struct {
	Name       string
	Size       uint64
	Usage      BufferUsage
	Properties MemoryProperty
}

type ImageSpec struct {
	Name       string
	Desc       ImageDesc
	Properties MemoryProperty
}

// Allocator creates buffers and images with dedicated memory and owns
// their destruction.
type Allocator struct {
	device Device
	types  []MemoryType
	live   []*Allocation
}

func NewAllocator(device Device) *Allocator {
	return &Allocator{device: device, types: device.MemoryTypes()}
}

// FindMemoryType returns the first memory type allowed by typeBits whose
// properties include want.
func FindMemoryType(types []MemoryType, typeBits uint32, want MemoryProperty) (uint32, error) {
	for i, t := range types {
		if i >= 32 {
			break
		}
		if typeBits&(1<<uint(i)) != 0 && t.Properties&want == want {
			return uint32(i), nil
		}
	}
	return 0, &ResourceError{
		Op:       "find memory type",
		Resource: fmt.Sprintf("bits %#x", typeBits),
		Err:      fmt.Errorf("no type with properties %#x", uint32(want)),
	}
}

func (a *Allocator) CreateBuffer(spec BufferSpec) (*Allocation, error) {
	if spec.Size == 0 {
		return nil, &ResourceError{Op: "create buffer", Resource: spec.Name, Err: errors.New("zero size")}
	}
	buf, err := a.device.CreateBuffer(spec.Size, spec.Usage)
	if err != nil {
		return nil, &ResourceError{Op: "create buffer", Resource: spec.Name, Err: err}
	}
	mem, err := a.allocate(spec.Name, a.device.BufferMemoryRequirements(buf), spec.Properties)
	if err != nil {
		a.device.DestroyBuffer(buf)
		return nil, err
	}
	if err := a.device.BindBufferMemory(buf, mem); err != nil {
		a.device.DestroyBuffer(buf)
		a.device.FreeMemory(mem)
		return nil, &ResourceError{Op: "bind buffer memory", Resource: spec.Name, Err: err}
	}
	return a.track(&Allocation{
		Name:       spec.Name,
		Buffer:     buf,
		Memory:     mem,
		Size:       spec.Size,
		Properties: spec.Properties,
	}), nil
}

func (a *Allocator) CreateImage(spec ImageSpec) (*Allocation, error) {
	img, err := a.device.CreateImage(spec.Desc)
	if err != nil {
		return nil, &ResourceError{Op: "create image", Resource: spec.Name, Err: err}
	}
	reqs := a.device.ImageMemoryRequirements(img)
	mem, err := a.allocate(spec.Name, reqs, spec.Properties)
	if err != nil {
		a.device.DestroyImage(img)
		return nil, err
	}
	if err := a.device.BindImageMemory(img, mem); err != nil {
		a.device.DestroyImage(img)
		a.device.FreeMemory(mem)
		return nil, &ResourceError{Op: "bind image memory", Resource: spec.Name, Err: err}
	}
	return a.track(&Allocation{
		Name:       spec.Name,
		Image:      img,
		Memory:     mem,
		Size:       reqs.Size,
		Properties: spec.Properties,
	}), nil
}

func (a *Allocator) allocate(name string, reqs MemoryRequirements, props MemoryProperty) (Memory, error) {
	typeIndex, err := FindMemoryType(a.types, reqs.TypeBits, props)
	if err != nil {
		var re *ResourceError
		if errors.As(err, &re) {
			re.Resource = name
		}
		return 0, err
	}
	mem, err := a.device.AllocateMemory(reqs.Size, typeIndex)
	if err != nil {
		return 0, &ResourceError{Op: "allocate memory", Resource: name, Err: err}
	}
	return mem, nil
}

func (a *Allocator) track(al *Allocation) *Allocation {
	a.live = append(a.live, al)
	return al
}

// Write copies data into a host-visible allocation.
func (a *Allocator) Write(al *Allocation, offset uint64, data []byte) error {
	if al.Properties&MemoryHostVisible == 0 {
		return &ResourceError{Op: "write", Resource: al.Name, Err: errors.New("memory is not host visible")}
	}
	if end := offset + uint64(len(data)); end > al.Size {
		return &CapacityError{Resource: al.Name, Need: end, Limit: al.Size}
	}
	if err := a.device.WriteMemory(al.Memory, offset, data); err != nil {
		return &ResourceError{Op: "write", Resource: al.Name, Err: err}
	}
	return nil
}

// Release destroys one allocation. Releasing twice is a no-op.
func (a *Allocator) Release(al *Allocation) {
	for i, l := range a.live {
		if l == al {
			a.destroy(al)
			a.live = append(a.live[:i], a.live[i+1:]...)
			return
		}
	}
}

// ReleaseAll destroys every live allocation, newest first.
func (a *Allocator) ReleaseAll() {
	for i := len(a.live) - 1; i >= 0; i-- {
		a.destroy(a.live[i])
	}
	a.live = nil
}

func (a *Allocator) destroy(al *Allocation) {
	if al.Buffer != 0 {
		a.device.DestroyBuffer(al.Buffer)
	}
	if al.Image != 0 {
		a.device.DestroyImage(al.Image)
	}
	a.device.FreeMemory(al.Memory)
}

// Live is the number of allocations not yet released.
func (a *Allocator) Live() int { return len(a.live) }
