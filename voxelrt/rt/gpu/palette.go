package gpu

// PaletteSize is the number of RGBA entries in the palette image.
const PaletteSize = 256

// PaletteImage is a 256x1 RGBA storage image indexed by voxel color index.
type PaletteImage struct {
	device   Device
	alloc    *Allocator
	recorder *CommandRecorder
	staging  *Allocation
	image    *Allocation
	view     ImageView
}

var paletteDesc = ImageDesc{
	Dimension: Image1D,
	Width:     PaletteSize,
	Height:    1,
	Format:    FormatR8G8B8A8Unorm,
	Usage:     ImageUsageStorage | ImageUsageTransferDst,
}

func NewPaletteImage(device Device, alloc *Allocator, recorder *CommandRecorder) (*PaletteImage, error) {
	p := &PaletteImage{device: device, alloc: alloc, recorder: recorder}

	var err error
	p.staging, err = alloc.CreateBuffer(BufferSpec{
		Name:       "palette staging",
		Size:       PaletteSize * 4,
		Usage:      BufferUsageTransferSrc,
		Properties: MemoryHostWritable,
	})
	if err != nil {
		return nil, err
	}
	p.image, err = alloc.CreateImage(ImageSpec{Name: "palette", Desc: paletteDesc, Properties: MemoryDeviceLocal})
	if err != nil {
		p.Destroy()
		return nil, err
	}
	p.view, err = device.CreateImageView(p.image.Image, paletteDesc)
	if err != nil {
		p.Destroy()
		return nil, &ResourceError{Op: "create image view", Resource: "palette", Err: err}
	}
	// Descriptors expect GENERAL even before the first upload.
	if err := recorder.TransitionImage(p.image.Image, LayoutUndefined, LayoutGeneral); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

// Upload replaces the palette and waits for the copy to finish.
func (p *PaletteImage) Upload(colors [PaletteSize][4]uint8) error {
	data := make([]byte, 0, PaletteSize*4)
	for _, c := range colors {
		data = append(data, c[:]...)
	}
	if err := p.alloc.Write(p.staging, 0, data); err != nil {
		return err
	}
	return p.recorder.CopyBufferToImage(p.staging.Buffer, p.image.Image, PaletteSize, 1)
}

func (p *PaletteImage) View() ImageView { return p.view }

// Destroy releases the view and both allocations.
func (p *PaletteImage) Destroy() {
	if p.view != 0 {
		p.device.DestroyImageView(p.view)
		p.view = 0
	}
	if p.image != nil {
		p.alloc.Release(p.image)
		p.image = nil
	}
	if p.staging != nil {
		p.alloc.Release(p.staging)
		p.staging = nil
	}
}
