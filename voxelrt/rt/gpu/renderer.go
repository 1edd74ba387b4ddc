package gpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"

	"github.com/gekko3d/voxcast"
	"github.com/gekko3d/voxcast/voxelrt/rt/octree"
)

type Options struct {
	FramesInFlight int
	MaxNodes       int
	Palette        bool
	FenceTimeout   time.Duration
}

// Renderer owns every GPU resource of the octree ray caster and drives one
// frame per RenderFrame call.
type Renderer struct {
	device Device
	logger voxcast.Logger
	opts   Options
	swap   SwapchainInfo

	alloc    *Allocator
	recorder *CommandRecorder
	binder   *DescriptorBinder
	frames   *FrameSynchronizer
	octree   *OctreeBuffer
	palette  *PaletteImage
	cameras  []*Allocation

	pipeline       Pipeline
	pipelineLayout PipelineLayout
	commands       []CommandBuffer

	depth  uint32
	closed bool
}

// NewRenderer builds the full per-image pipeline around kernel, a SPIR-V
// compute shader. The octree starts as a single empty root.
func NewRenderer(device Device, kernel []uint32, opts Options, logger voxcast.Logger) (r *Renderer, err error) {
	if opts.MaxNodes < 1 {
		return nil, fmt.Errorf("gpu: max nodes %d must be at least 1", opts.MaxNodes)
	}
	swap := device.Swapchain()
	if len(swap.Images) == 0 || len(swap.Views) != len(swap.Images) {
		return nil, fmt.Errorf("gpu: swapchain has %d images and %d views", len(swap.Images), len(swap.Views))
	}

	r = &Renderer{
		device:   device,
		logger:   voxcast.OrNop(logger),
		opts:     opts,
		swap:     swap,
		alloc:    NewAllocator(device),
		recorder: NewCommandRecorder(device),
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, r.Close())
			r = nil
		}
	}()

	for i := range swap.Images {
		cam, err := r.alloc.CreateBuffer(BufferSpec{
			Name:       fmt.Sprintf("camera %d", i),
			Size:       CameraUniformSize,
			Usage:      BufferUsageUniform,
			Properties: MemoryHostWritable,
		})
		if err != nil {
			return r, err
		}
		r.cameras = append(r.cameras, cam)
	}

	if r.octree, err = NewOctreeBuffer(r.alloc, r.recorder, opts.MaxNodes); err != nil {
		return r, err
	}
	if err = r.octree.Upload([]octree.Node{octree.Empty()}); err != nil {
		return r, err
	}
	r.depth = 2

	var paletteView ImageView
	if opts.Palette {
		if r.palette, err = NewPaletteImage(device, r.alloc, r.recorder); err != nil {
			return r, err
		}
		paletteView = r.palette.View()
	}

	if r.binder, err = NewDescriptorBinder(device, len(swap.Images), opts.Palette); err != nil {
		return r, err
	}
	bindings := make([]FrameBindings, len(swap.Images))
	for i := range bindings {
		bindings[i] = FrameBindings{
			Output:  swap.Views[i],
			Camera:  r.cameras[i],
			Octree:  r.octree.Allocation(),
			Palette: paletteView,
		}
	}
	if err = r.binder.Bind(bindings); err != nil {
		return r, err
	}

	r.pipeline, r.pipelineLayout, err = device.CreateComputePipeline(kernel, r.binder.Layout())
	if err != nil {
		return r, &ResourceError{Op: "create compute pipeline", Resource: "octree kernel", Err: err}
	}

	if r.commands, err = r.recorder.RecordFrames(r.pipeline, r.pipelineLayout, r.binder.Sets(), swap); err != nil {
		return r, err
	}

	if r.frames, err = NewFrameSynchronizer(device, opts.FramesInFlight, len(swap.Images), opts.FenceTimeout, r.logger); err != nil {
		return r, err
	}
	r.frames.SetCommands(r.commands)

	r.logger.Infof("renderer ready: %d swapchain images %dx%d, %d frames in flight, octree capacity %d nodes",
		len(swap.Images), swap.Extent.Width, swap.Extent.Height, opts.FramesInFlight, opts.MaxNodes)
	return r, nil
}

// UploadOctree replaces the scene. It waits for every frame in flight so the
// copy never overlaps a dispatch reading the old tree.
func (r *Renderer) UploadOctree(tree *octree.Tree) error {
	if len(tree.Nodes) > r.octree.Capacity() {
		return &CapacityError{Resource: "octree nodes", Need: uint64(len(tree.Nodes)), Limit: uint64(r.octree.Capacity())}
	}
	if err := r.frames.Drain(); err != nil {
		return err
	}
	if err := r.octree.Upload(tree.Nodes); err != nil {
		return err
	}
	r.depth = tree.Depth
	r.logger.Infof("uploaded octree: %d nodes (%d bytes), depth %d", len(tree.Nodes), len(tree.Nodes)*octree.NodeSize, tree.Depth)
	return nil
}

// UploadPalette replaces the palette image.
func (r *Renderer) UploadPalette(colors [PaletteSize][4]uint8) error {
	if r.palette == nil {
		return errors.New("gpu: renderer built without a palette")
	}
	if err := r.frames.Drain(); err != nil {
		return err
	}
	return r.palette.Upload(colors)
}

// RenderFrame draws one frame from the given camera. camPos.w is replaced
// with the octree depth the kernel must traverse.
func (r *Renderer) RenderFrame(camPos mgl32.Vec4, camRot mgl32.Mat4) error {
	camPos[3] = float32(r.depth)
	block := EncodeCameraUniform(camPos, camRot)
	_, err := r.frames.Frame(func(image uint32) error {
		return r.alloc.Write(r.cameras[image], 0, block)
	})
	return err
}

func (r *Renderer) Depth() uint32 { return r.depth }

func (r *Renderer) Stats() FrameStats {
	if r.frames == nil {
		return FrameStats{}
	}
	return r.frames.Stats()
}

// Close waits for the device and releases everything: sync objects first,
// then command buffers, descriptors, the pipeline and finally memory.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	err := r.device.WaitIdle()
	if r.frames != nil {
		r.frames.Destroy()
	}
	if len(r.commands) > 0 {
		r.device.FreeCommandBuffers(r.commands)
		r.commands = nil
	}
	if r.binder != nil {
		r.binder.Destroy()
	}
	if r.pipeline != 0 || r.pipelineLayout != 0 {
		r.device.DestroyPipeline(r.pipeline, r.pipelineLayout)
	}
	if r.palette != nil {
		r.palette.Destroy()
	}
	r.alloc.ReleaseAll()
	return err
}
