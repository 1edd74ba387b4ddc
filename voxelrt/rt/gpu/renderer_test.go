package gpu_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/voxcast"
	"github.com/gekko3d/voxcast/voxelrt/rt/gpu"
	"github.com/gekko3d/voxcast/voxelrt/rt/gpu/gputest"
	"github.com/gekko3d/voxcast/voxelrt/rt/octree"
)

var kernel = []uint32{0x07230203, 0x00010000, 0, 1, 0}

func newRenderer(t *testing.T, dev *gputest.Device, opts gpu.Options) *gpu.Renderer {
	t.Helper()
	if opts.FramesInFlight == 0 {
		opts.FramesInFlight = 2
	}
	if opts.MaxNodes == 0 {
		opts.MaxNodes = 64
	}
	if opts.FenceTimeout == 0 {
		opts.FenceTimeout = forever
	}
	r, err := gpu.NewRenderer(dev, kernel, opts, voxcast.NewNopLogger())
	require.NoError(t, err)
	return r
}

func singlePointTree(t *testing.T) *octree.Tree {
	t.Helper()
	b := octree.NewBuilder(3)
	require.NoError(t, b.Insert(octree.Point{X: 1, Y: 1, Z: 1, R: 10, G: 20, B: 30}))
	return b.Tree()
}

// octreeBuffer finds the device-local buffer bound at the octree binding.
func octreeBuffer(t *testing.T, dev *gputest.Device) gpu.Buffer {
	t.Helper()
	for _, w := range dev.Writes {
		if w.Binding == gpu.BindingOctree {
			return w.Buffer
		}
	}
	t.Fatalf("no octree descriptor write")
	return 0
}

func TestRendererUploadOctree(t *testing.T) {
	dev := gputest.NewDevice(3, 32, 32)
	r := newRenderer(t, dev, gpu.Options{})
	assert.Equal(t, uint32(2), r.Depth())

	buf := octreeBuffer(t, dev)
	assert.Equal(t, uint32(octree.KindEmpty), binary.LittleEndian.Uint32(dev.BufferContents(buf)), "starts as an empty root")

	tree := singlePointTree(t)
	require.NoError(t, r.UploadOctree(tree))
	assert.Equal(t, uint32(3), r.Depth())

	want := tree.Bytes()
	assert.Equal(t, want, dev.BufferContents(buf)[:len(want)])
	require.NoError(t, r.Close())
	assert.Empty(t, dev.Violations)
}

func TestRendererUploadOctreeCapacity(t *testing.T) {
	dev := gputest.NewDevice(2, 8, 8)
	r := newRenderer(t, dev, gpu.Options{MaxNodes: 16})

	err := r.UploadOctree(singlePointTree(t))
	var ce *gpu.CapacityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, uint64(17), ce.Need)
	assert.Equal(t, uint64(16), ce.Limit)
	assert.Equal(t, uint32(2), r.Depth(), "a rejected tree leaves the old one bound")
	require.NoError(t, r.Close())
}

func TestRendererUploadDrainsFramesInFlight(t *testing.T) {
	dev := gputest.NewDevice(3, 8, 8)
	dev.Latency = 4
	r := newRenderer(t, dev, gpu.Options{})

	require.NoError(t, r.RenderFrame(mgl32.Vec4{}, mgl32.Ident4()))
	require.NoError(t, r.RenderFrame(mgl32.Vec4{}, mgl32.Ident4()))
	mark := len(dev.Events)
	require.NoError(t, r.UploadOctree(singlePointTree(t)))

	copySubmit := dev.Find(mark, "Submit")
	require.GreaterOrEqual(t, copySubmit, 0)
	waits := 0
	for i := mark; i < copySubmit; i++ {
		if dev.Events[i].Op == "WaitForFence" {
			waits++
		}
	}
	assert.Equal(t, 2, waits, "every frame slot is waited on before the copy")
	// Initial upload, two frames, and the new upload.
	assert.Equal(t, 4, dev.Completed)
	require.NoError(t, r.Close())
	assert.Empty(t, dev.Violations)
}

func TestRendererRenderFrameWritesCamera(t *testing.T) {
	dev := gputest.NewDevice(2, 8, 8)
	r := newRenderer(t, dev, gpu.Options{})
	require.NoError(t, r.UploadOctree(singlePointTree(t)))

	mark := len(dev.Events)
	rot := mgl32.HomogRotate3DY(0.5)
	require.NoError(t, r.RenderFrame(mgl32.Vec4{1, 2, 3, 99}, rot))

	write := dev.Find(mark, "WriteMemory")
	require.GreaterOrEqual(t, write, 0)
	assert.Equal(t, uint64(gpu.CameraUniformSize), dev.Events[write].Size)
	assert.Less(t, write, dev.Find(mark, "Submit"))

	var camBuf gpu.Buffer
	for _, w := range dev.Writes {
		if w.Binding == gpu.BindingCamera {
			camBuf = w.Buffer
			break
		}
	}
	block := dev.BufferContents(camBuf)
	assert.Equal(t, gpu.EncodeCameraUniform(mgl32.Vec4{1, 2, 3, 3}, rot), block)
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(block[12:])), "camPos.w carries the depth")

	assert.Equal(t, uint64(1), r.Stats().Frames)
	require.NoError(t, r.Close())
}

func TestRendererNoRaceOnRepeatedImage(t *testing.T) {
	dev := gputest.NewDevice(3, 8, 8)
	dev.Latency = 10
	dev.AcquireFunc = func(int) (uint32, error) { return 1, nil }
	r := newRenderer(t, dev, gpu.Options{FramesInFlight: 3})

	require.NoError(t, r.RenderFrame(mgl32.Vec4{}, mgl32.Ident4()))
	mark := len(dev.Events)
	require.NoError(t, r.RenderFrame(mgl32.Vec4{}, mgl32.Ident4()))

	stall, write := -1, dev.Find(mark, "WriteMemory")
	for i := mark; i < len(dev.Events); i++ {
		if dev.Events[i].Op == "WaitForFence" && dev.Events[i].Stall {
			stall = i
			break
		}
	}
	require.GreaterOrEqual(t, stall, 0)
	require.Greater(t, write, stall)
	assert.Equal(t, uint64(1), r.Stats().ImageStalls)
	require.NoError(t, r.Close())
	assert.Empty(t, dev.Violations)
}

func TestRendererPalette(t *testing.T) {
	dev := gputest.NewDevice(2, 8, 8)
	r := newRenderer(t, dev, gpu.Options{Palette: true})

	var colors [gpu.PaletteSize][4]uint8
	colors[0] = [4]uint8{1, 2, 3, 255}
	colors[255] = [4]uint8{9, 9, 9, 9}
	mark := len(dev.Events)
	require.NoError(t, r.UploadPalette(colors))
	require.GreaterOrEqual(t, dev.Find(mark, "QueueWaitIdle"), 0)

	var img gpu.Image
	for _, e := range dev.Events {
		if e.Op == "CreateImage" {
			img = gpu.Image(e.Handle)
		}
	}
	data := dev.ImageContents(img)
	require.Len(t, data, gpu.PaletteSize*4)
	assert.Equal(t, []byte{1, 2, 3, 255}, data[:4])
	assert.Equal(t, []byte{9, 9, 9, 9}, data[1020:])

	require.NoError(t, r.Close())
	assert.Equal(t, 0, dev.Live())

	plain := newRenderer(t, gputest.NewDevice(2, 8, 8), gpu.Options{})
	require.Error(t, plain.UploadPalette(colors))
	require.NoError(t, plain.Close())
}

func TestRendererCloseOrder(t *testing.T) {
	dev := gputest.NewDevice(2, 8, 8)
	r := newRenderer(t, dev, gpu.Options{})
	require.NoError(t, r.RenderFrame(mgl32.Vec4{}, mgl32.Ident4()))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close(), "closing twice is a no-op")

	idle := dev.Find(0, "WaitIdle")
	lastSync := -1
	firstFree := -1
	for i, e := range dev.Events {
		switch e.Op {
		case "DestroyFence", "DestroySemaphore":
			lastSync = i
		case "DestroyBuffer", "FreeMemory":
			if firstFree < 0 {
				firstFree = i
			}
		}
	}
	require.GreaterOrEqual(t, idle, 0)
	assert.Less(t, idle, lastSync)
	assert.Less(t, lastSync, firstFree, "sync objects go before buffers and memory")
	assert.Equal(t, 0, dev.Live())
	assert.Empty(t, dev.Violations)
}

// failBuffers makes CreateBuffer fail for usages matching fail and behave
// normally otherwise.
func failBuffers(dev *gputest.Device, fail func(gpu.BufferUsage) bool) {
	var hook func(uint64, gpu.BufferUsage) (gpu.Buffer, error)
	hook = func(size uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
		if fail(usage) {
			return 0, errors.New("out of device memory")
		}
		dev.CreateBufferFunc = nil
		defer func() { dev.CreateBufferFunc = hook }()
		return dev.CreateBuffer(size, usage)
	}
	dev.CreateBufferFunc = hook
}

func TestNewRendererCleansUpOnFailure(t *testing.T) {
	errBoom := errors.New("boom")
	tests := []struct {
		name    string
		palette bool
		kernel  []uint32
		setup   func(dev *gputest.Device)
		op      string
	}{
		{
			name:  "camera buffer",
			setup: func(dev *gputest.Device) { failBuffers(dev, func(u gpu.BufferUsage) bool { return u&gpu.BufferUsageUniform != 0 }) },
			op:    "create buffer",
		},
		{
			name: "memory",
			setup: func(dev *gputest.Device) {
				dev.AllocateMemoryFunc = func(uint64, uint32) (gpu.Memory, error) { return 0, errBoom }
			},
			op: "allocate memory",
		},
		{
			name:  "octree buffer",
			setup: func(dev *gputest.Device) { failBuffers(dev, func(u gpu.BufferUsage) bool { return u&gpu.BufferUsageStorage != 0 }) },
			op:    "create buffer",
		},
		{
			name:    "palette image",
			palette: true,
			setup:   func(dev *gputest.Device) { dev.Fail = map[string]error{"CreateImage": errBoom} },
			op:      "create image",
		},
		{
			name:  "descriptor layout",
			setup: func(dev *gputest.Device) { dev.Fail = map[string]error{"CreateDescriptorSetLayout": errBoom} },
			op:    "create descriptor set layout",
		},
		{
			name:  "descriptor pool",
			setup: func(dev *gputest.Device) { dev.Fail = map[string]error{"CreateDescriptorPool": errBoom} },
			op:    "create descriptor pool",
		},
		{
			name:  "descriptor sets",
			setup: func(dev *gputest.Device) { dev.Fail = map[string]error{"AllocateDescriptorSets": errBoom} },
			op:    "allocate descriptor sets",
		},
		{
			name:   "pipeline",
			kernel: []uint32{},
			setup:  func(*gputest.Device) {},
			op:     "create compute pipeline",
		},
		{
			name:  "command buffers",
			setup: func(dev *gputest.Device) { dev.Fail = map[string]error{"AllocateCommandBuffers": errBoom} },
			op:    "allocate command buffer",
		},
		{
			name:  "semaphores",
			setup: func(dev *gputest.Device) { dev.Fail = map[string]error{"CreateSemaphore": errBoom} },
			op:    "create semaphore",
		},
		{
			name:  "fences",
			setup: func(dev *gputest.Device) { dev.Fail = map[string]error{"CreateFence": errBoom} },
			op:    "create fence",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gputest.NewDevice(2, 8, 8)
			tt.setup(dev)
			k := kernel
			if tt.kernel != nil {
				k = tt.kernel
			}
			r, err := gpu.NewRenderer(dev, k, gpu.Options{FramesInFlight: 2, MaxNodes: 8, Palette: tt.palette, FenceTimeout: forever}, nil)
			assert.Nil(t, r)
			var re *gpu.ResourceError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.op, re.Op)
			assert.Equal(t, 0, dev.Live(), "partially built resources are released")
			assert.Empty(t, dev.Violations)
		})
	}
}

func TestEncodeCameraUniform(t *testing.T) {
	rot := mgl32.Mat4{}
	for i := range rot {
		rot[i] = float32(i)
	}
	block := gpu.EncodeCameraUniform(mgl32.Vec4{1, 2, 3, 4}, rot)
	require.Len(t, block, gpu.CameraUniformSize)
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(block[off:])) }
	assert.Equal(t, float32(1), f(0))
	assert.Equal(t, float32(4), f(12))
	assert.Equal(t, float32(0), f(16))
	assert.Equal(t, float32(15), f(76), "column-major, last element last")
}
