package gpu

import (
	"github.com/gekko3d/voxcast/voxelrt/rt/octree"
)

// OctreeBuffer is the device-local node array the kernel traverses plus the
// host-visible staging buffer it is filled from. Both have a fixed capacity.
type OctreeBuffer struct {
	alloc    *Allocator
	recorder *CommandRecorder
	staging  *Allocation
	device   *Allocation
	maxNodes int
	nodes    int
}

func NewOctreeBuffer(alloc *Allocator, recorder *CommandRecorder, maxNodes int) (*OctreeBuffer, error) {
	size := uint64(maxNodes) * octree.NodeSize
	staging, err := alloc.CreateBuffer(BufferSpec{
		Name:       "octree staging",
		Size:       size,
		Usage:      BufferUsageTransferSrc,
		Properties: MemoryHostWritable,
	})
	if err != nil {
		return nil, err
	}
	device, err := alloc.CreateBuffer(BufferSpec{
		Name:       "octree",
		Size:       size,
		Usage:      BufferUsageStorage | BufferUsageTransferDst,
		Properties: MemoryDeviceLocal,
	})
	if err != nil {
		alloc.Release(staging)
		return nil, err
	}
	return &OctreeBuffer{
		alloc:    alloc,
		recorder: recorder,
		staging:  staging,
		device:   device,
		maxNodes: maxNodes,
	}, nil
}

// Upload replaces the whole device array with nodes and returns once the
// copy has completed on the GPU.
func (o *OctreeBuffer) Upload(nodes []octree.Node) error {
	if len(nodes) > o.maxNodes {
		return &CapacityError{Resource: "octree nodes", Need: uint64(len(nodes)), Limit: uint64(o.maxNodes)}
	}
	data := octree.EncodeBytes(nodes)
	if err := o.alloc.Write(o.staging, 0, data); err != nil {
		return err
	}
	if err := o.recorder.CopyBuffer(o.staging.Buffer, o.device.Buffer, uint64(len(data))); err != nil {
		return err
	}
	o.nodes = len(nodes)
	return nil
}

// Allocation is the device-local buffer bound to the kernel.
func (o *OctreeBuffer) Allocation() *Allocation { return o.device }

func (o *OctreeBuffer) Nodes() int { return o.nodes }

func (o *OctreeBuffer) Capacity() int { return o.maxNodes }
