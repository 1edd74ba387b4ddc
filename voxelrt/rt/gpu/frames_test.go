package gpu_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/voxcast"
	"github.com/gekko3d/voxcast/voxelrt/rt/gpu"
	"github.com/gekko3d/voxcast/voxelrt/rt/gpu/gputest"
)

const forever = time.Duration(math.MaxInt64)

// newSynchronizer builds a synchronizer with trivial recorded command buffers.
func newSynchronizer(t *testing.T, dev *gputest.Device, framesInFlight int) *gpu.FrameSynchronizer {
	t.Helper()
	images := len(dev.Swap.Images)
	cbs, err := dev.AllocateCommandBuffers(images)
	require.NoError(t, err)
	for _, cb := range cbs {
		require.NoError(t, dev.BeginCommandBuffer(cb, gpu.UsageSimultaneous))
		dev.CmdDispatch(cb, 1, 1, 1)
		require.NoError(t, dev.EndCommandBuffer(cb))
	}
	s, err := gpu.NewFrameSynchronizer(dev, framesInFlight, images, forever, voxcast.NewNopLogger())
	require.NoError(t, err)
	s.SetCommands(cbs)
	return s
}

func TestFramePacing(t *testing.T) {
	for _, n := range []int{1, 2, 3} {
		dev := gputest.NewDevice(3, 16, 16)
		s := newSynchronizer(t, dev, n)

		const frames = 10
		for m := 0; m < frames; m++ {
			require.Equal(t, m%n, s.Slot(), "slot before frame %d", m)
			_, err := s.Frame(func(uint32) error { return nil })
			require.NoError(t, err)
			assert.Equal(t, gpu.SlotPresented, s.SlotState(m%n))
			if m%3 == 0 {
				dev.Tick(1)
			}
		}
		assert.Equal(t, frames%n, s.Slot())
		assert.Equal(t, uint64(frames), s.Stats().Frames)

		// Submissions used slot fences in strict rotation.
		var fences []uint64
		for _, e := range dev.Events {
			if e.Op == "Submit" {
				fences = append(fences, e.Handle)
			}
		}
		require.Len(t, fences, frames)
		for m, f := range fences {
			assert.Equal(t, uint64(s.Fence(m%n)), f)
		}
		assert.Empty(t, dev.Violations, "frames in flight %d", n)

		require.NoError(t, s.Drain())
		for f := 0; f < n; f++ {
			assert.Equal(t, gpu.SlotIdle, s.SlotState(f))
		}
	}
}

func TestFrameWaitsBeforeReusingSlot(t *testing.T) {
	dev := gputest.NewDevice(3, 16, 16)
	dev.Latency = 5
	s := newSynchronizer(t, dev, 2)

	write := func(uint32) error { return nil }
	_, err := s.Frame(write)
	require.NoError(t, err)
	_, err = s.Frame(write)
	require.NoError(t, err)

	mark := len(dev.Events)
	_, err = s.Frame(write)
	require.NoError(t, err)

	wait := dev.Find(mark, "WaitForFence")
	require.GreaterOrEqual(t, wait, 0)
	assert.True(t, dev.Events[wait].Stall, "slot 0 is still busy on the GPU")
	assert.Equal(t, uint64(s.Fence(0)), dev.Events[wait].Handle)
	assert.Less(t, wait, dev.Find(mark, "ResetFence"))
	assert.Empty(t, dev.Violations)
}

func TestFrameStallsOnRepeatedImage(t *testing.T) {
	dev := gputest.NewDevice(3, 16, 16)
	dev.Latency = 10
	dev.AcquireFunc = func(int) (uint32, error) { return 0, nil }
	s := newSynchronizer(t, dev, 2)

	type write struct {
		event     int
		completed int
	}
	var writes []write
	record := func(image uint32) error {
		assert.Equal(t, uint32(0), image)
		writes = append(writes, write{event: len(dev.Events), completed: dev.Completed})
		return nil
	}

	_, err := s.Frame(record)
	require.NoError(t, err)
	mark := len(dev.Events)
	_, err = s.Frame(record)
	require.NoError(t, err)

	require.Len(t, writes, 2)
	stall := -1
	for i := mark; i < len(dev.Events); i++ {
		e := dev.Events[i]
		if e.Op == "WaitForFence" && e.Stall && e.Handle == uint64(s.Fence(0)) {
			stall = i
			break
		}
	}
	require.GreaterOrEqual(t, stall, 0, "second frame must wait on slot 0's fence")
	assert.Less(t, stall, writes[1].event, "the host stalls before writing the uniform")
	assert.Equal(t, 0, writes[0].completed)
	assert.Equal(t, 1, writes[1].completed, "the first submission finished before the second write")
	assert.Equal(t, uint64(1), s.Stats().ImageStalls)
	assert.Equal(t, 1, s.ImageSlot(0))
	assert.Empty(t, dev.Violations)
}

func TestFrameNoStallWhenImageFenceSignaled(t *testing.T) {
	dev := gputest.NewDevice(3, 16, 16)
	dev.AcquireFunc = func(int) (uint32, error) { return 0, nil }
	s := newSynchronizer(t, dev, 2)

	_, err := s.Frame(func(uint32) error { return nil })
	require.NoError(t, err)
	dev.Tick(1)
	_, err = s.Frame(func(uint32) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, uint64(0), s.Stats().ImageStalls)
}

func TestFrameWriteErrorDoesNotClaimImage(t *testing.T) {
	dev := gputest.NewDevice(2, 16, 16)
	s := newSynchronizer(t, dev, 2)

	errWrite := errors.New("map failed")
	_, err := s.Frame(func(uint32) error { return errWrite })
	require.ErrorIs(t, err, errWrite)
	for image := uint32(0); image < 2; image++ {
		assert.Equal(t, -1, s.ImageSlot(image), "image %d", image)
	}
	assert.Equal(t, 0, s.Slot(), "slot does not advance")
	assert.Equal(t, 0, dev.Count("Submit"))
	assert.Equal(t, uint64(0), s.Stats().Frames)
}

func TestFrameTimeoutIsSyncError(t *testing.T) {
	dev := gputest.NewDevice(2, 16, 16)
	s := newSynchronizer(t, dev, 1)

	_, err := s.Frame(func(uint32) error { return nil })
	require.NoError(t, err)

	dev.Hung = true
	_, err = s.Frame(func(uint32) error { return nil })
	var se *gpu.SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "wait fence", se.Op)
	require.ErrorIs(t, err, gpu.ErrFenceTimeout)
}

func TestFrameRejectsBadImageIndex(t *testing.T) {
	dev := gputest.NewDevice(2, 16, 16)
	dev.AcquireFunc = func(int) (uint32, error) { return 5, nil }
	s := newSynchronizer(t, dev, 2)

	_, err := s.Frame(func(uint32) error { return nil })
	var se *gpu.SyncError
	require.ErrorAs(t, err, &se)
}

func TestFramePresentOutOfDate(t *testing.T) {
	dev := gputest.NewDevice(2, 16, 16)
	dev.PresentFunc = func(uint32) error { return gpu.ErrSwapchainOutOfDate }
	s := newSynchronizer(t, dev, 2)

	_, err := s.Frame(func(uint32) error { return nil })
	require.ErrorIs(t, err, gpu.ErrSwapchainOutOfDate)
}

func TestSynchronizerDestroy(t *testing.T) {
	dev := gputest.NewDevice(2, 16, 16)
	s := newSynchronizer(t, dev, 3)
	_, err := s.Frame(func(uint32) error { return nil })
	require.NoError(t, err)

	require.NoError(t, dev.WaitIdle())
	s.Destroy()
	assert.Equal(t, 3, dev.Count("DestroyFence"))
	assert.Equal(t, 6, dev.Count("DestroySemaphore"))
	assert.Empty(t, dev.Violations)

	_, err = gpu.NewFrameSynchronizer(dev, 0, 2, forever, nil)
	require.Error(t, err)
}
