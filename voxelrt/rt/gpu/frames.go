package gpu

import (
	"fmt"
	"time"

	"github.com/gekko3d/voxcast"
)

type SlotState int

const (
	SlotIdle SlotState = iota
	SlotSubmitted
	SlotPresented
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotSubmitted:
		return "submitted"
	case SlotPresented:
		return "presented"
	}
	return fmt.Sprintf("SlotState(%d)", int(s))
}

type FrameStats struct {
	Frames uint64
	// ImageStalls counts frames that waited on another slot still using their image.
	ImageStalls uint64
}

const noSlot = -1

// FrameSynchronizer paces frames across a fixed number of slots. Each slot
// owns a fence and two semaphores; imagesInFlight remembers which slot last
// submitted work against each swapchain image.
type FrameSynchronizer struct {
	device  Device
	logger  voxcast.Logger
	timeout time.Duration

	imageAvailable []Semaphore
	renderFinished []Semaphore
	inFlight       []Fence
	states         []SlotState
	imagesInFlight []int
	commands       []CommandBuffer

	current int
	stats   FrameStats
}

func NewFrameSynchronizer(device Device, framesInFlight, images int, timeout time.Duration, logger voxcast.Logger) (*FrameSynchronizer, error) {
	if framesInFlight < 1 {
		return nil, fmt.Errorf("gpu: frames in flight %d must be at least 1", framesInFlight)
	}
	s := &FrameSynchronizer{
		device:         device,
		logger:         voxcast.OrNop(logger),
		timeout:        timeout,
		states:         make([]SlotState, framesInFlight),
		imagesInFlight: make([]int, images),
	}
	for i := range s.imagesInFlight {
		s.imagesInFlight[i] = noSlot
	}

	for f := 0; f < framesInFlight; f++ {
		avail, err := device.CreateSemaphore()
		if err != nil {
			s.Destroy()
			return nil, &ResourceError{Op: "create semaphore", Resource: fmt.Sprintf("image available %d", f), Err: err}
		}
		s.imageAvailable = append(s.imageAvailable, avail)

		done, err := device.CreateSemaphore()
		if err != nil {
			s.Destroy()
			return nil, &ResourceError{Op: "create semaphore", Resource: fmt.Sprintf("render finished %d", f), Err: err}
		}
		s.renderFinished = append(s.renderFinished, done)

		// Signaled so the first wait on each slot returns at once.
		fence, err := device.CreateFence(true)
		if err != nil {
			s.Destroy()
			return nil, &ResourceError{Op: "create fence", Resource: fmt.Sprintf("in flight %d", f), Err: err}
		}
		s.inFlight = append(s.inFlight, fence)
	}
	return s, nil
}

// SetCommands installs the per-image command buffers submitted by Frame.
func (s *FrameSynchronizer) SetCommands(cbs []CommandBuffer) { s.commands = cbs }

// Frame renders one frame. write is called with the acquired image index
// once no submission still in flight can be reading that image's resources.
//
// An error leaves the slot's image-available semaphore signaled with nothing
// waiting on it, so the synchronizer must not render again after one.
func (s *FrameSynchronizer) Frame(write func(image uint32) error) (uint32, error) {
	f := s.current

	if err := s.wait(f); err != nil {
		return 0, err
	}
	s.states[f] = SlotIdle

	image, err := s.device.AcquireNextImage(s.timeout, s.imageAvailable[f])
	if err != nil {
		return 0, &SyncError{Op: "acquire image", Slot: f, Err: err}
	}
	if int(image) >= len(s.imagesInFlight) || int(image) >= len(s.commands) {
		return 0, &SyncError{Op: "acquire image", Slot: f, Err: fmt.Errorf("image index %d out of range", image)}
	}

	if prev := s.imagesInFlight[image]; prev != noSlot && prev != f {
		signaled, err := s.device.FenceSignaled(s.inFlight[prev])
		if err != nil {
			return 0, &SyncError{Op: "query fence", Slot: prev, Err: err}
		}
		if !signaled {
			s.stats.ImageStalls++
			s.logger.Debugf("frame slot %d waits on slot %d for image %d", f, prev, image)
			if err := s.wait(prev); err != nil {
				return 0, err
			}
		}
	}
	if err := write(image); err != nil {
		return 0, err
	}
	s.imagesInFlight[image] = f

	if err := s.device.ResetFence(s.inFlight[f]); err != nil {
		return 0, &SyncError{Op: "reset fence", Slot: f, Err: err}
	}
	err = s.device.Submit(SubmitInfo{
		CommandBuffer: s.commands[image],
		Wait:          s.imageAvailable[f],
		WaitStage:     StageComputeShader,
		Signal:        s.renderFinished[f],
		Fence:         s.inFlight[f],
	})
	if err != nil {
		return 0, &SyncError{Op: "submit", Slot: f, Err: err}
	}
	s.states[f] = SlotSubmitted

	if err := s.device.Present(image, s.renderFinished[f]); err != nil {
		return 0, &SyncError{Op: "present", Slot: f, Err: err}
	}
	s.states[f] = SlotPresented

	s.current = (f + 1) % len(s.inFlight)
	s.stats.Frames++
	return image, nil
}

func (s *FrameSynchronizer) wait(slot int) error {
	if err := s.device.WaitForFence(s.inFlight[slot], s.timeout); err != nil {
		return &SyncError{Op: "wait fence", Slot: slot, Err: err}
	}
	return nil
}

// Drain blocks until every slot's last submission has finished.
func (s *FrameSynchronizer) Drain() error {
	for f := range s.inFlight {
		if err := s.wait(f); err != nil {
			return err
		}
		s.states[f] = SlotIdle
	}
	return nil
}

// Destroy releases fences and semaphores. The device must be idle.
func (s *FrameSynchronizer) Destroy() {
	for _, f := range s.inFlight {
		s.device.DestroyFence(f)
	}
	for _, sem := range s.imageAvailable {
		s.device.DestroySemaphore(sem)
	}
	for _, sem := range s.renderFinished {
		s.device.DestroySemaphore(sem)
	}
	s.inFlight, s.imageAvailable, s.renderFinished = nil, nil, nil
}

// Slot is the frame slot the next Frame call uses.
func (s *FrameSynchronizer) Slot() int { return s.current }

func (s *FrameSynchronizer) SlotState(f int) SlotState { return s.states[f] }

func (s *FrameSynchronizer) Fence(f int) Fence { return s.inFlight[f] }

// ImageSlot returns the slot that last submitted against an image, or -1.
func (s *FrameSynchronizer) ImageSlot(image uint32) int { return s.imagesInFlight[image] }

func (s *FrameSynchronizer) FramesInFlight() int { return len(s.states) }

func (s *FrameSynchronizer) Stats() FrameStats { return s.stats }
