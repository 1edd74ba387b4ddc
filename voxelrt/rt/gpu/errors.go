package gpu

import (
	"errors"
	"fmt"
)

var (
	ErrFenceTimeout       = errors.New("gpu: fence wait timed out")
	ErrSwapchainOutOfDate = errors.New("gpu: swapchain out of date")
)

// ResourceError reports a failed resource creation or host access. It is
// fatal: nothing retries.
type ResourceError struct {
	Op       string
	Resource string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("gpu: %s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// CapacityError reports data that does not fit a fixed-size resource.
type CapacityError struct {
	Resource string
	Need     uint64
	Limit    uint64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("gpu: %s needs %d, capacity is %d", e.Resource, e.Need, e.Limit)
}

// SyncError reports a failed wait, reset, acquire, submit or present.
type SyncError struct {
	Op   string
	Slot int
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("gpu: %s (frame slot %d): %v", e.Op, e.Slot, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
