package paya

import vk "github.com/vulkan-go/vulkan"

// BinarySemaphore wraps a plain (non-timeline) vk.Semaphore. It owns a
// device reference so it can clean itself up without the caller having to
// remember which device created it, matching the teacher's per-object
// Destroy(device) idiom (pools.go's CorePool.Destroy).
type BinarySemaphore struct {
	device vk.Device
	handle vk.Semaphore
}

// NewBinarySemaphore creates a vk.Semaphore with no special create flags.
func NewBinarySemaphore(device vk.Device) (*BinarySemaphore, error) {
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "CreateSemaphore (binary) failed")
	}
	return &BinarySemaphore{device: device, handle: sem}, nil
}

func (s *BinarySemaphore) Handle() vk.Semaphore { return s.handle }

func (s *BinarySemaphore) Destroy() {
	if s.handle == vk.NullSemaphore {
		return
	}
	vk.DestroySemaphore(s.device, s.handle, nil)
	s.handle = vk.NullSemaphore
}

// TimelineSemaphore wraps a vk.Semaphore created with
// VK_SEMAPHORE_TYPE_TIMELINE, used by the swapchain coordinator and the
// frame engine to order deferred reclamation against GPU progress.
type TimelineSemaphore struct {
	device vk.Device
	handle vk.Semaphore
}

// NewTimelineSemaphore creates a timeline semaphore starting at
// initialValue.
func NewTimelineSemaphore(device vk.Device, initialValue uint64) (*TimelineSemaphore, error) {
	typeInfo := vk.SemaphoreTypeCreateInfo{
		SType:         vk.StructureTypeSemaphoreTypeCreateInfo,
		SemaphoreType: vk.SemaphoreTypeTimeline,
		InitialValue:  initialValue,
	}
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
		PNext: unsafePointerOf(&typeInfo),
	}, nil, &sem)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "CreateSemaphore (timeline) failed")
	}
	return &TimelineSemaphore{device: device, handle: sem}, nil
}

func (s *TimelineSemaphore) Handle() vk.Semaphore { return s.handle }

// CounterValue performs a non-blocking query of the GPU-observed value of
// this semaphore. collect_garbage relies on this never waiting.
func (s *TimelineSemaphore) CounterValue() (uint64, error) {
	var value uint64
	ret := vk.GetSemaphoreCounterValue(s.device, s.handle, &value)
	if isError(ret) {
		return 0, newVkError(KindUnsupported, ret, "GetSemaphoreCounterValue failed")
	}
	return value, nil
}

func (s *TimelineSemaphore) Destroy() {
	if s.handle == vk.NullSemaphore {
		return
	}
	vk.DestroySemaphore(s.device, s.handle, nil)
	s.handle = vk.NullSemaphore
}
