package paya

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Extent3D is a width/height/depth triple, identity-convertible to
// vk.Extent3D.
type Extent3D struct {
	Width, Height, Depth uint32
}

func (e Extent3D) Vk() vk.Extent3D {
	return vk.Extent3D{Width: e.Width, Height: e.Height, Depth: e.Depth}
}

// Extent2D is a width/height pair, identity-convertible to vk.Extent2D.
type Extent2D struct {
	Width, Height uint32
}

func (e Extent2D) Vk() vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

func (e Extent2D) To3D() Extent3D {
	return Extent3D{Width: e.Width, Height: e.Height, Depth: 1}
}

// DeviceType classifies the physical device kind reported to a selector.
type DeviceType int

const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegrated
	DeviceTypeDiscrete
)

// DeviceProperties is the subset of vk.PhysicalDeviceProperties handed to
// the caller-supplied device selector in New.
type DeviceProperties struct {
	DeviceType DeviceType
	DeviceName string
	Limits     vk.PhysicalDeviceLimits
}

func deviceTypeFromVk(t vk.PhysicalDeviceType) DeviceType {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return DeviceTypeIntegrated
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return DeviceTypeDiscrete
	default:
		return DeviceTypeOther
	}
}

// ImageInfo describes an image to be created by a ResourcePool.
type ImageInfo struct {
	Dimensions uint32 // 1, 2, or 3
	Extent     Extent3D
	Format     vk.Format
	Usage      ImageUsageFlags
}

// Image is the resource-pool-owned record for a single image slot.
type Image struct {
	Handle         vk.Image
	View           vk.ImageView // vk.NullImageView if no view was needed
	Info           ImageInfo
	Allocation     Allocation
	HasAllocation  bool
	IsSwapchainImg bool
}

// BufferInfo describes a buffer to be created by a ResourcePool.
type BufferInfo struct {
	Name   string
	Size   vk.DeviceSize
	Memory MemoryFlags
	Usage  BufferUsageFlags
}

// Buffer is the resource-pool-owned record for a single buffer slot.
type Buffer struct {
	Info          BufferInfo
	Handle        vk.Buffer
	Allocation    Allocation
	DeviceAddress vk.DeviceAddress
}

// SwapchainCreateInfo configures Swapchain creation and resize.
type SwapchainCreateInfo struct {
	Surface           vk.Surface
	PreferredExtent   Extent2D
	ImageUsage        ImageUsageFlags
	MaxFramesInFlight uint32

	// PreferredPresentMode, when nonzero, is used if the surface supports
	// it and FIFO otherwise. When zero, Mailbox is used if supported and FIFO
	// otherwise. Typically populated from config.EngineConfig.PresentMode().
	PreferredPresentMode vk.PresentMode
}

// SubmitDescriptor bundles one queue submission's command lists and wait
// and signal semaphores, per spec §6.
type SubmitDescriptor struct {
	Commands                 []CommandList
	WaitSemaphores           []*BinarySemaphore
	SignalSemaphores         []*BinarySemaphore
	SignalTimelineSemaphores []TimelineSignal
}

// TimelineSignal pairs a TimelineSemaphore with the value it should be
// signaled to as part of a submit.
type TimelineSignal struct {
	Semaphore *TimelineSemaphore
	Value     uint64
}

// PresentDescriptor bundles one queue-present call's wait semaphores, per
// spec §6.
type PresentDescriptor struct {
	Swapchain      *Swapchain
	WaitSemaphores []*BinarySemaphore
}

// ComputePipelineInfo describes a compute pipeline build request.
type ComputePipelineInfo struct {
	ShaderCode        []uint32
	EntryPoint        string
	PushConstantBytes uint32
}

// RasterPipelineInfo describes a graphics pipeline build request,
// extending ComputePipelineInfo's shape with rasterization state.
type RasterPipelineInfo struct {
	VertexShaderCode     []uint32
	FragmentShaderCode   []uint32
	EntryPoint           string
	PushConstantBytes    uint32
	VertexAttributes     []vk.VertexInputAttributeDescription
	PolygonMode          vk.PolygonMode
	Topology             vk.PrimitiveTopology
	PrimitiveRestart     bool
	LineWidth            float32
	ColorAttachmentFmts  []vk.Format
	DepthAttachmentFmt   vk.Format
	HasDepthAttachment   bool
}

// MappedPtr views a persistently- or transiently-mapped memory region. It
// does not own the mapping: it has no release or unmap method, and it is
// valid only while the memory it points into stays mapped.
type MappedPtr struct {
	ptr  unsafe.Pointer
	size vk.DeviceSize
}

// Bytes views the mapped region as a byte slice. The slice is only valid
// for as long as the mapping is held.
func (m MappedPtr) Bytes() []byte {
	if m.ptr == nil || m.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(m.ptr), int(m.size))
}

// TypedMappedPtr is MappedPtr specialized to view the mapped region as a
// slice of T; T must be a fixed-size value type matching the GPU-side
// layout.
type TypedMappedPtr[T any] struct {
	region MappedPtr
}

// Slice views the mapped region as a slice of T.
func (t TypedMappedPtr[T]) Slice() []T {
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	if elemSize == 0 || t.region.ptr == nil {
		return nil
	}
	count := int(t.region.size) / elemSize
	return unsafe.Slice((*T)(t.region.ptr), count)
}
