package paya

import vk "github.com/vulkan-go/vulkan"

// MemoryLocation hints where an allocation should live, independent of the
// raw memory-property flags a caller might otherwise have to compute.
type MemoryLocation int

const (
	LocationGpuOnly MemoryLocation = iota
	LocationCpuToGpu
	LocationGpuToCpu
)

func (l MemoryLocation) vkFlags() vk.MemoryPropertyFlags {
	switch l {
	case LocationGpuOnly:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	case LocationCpuToGpu:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) |
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	case LocationGpuToCpu:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) |
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit)
	default:
		return 0
	}
}

// AllocationSchemeKind distinguishes a pool-managed allocation from one
// dedicated to a single buffer or image.
type AllocationSchemeKind int

const (
	SchemeManaged AllocationSchemeKind = iota
	SchemeDedicatedBuffer
	SchemeDedicatedImage
)

// AllocationScheme selects how Allocator.Allocate sizes and binds the
// underlying vk.DeviceMemory.
type AllocationScheme struct {
	Kind           AllocationSchemeKind
	DedicatedImage vk.Image
	DedicatedBuf   vk.Buffer
}

// Allocation is the only thing a caller receives back from Allocator: a
// device-memory handle and the byte offset within it. Nothing about the
// allocator's internal bookkeeping leaks past this boundary.
type Allocation struct {
	Memory        vk.DeviceMemory
	Offset        vk.DeviceSize
	size          vk.DeviceSize
	deviceAddress bool
}

// Allocator adapts vk.AllocateMemory/vk.BindBufferMemory/vk.BindImageMemory
// into the allocate/free shape spec §4.2 names. The Rust original delegates
// this concern to the external `gpu_allocator` crate; no equivalent
// sub-allocation library exists anywhere in the Go example pack, so this
// adapter allocates one vk.DeviceMemory object per call directly against
// the driver, the same way the teacher's own CreateBuffer helper
// (extensions.go) does. It exists purely so ResourcePool and callers never
// see more than {Memory, Offset}.
type Allocator struct {
	device     vk.Device
	memoryProp vk.PhysicalDeviceMemoryProperties
}

func NewAllocator(device vk.Device, memoryProp vk.PhysicalDeviceMemoryProperties) *Allocator {
	return &Allocator{device: device, memoryProp: memoryProp}
}

// AllocateRequest names what Allocate needs decided by its caller: whether
// the allocation backs a buffer (linear) or an optimal-tiled image, where
// it should live, which scheme to use, and the memory requirements queried
// from the driver for the specific resource.
type AllocateRequest struct {
	Name         string
	Linear       bool
	Location     MemoryLocation
	Scheme       AllocationScheme
	Requirements vk.MemoryRequirements
	// NeedsDeviceAddress requests the DEVICE_ADDRESS allocate flag, used by
	// ResourcePool.CreateBuffer for buffers consumed via buffer device
	// address.
	NeedsDeviceAddress bool
}

// Allocate finds a memory type satisfying both the resource's requirements
// and the requested location, then allocates and (if the request names a
// dedicated resource) binds it.
func (a *Allocator) Allocate(req AllocateRequest) (Allocation, error) {
	typeIndex, ok := a.findMemoryType(req.Requirements.MemoryTypeBits, req.Location.vkFlags())
	if !ok {
		// Fall back to the first memory type the resource accepts, with no
		// property requirement, mirroring the teacher's
		// FindRequiredMemoryTypeFallback degrade-to-default behavior.
		typeIndex, ok = a.findMemoryType(req.Requirements.MemoryTypeBits, 0)
		if !ok {
			return Allocation{}, newFaultError(KindOutOfDeviceMemory, "no suitable memory type for allocation %q", req.Name)
		}
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Requirements.Size,
		MemoryTypeIndex: typeIndex,
	}

	var flagsInfo vk.MemoryAllocateFlagsInfo
	if req.NeedsDeviceAddress {
		flagsInfo = vk.MemoryAllocateFlagsInfo{
			SType: vk.StructureTypeMemoryAllocateFlagsInfo,
			Flags: vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit),
		}
		allocInfo.PNext = unsafePointerOf(&flagsInfo)
	}

	var memory vk.DeviceMemory
	ret := vk.AllocateMemory(a.device, &allocInfo, nil, &memory)
	if isError(ret) {
		return Allocation{}, newVkError(KindOutOfDeviceMemory, ret, "AllocateMemory failed for "+req.Name)
	}

	alloc := Allocation{Memory: memory, Offset: 0, size: req.Requirements.Size, deviceAddress: req.NeedsDeviceAddress}

	switch req.Scheme.Kind {
	case SchemeDedicatedBuffer:
		if ret := vk.BindBufferMemory(a.device, req.Scheme.DedicatedBuf, memory, 0); isError(ret) {
			vk.FreeMemory(a.device, memory, nil)
			return Allocation{}, newVkError(KindOutOfDeviceMemory, ret, "BindBufferMemory failed for "+req.Name)
		}
	case SchemeDedicatedImage:
		if ret := vk.BindImageMemory(a.device, req.Scheme.DedicatedImage, memory, 0); isError(ret) {
			vk.FreeMemory(a.device, memory, nil)
			return Allocation{}, newVkError(KindOutOfDeviceMemory, ret, "BindImageMemory failed for "+req.Name)
		}
	case SchemeManaged:
		// No dedicated resource to bind yet; caller binds explicitly.
	}

	return alloc, nil
}

// Free releases the vk.DeviceMemory backing alloc. Swapchain-adopted
// images and other non-owning resources must never be passed here.
func (a *Allocator) Free(alloc Allocation) {
	if alloc.Memory == vk.NullDeviceMemory {
		return
	}
	vk.FreeMemory(a.device, alloc.Memory, nil)
}

// findMemoryType mirrors the teacher's FindRequiredMemoryType
// (extensions.go): scan the bits the resource will accept, return the
// first whose properties satisfy the wanted flags.
func (a *Allocator) findMemoryType(typeBits uint32, want vk.MemoryPropertyFlags) (uint32, bool) {
	a.memoryProp.Deref()
	for i := uint32(0); i < a.memoryProp.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		a.memoryProp.MemoryTypes[i].Deref()
		flags := a.memoryProp.MemoryTypes[i].PropertyFlags
		if want == 0 || flags&want == want {
			return i, true
		}
	}
	return 0, false
}
