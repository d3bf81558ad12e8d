package paya

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

const (
	// DefaultMaxBuffers and DefaultMaxImages size the bindless descriptor
	// set and address table when a caller doesn't override them (see
	// config.EngineConfig.MaxBindlessBuffers/MaxBindlessImages). They must
	// match shaderprep.BuildPreamble's image-array size for whatever
	// preamble the caller's shaders were built against.
	DefaultMaxBuffers = 1000
	DefaultMaxImages  = 1000

	bufferAddressesBinding uint32 = 0
	storageImageBinding    uint32 = 1
)

// ResourcePool owns every bindless image and buffer, the descriptor set
// that exposes them to shaders, and the address-table buffer that routes
// buffer device addresses through a single storage-buffer binding. It is
// the bindless registry named in spec §4.
type ResourcePool struct {
	device vk.Device

	maxBuffers uint32
	maxImages  uint32

	allocator      *Allocator
	descriptorPool vk.DescriptorPool

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorSet       vk.DescriptorSet

	addressBuffer    Buffer
	addressBufferPtr TypedMappedPtr[uint64]

	images  *Arena[Image]
	buffers *Arena[Buffer]
}

// NewResourcePool builds the bindless descriptor pool, layout and set
// described by spec §4.2 (one STORAGE_BUFFER slot for the address table,
// MAX_IMAGES STORAGE_IMAGE and COMBINED_IMAGE_SAMPLER slots, all
// PARTIALLY_BOUND|UPDATE_AFTER_BIND) and the persistently-mapped address
// table buffer backing binding 0.
func NewResourcePool(device vk.Device, memoryProp vk.PhysicalDeviceMemoryProperties, maxBuffers, maxImages uint32) (*ResourcePool, error) {
	if maxBuffers == 0 {
		maxBuffers = DefaultMaxBuffers
	}
	if maxImages == 0 {
		maxImages = DefaultMaxImages
	}

	allocator := NewAllocator(device, memoryProp)

	descriptorPool, err := createResourceDescriptorPool(device, maxImages)
	if err != nil {
		return nil, err
	}

	layout, err := createBindlessDescriptorSetLayout(device, vk.ShaderStageFlags(vk.ShaderStageAll), maxImages)
	if err != nil {
		vk.DestroyDescriptorPool(device, descriptorPool, nil)
		return nil, err
	}

	sets := make([]vk.DescriptorSet, 1)
	ret := vk.AllocateDescriptorSets(device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}, sets)
	if isError(ret) {
		vk.DestroyDescriptorSetLayout(device, layout, nil)
		vk.DestroyDescriptorPool(device, descriptorPool, nil)
		return nil, newVkError(KindUnsupported, ret, "AllocateDescriptorSets failed")
	}

	pool := &ResourcePool{
		device:              device,
		maxBuffers:          maxBuffers,
		maxImages:           maxImages,
		allocator:           allocator,
		descriptorPool:      descriptorPool,
		descriptorSetLayout: layout,
		descriptorSet:       sets[0],
		images:              NewArena[Image](),
		buffers:             NewArena[Buffer](),
	}

	if err := pool.createAddressBuffer(); err != nil {
		pool.destroyDescriptors()
		return nil, err
	}

	return pool, nil
}

func createResourceDescriptorPool(device vk.Device, maxImages uint32) (vk.DescriptorPool, error) {
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxImages},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: maxImages},
	}

	var descriptorPool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateUpdateAfterBindBit),
	}, nil, &descriptorPool)
	if isError(ret) {
		return vk.NullDescriptorPool, newVkError(KindUnsupported, ret, "CreateDescriptorPool failed")
	}
	return descriptorPool, nil
}

func createBindlessDescriptorSetLayout(device vk.Device, stages vk.ShaderStageFlags, maxImages uint32) (vk.DescriptorSetLayout, error) {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         bufferAddressesBinding,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      stages,
		},
		{
			Binding:         storageImageBinding,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			DescriptorCount: maxImages,
			StageFlags:      stages,
		},
	}

	bindingFlag := vk.DescriptorBindingFlags(vk.DescriptorBindingPartiallyBoundBit) |
		vk.DescriptorBindingFlags(vk.DescriptorBindingUpdateAfterBindBit)
	bindingFlags := []vk.DescriptorBindingFlags{bindingFlag, bindingFlag}

	flagsCreateInfo := vk.DescriptorSetLayoutBindingFlagsCreateInfo{
		SType:         vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
		BindingCount:  uint32(len(bindingFlags)),
		PBindingFlags: bindingFlags,
	}

	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
		Flags:        vk.DescriptorSetLayoutCreateFlags(vk.DescriptorSetLayoutCreateUpdateAfterBindPoolBit),
		PNext:        unsafePointerOf(&flagsCreateInfo),
	}, nil, &layout)
	if isError(ret) {
		return vk.NullDescriptorSetLayout, newVkError(KindUnsupported, ret, "CreateDescriptorSetLayout (bindless) failed")
	}
	return layout, nil
}

func (p *ResourcePool) createAddressBuffer() error {
	info := BufferInfo{
		Name:   "paya_buffer_addresses_buffer",
		Size:   vk.DeviceSize(uint64(p.maxBuffers) * 8),
		Memory: MemoryDeviceLocal | MemoryHostVisible,
		Usage:  BufferUsageStorage,
	}

	var handle vk.Buffer
	ret := vk.CreateBuffer(p.device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        info.Size,
		SharingMode: vk.SharingModeExclusive,
		Usage:       info.Usage.Vk() | vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit),
	}, nil, &handle)
	if isError(ret) {
		return newVkError(KindUnsupported, ret, "CreateBuffer (address table) failed")
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(p.device, handle, &requirements)
	requirements.Deref()

	allocation, err := p.allocator.Allocate(AllocateRequest{
		Name:         info.Name,
		Linear:       true,
		Location:     LocationCpuToGpu,
		Scheme:       AllocationScheme{Kind: SchemeDedicatedBuffer, DedicatedBuf: handle},
		Requirements: requirements,
		NeedsDeviceAddress: true,
	})
	if err != nil {
		vk.DestroyBuffer(p.device, handle, nil)
		return err
	}

	var mapped unsafe.Pointer
	ret = vk.MapMemory(p.device, allocation.Memory, 0, info.Size, 0, &mapped)
	if isError(ret) {
		vk.DestroyBuffer(p.device, handle, nil)
		p.allocator.Free(allocation)
		return newVkError(KindUnsupported, ret, "MapMemory (address table) failed")
	}

	p.addressBuffer = Buffer{Info: info, Handle: handle, Allocation: allocation}
	p.addressBufferPtr = TypedMappedPtr[uint64]{region: MappedPtr{ptr: mapped, size: info.Size}}

	bufferInfos := []vk.DescriptorBufferInfo{{Buffer: handle, Offset: 0, Range: vk.WholeSize}}
	writes := []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          p.descriptorSet,
		DstBinding:      bufferAddressesBinding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageBuffer,
		PBufferInfo:     bufferInfos,
	}}
	vk.UpdateDescriptorSets(p.device, uint32(len(writes)), writes, 0, nil)
	return nil
}

// CreateImage allocates (or, for an adopted swapchain image, wraps)
// handle/info and registers it in the bindless image slot named by the
// returned id. When existingHandle is non-null the image is treated as
// swapchain-owned: ResourcePool never allocates or destroys its memory.
func (p *ResourcePool) CreateImage(existingHandle vk.Image, info ImageInfo) (ImageId, error) {
	handle := existingHandle
	isSwapchainImg := existingHandle != vk.NullImage
	var allocation Allocation
	hasAllocation := false

	if !isSwapchainImg {
		imgType, err := imageTypeFor(info.Dimensions)
		if err != nil {
			return ImageId{}, err
		}
		ret := vk.CreateImage(p.device, &vk.ImageCreateInfo{
			SType:       vk.StructureTypeImageCreateInfo,
			ImageType:   imgType,
			Format:      info.Format,
			Extent:      info.Extent.Vk(),
			MipLevels:   1,
			ArrayLayers: 1,
			Samples:     vk.SampleCount1Bit,
			Tiling:      vk.ImageTilingOptimal,
			Usage:       info.Usage.Vk(),
			SharingMode: vk.SharingModeExclusive,
			InitialLayout: vk.ImageLayoutUndefined,
		}, nil, &handle)
		if isError(ret) {
			return ImageId{}, newVkError(KindUnsupported, ret, "CreateImage failed")
		}

		var requirements vk.MemoryRequirements
		vk.GetImageMemoryRequirements(p.device, handle, &requirements)
		requirements.Deref()

		alloc, err := p.allocator.Allocate(AllocateRequest{
			Location:     LocationGpuOnly,
			Scheme:       AllocationScheme{Kind: SchemeDedicatedImage, DedicatedImage: handle},
			Requirements: requirements,
		})
		if err != nil {
			vk.DestroyImage(p.device, handle, nil)
			return ImageId{}, err
		}
		allocation = alloc
		hasAllocation = true
	}

	var view vk.ImageView
	if info.Usage.NeedsView() {
		viewType, err := imageViewTypeFor(info.Dimensions)
		if err != nil {
			return ImageId{}, err
		}
		ret := vk.CreateImageView(p.device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    handle,
			ViewType: viewType,
			Format:   info.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view)
		if isError(ret) {
			return ImageId{}, newVkError(KindUnsupported, ret, "CreateImageView failed")
		}
	}

	rec := Image{
		Handle:         handle,
		View:           view,
		Info:           info,
		Allocation:     allocation,
		HasAllocation:  hasAllocation,
		IsSwapchainImg: isSwapchainImg,
	}
	resourceId := p.images.Insert(rec)

	if view != vk.NullImageView && info.Usage.Has(ImageUsageStorage) {
		imageInfos := []vk.DescriptorImageInfo{{
			ImageLayout: vk.ImageLayoutGeneral,
			ImageView:   view,
		}}
		writes := []vk.WriteDescriptorSet{{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          p.descriptorSet,
			DstBinding:      storageImageBinding,
			DstArrayElement: resourceId.Index,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			PImageInfo:      imageInfos,
		}}
		vk.UpdateDescriptorSets(p.device, uint32(len(writes)), writes, 0, nil)
	}

	return ImageId{ResourceId: resourceId}, nil
}

func (p *ResourcePool) getImage(id ImageId) (*Image, error) {
	return p.images.Get(id.ResourceId)
}

// DestroyImage releases img's view, its memory (unless swapchain-owned),
// and its arena slot.
func (p *ResourcePool) DestroyImage(img ImageId) error {
	rec, err := p.images.Remove(img.ResourceId)
	if err != nil {
		return err
	}
	p.destroyImageRaw(rec)
	return nil
}

func (p *ResourcePool) destroyImageRaw(img Image) {
	if img.View != vk.NullImageView {
		vk.DestroyImageView(p.device, img.View, nil)
	}
	if !img.IsSwapchainImg {
		vk.DestroyImage(p.device, img.Handle, nil)
	}
	if img.HasAllocation {
		p.allocator.Free(img.Allocation)
	}
}

// CreateBuffer allocates a buffer with SHADER_DEVICE_ADDRESS always added
// to its usage, queries its device address, and writes that address into
// the address table at this buffer's arena index so bindless shader code
// can resolve it through a single storage-buffer load.
func (p *ResourcePool) CreateBuffer(info BufferInfo) (BufferId, error) {
	usage := info.Usage.Vk() | vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit)

	var handle vk.Buffer
	ret := vk.CreateBuffer(p.device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        info.Size,
		SharingMode: vk.SharingModeExclusive,
		Usage:       usage,
	}, nil, &handle)
	if isError(ret) {
		return BufferId{}, newVkError(KindUnsupported, ret, "CreateBuffer failed")
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(p.device, handle, &requirements)
	requirements.Deref()

	allocation, err := p.allocator.Allocate(AllocateRequest{
		Name:               info.Name,
		Linear:             true,
		Location:           memoryLocationFor(info.Memory),
		Scheme:             AllocationScheme{Kind: SchemeDedicatedBuffer, DedicatedBuf: handle},
		Requirements:       requirements,
		NeedsDeviceAddress: true,
	})
	if err != nil {
		vk.DestroyBuffer(p.device, handle, nil)
		return BufferId{}, err
	}

	var addressInfo vk.BufferDeviceAddressInfo
	addressInfo.SType = vk.StructureTypeBufferDeviceAddressInfo
	addressInfo.Buffer = handle
	address := vk.GetBufferDeviceAddress(p.device, &addressInfo)

	resourceId := p.buffers.Insert(Buffer{Info: info, Handle: handle, Allocation: allocation, DeviceAddress: address})

	addrs := p.addressBufferPtr.Slice()
	addrs[resourceId.Index] = uint64(address)

	return BufferId{ResourceId: resourceId}, nil
}

func (p *ResourcePool) getBuffer(id BufferId) (*Buffer, error) {
	return p.buffers.Get(id.ResourceId)
}

// DestroyBuffer releases buf's memory and arena slot. Its address-table
// slot is left stale until CreateBuffer reuses the index; nothing reads it
// until then since the id is no longer valid to look up.
func (p *ResourcePool) DestroyBuffer(buf BufferId) error {
	rec, err := p.buffers.Remove(buf.ResourceId)
	if err != nil {
		return err
	}
	p.destroyBufferRaw(rec)
	return nil
}

func (p *ResourcePool) destroyBufferRaw(buf Buffer) {
	vk.DestroyBuffer(p.device, buf.Handle, nil)
	p.allocator.Free(buf.Allocation)
}

// Destroy waits for the device to idle, drains both arenas, and tears down
// the address table buffer, descriptor set layout, and descriptor pool, in
// that order.
func (p *ResourcePool) Destroy() {
	vk.DeviceWaitIdle(p.device)
	for _, img := range p.images.DrainOccupied() {
		p.destroyImageRaw(img)
	}
	for _, buf := range p.buffers.DrainOccupied() {
		p.destroyBufferRaw(buf)
	}
	p.destroyBufferRaw(p.addressBuffer)
	p.destroyDescriptors()
}

func (p *ResourcePool) destroyDescriptors() {
	if p.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(p.device, p.descriptorSetLayout, nil)
	}
	if p.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(p.device, p.descriptorPool, nil)
	}
}

// imageTypeFor panics on an out-of-range dimensions value: that can only
// come from a caller-constructed ImageInfo, never from driver state, so
// per the ProgrammingFault policy (spec §7) it is fatal rather than a
// returned error.
func imageTypeFor(dimensions uint32) (vk.ImageType, error) {
	switch dimensions {
	case 1:
		return vk.ImageType1d, nil
	case 2:
		return vk.ImageType2d, nil
	case 3:
		return vk.ImageType3d, nil
	default:
		orPanic(newFaultError(KindProgrammingFault, "invalid image dimensions %d, must be 1, 2, or 3", dimensions))
		return 0, nil
	}
}

func imageViewTypeFor(dimensions uint32) (vk.ImageViewType, error) {
	switch dimensions {
	case 1:
		return vk.ImageViewType1d, nil
	case 2:
		return vk.ImageViewType2d, nil
	case 3:
		return vk.ImageViewType3d, nil
	default:
		orPanic(newFaultError(KindProgrammingFault, "invalid image dimensions %d, must be 1, 2, or 3", dimensions))
		return 0, nil
	}
}

func memoryLocationFor(flags MemoryFlags) MemoryLocation {
	if flags.Has(MemoryHostVisible) {
		return LocationCpuToGpu
	}
	return LocationGpuOnly
}
