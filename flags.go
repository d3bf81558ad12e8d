package paya

import vk "github.com/vulkan-go/vulkan"

// ImageUsageFlags mirrors vk.ImageUsageFlagBits bit-for-bit so conversions
// to/from the underlying graphics API are an identity cast.
type ImageUsageFlags uint32

const (
	ImageUsageTransferSrc         ImageUsageFlags = ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	ImageUsageTransferDst         ImageUsageFlags = ImageUsageFlags(vk.ImageUsageTransferDstBit)
	ImageUsageSampled             ImageUsageFlags = ImageUsageFlags(vk.ImageUsageSampledBit)
	ImageUsageStorage             ImageUsageFlags = ImageUsageFlags(vk.ImageUsageStorageBit)
	ImageUsageColorAttachment     ImageUsageFlags = ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	ImageUsageDepthStencilAttach  ImageUsageFlags = ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	ImageUsageTransientAttachment ImageUsageFlags = ImageUsageFlags(vk.ImageUsageTransientAttachmentBit)
	ImageUsageInputAttachment     ImageUsageFlags = ImageUsageFlags(vk.ImageUsageInputAttachmentBit)
)

func (f ImageUsageFlags) Has(bit ImageUsageFlags) bool { return f&bit == bit }

// NeedsView reports whether an image created with these usage flags
// requires a VkImageView, per spec §4.3.
func (f ImageUsageFlags) NeedsView() bool {
	return f.Has(ImageUsageSampled) ||
		f.Has(ImageUsageStorage) ||
		f.Has(ImageUsageColorAttachment) ||
		f.Has(ImageUsageDepthStencilAttach) ||
		f.Has(ImageUsageInputAttachment)
}

func (f ImageUsageFlags) Vk() vk.ImageUsageFlags {
	return vk.ImageUsageFlags(f)
}

// BufferUsageFlags mirrors vk.BufferUsageFlagBits bit-for-bit.
type BufferUsageFlags uint32

const (
	BufferUsageUniform     BufferUsageFlags = BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	BufferUsageStorage     BufferUsageFlags = BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	BufferUsageTransferSrc BufferUsageFlags = BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	BufferUsageTransferDst BufferUsageFlags = BufferUsageFlags(vk.BufferUsageTransferDstBit)
	BufferUsageIndex       BufferUsageFlags = BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	BufferUsageVertex      BufferUsageFlags = BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	BufferUsageIndirect    BufferUsageFlags = BufferUsageFlags(vk.BufferUsageIndirectBufferBit)
)

func (f BufferUsageFlags) Has(bit BufferUsageFlags) bool { return f&bit == bit }

func (f BufferUsageFlags) Vk() vk.BufferUsageFlags {
	return vk.BufferUsageFlags(f)
}

// MemoryFlags mirrors vk.MemoryPropertyFlagBits bit-for-bit.
type MemoryFlags uint32

const (
	MemoryDeviceLocal  MemoryFlags = MemoryFlags(vk.MemoryPropertyDeviceLocalBit)
	MemoryHostVisible  MemoryFlags = MemoryFlags(vk.MemoryPropertyHostVisibleBit)
	MemoryHostCoherent MemoryFlags = MemoryFlags(vk.MemoryPropertyHostCoherentBit)
	MemoryHostCached   MemoryFlags = MemoryFlags(vk.MemoryPropertyHostCachedBit)
)

func (f MemoryFlags) Has(bit MemoryFlags) bool { return f&bit == bit }

func (f MemoryFlags) Vk() vk.MemoryPropertyFlags {
	return vk.MemoryPropertyFlags(f)
}

// AccessFlags mirrors vk.AccessFlagBits bit-for-bit.
type AccessFlags uint32

const (
	AccessIndirectCommandRead        AccessFlags = AccessFlags(vk.AccessIndirectCommandReadBit)
	AccessIndexRead                  AccessFlags = AccessFlags(vk.AccessIndexReadBit)
	AccessVertexAttributeRead        AccessFlags = AccessFlags(vk.AccessVertexAttributeReadBit)
	AccessUniformRead                AccessFlags = AccessFlags(vk.AccessUniformReadBit)
	AccessInputAttachmentRead        AccessFlags = AccessFlags(vk.AccessInputAttachmentReadBit)
	AccessShaderRead                 AccessFlags = AccessFlags(vk.AccessShaderReadBit)
	AccessShaderWrite                AccessFlags = AccessFlags(vk.AccessShaderWriteBit)
	AccessColorAttachmentRead        AccessFlags = AccessFlags(vk.AccessColorAttachmentReadBit)
	AccessColorAttachmentWrite       AccessFlags = AccessFlags(vk.AccessColorAttachmentWriteBit)
	AccessDepthStencilAttachmentRead AccessFlags = AccessFlags(vk.AccessDepthStencilAttachmentReadBit)
	AccessDepthStencilAttachmentWr   AccessFlags = AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	AccessTransferRead               AccessFlags = AccessFlags(vk.AccessTransferReadBit)
	AccessTransferWrite              AccessFlags = AccessFlags(vk.AccessTransferWriteBit)
	AccessHostRead                   AccessFlags = AccessFlags(vk.AccessHostReadBit)
	AccessHostWrite                  AccessFlags = AccessFlags(vk.AccessHostWriteBit)
	AccessMemoryRead                 AccessFlags = AccessFlags(vk.AccessMemoryReadBit)
	AccessMemoryWrite                AccessFlags = AccessFlags(vk.AccessMemoryWriteBit)
)

func (f AccessFlags) Has(bit AccessFlags) bool { return f&bit == bit }

func (f AccessFlags) Vk() vk.AccessFlags {
	return vk.AccessFlags(f)
}

// VkStages deterministically maps an access mask to a conservative
// pipeline-stage mask, per the table in spec §6. The mapping is
// intentionally coarse (e.g. any shader access maps to all three shader
// stages) rather than precise per-stage tracking.
func (f AccessFlags) VkStages() vk.PipelineStageFlags {
	var stages vk.PipelineStageFlags

	if f.Has(AccessIndirectCommandRead) {
		stages |= vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit)
	}

	if f.Has(AccessIndexRead) || f.Has(AccessVertexAttributeRead) ||
		f.Has(AccessUniformRead) || f.Has(AccessInputAttachmentRead) ||
		f.Has(AccessShaderRead) || f.Has(AccessShaderWrite) {
		stages |= vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit) |
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit) |
			vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)
	}

	if f.Has(AccessColorAttachmentRead) || f.Has(AccessColorAttachmentWrite) {
		stages |= vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}

	if f.Has(AccessDepthStencilAttachmentRead) || f.Has(AccessDepthStencilAttachmentWr) {
		stages |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) |
			vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit)
	}

	if f.Has(AccessTransferRead) || f.Has(AccessTransferWrite) {
		stages |= vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	}

	if f.Has(AccessHostRead) || f.Has(AccessHostWrite) {
		stages |= vk.PipelineStageFlags(vk.PipelineStageHostBit)
	}

	if f.Has(AccessMemoryRead) || f.Has(AccessMemoryWrite) {
		stages |= vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}

	if stages == 0 {
		stages = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}

	return stages
}

// ImageTransition describes a layout/access transition to be recorded as a
// pipeline barrier against an owned image.
type ImageTransition struct {
	Image     ImageId
	SrcLayout vk.ImageLayout
	DstLayout vk.ImageLayout
	SrcAccess AccessFlags
	DstAccess AccessFlags
}

// BufferTransition describes an access transition to be recorded as a
// pipeline barrier against an owned buffer.
type BufferTransition struct {
	Buffer    BufferId
	SrcAccess AccessFlags
	DstAccess AccessFlags
}
