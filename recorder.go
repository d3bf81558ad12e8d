package paya

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// CommandRecorderId names a rented CommandRecorder within a
// CommandRecorderPool. It does not participate in the bindless handle
// algebra (arena.go) since recorders are never shader-visible.
type CommandRecorderId uint32

// CommandList is the result of CommandRecorder.Finish: a single
// already-begun, already-ended primary command buffer plus the buffers it
// asked to have destroyed once the GPU is done with it. Device.Submit
// drains DeferredDeleteBuffers into the frame's reclamation bucket at
// submit time.
type CommandList struct {
	RecorderId           CommandRecorderId
	commandPool           vk.CommandPool
	commandBuffer         vk.CommandBuffer
	DeferredDeleteBuffers []BufferId
}

func (c CommandList) Handle() vk.CommandBuffer { return c.commandBuffer }

// CommandRecorderPool rents and reclaims CommandRecorders, each wrapping its
// own transient vk.CommandPool. Recorders are never destroyed individually;
// once created they live until the pool itself is torn down, matching the
// teacher's CorePool lifetime (pools.go) rather than churning
// VkCommandPool objects per frame.
type CommandRecorderPool struct {
	device        vk.Device
	queueFamily   uint32
	recorders     []*CommandRecorder
	freeRecorders []CommandRecorderId
}

func NewCommandRecorderPool(device vk.Device, queueFamily uint32) *CommandRecorderPool {
	return &CommandRecorderPool{device: device, queueFamily: queueFamily}
}

// Rent returns a ready-to-record CommandRecorder, reusing one returned by a
// prior Return call before ever creating a new vk.CommandPool.
func (p *CommandRecorderPool) Rent() (*CommandRecorder, error) {
	if len(p.freeRecorders) == 0 {
		id := CommandRecorderId(len(p.recorders))
		rec, err := newCommandRecorder(p.device, p.queueFamily, id)
		if err != nil {
			return nil, err
		}
		p.recorders = append(p.recorders, rec)
		p.freeRecorders = append(p.freeRecorders, id)
	}

	n := len(p.freeRecorders)
	id := p.freeRecorders[n-1]
	p.freeRecorders = p.freeRecorders[:n-1]
	return p.recorders[id], nil
}

// Return resets rec's command pool and makes it available to a future Rent
// call. The caller must not touch rec again afterward.
func (p *CommandRecorderPool) Return(rec *CommandRecorder) error {
	if err := rec.reset(); err != nil {
		return err
	}
	p.freeRecorders = append(p.freeRecorders, rec.id)
	return nil
}

// recorderById returns the recorder named id, or nil if id is out of
// range. Used by Device.CollectGarbage to return retired recorders to the
// free list.
func (p *CommandRecorderPool) recorderById(id CommandRecorderId) *CommandRecorder {
	if int(id) >= len(p.recorders) {
		return nil
	}
	return p.recorders[id]
}

// Destroy waits for the device to go idle, then destroys every recorder's
// command pool. Safe to call even if recorders are still considered
// "rented" by the caller's bookkeeping, mirroring the Rust Drop impl.
func (p *CommandRecorderPool) Destroy() {
	vk.DeviceWaitIdle(p.device)
	for _, rec := range p.recorders {
		vk.DestroyCommandPool(p.device, rec.pool, nil)
	}
	p.recorders = nil
	p.freeRecorders = nil
}

// CommandRecorder wraps one transient, one-time-submit vk.CommandPool and
// the single primary command buffer currently being built from it.
type CommandRecorder struct {
	device  vk.Device
	id      CommandRecorderId
	pool    vk.CommandPool
	current CommandList
}

func newCommandRecorder(device vk.Device, queueFamily uint32, id CommandRecorderId) (*CommandRecorder, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}, nil, &pool)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "CreateCommandPool (recorder) failed")
	}

	rec := &CommandRecorder{device: device, id: id, pool: pool}
	if err := rec.newCommandList(); err != nil {
		vk.DestroyCommandPool(device, pool, nil)
		return nil, err
	}
	return rec, nil
}

// reset discards whatever was recorded into the current command list and
// begins a fresh one-time-submit command buffer from the same pool.
func (r *CommandRecorder) reset() error {
	if ret := vk.ResetCommandPool(r.device, r.pool, 0); isError(ret) {
		return newVkError(KindUnsupported, ret, "ResetCommandPool failed")
	}
	return r.newCommandList()
}

func (r *CommandRecorder) newCommandList() error {
	buffers := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(r.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        r.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, buffers)
	if isError(ret) {
		return newVkError(KindUnsupported, ret, "AllocateCommandBuffers failed")
	}

	ret = vk.BeginCommandBuffer(buffers[0], &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if isError(ret) {
		return newVkError(KindUnsupported, ret, "BeginCommandBuffer failed")
	}

	r.current = CommandList{
		RecorderId:    r.id,
		commandPool:   r.pool,
		commandBuffer: buffers[0],
	}
	return nil
}

// DestroyBufferDeferred marks buf to be destroyed once this command list's
// work has retired on the GPU timeline. Device.Submit promotes these into
// the frame's reclamation bucket.
func (r *CommandRecorder) DestroyBufferDeferred(buf BufferId) {
	r.current.DeferredDeleteBuffers = append(r.current.DeferredDeleteBuffers, buf)
}

// ClearColorImage records a vkCmdClearColorImage against img, which must
// currently be in TRANSFER_DST_OPTIMAL layout.
func (r *CommandRecorder) ClearColorImage(device *Device, img ImageId, color vk.ClearColorValue) error {
	rec, err := device.resources.getImage(img)
	if err != nil {
		return err
	}
	rng := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}
	vk.CmdClearColorImage(r.current.commandBuffer, rec.Handle, vk.ImageLayoutTransferDstOptimal, &color, 1, []vk.ImageSubresourceRange{rng})
	return nil
}

// CopyBufferToBuffer records a vkCmdCopyBuffer of size bytes from src to
// dst, both starting at offset 0.
func (r *CommandRecorder) CopyBufferToBuffer(device *Device, src, dst BufferId, size vk.DeviceSize) error {
	srcBuf, err := device.resources.getBuffer(src)
	if err != nil {
		return err
	}
	dstBuf, err := device.resources.getBuffer(dst)
	if err != nil {
		return err
	}
	region := vk.BufferCopy{Size: size}
	vk.CmdCopyBuffer(r.current.commandBuffer, srcBuf.Handle, dstBuf.Handle, 1, []vk.BufferCopy{region})
	return nil
}

// BlitImageToImage records a vkCmdBlitImage stretching src's full extent
// onto dst's full extent with linear filtering. src must be in
// TRANSFER_SRC_OPTIMAL, dst in TRANSFER_DST_OPTIMAL.
func (r *CommandRecorder) BlitImageToImage(device *Device, src, dst ImageId) error {
	srcImg, err := device.resources.getImage(src)
	if err != nil {
		return err
	}
	dstImg, err := device.resources.getImage(dst)
	if err != nil {
		return err
	}

	subresource := vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LayerCount: 1,
	}

	region := vk.ImageBlit{
		SrcSubresource: subresource,
		SrcOffsets: [2]vk.Offset3D{
			{},
			{X: int32(srcImg.Info.Extent.Width), Y: int32(srcImg.Info.Extent.Height), Z: 1},
		},
		DstSubresource: subresource,
		DstOffsets: [2]vk.Offset3D{
			{},
			{X: int32(dstImg.Info.Extent.Width), Y: int32(dstImg.Info.Extent.Height), Z: 1},
		},
	}

	vk.CmdBlitImage(r.current.commandBuffer,
		srcImg.Handle, vk.ImageLayoutTransferSrcOptimal,
		dstImg.Handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region}, vk.FilterLinear)
	return nil
}

// PipelineBarrierBufferTransition records a full-range vkCmdPipelineBarrier
// buffer memory barrier, deriving pipeline stages from the access masks via
// AccessFlags.VkStages.
func (r *CommandRecorder) PipelineBarrierBufferTransition(device *Device, t BufferTransition) error {
	buf, err := device.resources.getBuffer(t.Buffer)
	if err != nil {
		return err
	}
	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       t.SrcAccess.Vk(),
		DstAccessMask:       t.DstAccess.Vk(),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buf.Handle,
		Size:                buf.Info.Size,
	}
	vk.CmdPipelineBarrier(r.current.commandBuffer,
		t.SrcAccess.VkStages(), t.DstAccess.VkStages(), 0,
		0, nil, 1, []vk.BufferMemoryBarrier{barrier}, 0, nil)
	return nil
}

// PipelineBarrierImageTransition records a full-range vkCmdPipelineBarrier
// image memory barrier, transitioning t.Image from SrcLayout to DstLayout.
func (r *CommandRecorder) PipelineBarrierImageTransition(device *Device, t ImageTransition) error {
	img, err := device.resources.getImage(t.Image)
	if err != nil {
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       t.SrcAccess.Vk(),
		DstAccessMask:       t.DstAccess.Vk(),
		OldLayout:           t.SrcLayout,
		NewLayout:           t.DstLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(r.current.commandBuffer,
		t.SrcAccess.VkStages(), t.DstAccess.VkStages(), 0,
		0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// BindComputePipeline binds pipeline and its single bindless descriptor set
// (set 0, always the resource pool's address-table-and-images set).
func (r *CommandRecorder) BindComputePipeline(device *Device, pipeline *ComputePipeline) {
	vk.CmdBindPipeline(r.current.commandBuffer, vk.PipelineBindPointCompute, pipeline.pipeline)
	sets := []vk.DescriptorSet{device.resources.descriptorSet}
	vk.CmdBindDescriptorSets(r.current.commandBuffer, vk.PipelineBindPointCompute, pipeline.layout, 0, 1, sets, 0, nil)
}

// UploadPushConstants pushes data as the push-constant block for pipeline's
// compute stage. T must match the GPU-side push-constant layout exactly.
func UploadPushConstants[T any](r *CommandRecorder, pipeline *ComputePipeline, data *T) {
	size := unsafe.Sizeof(*data)
	vk.CmdPushConstants(r.current.commandBuffer, pipeline.layout, vk.ShaderStageFlags(vk.ShaderStageComputeBit), 0, uint32(size), unsafePointerOf(data))
}

// Dispatch records a vkCmdDispatch with the given workgroup counts.
func (r *CommandRecorder) Dispatch(groupsX, groupsY, groupsZ uint32) {
	vk.CmdDispatch(r.current.commandBuffer, groupsX, groupsY, groupsZ)
}

// Finish ends the current command buffer and returns the completed
// CommandList for submission. The recorder keeps its command pool but the
// caller owns the returned CommandList until it is handed to Device.Submit.
func (r *CommandRecorder) Finish() (CommandList, error) {
	if ret := vk.EndCommandBuffer(r.current.commandBuffer); isError(ret) {
		return CommandList{}, newVkError(KindUnsupported, ret, "EndCommandBuffer failed")
	}
	return r.current, nil
}
