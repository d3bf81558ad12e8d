package paya

import vk "github.com/vulkan-go/vulkan"

// DeviceSelector scores a physical device's properties; New picks
// the highest-scoring device, ties broken by enumeration order.
type DeviceSelector func(DeviceProperties) int

// deviceOptions collects New's optional knobs. Zero values mean "use
// ResourcePool's own defaults".
type deviceOptions struct {
	maxBuffers uint32
	maxImages  uint32
}

// DeviceOption customizes New beyond its required instance/selector
// arguments.
type DeviceOption func(*deviceOptions)

// WithResourcePoolLimits overrides the bindless descriptor set's buffer and
// image slot counts, normally DefaultMaxBuffers/DefaultMaxImages. Typically
// sourced from a loaded config.EngineConfig's MaxBindlessBuffers/
// MaxBindlessImages. maxImages must match the image-array size the
// caller's shaders were preprocessed against (shaderprep.BuildPreamble).
func WithResourcePoolLimits(maxBuffers, maxImages uint32) DeviceOption {
	return func(o *deviceOptions) {
		o.maxBuffers = maxBuffers
		o.maxImages = maxImages
	}
}

// Device is the frame lifecycle engine: it owns the logical device, the
// bindless resource pool, the command recorder pool, and the monotonic CPU
// frame counter driving deferred reclamation.
type Device struct {
	instance *Instance

	handle             vk.Device
	physicalDevice     vk.PhysicalDevice
	deviceProperties   vk.PhysicalDeviceProperties
	memoryProperties   vk.PhysicalDeviceMemoryProperties
	mainQueue          vk.Queue
	mainQueueFamily    uint32

	resources *ResourcePool
	recorders *CommandRecorderPool

	cpuFrameIndex uint64

	deferredRecorders map[uint64][]CommandRecorderId
	deferredBuffers   map[uint64][]BufferId
	deferredImages    map[uint64][]ImageId
}

// New enumerates instance's physical devices, scores each with selector,
// creates a logical device against the highest scorer with one graphics
// queue and swapchain support, and wires up the resource pool and recorder
// pool on top of it.
func New(instance *Instance, selector DeviceSelector, opts ...DeviceOption) (*Device, error) {
	var options deviceOptions
	for _, opt := range opts {
		opt(&options)
	}

	var gpuCount uint32
	ret := vk.EnumeratePhysicalDevices(instance.Handle(), &gpuCount, nil)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "EnumeratePhysicalDevices (count) failed")
	}
	if gpuCount == 0 {
		return nil, newFaultError(KindUnsupported, "no physical devices found")
	}
	gpus := make([]vk.PhysicalDevice, gpuCount)
	ret = vk.EnumeratePhysicalDevices(instance.Handle(), &gpuCount, gpus)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "EnumeratePhysicalDevices failed")
	}

	bestIndex := 0
	bestScore := minInt
	for i, gpu := range gpus {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()
		score := selector(toDeviceProperties(props))
		if score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}
	physicalDevice := gpus[bestIndex]

	var deviceProperties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physicalDevice, &deviceProperties)
	deviceProperties.Deref()

	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memoryProperties)
	memoryProperties.Deref()

	queueFamily, err := findGraphicsQueueFamily(physicalDevice)
	if err != nil {
		return nil, err
	}

	// Timeline semaphores are requested by querying the device's
	// PhysicalDeviceTimelineSemaphoreFeatures through a features2 chain and
	// passing that chain as CreateDevice's pNext. No descriptor-indexing
	// (bindless) feature struct is chained; the instance is created at API
	// version 1.2 (NewInstance).
	timelineFeatures := vk.PhysicalDeviceTimelineSemaphoreFeatures{
		SType:             vk.StructureTypePhysicalDeviceTimelineSemaphoreFeatures,
		TimelineSemaphore: vk.True,
	}
	features2 := vk.PhysicalDeviceFeatures2{
		SType: vk.StructureTypePhysicalDeviceFeatures2,
		PNext: unsafePointerOf(&timelineFeatures),
	}
	vk.GetPhysicalDeviceFeatures2(physicalDevice, &features2)

	deviceExtensions := safeStrings([]string{"VK_KHR_swapchain"})

	queuePriorities := []float32{1.0}
	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: queueFamily,
		QueueCount:       1,
		PQueuePriorities: queuePriorities,
	}}

	var handle vk.Device
	ret = vk.CreateDevice(physicalDevice, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafePointerOf(&features2),
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: deviceExtensions,
	}, nil, &handle)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "CreateDevice failed")
	}
	vk.DeviceWaitIdle(handle)

	var mainQueue vk.Queue
	vk.GetDeviceQueue(handle, queueFamily, 0, &mainQueue)

	resources, err := NewResourcePool(handle, memoryProperties, options.maxBuffers, options.maxImages)
	if err != nil {
		vk.DestroyDevice(handle, nil)
		return nil, err
	}

	return &Device{
		instance:          instance,
		handle:            handle,
		physicalDevice:    physicalDevice,
		deviceProperties:  deviceProperties,
		memoryProperties:  memoryProperties,
		mainQueue:         mainQueue,
		mainQueueFamily:   queueFamily,
		resources:         resources,
		recorders:         NewCommandRecorderPool(handle, queueFamily),
		deferredRecorders: make(map[uint64][]CommandRecorderId),
		deferredBuffers:   make(map[uint64][]BufferId),
		deferredImages:    make(map[uint64][]ImageId),
	}, nil
}

const minInt = -int(^uint(0)>>1) - 1

func toDeviceProperties(props vk.PhysicalDeviceProperties) DeviceProperties {
	return DeviceProperties{
		DeviceType: deviceTypeFromVk(props.DeviceType),
		DeviceName: vk.ToString(props.DeviceName[:]),
		Limits:     props.Limits,
	}
}

func findGraphicsQueueFamily(gpu vk.PhysicalDevice) (uint32, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, families)
	for i := uint32(0); i < count; i++ {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return i, nil
		}
	}
	return 0, newFaultError(KindUnsupported, "no graphics-capable queue family found")
}

func (d *Device) Handle() vk.Device               { return d.handle }
func (d *Device) PhysicalDevice() vk.PhysicalDevice { return d.physicalDevice }
func (d *Device) MainQueue() vk.Queue             { return d.mainQueue }
func (d *Device) MainQueueFamily() uint32         { return d.mainQueueFamily }
func (d *Device) MemoryProperties() vk.PhysicalDeviceMemoryProperties { return d.memoryProperties }
func (d *Device) CpuFrameIndex() uint64           { return d.cpuFrameIndex }

// CreateImage registers a new GPU-owned image in the bindless resource pool.
func (d *Device) CreateImage(info ImageInfo) (ImageId, error) {
	return d.resources.CreateImage(vk.NullImage, info)
}

// createSwapchainImage adopts an externally-owned swapchain image into the
// resource pool without allocating or owning its memory.
func (d *Device) createSwapchainImage(handle vk.Image, info ImageInfo) (ImageId, error) {
	return d.resources.CreateImage(handle, info)
}

// DestroyImage immediately destroys img. Use DestroyImageDeferred instead
// when the image may still be read by in-flight GPU work.
func (d *Device) DestroyImage(img ImageId) error {
	return d.resources.DestroyImage(img)
}

// DestroyImageDeferred enqueues img for destruction once cpu_frame_index+1
// has retired on the GPU timeline.
func (d *Device) DestroyImageDeferred(img ImageId) {
	bucket := d.cpuFrameIndex + 1
	d.deferredImages[bucket] = append(d.deferredImages[bucket], img)
}

// CreateBuffer registers a new GPU-owned buffer in the bindless resource
// pool, writing its device address into the address table.
func (d *Device) CreateBuffer(info BufferInfo) (BufferId, error) {
	return d.resources.CreateBuffer(info)
}

// DestroyBuffer immediately destroys buf.
func (d *Device) DestroyBuffer(buf BufferId) error {
	return d.resources.DestroyBuffer(buf)
}

// DestroyBufferDeferred enqueues buf for destruction once cpu_frame_index+1
// has retired on the GPU timeline.
func (d *Device) DestroyBufferDeferred(buf BufferId) {
	bucket := d.cpuFrameIndex + 1
	d.deferredBuffers[bucket] = append(d.deferredBuffers[bucket], buf)
}

// CreateCommandRecorder rents a CommandRecorder from the recorder pool.
func (d *Device) CreateCommandRecorder() (*CommandRecorder, error) {
	return d.recorders.Rent()
}

// CreateComputePipeline builds a compute pipeline bound against the
// resource pool's single bindless descriptor set layout.
func (d *Device) CreateComputePipeline(info ComputePipelineInfo) (*ComputePipeline, error) {
	return newComputePipeline(d.handle, d.resources.descriptorSetLayout, info)
}

// CreateRasterPipeline builds a graphics pipeline, and the renderpass it is
// compatible with, bound against the resource pool's bindless descriptor
// set layout.
func (d *Device) CreateRasterPipeline(info RasterPipelineInfo) (*RasterPipeline, error) {
	return newRasterPipeline(d.handle, d.resources.descriptorSetLayout, info)
}

// Submit constructs the queue submission described by desc: binary wait
// semaphores (stage mask BOTTOM_OF_PIPE), binary signal semaphores (signal
// value 0, ignored), and timeline signal semaphores chained via
// VkTimelineSemaphoreSubmitInfo. Every command list's recorder id and
// deferred-delete buffers are recorded into bucket cpu_frame_index+1 before
// cpu_frame_index is incremented, so reclamation never races the increment.
func (d *Device) Submit(desc SubmitDescriptor) error {
	waitSemaphores := make([]vk.Semaphore, len(desc.WaitSemaphores))
	waitStages := make([]vk.PipelineStageFlags, len(desc.WaitSemaphores))
	for i, s := range desc.WaitSemaphores {
		waitSemaphores[i] = s.Handle()
		waitStages[i] = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}

	signalSemaphores := make([]vk.Semaphore, 0, len(desc.SignalSemaphores)+len(desc.SignalTimelineSemaphores))
	signalValues := make([]uint64, 0, cap(signalSemaphores))
	for _, s := range desc.SignalSemaphores {
		signalSemaphores = append(signalSemaphores, s.Handle())
		signalValues = append(signalValues, 0)
	}
	for _, t := range desc.SignalTimelineSemaphores {
		signalSemaphores = append(signalSemaphores, t.Semaphore.Handle())
		signalValues = append(signalValues, t.Value)
	}

	commandBuffers := make([]vk.CommandBuffer, len(desc.Commands))
	for i, cl := range desc.Commands {
		commandBuffers[i] = cl.Handle()
	}

	timelineInfo := vk.TimelineSemaphoreSubmitInfo{
		SType:                     vk.StructureTypeTimelineSemaphoreSubmitInfo,
		SignalSemaphoreValueCount: uint32(len(signalValues)),
		PSignalSemaphoreValues:    signalValues,
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		PNext:                unsafePointerOf(&timelineInfo),
		WaitSemaphoreCount:   uint32(len(waitSemaphores)),
		PWaitSemaphores:      waitSemaphores,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   uint32(len(commandBuffers)),
		PCommandBuffers:      commandBuffers,
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
		PSignalSemaphores:    signalSemaphores,
	}

	bucket := d.cpuFrameIndex + 1
	for _, cl := range desc.Commands {
		d.deferredRecorders[bucket] = append(d.deferredRecorders[bucket], cl.RecorderId)
		d.deferredBuffers[bucket] = append(d.deferredBuffers[bucket], cl.DeferredDeleteBuffers...)
	}

	ret := vk.QueueSubmit(d.mainQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence)
	if isError(ret) {
		return newVkError(KindUnsupported, ret, "QueueSubmit failed")
	}

	d.cpuFrameIndex++
	return nil
}

// Present issues a queue-present against desc.Swapchain's last acquired
// image, waiting on desc.WaitSemaphores.
func (d *Device) Present(desc PresentDescriptor) error {
	waitSemaphores := make([]vk.Semaphore, len(desc.WaitSemaphores))
	for i, s := range desc.WaitSemaphores {
		waitSemaphores[i] = s.Handle()
	}

	imageIndex, err := desc.Swapchain.LastAcquiredImageIndex()
	if err != nil {
		return err
	}

	swapchains := []vk.Swapchain{desc.Swapchain.handle}
	imageIndices := []uint32{imageIndex}

	ret := vk.QueuePresent(d.mainQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waitSemaphores)),
		PWaitSemaphores:    waitSemaphores,
		SwapchainCount:     uint32(len(swapchains)),
		PSwapchains:        swapchains,
		PImageIndices:      imageIndices,
	})
	if isError(ret) && ret != vk.ErrorOutOfDate && ret != vk.Suboptimal {
		return newVkError(KindUnsupported, ret, "QueuePresent failed")
	}
	return nil
}

// garbageWindowIndices returns the bucket indices CollectGarbage sweeps for
// a GPU-observed timeline value g: {g, g-1, g-2}, dropping any index that
// would underflow below zero rather than wrapping. Pulled out of
// CollectGarbage as a pure function so the bucket-index arithmetic is
// testable without a live timeline semaphore.
func garbageWindowIndices(g uint64) []uint64 {
	indices := make([]uint64, 0, 3)
	for offset := uint64(0); offset <= 2; offset++ {
		if offset > g {
			continue
		}
		indices = append(indices, g-offset)
	}
	return indices
}

// CollectGarbage reads the GPU-observed value of the given timeline
// semaphore and, for each of the fixed window {G, G-1, G-2} (clamped at
// zero), drains and destroys every deferred recorder, buffer and image
// bucketed at that index. A bucket is drained only by a call whose G lies
// within two above it; when G advances by more than three between calls,
// the buckets it skips over are not drained by any later call.
func (d *Device) CollectGarbage(sem *TimelineSemaphore) error {
	g, err := sem.CounterValue()
	if err != nil {
		return err
	}

	for _, index := range garbageWindowIndices(g) {
		for _, id := range d.deferredRecorders[index] {
			if rec := d.recorders.recorderById(id); rec != nil {
				d.recorders.Return(rec)
			}
		}
		delete(d.deferredRecorders, index)

		for _, bufId := range d.deferredBuffers[index] {
			_ = d.resources.DestroyBuffer(bufId)
		}
		delete(d.deferredBuffers, index)

		for _, imgId := range d.deferredImages[index] {
			_ = d.resources.DestroyImage(imgId)
		}
		delete(d.deferredImages, index)
	}

	return nil
}

// Destroy waits for the device to idle, tears down the recorder pool and
// resource pool, then destroys the logical device.
func (d *Device) Destroy() {
	vk.DeviceWaitIdle(d.handle)
	d.recorders.Destroy()
	d.resources.Destroy()
	vk.DestroyDevice(d.handle, nil)
}
