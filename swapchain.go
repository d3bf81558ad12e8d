package paya

import vk "github.com/vulkan-go/vulkan"

// Swapchain coordinates presentation against a surface: it owns the
// adopted swapchain images, a ring of acquire/present binary semaphores
// sized max_frames_in_flight, one GPU timeline semaphore, and the
// cpu_timeline counter that indexes into those rings. cpu_timeline is
// distinct from Device's cpu_frame_index.
type Swapchain struct {
	device *Device

	surface vk.Surface
	handle  vk.Swapchain

	images            []ImageId
	format            vk.Format
	extent            Extent2D
	imageUsage        ImageUsageFlags
	maxFramesInFlight uint32
	presentModeHint   vk.PresentMode

	acquireSemaphores []*BinarySemaphore
	presentSemaphores []*BinarySemaphore
	gpuTimeline       *TimelineSemaphore

	cpuTimeline          uint64
	lastAcquiredImageIdx uint32
	hasAcquiredImage     bool
}

// NewSwapchain creates the swapchain described by createInfo against
// device, including its full semaphore rings and GPU timeline semaphore.
func NewSwapchain(device *Device, createInfo SwapchainCreateInfo) (*Swapchain, error) {
	s := &Swapchain{
		device:            device,
		surface:           createInfo.Surface,
		maxFramesInFlight: createInfo.MaxFramesInFlight,
		presentModeHint:   createInfo.PreferredPresentMode,
	}

	if err := s.createOrResize(createInfo.PreferredExtent, createInfo.ImageUsage, vk.NullSwapchain); err != nil {
		return nil, err
	}

	for i := uint32(0); i < createInfo.MaxFramesInFlight; i++ {
		acquireSem, err := NewBinarySemaphore(device.Handle())
		if err != nil {
			return nil, err
		}
		presentSem, err := NewBinarySemaphore(device.Handle())
		if err != nil {
			return nil, err
		}
		s.acquireSemaphores = append(s.acquireSemaphores, acquireSem)
		s.presentSemaphores = append(s.presentSemaphores, presentSem)
	}

	gpuTimeline, err := NewTimelineSemaphore(device.Handle(), 0)
	if err != nil {
		return nil, err
	}
	s.gpuTimeline = gpuTimeline

	return s, nil
}

// Resize waits for the device to idle, then recreates the swapchain at the
// given extent (unclamped — the caller's requested size is honored
// verbatim, matching the Rust original's behavior; see the Open Questions
// discussion this preserves). The old swapchain object is destroyed only
// after the new one is created, per the driver-recommended ordering.
func (s *Swapchain) Resize(width, height uint32) error {
	vk.DeviceWaitIdle(s.device.Handle())
	return s.createOrResize(Extent2D{Width: width, Height: height}, s.imageUsage, s.handle)
}

func (s *Swapchain) createOrResize(preferredExtent Extent2D, imageUsage ImageUsageFlags, oldSwapchain vk.Swapchain) error {
	physicalDevice := s.device.PhysicalDevice()

	var capabilities vk.SurfaceCapabilities
	if ret := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, s.surface, &capabilities); isError(ret) {
		return newVkError(KindSurfaceLost, ret, "GetPhysicalDeviceSurfaceCapabilities failed")
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, s.surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, s.surface, &formatCount, formats)

	chosenFormat := formats[0]
	chosenFormat.Deref()
	for _, f := range formats {
		f.Deref()
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			chosenFormat = f
			break
		}
	}

	var presentModeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, s.surface, &presentModeCount, nil)
	presentModes := make([]vk.PresentMode, presentModeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, s.surface, &presentModeCount, presentModes)

	presentMode := vk.PresentModeFifo
	wantedPresentMode := s.presentModeHint
	if wantedPresentMode == 0 {
		wantedPresentMode = vk.PresentModeMailbox
	}
	for _, pm := range presentModes {
		if pm == wantedPresentMode {
			presentMode = pm
			break
		}
	}

	imageCount := capabilities.MinImageCount
	if imageCount < 2 {
		imageCount = 2
	}
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	extent := preferredExtent.Vk()

	var handle vk.Swapchain
	ret := vk.CreateSwapchain(s.device.Handle(), &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.surface,
		MinImageCount:    imageCount,
		ImageFormat:      chosenFormat.Format,
		ImageColorSpace:  chosenFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       imageUsage.Vk(),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}, nil, &handle)
	if isError(ret) {
		return newVkError(KindUnsupported, ret, "CreateSwapchain failed")
	}

	if oldSwapchain != vk.NullSwapchain {
		vk.DeviceWaitIdle(s.device.Handle())
		vk.DestroySwapchain(s.device.Handle(), oldSwapchain, nil)
		for _, img := range s.images {
			_ = s.device.DestroyImage(img)
		}
		s.images = nil
	}

	var swapImageCount uint32
	vk.GetSwapchainImages(s.device.Handle(), handle, &swapImageCount, nil)
	swapImages := make([]vk.Image, swapImageCount)
	vk.GetSwapchainImages(s.device.Handle(), handle, &swapImageCount, swapImages)

	info := ImageInfo{
		Dimensions: 2,
		Extent:     preferredExtent.To3D(),
		Format:     chosenFormat.Format,
		Usage:      imageUsage,
	}

	images := make([]ImageId, 0, len(swapImages))
	for _, raw := range swapImages {
		id, err := s.device.createSwapchainImage(raw, info)
		if err != nil {
			return err
		}
		images = append(images, id)
	}

	s.handle = handle
	s.images = images
	s.format = chosenFormat.Format
	s.extent = preferredExtent
	s.imageUsage = imageUsage
	return nil
}

// AcquireNextImage blocks up to 5 seconds for the next presentable image.
// On SUCCESS it stashes the image index, bumps cpu_timeline, and returns
// the corresponding ImageId. On SUBOPTIMAL or OUT_OF_DATE it returns
// (zero-value, false) without bumping cpu_timeline; the caller is expected
// to call Resize and retry.
func (s *Swapchain) AcquireNextImage() (ImageId, bool, error) {
	const fiveSecondsNanos = uint64(5e9)

	slot := nextRingSlot(s.cpuTimeline, s.maxFramesInFlight)
	acquireSem := s.acquireSemaphores[slot]

	var imageIndex uint32
	ret := vk.AcquireNextImage(s.device.Handle(), s.handle, fiveSecondsNanos, acquireSem.Handle(), vk.NullFence, &imageIndex)

	switch ret {
	case vk.Success:
		s.lastAcquiredImageIdx = imageIndex
		s.hasAcquiredImage = true
		s.cpuTimeline++
		return s.images[imageIndex], true, nil
	case vk.ErrorOutOfDate:
		return ImageId{}, false, nil
	case vk.Suboptimal:
		return ImageId{}, false, nil
	default:
		return ImageId{}, false, newVkError(KindUnsupported, ret, "AcquireNextImage failed")
	}
}

// nextRingSlot returns the semaphore-ring index whose semaphore
// AcquireNextImage hands to vkAcquireNextImage to be signaled, for the frame
// one past cpuTimeline: (cpuTimeline+1) mod maxFramesInFlight.
// Pulled out as a pure function so the ring-wraparound arithmetic is
// testable without a live swapchain.
func nextRingSlot(cpuTimeline uint64, maxFramesInFlight uint32) uint64 {
	return (cpuTimeline + 1) % uint64(maxFramesInFlight)
}

// currentRingSlot returns the semaphore-ring index for the frame at
// cpuTimeline itself: cpuTimeline mod maxFramesInFlight.
func currentRingSlot(cpuTimeline uint64, maxFramesInFlight uint32) uint64 {
	return cpuTimeline % uint64(maxFramesInFlight)
}

// CurrentAcquireSemaphore returns the acquire-ring semaphore for the
// current cpu_timeline slot.
func (s *Swapchain) CurrentAcquireSemaphore() *BinarySemaphore {
	return s.acquireSemaphores[currentRingSlot(s.cpuTimeline, s.maxFramesInFlight)]
}

// CurrentPresentSemaphore is documented in the reference implementation as
// indexing the *present* ring, but in practice it reads from the acquire
// ring — the same semaphore CurrentAcquireSemaphore returns. This is
// preserved verbatim rather than fixed; see the accompanying Open
// Questions discussion.
func (s *Swapchain) CurrentPresentSemaphore() *BinarySemaphore {
	return s.acquireSemaphores[currentRingSlot(s.cpuTimeline, s.maxFramesInFlight)]
}

func (s *Swapchain) GpuTimelineSemaphore() *TimelineSemaphore { return s.gpuTimeline }

// LastAcquiredImageIndex returns the swapchain image index from the most
// recent successful AcquireNextImage call.
func (s *Swapchain) LastAcquiredImageIndex() (uint32, error) {
	if !s.hasAcquiredImage {
		// Calling Present before any successful AcquireNextImage is a
		// caller ordering bug, not a recoverable runtime condition — fatal
		// per the ProgrammingFault policy (spec §7).
		orPanic(newFaultError(KindProgrammingFault, "present called before any image was acquired"))
	}
	return s.lastAcquiredImageIdx, nil
}

// Destroy waits for the device to idle, then destroys the swapchain,
// every semaphore in both rings, the GPU timeline semaphore, and the
// surface.
func (s *Swapchain) Destroy() {
	vk.DeviceWaitIdle(s.device.Handle())
	vk.DestroySwapchain(s.device.Handle(), s.handle, nil)
	for _, sem := range s.acquireSemaphores {
		sem.Destroy()
	}
	for _, sem := range s.presentSemaphores {
		sem.Destroy()
	}
	s.gpuTimeline.Destroy()
	vk.DestroySurface(s.device.instance.Handle(), s.surface, nil)
}
