// Command paya-demo is a minimal smoke test for the paya frame engine: it
// opens a window, builds an instance/device/swapchain, clears each
// presented image through the bindless resource pool, and runs the
// acquire/submit/present/collect-garbage loop until the window closes.
//
// It exists in place of an automated test because everything it exercises
// requires a live GPU and a live window, the same requirement the
// teacher's own render smoke test had.
package main

import (
	"log"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/paratym/paya"
	"github.com/paratym/paya/config"
)

func main() {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		log.Fatalf("glfw.Init: %v", err)
	}
	defer glfw.Terminate()

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		log.Fatalf("vk.Init: %v", err)
	}

	// cfg is the demo's own choice to load a config file; paya itself never
	// requires one. "paya-demo.yaml" in the working directory overrides
	// config.Default() when present.
	cfg := config.Default()
	if loaded, err := config.Load("paya-demo.yaml"); err == nil {
		cfg = loaded
	}

	window, err := paya.NewWindow(1280, 720, "paya-demo")
	if err != nil {
		log.Fatalf("NewWindow: %v", err)
	}
	defer window.Destroy()

	instance, err := paya.NewInstance(paya.InstanceCreateInfo{
		RequiredExtensions: glfw.GetRequiredInstanceExtensions(),
		Debug:              cfg.EnableValidation,
	})
	if err != nil {
		log.Fatalf("NewInstance: %v", err)
	}
	defer instance.Destroy()

	device, err := paya.New(instance, func(props paya.DeviceProperties) int {
		if props.DeviceType == paya.DeviceTypeDiscrete {
			return 100
		}
		return 1
	}, paya.WithResourcePoolLimits(cfg.MaxBindlessBuffers, cfg.MaxBindlessImages))
	if err != nil {
		log.Fatalf("paya.New: %v", err)
	}
	defer device.Destroy()

	surface, err := window.CreateSurface(instance)
	if err != nil {
		log.Fatalf("CreateSurface: %v", err)
	}

	swapchain, err := paya.NewSwapchain(device, paya.SwapchainCreateInfo{
		Surface:              surface,
		PreferredExtent:      window.Size(),
		ImageUsage:           paya.ImageUsageColorAttachment | paya.ImageUsageTransferDst,
		MaxFramesInFlight:    cfg.MaxFramesInFlight,
		PreferredPresentMode: cfg.PresentMode(),
	})
	if err != nil {
		log.Fatalf("NewSwapchain: %v", err)
	}
	defer swapchain.Destroy()

	clearColor := vk.ClearColorValue{Float32: [4]float32{0.02, 0.02, 0.05, 1.0}}

	frameValue := uint64(0)

	for !window.ShouldClose() {
		glfw.PollEvents()

		imageId, ok, err := swapchain.AcquireNextImage()
		if err != nil {
			log.Fatalf("AcquireNextImage: %v", err)
		}
		if !ok {
			if err := swapchain.Resize(window.Size().Width, window.Size().Height); err != nil {
				log.Fatalf("Resize: %v", err)
			}
			continue
		}

		recorder, err := device.CreateCommandRecorder()
		if err != nil {
			log.Fatalf("CreateCommandRecorder: %v", err)
		}
		if err := recorder.PipelineBarrierImageTransition(device, paya.ImageTransition{
			Image:     imageId,
			SrcLayout: vk.ImageLayoutUndefined,
			DstLayout: vk.ImageLayoutTransferDstOptimal,
			SrcAccess: 0,
			DstAccess: paya.AccessTransferWrite,
		}); err != nil {
			log.Fatalf("PipelineBarrierImageTransition: %v", err)
		}
		if err := recorder.ClearColorImage(device, imageId, clearColor); err != nil {
			log.Fatalf("ClearColorImage: %v", err)
		}
		if err := recorder.PipelineBarrierImageTransition(device, paya.ImageTransition{
			Image:     imageId,
			SrcLayout: vk.ImageLayoutTransferDstOptimal,
			DstLayout: vk.ImageLayoutPresentSrc,
			SrcAccess: paya.AccessTransferWrite,
			DstAccess: paya.AccessMemoryRead,
		}); err != nil {
			log.Fatalf("PipelineBarrierImageTransition: %v", err)
		}
		commands, err := recorder.Finish()
		if err != nil {
			log.Fatalf("Finish: %v", err)
		}

		frameValue++
		if err := device.Submit(paya.SubmitDescriptor{
			Commands:       []paya.CommandList{commands},
			WaitSemaphores: []*paya.BinarySemaphore{swapchain.CurrentAcquireSemaphore()},
			SignalTimelineSemaphores: []paya.TimelineSignal{
				{Semaphore: swapchain.GpuTimelineSemaphore(), Value: frameValue},
			},
		}); err != nil {
			log.Fatalf("Submit: %v", err)
		}

		if err := device.Present(paya.PresentDescriptor{
			Swapchain:      swapchain,
			WaitSemaphores: []*paya.BinarySemaphore{swapchain.CurrentPresentSemaphore()},
		}); err != nil {
			log.Fatalf("Present: %v", err)
		}

		if err := device.CollectGarbage(swapchain.GpuTimelineSemaphore()); err != nil {
			log.Fatalf("CollectGarbage: %v", err)
		}
	}
}
