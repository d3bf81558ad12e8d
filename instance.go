package paya

import (
	"log"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// debugLayerName is the one validation layer paya ever requests; missing it
// is a warning, not a fatal error, mirroring platform.go's "enable what's
// present, warn about the rest" approach.
const debugLayerName = "VK_LAYER_KHRONOS_validation\x00"

// InstanceCreateInfo configures Instance construction. RequiredExtensions
// is typically whatever the windowing library (glfw.GetRequiredInstanceExtensions)
// reports; Debug enables the validation layer and a debug report callback,
// each only if the platform provides it.
type InstanceCreateInfo struct {
	RequiredExtensions []string
	Debug              bool
}

// Instance wraps a single vk.Instance for the lifetime of the process. Only
// one Instance is expected per application; New takes it by pointer.
type Instance struct {
	handle        vk.Instance
	debugCallback vk.DebugReportCallback
	hasDebug      bool
}

// NewInstance creates the Vulkan instance, enabling as many of
// createInfo.RequiredExtensions and the validation layer as the platform
// actually reports, the same tolerant-negotiation idiom as the teacher's
// platform.go (NewPlatform).
func NewInstance(createInfo InstanceCreateInfo) (*Instance, error) {
	availableExtensions, err := queryInstanceExtensions()
	if err != nil {
		return nil, err
	}
	wantedExtensions := safeStrings(createInfo.RequiredExtensions)
	if createInfo.Debug {
		wantedExtensions = append(wantedExtensions, safeString("VK_EXT_debug_report"))
	}
	enabledExtensions, missing := checkExisting(availableExtensions, wantedExtensions)
	if missing > 0 {
		log.Println("paya: missing", missing, "requested instance extensions")
	}

	var enabledLayers []string
	if createInfo.Debug {
		availableLayers, err := queryValidationLayers()
		if err != nil {
			return nil, err
		}
		var missingLayers int
		enabledLayers, missingLayers = checkExisting(availableLayers, []string{debugLayerName})
		if missingLayers > 0 {
			log.Println("paya: validation layer VK_LAYER_KHRONOS_validation not available")
		}
	}

	appName := safeString("paya")
	var handle vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         vk.MakeVersion(1, 2, 0),
			ApplicationVersion: vk.MakeVersion(0, 1, 0),
			EngineVersion:      vk.MakeVersion(0, 1, 0),
			PApplicationName:   appName,
			PEngineName:        appName,
		},
		EnabledExtensionCount:   uint32(len(enabledExtensions)),
		PpEnabledExtensionNames: enabledExtensions,
		EnabledLayerCount:       uint32(len(enabledLayers)),
		PpEnabledLayerNames:     enabledLayers,
	}, nil, &handle)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "CreateInstance failed")
	}
	vk.InitInstance(handle)

	inst := &Instance{handle: handle}

	if createInfo.Debug {
		ret := vk.CreateDebugReportCallback(handle, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}, nil, &inst.debugCallback)
		if !isError(ret) {
			inst.hasDebug = true
			log.Println("paya: debug report callback enabled")
		}
	}

	return inst, nil
}

func (i *Instance) Handle() vk.Instance { return i.handle }

func (i *Instance) Destroy() {
	if i.hasDebug {
		vk.DestroyDebugReportCallback(i.handle, i.debugCallback, nil)
	}
	vk.DestroyInstance(i.handle, nil)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location, messageCode uint64, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		log.Printf("paya vulkan error: [%s] %s", pLayerPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		log.Printf("paya vulkan warning: [%s] %s", pLayerPrefix, pMessage)
	default:
		log.Printf("paya vulkan: [%s] %s", pLayerPrefix, pMessage)
	}
	return vk.Bool32(vk.False)
}
