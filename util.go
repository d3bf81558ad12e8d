package paya

import vk "github.com/vulkan-go/vulkan"

// safeString returns s as a null-terminated C string, the shape vulkan-go's
// Pp*Names fields expect.
func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

// safeStrings maps safeString over a slice.
func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

// checkExisting returns the subset of wanted present in actual, and how
// many of wanted were not found. Both slices are treated as already
// null-terminated.
func checkExisting(actual, wanted []string) (found []string, missing int) {
	set := make(map[string]bool, len(actual))
	for _, a := range actual {
		set[a] = true
	}
	for _, w := range wanted {
		if set[w] {
			found = append(found, w)
		} else {
			missing++
		}
	}
	return found, missing
}

// queryInstanceExtensions lists instance extensions available on the
// platform.
func queryInstanceExtensions() ([]string, error) {
	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "EnumerateInstanceExtensionProperties (count) failed")
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "EnumerateInstanceExtensionProperties failed")
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, safeString(vk.ToString(ext.ExtensionName[:])))
	}
	return names, nil
}

// queryDeviceExtensions lists extensions available on gpu.
func queryDeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "EnumerateDeviceExtensionProperties (count) failed")
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "EnumerateDeviceExtensionProperties failed")
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, safeString(vk.ToString(ext.ExtensionName[:])))
	}
	return names, nil
}

// queryValidationLayers lists validation layers available on the platform.
func queryValidationLayers() ([]string, error) {
	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "EnumerateInstanceLayerProperties (count) failed")
	}
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	if isError(ret) {
		return nil, newVkError(KindUnsupported, ret, "EnumerateInstanceLayerProperties failed")
	}
	names := make([]string, 0, count)
	for _, layer := range list {
		layer.Deref()
		names = append(names, safeString(vk.ToString(layer.LayerName[:])))
	}
	return names, nil
}
