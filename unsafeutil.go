package paya

import "unsafe"

// unsafePointerOf returns v's address as an unsafe.Pointer, for wiring Vulkan
// pNext extension-struct chains (vk's Go binding takes these as
// unsafe.Pointer).
func unsafePointerOf[T any](v *T) unsafe.Pointer {
	return unsafe.Pointer(v)
}
