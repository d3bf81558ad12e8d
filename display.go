package paya

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Window wraps a GLFW window for the one thing paya's core needs from it:
// a vk.Surface and the extent to size the swapchain against. Event-loop
// driving (PollEvents, input) stays the caller's responsibility — paya only
// ever reaches into the window for those two things.
type Window struct {
	window *glfw.Window
}

// NewWindow creates a GLFW window hinted for a client-API-less Vulkan
// surface (ClientAPI: glfw.NoAPI), resizable and visible by default.
func NewWindow(width, height int, title string) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		// A failure here comes from the windowing environment (no display
		// server, driver refusing the window hints, ...), not from a paya
		// caller misusing the API, so it is an ordinary returned error
		// rather than a ProgrammingFault.
		return nil, newFaultError(KindUnsupported, "glfw.CreateWindow failed: "+err.Error())
	}
	return &Window{window: win}, nil
}

// Handle exposes the underlying *glfw.Window for callers that need to
// register input callbacks or drive the event loop.
func (w *Window) Handle() *glfw.Window { return w.window }

// Size returns the window's current size in screen coordinates (GLFW
// GetSize, not the framebuffer size in pixels) as an Extent2D for
// SwapchainCreateInfo.PreferredExtent.
func (w *Window) Size() Extent2D {
	width, height := w.window.GetSize()
	return Extent2D{Width: uint32(width), Height: uint32(height)}
}

// ShouldClose reports whether the windowing system has requested the
// window close (e.g. the user clicked the close button).
func (w *Window) ShouldClose() bool { return w.window.ShouldClose() }

// CreateSurface creates the vk.Surface this window presents to, against
// instance. The surface's lifetime is owned by whatever Swapchain adopts
// it; Swapchain.Destroy destroys it.
func (w *Window) CreateSurface(instance *Instance) (vk.Surface, error) {
	raw, err := w.window.CreateWindowSurface(instance.Handle(), nil)
	if err != nil {
		return vk.NullSurface, newFaultError(KindSurfaceLost, "CreateWindowSurface failed: "+err.Error())
	}
	return vk.SurfaceFromPointer(raw), nil
}

// Destroy destroys the underlying GLFW window.
func (w *Window) Destroy() { w.window.Destroy() }
