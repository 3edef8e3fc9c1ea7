package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW handle and the cursor state used to turn motion into drag deltas.
type glfwWindow struct {
	handle   *glfw.Window
	closing  bool
	dragging bool
	lastX    float64
	lastY    float64
}

// openPlatformWindow creates the GLFW window without a client API context, since WebGPU
// brings its own, and wires its callbacks to w.
//
// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_hints_ctx
func openPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	handle, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("create GLFW window: %w", err)
	}
	handle.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	gw := &glfwWindow{handle: handle}
	w.platform = gw

	handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.requestClose()
			return
		}
		if w.callbacks.Key != nil {
			w.callbacks.Key(Key(key), action != glfw.Release)
		}
	})

	handle.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.callbacks.Scroll != nil {
			w.callbacks.Scroll(float32(yoff))
		}
	})

	handle.SetMouseButtonCallback(func(win *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonMiddle {
			return
		}
		gw.dragging = action == glfw.Press
		gw.lastX, gw.lastY = win.GetCursorPos()
	})

	handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if !gw.dragging {
			return
		}
		dx, dy := x-gw.lastX, y-gw.lastY
		gw.lastX, gw.lastY = x, y
		if w.callbacks.Drag != nil {
			w.callbacks.Drag(float32(dx), float32(dy))
		}
	})

	// Framebuffer size is in pixels, which differs from the window size on high-DPI displays.
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(width, height)
	})
	w.width, w.height = handle.GetFramebufferSize()
	return nil
}

// surfaceDescriptor builds the platform surface descriptor (Win32, X11, Wayland or Metal).
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func (g *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(g.handle)
}

func (g *glfwWindow) poll() {
	glfw.PollEvents()
}

func (g *glfwWindow) running() bool {
	return !g.closing && !g.handle.ShouldClose()
}

func (g *glfwWindow) requestClose() {
	g.closing = true
	g.handle.SetShouldClose(true)
}

func (g *glfwWindow) destroy() {
	g.requestClose()
	g.handle.Destroy()
	glfw.Terminate()
}
