// Package window provides the GLFW host the frame loop presents into.
package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is a platform window the frame loop renders into. It reports its framebuffer size and
// liveness, and drives the loop from its message pump.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events. Escape is handled by the window
	// and closes it.
	//
	// Parameters:
	//   - callback: function receiving the GLFW key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still open.
	IsRunning() bool

	// Alive reports whether the window still exists. Same as IsRunning.
	Alive() bool

	// Size returns the framebuffer size in pixels. It is 0x0 while the window is minimized.
	Size() (width, height int)

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never created
	Close() error

	// ProcessMessages runs the window message loop on the calling goroutine. It blocks until the
	// window is closed and calls the update callback once per iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	maxWidth  int
	maxHeight int
	minWidth  int
	minHeight int
	resizable bool

	// width and height track the framebuffer, which differs from the window size on high-DPI displays.
	width  int
	height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
}

var _ Window = &engineWindow{}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "oxy-loop",
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  1,
		minHeight: 1,
		resizable: true,
		width:     800,
		height:    600,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// NewWindow creates and shows a window with the specified options. It locks the calling goroutine
// to its OS thread; every later call must come from the same goroutine.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: error if GLFW could not create the window
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Alive() bool {
	return w.IsRunning()
}

func (w *engineWindow) Size() (int, int) {
	return w.width, w.height
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// resized records a framebuffer size change and forwards it to the resize callback.
func (w *engineWindow) resized(width, height int) {
	w.width = width
	w.height = height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}
