// Package surface owns the presentation surface and tracks its configured size.
package surface

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	log "github.com/sirupsen/logrus"
)

type manager struct {
	surface     gpu.Surface
	device      gpu.Device
	format      wgpu.TextureFormat
	alphaMode   wgpu.CompositeAlphaMode
	presentMode wgpu.PresentMode

	width, height      uint32
	trackedW, trackedH int
	configured         bool
}

// Manager configures a surface and reports size changes of the region it presents to.
// The surface only changes through Configure and Reconfigure.
type Manager interface {
	// Configure binds the surface to the device at the given size, format and alpha mode.
	// Format and alpha mode are remembered for Reconfigure.
	//
	// Parameters:
	//   - device: the device rendering into the surface
	//   - format: the presentation format, usually the device's preferred format
	//   - width: the width in pixels
	//   - height: the height in pixels
	//   - alphaMode: how the presented image composites with the page or desktop
	//
	// Returns:
	//   - error: an error wrapping ErrResizeReconfigureFailed if the backend rejects the configuration
	Configure(device gpu.Device, format wgpu.TextureFormat, width, height uint32, alphaMode wgpu.CompositeAlphaMode) error

	// Reconfigure re-applies the last device, format and alpha mode at a new size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error wrapping ErrResizeReconfigureFailed if the surface was never configured or the backend fails
	Reconfigure(width, height uint32) error

	// CheckResize compares the observed size with the size seen on the previous call and records it.
	// It reports true exactly once per change, whether or not the change is acted on.
	//
	// Parameters:
	//   - width: the observed width in pixels
	//   - height: the observed height in pixels
	//
	// Returns:
	//   - bool: true if the size differs from the previous observation
	CheckResize(width, height int) bool

	// AcquireFrame returns the surface texture to render into this frame.
	//
	// Returns:
	//   - gpu.Texture: the frame texture, valid until Present
	//   - error: an error wrapping ErrSurfaceLost if the surface was invalidated
	AcquireFrame() (gpu.Texture, error)

	// Present presents the acquired frame.
	Present()

	Width() uint32
	Height() uint32
	Format() wgpu.TextureFormat
	AlphaMode() wgpu.CompositeAlphaMode
	Configured() bool

	Release()
}

var _ Manager = &manager{}

// NewManager creates a Manager over an unconfigured surface.
//
// Parameters:
//   - s: the surface to manage
//   - presentMode: the present mode used by every configuration
//
// Returns:
//   - Manager: the surface manager
func NewManager(s gpu.Surface, presentMode wgpu.PresentMode) Manager {
	return &manager{
		surface:     s,
		presentMode: presentMode,
		trackedW:    -1,
		trackedH:    -1,
	}
}

func (m *manager) Configure(device gpu.Device, format wgpu.TextureFormat, width, height uint32, alphaMode wgpu.CompositeAlphaMode) error {
	err := m.surface.Configure(device, &gpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       width,
		Height:      height,
		PresentMode: m.presentMode,
		AlphaMode:   alphaMode,
	})
	if err != nil {
		if errors.Is(err, gpu.ErrSurfaceLost) {
			return fmt.Errorf("surface: configure %dx%d: %w", width, height, err)
		}
		return fmt.Errorf("surface: configure %dx%d: %v: %w", width, height, err, gpu.ErrResizeReconfigureFailed)
	}

	m.device = device
	m.format = format
	m.alphaMode = alphaMode
	m.width, m.height = width, height
	m.configured = true

	log.WithFields(log.Fields{
		"width":  width,
		"height": height,
	}).Debug("surface configured")
	return nil
}

func (m *manager) Reconfigure(width, height uint32) error {
	if !m.configured {
		return fmt.Errorf("surface: reconfigure before configure: %w", gpu.ErrResizeReconfigureFailed)
	}
	return m.Configure(m.device, m.format, width, height, m.alphaMode)
}

func (m *manager) CheckResize(width, height int) bool {
	changed := width != m.trackedW || height != m.trackedH
	m.trackedW, m.trackedH = width, height
	return changed
}

func (m *manager) AcquireFrame() (gpu.Texture, error) {
	if !m.configured {
		return nil, fmt.Errorf("surface: acquire before configure")
	}
	frame, err := m.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("surface: %w", err)
	}
	return frame, nil
}

func (m *manager) Present() {
	m.surface.Present()
}

func (m *manager) Width() uint32 {
	return m.width
}

func (m *manager) Height() uint32 {
	return m.height
}

func (m *manager) Format() wgpu.TextureFormat {
	return m.format
}

func (m *manager) AlphaMode() wgpu.CompositeAlphaMode {
	return m.alphaMode
}

func (m *manager) Configured() bool {
	return m.configured
}

func (m *manager) Release() {
	m.surface.Release()
	m.configured = false
}
