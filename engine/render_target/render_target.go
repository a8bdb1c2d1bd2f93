// Package render_target manages the size-dependent textures a render pass draws into besides the
// surface frame: the multisampled color target and the depth buffer.
package render_target

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	log "github.com/sirupsen/logrus"
)

// DefaultClearColor is the color every pass clears to unless configured otherwise.
var DefaultClearColor = wgpu.Color{R: 0, G: 0, B: 0, A: 1}

// ColorAttachmentViews is the color attachment of one pass: the view drawn into and, when
// multisampling, the frame view the samples resolve into.
type ColorAttachmentViews struct {
	View          gpu.TextureView
	ResolveTarget gpu.TextureView
}

type renderTargetSet struct {
	colorTexture gpu.Texture
	colorView    gpu.TextureView
	depthTexture gpu.Texture
	depthView    gpu.TextureView
	depthFormat  *wgpu.TextureFormat

	width       uint32
	height      uint32
	sampleCount uint32
	clearColor  wgpu.Color
}

// Set is the group of render targets sized to the surface. Its textures are always destroyed and
// recreated together, so color and depth never disagree on size.
type Set interface {
	// Rebuild destroys the current textures and allocates new ones at the given size. With a sample
	// count above 1 a multisampled color texture is allocated; with a depth format a depth texture of
	// the same sample count is allocated. On failure everything built so far is released and the set
	// is left empty.
	//
	// Parameters:
	//   - device: the device allocating the textures
	//   - width: the width in pixels
	//   - height: the height in pixels
	//   - sampleCount: the sample count of every target
	//   - colorFormat: the format of the multisampled color target, matching the surface format
	//   - depthFormat: the depth format, or nil for no depth buffer
	//
	// Returns:
	//   - error: an error wrapping ErrResizeReconfigureFailed if any allocation fails
	Rebuild(device gpu.Device, width, height, sampleCount uint32, colorFormat wgpu.TextureFormat, depthFormat *wgpu.TextureFormat) error

	// ColorView returns the multisampled color view, or nil when the pass draws into the frame directly.
	ColorView() gpu.TextureView

	// DepthView returns the depth view, or nil when the set has no depth buffer.
	DepthView() gpu.TextureView

	// ResolveWithSurfaceFrame creates a view of this frame's surface texture. The view is created
	// fresh every frame and must be released after the pass is submitted.
	//
	// Parameters:
	//   - frame: the surface texture acquired for this frame
	//
	// Returns:
	//   - gpu.TextureView: the frame view
	//   - error: an error if the view could not be created
	ResolveWithSurfaceFrame(frame gpu.Texture) (gpu.TextureView, error)

	// Attachments returns the color attachment views for a pass rendering into frame. When
	// multisampling, View is the multisampled target and ResolveTarget the frame; otherwise View is
	// the frame and ResolveTarget is nil. The frame view must be released by the caller.
	//
	// Parameters:
	//   - frame: the surface texture acquired for this frame
	//
	// Returns:
	//   - ColorAttachmentViews: the views to attach
	//   - gpu.TextureView: the frame view to release after submission
	//   - error: an error if the frame does not match the targets or a view cannot be created
	Attachments(frame gpu.Texture) (ColorAttachmentViews, gpu.TextureView, error)

	// ClearColor returns the color the pass clears to.
	ClearColor() wgpu.Color

	// SetClearColor sets the color the pass clears to.
	SetClearColor(c wgpu.Color)

	Width() uint32
	Height() uint32
	SampleCount() uint32
	HasDepth() bool

	// DepthFormat returns the depth format of the set, or nil without depth.
	DepthFormat() *wgpu.TextureFormat

	// Release destroys all textures and leaves the set empty.
	Release()
}

var _ Set = &renderTargetSet{}

// NewSet creates an empty Set. It holds no textures until Rebuild.
func NewSet() Set {
	return &renderTargetSet{clearColor: DefaultClearColor}
}

func (s *renderTargetSet) Rebuild(device gpu.Device, width, height, sampleCount uint32, colorFormat wgpu.TextureFormat, depthFormat *wgpu.TextureFormat) error {
	// Old textures are destroyed before any new one is allocated.
	s.Release()

	if width == 0 || height == 0 {
		return fmt.Errorf("render target: zero size %dx%d: %w", width, height, gpu.ErrResizeReconfigureFailed)
	}
	if sampleCount == 0 {
		sampleCount = 1
	}

	if sampleCount > 1 {
		tex, view, err := createTarget(device, &gpu.TextureDescriptor{
			Label:       "MSAA Texture",
			Width:       width,
			Height:      height,
			SampleCount: sampleCount,
			Format:      colorFormat,
			Usage:       wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("render target: %v: %w", err, gpu.ErrResizeReconfigureFailed)
		}
		s.colorTexture, s.colorView = tex, view
	}

	if depthFormat != nil {
		tex, view, err := createTarget(device, &gpu.TextureDescriptor{
			Label:       "Depth Texture",
			Width:       width,
			Height:      height,
			SampleCount: sampleCount,
			Format:      *depthFormat,
			Usage:       wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			s.Release()
			return fmt.Errorf("render target: %v: %w", err, gpu.ErrResizeReconfigureFailed)
		}
		s.depthTexture, s.depthView = tex, view
		f := *depthFormat
		s.depthFormat = &f
	}

	s.width, s.height, s.sampleCount = width, height, sampleCount

	log.WithFields(log.Fields{
		"width":       width,
		"height":      height,
		"sampleCount": sampleCount,
		"depth":       depthFormat != nil,
	}).Debug("render targets rebuilt")
	return nil
}

func createTarget(device gpu.Device, desc *gpu.TextureDescriptor) (gpu.Texture, gpu.TextureView, error) {
	tex, err := device.CreateTexture(desc)
	if err != nil {
		return nil, nil, err
	}
	view, err := tex.CreateView()
	if err != nil {
		tex.Destroy()
		return nil, nil, fmt.Errorf("failed to create view of %s: %w", desc.Label, err)
	}
	return tex, view, nil
}

func (s *renderTargetSet) ColorView() gpu.TextureView {
	return s.colorView
}

func (s *renderTargetSet) DepthView() gpu.TextureView {
	return s.depthView
}

func (s *renderTargetSet) ResolveWithSurfaceFrame(frame gpu.Texture) (gpu.TextureView, error) {
	if frame == nil {
		return nil, fmt.Errorf("render target: no surface frame")
	}
	return frame.CreateView()
}

func (s *renderTargetSet) Attachments(frame gpu.Texture) (ColorAttachmentViews, gpu.TextureView, error) {
	if s.width == 0 {
		return ColorAttachmentViews{}, nil, fmt.Errorf("render target: set is empty")
	}
	if frame.Width() != s.width || frame.Height() != s.height {
		return ColorAttachmentViews{}, nil, fmt.Errorf("render target: frame is %dx%d, targets are %dx%d",
			frame.Width(), frame.Height(), s.width, s.height)
	}

	frameView, err := s.ResolveWithSurfaceFrame(frame)
	if err != nil {
		return ColorAttachmentViews{}, nil, err
	}
	if s.colorView != nil {
		return ColorAttachmentViews{View: s.colorView, ResolveTarget: frameView}, frameView, nil
	}
	return ColorAttachmentViews{View: frameView}, frameView, nil
}

func (s *renderTargetSet) ClearColor() wgpu.Color {
	return s.clearColor
}

func (s *renderTargetSet) SetClearColor(c wgpu.Color) {
	s.clearColor = c
}

func (s *renderTargetSet) Width() uint32 {
	return s.width
}

func (s *renderTargetSet) Height() uint32 {
	return s.height
}

func (s *renderTargetSet) SampleCount() uint32 {
	return s.sampleCount
}

func (s *renderTargetSet) HasDepth() bool {
	return s.depthTexture != nil
}

func (s *renderTargetSet) DepthFormat() *wgpu.TextureFormat {
	return s.depthFormat
}

func (s *renderTargetSet) Release() {
	if s.colorView != nil {
		s.colorView.Release()
		s.colorView = nil
	}
	if s.colorTexture != nil {
		s.colorTexture.Destroy()
		s.colorTexture = nil
	}
	if s.depthView != nil {
		s.depthView.Release()
		s.depthView = nil
	}
	if s.depthTexture != nil {
		s.depthTexture.Destroy()
		s.depthTexture = nil
	}
	s.depthFormat = nil
	s.width, s.height, s.sampleCount = 0, 0, 0
}
