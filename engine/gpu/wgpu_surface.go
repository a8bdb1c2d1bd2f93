package gpu

import (
	"fmt"
	"reflect"

	"github.com/cogentcore/webgpu/wgpu"
	log "github.com/sirupsen/logrus"
)

type wgpuSurfaceImpl struct {
	surface    *wgpu.Surface
	alphaModes []wgpu.CompositeAlphaMode

	width  uint32
	height uint32
	format wgpu.TextureFormat

	acquired *wgpuTextureImpl

	// device and config are the last applied configuration, reapplied after a missed frame.
	device *wgpuDeviceImpl
	config *wgpu.SurfaceConfiguration
	misses acquireMisses
}

var _ Surface = &wgpuSurfaceImpl{}

func (s *wgpuSurfaceImpl) Configure(device Device, config *SurfaceConfiguration) error {
	if s.surface == nil {
		return ErrSurfaceLost
	}
	d, ok := device.(*wgpuDeviceImpl)
	if !ok {
		return fmt.Errorf("device was not created alongside this surface")
	}

	alphaMode := s.supportedAlphaMode(config.AlphaMode)
	if alphaMode != config.AlphaMode {
		log.WithFields(log.Fields{
			"requested": config.AlphaMode,
			"using":     alphaMode,
		}).Warn("surface alpha mode not supported by adapter")
	}

	cfg := &wgpu.SurfaceConfiguration{
		Usage:       config.Usage,
		Format:      config.Format,
		Width:       config.Width,
		Height:      config.Height,
		PresentMode: config.PresentMode,
		AlphaMode:   alphaMode,
	}
	s.surface.Configure(d.adapter, d.device, cfg)
	s.device = d
	s.config = cfg
	s.width = config.Width
	s.height = config.Height
	s.format = config.Format
	return nil
}

// supportedAlphaMode returns mode when the adapter supports it, otherwise the first supported mode.
func (s *wgpuSurfaceImpl) supportedAlphaMode(mode wgpu.CompositeAlphaMode) wgpu.CompositeAlphaMode {
	if len(s.alphaModes) == 0 {
		return mode
	}
	for _, m := range s.alphaModes {
		if m == mode {
			return mode
		}
	}
	return s.alphaModes[0]
}

func (s *wgpuSurfaceImpl) GetCurrentTexture() (Texture, error) {
	if s.surface == nil {
		return nil, ErrSurfaceLost
	}
	// A frame abandoned before Present still holds its texture.
	if s.acquired != nil {
		s.acquired.Destroy()
		s.acquired = nil
	}

	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire surface texture: %w", err)
	}
	// The binding drops the acquisition status. A lost or outdated surface shows up as a
	// texture without a handle.
	if nilHandle(tex) {
		if s.config != nil {
			s.surface.Configure(s.device.adapter, s.device.device, s.config)
		}
		return nil, s.misses.miss()
	}
	s.misses.reset()
	s.acquired = &wgpuTextureImpl{
		texture:     tex,
		width:       s.width,
		height:      s.height,
		sampleCount: 1,
		format:      s.format,
	}
	return s.acquired, nil
}

func (s *wgpuSurfaceImpl) Present() {
	if s.surface == nil || s.acquired == nil {
		return
	}
	s.surface.Present()
	s.acquired.Destroy()
	s.acquired = nil
}

func (s *wgpuSurfaceImpl) Release() {
	if s.acquired != nil {
		s.acquired.Destroy()
		s.acquired = nil
	}
	if s.surface != nil {
		s.surface.Release()
		s.surface = nil
	}
}

// maxAcquireMisses is how many consecutive frames may come back without a texture before the
// surface is treated as lost. An outdated surface recovers after one reconfigure.
const maxAcquireMisses = 30

// acquireMisses counts consecutive frames acquired without a texture.
type acquireMisses struct {
	count int
}

// miss records a frame without a texture. It returns an error wrapping ErrSurfaceLost once
// maxAcquireMisses frames in a row were missed, and a skippable error before that.
func (m *acquireMisses) miss() error {
	m.count++
	if m.count >= maxAcquireMisses {
		return fmt.Errorf("no surface texture for %d frames: %w", m.count, ErrSurfaceLost)
	}
	return fmt.Errorf("surface texture unavailable (%d in a row)", m.count)
}

func (m *acquireMisses) reset() {
	m.count = 0
}

// nilHandle reports whether tex wraps no native texture. The handle is unexported by the binding.
func nilHandle(tex *wgpu.Texture) bool {
	if tex == nil {
		return true
	}
	ref := reflect.ValueOf(tex).Elem().FieldByName("ref")
	return ref.IsValid() && ref.Kind() == reflect.Pointer && ref.IsNil()
}
