// Package variant holds the presets the frame loop can run. Each is a single pipeline drawn with
// a single draw call.
package variant

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-loop/engine/geometry"
	"github.com/cogentcore/webgpu/wgpu"
)

// Variant names.
const (
	Triangle     = "triangle"
	TriangleMSAA = "triangle-msaa"
	Resize       = "resize"
	RotatingCube = "rotating-cube"
)

// Variant describes what to draw and how the targets are set up.
type Variant struct {
	Name           string
	VertexShader   string
	FragmentShader string

	// Geometry creates the geometry drawn each frame.
	Geometry func() geometry.Buffer

	SampleCount uint32
	// DepthFormat is nil when the variant has no depth buffer.
	DepthFormat *wgpu.TextureFormat
	CullMode    wgpu.CullMode
	AlphaMode   wgpu.CompositeAlphaMode

	// Resizable is false for variants that render at a fixed size.
	Resizable bool
}

// VertexLayout returns the layout of the variant's geometry, or nil for procedural geometry.
func (v Variant) VertexLayout() *geometry.VertexLayout {
	return v.Geometry().Layout()
}

func triangle() geometry.Buffer {
	return geometry.NewProcedural("Triangle", 3)
}

func depth24Plus() *wgpu.TextureFormat {
	f := wgpu.TextureFormatDepth24Plus
	return &f
}

var presets = map[string]Variant{
	Triangle: {
		Name:           Triangle,
		VertexShader:   "triangle.vert.wgsl",
		FragmentShader: "triangle.frag.wgsl",
		Geometry:       triangle,
		SampleCount:    1,
		CullMode:       wgpu.CullModeNone,
		AlphaMode:      wgpu.CompositeAlphaModePremultiplied,
	},
	TriangleMSAA: {
		Name:           TriangleMSAA,
		VertexShader:   "triangle.vert.wgsl",
		FragmentShader: "triangle.frag.wgsl",
		Geometry:       triangle,
		SampleCount:    4,
		CullMode:       wgpu.CullModeNone,
		AlphaMode:      wgpu.CompositeAlphaModePremultiplied,
	},
	Resize: {
		Name:           Resize,
		VertexShader:   "triangle.vert.wgsl",
		FragmentShader: "triangle.frag.wgsl",
		Geometry:       triangle,
		SampleCount:    4,
		CullMode:       wgpu.CullModeNone,
		AlphaMode:      wgpu.CompositeAlphaModePremultiplied,
		Resizable:      true,
	},
	RotatingCube: {
		Name:           RotatingCube,
		VertexShader:   "cube.vert.wgsl",
		FragmentShader: "cube.frag.wgsl",
		Geometry:       geometry.Cube,
		SampleCount:    4,
		DepthFormat:    depth24Plus(),
		CullMode:       wgpu.CullModeBack,
		AlphaMode:      wgpu.CompositeAlphaModeOpaque,
		Resizable:      true,
	},
}

// Lookup returns the preset with the given name.
//
// Parameters:
//   - name: the variant name
//
// Returns:
//   - Variant: a copy of the preset
//   - error: an error listing the known names if there is no such preset
func Lookup(name string) (Variant, error) {
	v, ok := presets[name]
	if !ok {
		return Variant{}, fmt.Errorf("unknown variant %q, known: %v", name, Names())
	}
	if v.DepthFormat != nil {
		f := *v.DepthFormat
		v.DepthFormat = &f
	}
	return v, nil
}

// Names returns the preset names in sorted order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
