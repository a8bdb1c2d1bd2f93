// Package pipeline builds the single render pipeline of the frame loop and validates the resources
// bound to it against the layout reflected from its shaders.
package pipeline

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-loop/engine/geometry"
	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/Carmen-Shannon/oxy-loop/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
	log "github.com/sirupsen/logrus"
)

type builder struct {
	key            string
	vertexShader   shader.Shader
	fragmentShader shader.Shader
	vertexLayout   *geometry.VertexLayout
	primitive      wgpu.PrimitiveState
	sampleCount    uint32
	depthStencil   *wgpu.DepthStencilState
	colorFormat    wgpu.TextureFormat
}

// Builder collects the configuration of a render pipeline and creates it on a device.
type Builder interface {
	// Build validates the configuration and creates the shader modules and the render pipeline.
	// The bind group layout is derived from the shaders.
	//
	// Parameters:
	//   - device: the device to create the pipeline on
	//
	// Returns:
	//   - Pipeline: the immutable pipeline
	//   - error: ErrVertexLayoutMismatch, ErrIncompatibleBindGroupLayout or a creation error
	Build(device gpu.Device) (Pipeline, error)
}

var _ Builder = &builder{}

// NewBuilder creates a Builder with the given options applied.
//
// Parameters:
//   - key: the pipeline key, used as label of the created GPU objects
//   - options: functional options applied in order
//
// Returns:
//   - Builder: the configured builder
func NewBuilder(key string, options ...PipelineBuilderOption) Builder {
	b := &builder{
		key: key,
		primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		sampleCount: 1,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// ValidSampleCount reports whether n is a supported multisample count.
func ValidSampleCount(n uint32) bool {
	switch n {
	case 1, 4, 8, 16:
		return true
	}
	return false
}

func (b *builder) Build(device gpu.Device) (Pipeline, error) {
	if b.vertexShader == nil || b.fragmentShader == nil {
		return nil, fmt.Errorf("pipeline %s: both vertex and fragment shaders must be set", b.key)
	}
	if !ValidSampleCount(b.sampleCount) {
		return nil, fmt.Errorf("pipeline %s: sample count %d is not 1, 4, 8 or 16: %w", b.key, b.sampleCount, gpu.ErrSampleCountMismatch)
	}
	if err := checkVertexInputs(b.vertexShader.VertexInputs(), b.vertexLayout); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", b.key, err)
	}
	groups, err := mergeBindings(b.vertexShader.Bindings(), b.fragmentShader.Bindings())
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", b.key, err)
	}

	colorFormat := b.colorFormat
	if colorFormat == wgpu.TextureFormatUndefined {
		colorFormat = device.PreferredFormat()
	}

	vs, err := device.CreateShaderModule(&gpu.ShaderModuleDescriptor{
		Label: b.vertexShader.Key(),
		Code:  b.vertexShader.Source(),
	})
	if err != nil {
		return nil, err
	}
	fs, err := device.CreateShaderModule(&gpu.ShaderModuleDescriptor{
		Label: b.fragmentShader.Key(),
		Code:  b.fragmentShader.Source(),
	})
	if err != nil {
		vs.Release()
		return nil, err
	}

	var buffers []wgpu.VertexBufferLayout
	if b.vertexLayout != nil {
		buffers = []wgpu.VertexBufferLayout{b.vertexLayout.BufferLayout()}
	}

	created, err := device.CreateRenderPipeline(&gpu.RenderPipelineDescriptor{
		Label: b.key + " Render Pipeline",
		Vertex: gpu.ProgrammableStage{
			Module:     vs,
			EntryPoint: b.vertexShader.EntryPoint(),
		},
		Buffers: buffers,
		Fragment: gpu.ProgrammableStage{
			Module:     fs,
			EntryPoint: b.fragmentShader.EntryPoint(),
		},
		ColorFormat:  colorFormat,
		Primitive:    b.primitive,
		SampleCount:  b.sampleCount,
		DepthStencil: b.depthStencil,
	})
	if err != nil {
		vs.Release()
		fs.Release()
		return nil, err
	}

	log.WithFields(log.Fields{
		"pipeline":    b.key,
		"sampleCount": b.sampleCount,
		"depth":       b.depthStencil != nil,
		"groups":      len(groups),
	}).Debug("render pipeline created")

	return &pipeline{
		key:          b.key,
		vs:           vs,
		fs:           fs,
		pipeline:     created,
		vertexLayout: b.vertexLayout,
		primitive:    b.primitive,
		sampleCount:  b.sampleCount,
		depthStencil: b.depthStencil,
		colorFormat:  colorFormat,
		groups:       groups,
	}, nil
}

// checkVertexInputs requires every vertex shader input to be fed by the layout with the same format.
func checkVertexInputs(inputs []shader.VertexInput, layout *geometry.VertexLayout) error {
	for _, in := range inputs {
		if layout == nil {
			return fmt.Errorf("shader input %q at location %d has no vertex buffer: %w", in.Name, in.Location, gpu.ErrVertexLayoutMismatch)
		}
		attr, ok := layout.Attribute(in.Location)
		if !ok {
			return fmt.Errorf("shader input %q at location %d is not in the vertex layout: %w", in.Name, in.Location, gpu.ErrVertexLayoutMismatch)
		}
		if attr.Format != in.Format {
			return fmt.Errorf("shader input %q at location %d is %v, layout supplies %v: %w",
				in.Name, in.Location, in.Format, attr.Format, gpu.ErrVertexLayoutMismatch)
		}
		if attr.Offset+shader.VertexFormatSize(attr.Format) > layout.Stride {
			return fmt.Errorf("attribute at location %d overruns the %d byte stride: %w", in.Location, layout.Stride, gpu.ErrVertexLayoutMismatch)
		}
	}
	return nil
}

// mergeBindings unifies the bindings of both stages per group. A binding declared by both stages
// has its visibilities ORed; the two declarations must agree on kind.
func mergeBindings(vertex, fragment []shader.Binding) (map[uint32][]shader.Binding, error) {
	type slot struct{ group, binding uint32 }
	merged := make(map[slot]shader.Binding)
	for _, b := range append(append([]shader.Binding{}, vertex...), fragment...) {
		k := slot{b.Group, b.Binding}
		existing, ok := merged[k]
		if !ok {
			merged[k] = b
			continue
		}
		if existing.Kind != b.Kind {
			return nil, fmt.Errorf("group %d binding %d is %s in one stage and %s in the other: %w",
				b.Group, b.Binding, existing.Kind, b.Kind, gpu.ErrIncompatibleBindGroupLayout)
		}
		existing.Visibility |= b.Visibility
		if b.MinSize > existing.MinSize {
			existing.MinSize = b.MinSize
		}
		merged[k] = existing
	}

	groups := make(map[uint32][]shader.Binding)
	for k, b := range merged {
		groups[k.group] = append(groups[k.group], b)
	}
	for g := range groups {
		sort.Slice(groups[g], func(i, j int) bool {
			return groups[g][i].Binding < groups[g][j].Binding
		})
	}
	return groups, nil
}

type pipeline struct {
	key          string
	vs           gpu.ShaderModule
	fs           gpu.ShaderModule
	pipeline     gpu.RenderPipeline
	vertexLayout *geometry.VertexLayout
	primitive    wgpu.PrimitiveState
	sampleCount  uint32
	depthStencil *wgpu.DepthStencilState
	colorFormat  wgpu.TextureFormat
	groups       map[uint32][]shader.Binding
}

// Pipeline is a created render pipeline. It is immutable: changing any state means building a new one.
type Pipeline interface {
	// Key returns the pipeline key.
	Key() string

	// RenderPipeline returns the GPU pipeline object to set on a render pass.
	RenderPipeline() gpu.RenderPipeline

	// VertexLayout returns the vertex buffer layout, or nil for procedural geometry.
	VertexLayout() *geometry.VertexLayout

	// Primitive returns the primitive state.
	Primitive() wgpu.PrimitiveState

	// SampleCount returns the multisample count.
	SampleCount() uint32

	// DepthStencil returns the depth state, or nil when the pipeline has no depth attachment.
	DepthStencil() *wgpu.DepthStencilState

	// ColorFormat returns the color target format.
	ColorFormat() wgpu.TextureFormat

	// Groups returns the bind group indices of the derived layout in ascending order.
	Groups() []uint32

	// BindGroupLayout returns the derived bindings of a group sorted by binding, or nil if the group is unused.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - []shader.Binding: the merged bindings of both stages
	BindGroupLayout(group uint32) []shader.Binding

	// NewBindGroup creates a bind group for the given group of the derived layout. Every binding of
	// the group must be supplied exactly once with a buffer of at least the reflected size.
	//
	// Parameters:
	//   - device: the device that created the pipeline
	//   - group: the bind group index
	//   - entries: the buffer bindings
	//
	// Returns:
	//   - gpu.BindGroup: the created bind group
	//   - error: an error wrapping ErrIncompatibleBindGroupLayout if entries do not match the layout
	NewBindGroup(device gpu.Device, group uint32, entries []gpu.BindGroupEntry) (gpu.BindGroup, error)

	// CheckTargets verifies that render targets with the given sample count and depth format can be
	// used with this pipeline.
	//
	// Parameters:
	//   - sampleCount: the sample count of the color (and depth) targets
	//   - depthFormat: the depth texture format, or nil when there is no depth texture
	//
	// Returns:
	//   - error: ErrSampleCountMismatch or ErrDepthStencilMismatch, nil when compatible
	CheckTargets(sampleCount uint32, depthFormat *wgpu.TextureFormat) error

	// Release releases the pipeline and its shader modules.
	Release()
}

var _ Pipeline = &pipeline{}

func (p *pipeline) Key() string {
	return p.key
}

func (p *pipeline) RenderPipeline() gpu.RenderPipeline {
	return p.pipeline
}

func (p *pipeline) VertexLayout() *geometry.VertexLayout {
	return p.vertexLayout
}

func (p *pipeline) Primitive() wgpu.PrimitiveState {
	return p.primitive
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) DepthStencil() *wgpu.DepthStencilState {
	return p.depthStencil
}

func (p *pipeline) ColorFormat() wgpu.TextureFormat {
	return p.colorFormat
}

func (p *pipeline) Groups() []uint32 {
	groups := make([]uint32, 0, len(p.groups))
	for g := range p.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

func (p *pipeline) BindGroupLayout(group uint32) []shader.Binding {
	return p.groups[group]
}

func (p *pipeline) NewBindGroup(device gpu.Device, group uint32, entries []gpu.BindGroupEntry) (gpu.BindGroup, error) {
	layout, ok := p.groups[group]
	if !ok {
		return nil, fmt.Errorf("pipeline %s: group %d is not used by the shaders: %w", p.key, group, gpu.ErrIncompatibleBindGroupLayout)
	}

	supplied := make(map[uint32]gpu.BindGroupEntry, len(entries))
	for _, e := range entries {
		if _, dup := supplied[e.Binding]; dup {
			return nil, fmt.Errorf("pipeline %s: group %d binding %d supplied twice: %w", p.key, group, e.Binding, gpu.ErrIncompatibleBindGroupLayout)
		}
		supplied[e.Binding] = e
	}
	if len(supplied) != len(layout) {
		return nil, fmt.Errorf("pipeline %s: group %d has %d bindings, %d supplied: %w",
			p.key, group, len(layout), len(supplied), gpu.ErrIncompatibleBindGroupLayout)
	}

	for _, b := range layout {
		e, ok := supplied[b.Binding]
		if !ok {
			return nil, fmt.Errorf("pipeline %s: group %d binding %d (%s) not supplied: %w", p.key, group, b.Binding, b.Name, gpu.ErrIncompatibleBindGroupLayout)
		}
		if !b.Kind.IsBuffer() {
			return nil, fmt.Errorf("pipeline %s: group %d binding %d expects a %s: %w", p.key, group, b.Binding, b.Kind, gpu.ErrIncompatibleBindGroupLayout)
		}
		if e.Buffer == nil {
			return nil, fmt.Errorf("pipeline %s: group %d binding %d has no buffer: %w", p.key, group, b.Binding, gpu.ErrIncompatibleBindGroupLayout)
		}
		size := e.Size
		if size == 0 && e.Buffer.Size() > e.Offset {
			size = e.Buffer.Size() - e.Offset
		}
		if size < b.MinSize {
			return nil, fmt.Errorf("pipeline %s: group %d binding %d binds %d bytes, shader needs %d: %w",
				p.key, group, b.Binding, size, b.MinSize, gpu.ErrIncompatibleBindGroupLayout)
		}
	}

	return device.CreateBindGroup(&gpu.BindGroupDescriptor{
		Label:    fmt.Sprintf("%s Bind Group %d", p.key, group),
		Pipeline: p.pipeline,
		Group:    group,
		Entries:  entries,
	})
}

func (p *pipeline) CheckTargets(sampleCount uint32, depthFormat *wgpu.TextureFormat) error {
	if sampleCount != p.sampleCount {
		return fmt.Errorf("pipeline %s renders %d samples, targets have %d: %w", p.key, p.sampleCount, sampleCount, gpu.ErrSampleCountMismatch)
	}
	switch {
	case p.depthStencil == nil && depthFormat != nil:
		return fmt.Errorf("pipeline %s has no depth state, targets have depth: %w", p.key, gpu.ErrDepthStencilMismatch)
	case p.depthStencil != nil && depthFormat == nil:
		return fmt.Errorf("pipeline %s tests depth, targets have none: %w", p.key, gpu.ErrDepthStencilMismatch)
	case p.depthStencil != nil && *depthFormat != p.depthStencil.Format:
		return fmt.Errorf("pipeline %s depth format %v, targets have %v: %w", p.key, p.depthStencil.Format, *depthFormat, gpu.ErrDepthStencilMismatch)
	}
	return nil
}

func (p *pipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.vs != nil {
		p.vs.Release()
		p.vs = nil
	}
	if p.fs != nil {
		p.fs.Release()
		p.fs = nil
	}
}
