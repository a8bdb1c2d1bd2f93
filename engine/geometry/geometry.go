// Package geometry holds immutable vertex data and its upload to the GPU.
package geometry

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// VertexLayout describes how one interleaved vertex buffer feeds the vertex stage.
type VertexLayout struct {
	// Stride is the byte distance between consecutive vertices.
	Stride uint64

	// Attributes maps byte offsets within a vertex to shader locations.
	Attributes []wgpu.VertexAttribute
}

// BufferLayout returns the per-vertex wgpu buffer layout.
func (l VertexLayout) BufferLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: l.Stride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  l.Attributes,
	}
}

// Attribute returns the attribute bound to the shader location, if any.
func (l VertexLayout) Attribute(location uint32) (wgpu.VertexAttribute, bool) {
	for _, a := range l.Attributes {
		if a.ShaderLocation == location {
			return a, true
		}
	}
	return wgpu.VertexAttribute{}, false
}

type geometryBuffer struct {
	label       string
	data        []byte
	layout      *VertexLayout
	vertexCount uint32
	buffer      gpu.Buffer
}

// Buffer is a static set of vertices uploaded once. A procedural buffer has no vertex data;
// its vertices are generated in the vertex shader from the vertex index.
type Buffer interface {
	// Label returns the debug label of the buffer.
	Label() string

	// Layout returns the vertex layout, or nil for procedural geometry.
	//
	// Returns:
	//   - *VertexLayout: the layout of the vertex data
	Layout() *VertexLayout

	// VertexCount returns the number of vertices drawn.
	VertexCount() uint32

	// Bytes returns the vertex bytes, or nil for procedural geometry. The slice must not be modified.
	Bytes() []byte

	// Upload creates the GPU vertex buffer from the vertex bytes. It is a no-op for procedural
	// geometry and for a buffer that was already uploaded.
	//
	// Parameters:
	//   - device: the device that owns the created buffer
	//
	// Returns:
	//   - error: an error if the GPU buffer could not be created
	Upload(device gpu.Device) error

	// GPUBuffer returns the uploaded vertex buffer, or nil when there is none.
	GPUBuffer() gpu.Buffer

	// Release destroys the GPU vertex buffer.
	Release()
}

var _ Buffer = &geometryBuffer{}

// NewBuffer creates a Buffer over interleaved vertex bytes.
//
// Parameters:
//   - label: the debug label of the buffer
//   - data: the vertex bytes, owned by the Buffer from now on
//   - layout: the layout of one vertex
//   - vertexCount: the number of vertices in data
//
// Returns:
//   - Buffer: the geometry buffer
//   - error: an error if data is not exactly vertexCount vertices of layout.Stride bytes
func NewBuffer(label string, data []byte, layout VertexLayout, vertexCount uint32) (Buffer, error) {
	if layout.Stride == 0 {
		return nil, fmt.Errorf("geometry %s: zero stride", label)
	}
	if want := layout.Stride * uint64(vertexCount); uint64(len(data)) != want {
		return nil, fmt.Errorf("geometry %s: %d bytes of vertex data, want %d (%d vertices of %d bytes)",
			label, len(data), want, vertexCount, layout.Stride)
	}
	for _, a := range layout.Attributes {
		if a.Offset >= layout.Stride {
			return nil, fmt.Errorf("geometry %s: attribute at location %d starts at %d, past stride %d",
				label, a.ShaderLocation, a.Offset, layout.Stride)
		}
	}
	return &geometryBuffer{
		label:       label,
		data:        data,
		layout:      &layout,
		vertexCount: vertexCount,
	}, nil
}

// NewProcedural creates a Buffer with no vertex data that draws vertexCount vertices.
func NewProcedural(label string, vertexCount uint32) Buffer {
	return &geometryBuffer{label: label, vertexCount: vertexCount}
}

func (b *geometryBuffer) Label() string {
	return b.label
}

func (b *geometryBuffer) Layout() *VertexLayout {
	return b.layout
}

func (b *geometryBuffer) VertexCount() uint32 {
	return b.vertexCount
}

func (b *geometryBuffer) Bytes() []byte {
	return b.data
}

func (b *geometryBuffer) Upload(device gpu.Device) error {
	if b.layout == nil || b.buffer != nil {
		return nil
	}
	buf, err := device.CreateBufferInit(&gpu.BufferDescriptor{
		Label: b.label,
		Size:  uint64(len(b.data)),
		Usage: wgpu.BufferUsageVertex,
	}, b.data)
	if err != nil {
		return fmt.Errorf("geometry %s: %w", b.label, err)
	}
	b.buffer = buf
	return nil
}

func (b *geometryBuffer) GPUBuffer() gpu.Buffer {
	return b.buffer
}

func (b *geometryBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Destroy()
		b.buffer = nil
	}
}
