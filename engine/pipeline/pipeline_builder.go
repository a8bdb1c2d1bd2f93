package pipeline

import (
	"github.com/Carmen-Shannon/oxy-loop/engine/geometry"
	"github.com/Carmen-Shannon/oxy-loop/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Builder.
type PipelineBuilderOption func(*builder)

// WithVertexShader sets the vertex shader of the pipeline.
//
// Parameters:
//   - s: the vertex shader
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(b *builder) {
		b.vertexShader = s
	}
}

// WithFragmentShader sets the fragment shader of the pipeline.
//
// Parameters:
//   - s: the fragment shader
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(b *builder) {
		b.fragmentShader = s
	}
}

// WithVertexLayout sets the layout of the single vertex buffer. Without it the pipeline draws
// procedural geometry and the vertex shader must not declare any @location inputs.
//
// Parameters:
//   - layout: the vertex buffer layout
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex layout
func WithVertexLayout(layout geometry.VertexLayout) PipelineBuilderOption {
	return func(b *builder) {
		b.vertexLayout = &layout
	}
}

// WithTopology sets the primitive topology. Defaults to wgpu.PrimitiveTopologyTriangleList.
//
// Parameters:
//   - topology: the primitive topology
//
// Returns:
//   - PipelineBuilderOption: a function that sets the topology
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(b *builder) {
		b.primitive.Topology = topology
	}
}

// WithCullMode sets which faces are culled. Defaults to wgpu.CullModeNone.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(b *builder) {
		b.primitive.CullMode = mode
	}
}

// WithFrontFace sets the winding order of front faces. Defaults to wgpu.FrontFaceCCW.
//
// Parameters:
//   - face: the front face winding
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face
func WithFrontFace(face wgpu.FrontFace) PipelineBuilderOption {
	return func(b *builder) {
		b.primitive.FrontFace = face
	}
}

// WithSampleCount sets the multisample count. Must be 1, 4, 8 or 16. Defaults to 1.
//
// Parameters:
//   - count: the number of samples per pixel
//
// Returns:
//   - PipelineBuilderOption: a function that sets the sample count
func WithSampleCount(count uint32) PipelineBuilderOption {
	return func(b *builder) {
		b.sampleCount = count
	}
}

// WithDepthStencil enables a depth attachment of the given format with depth writes and a
// less-than comparison.
//
// Parameters:
//   - format: the depth texture format, e.g. wgpu.TextureFormatDepth24Plus
//
// Returns:
//   - PipelineBuilderOption: a function that enables depth testing
func WithDepthStencil(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(b *builder) {
		b.depthStencil = &wgpu.DepthStencilState{
			Format:            format,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}
}

// WithColorFormat sets the format of the color target. Defaults to the device's preferred format.
//
// Parameters:
//   - format: the color target format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color format
func WithColorFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(b *builder) {
		b.colorFormat = format
	}
}
