// Package gpu is the narrow device abstraction the render loop is written against.
//
// The loop never touches cogentcore/webgpu handles directly. It borrows a Device and a Surface,
// creates resources through them and encodes one render pass per frame. The WebGPU-backed
// implementation lives in wgpu_device.go and wgpu_surface.go; package gputest provides a
// recording fake so resize and frame logic can be exercised without a display.
//
// Plain data (formats, usages, primitive and depth-stencil state, vertex layouts) reuses the
// wgpu types so descriptors translate one-to-one.
package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Texture is a GPU texture. Render targets are created by the Device; frame textures are
// handed out by the Surface and are only valid for a single frame.
type Texture interface {
	// CreateView creates a default view over the whole texture.
	//
	// Returns:
	//   - TextureView: the created view
	//   - error: an error if view creation fails
	CreateView() (TextureView, error)

	// Width returns the texture width in pixels.
	Width() uint32

	// Height returns the texture height in pixels.
	Height() uint32

	// SampleCount returns the number of samples per texel (1 when not multisampled).
	SampleCount() uint32

	// Format returns the texel format.
	Format() wgpu.TextureFormat

	// Destroy frees the GPU memory backing the texture. Views created from it become invalid.
	// Calling Destroy more than once is a no-op.
	Destroy()
}

// TextureView is a view over a Texture used as a render pass attachment.
type TextureView interface {
	Release()
}

// Buffer is a GPU buffer.
type Buffer interface {
	// Size returns the buffer size in bytes.
	Size() uint64

	// Destroy frees the GPU memory backing the buffer. Calling Destroy more than once is a no-op.
	Destroy()
}

// ShaderModule is a compiled shader module. It is opaque to the render loop.
type ShaderModule interface {
	Label() string
	Release()
}

// RenderPipeline is a created render pipeline.
type RenderPipeline interface {
	Label() string
	Release()
}

// BindGroup is a bundle of resources bound to one group of a pipeline's layout.
type BindGroup interface {
	Release()
}

// CommandBuffer is a finished, submittable list of GPU commands.
type CommandBuffer interface {
	Release()
}

// CommandEncoder records GPU commands for one frame.
type CommandEncoder interface {
	// BeginRenderPass starts a render pass with the given attachments.
	//
	// Parameters:
	//   - desc: the color and depth attachments of the pass
	//
	// Returns:
	//   - RenderPassEncoder: the encoder for draw commands within the pass
	//   - error: an error if the pass could not be started
	BeginRenderPass(desc *RenderPassDescriptor) (RenderPassEncoder, error)

	// Finish ends recording and returns the command buffer to submit.
	//
	// Returns:
	//   - CommandBuffer: the finished command buffer
	//   - error: an error if encoding failed
	Finish() (CommandBuffer, error)

	Release()
}

// RenderPassEncoder records draw commands within a single render pass.
type RenderPassEncoder interface {
	SetPipeline(p RenderPipeline)
	SetBindGroup(group uint32, bg BindGroup)
	SetVertexBuffer(slot uint32, buf Buffer)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// End closes the pass. No further commands may be recorded on it.
	End() error
}

// Queue is the device's ordered command queue. Writes and submissions execute in the order
// they are enqueued, so a buffer write queued before a submit is visible to that submit's draws.
type Queue interface {
	// WriteBuffer schedules a write of data into buf at the given byte offset.
	//
	// Parameters:
	//   - buf: the destination buffer (must have CopyDst usage)
	//   - offset: the byte offset into buf
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write could not be scheduled
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// Submit enqueues command buffers for execution.
	Submit(cmds ...CommandBuffer)
}

// Device creates GPU resources. It is owned by the caller and borrowed by the render loop.
type Device interface {
	// Queue returns the device's command queue.
	Queue() Queue

	// PreferredFormat returns the presentation format negotiated with the surface at device acquisition.
	PreferredFormat() wgpu.TextureFormat

	// CreateBuffer creates an uninitialized buffer.
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)

	// CreateBufferInit creates a buffer mapped at creation, copies contents into it and unmaps it.
	CreateBufferInit(desc *BufferDescriptor, contents []byte) (Buffer, error)

	// CreateTexture creates a texture.
	CreateTexture(desc *TextureDescriptor) (Texture, error)

	// CreateShaderModule compiles WGSL source into a shader module.
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error)

	// CreateRenderPipeline creates a render pipeline whose layout is derived from the shaders.
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)

	// CreateBindGroup creates a bind group against the derived layout of desc.Pipeline at desc.Group.
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error)

	// CreateCommandEncoder creates an encoder for one frame's commands.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	Release()
}

// Surface is the presentation target bound to a display region.
type Surface interface {
	// Configure binds the surface to a device at the given size, format and alpha mode.
	//
	// Parameters:
	//   - device: the device that renders into the surface
	//   - config: the surface configuration
	//
	// Returns:
	//   - error: an error if the configuration was rejected
	Configure(device Device, config *SurfaceConfiguration) error

	// GetCurrentTexture acquires the texture to render into for the current frame.
	// Returns an error wrapping ErrSurfaceLost if the surface was invalidated.
	GetCurrentTexture() (Texture, error)

	// Present presents the acquired texture.
	Present()

	Release()
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

// TextureDescriptor describes a 2D texture to create.
type TextureDescriptor struct {
	Label       string
	Width       uint32
	Height      uint32
	SampleCount uint32
	Format      wgpu.TextureFormat
	Usage       wgpu.TextureUsage
}

// ShaderModuleDescriptor describes a WGSL shader module.
type ShaderModuleDescriptor struct {
	Label string
	Code  string
}

// ProgrammableStage names a shader module and entry point.
type ProgrammableStage struct {
	Module     ShaderModule
	EntryPoint string
}

// RenderPipelineDescriptor describes a single-target render pipeline with an auto layout.
type RenderPipelineDescriptor struct {
	Label        string
	Vertex       ProgrammableStage
	Buffers      []wgpu.VertexBufferLayout
	Fragment     ProgrammableStage
	ColorFormat  wgpu.TextureFormat
	Primitive    wgpu.PrimitiveState
	SampleCount  uint32
	DepthStencil *wgpu.DepthStencilState
}

// BindGroupEntry binds a buffer range to one binding of a group.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	Offset  uint64
	Size    uint64
}

// BindGroupDescriptor describes a bind group created against a pipeline's derived layout.
type BindGroupDescriptor struct {
	Label    string
	Pipeline RenderPipeline
	Group    uint32
	Entries  []BindGroupEntry
}

// ColorAttachment is a render pass color attachment. ResolveTarget is nil unless View is multisampled.
type ColorAttachment struct {
	View          TextureView
	ResolveTarget TextureView
	LoadOp        wgpu.LoadOp
	StoreOp       wgpu.StoreOp
	ClearValue    wgpu.Color
}

// DepthStencilAttachment is a render pass depth attachment.
type DepthStencilAttachment struct {
	View            TextureView
	DepthLoadOp     wgpu.LoadOp
	DepthStoreOp    wgpu.StoreOp
	DepthClearValue float32
}

// RenderPassDescriptor describes the attachments of a render pass.
type RenderPassDescriptor struct {
	Label                  string
	ColorAttachments       []ColorAttachment
	DepthStencilAttachment *DepthStencilAttachment
}

// SurfaceConfiguration describes how a surface is configured.
type SurfaceConfiguration struct {
	Usage       wgpu.TextureUsage
	Format      wgpu.TextureFormat
	Width       uint32
	Height      uint32
	PresentMode wgpu.PresentMode
	AlphaMode   wgpu.CompositeAlphaMode
}
