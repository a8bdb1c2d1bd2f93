package gpu

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// DeviceOptions controls adapter selection when acquiring a WebGPU device.
type DeviceOptions struct {
	// ForceFallbackAdapter requests a software adapter.
	ForceFallbackAdapter bool

	// Label is the debug label of the created device.
	Label string
}

type wgpuDeviceImpl struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpuQueueImpl

	preferredFormat wgpu.TextureFormat
}

var _ Device = &wgpuDeviceImpl{}

// NewWGPUDevice acquires a WebGPU instance, a surface for the given descriptor, an adapter compatible
// with that surface and a device. The preferred presentation format is the first format the surface
// reports for the adapter.
//
// The calling goroutine is locked to its OS thread; every later GPU call must happen on it.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, usually from wgpuglfw.GetSurfaceDescriptor
//   - opts: adapter and device options
//
// Returns:
//   - Device: the acquired device
//   - Surface: the unconfigured surface bound to the descriptor
//   - error: an error wrapping ErrCapabilityUnavailable if any step fails
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, opts DeviceOptions) (Device, Surface, error) {
	runtime.LockOSThread()

	if surfaceDescriptor == nil {
		return nil, nil, fmt.Errorf("no surface descriptor: %w", ErrCapabilityUnavailable)
	}

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, nil, fmt.Errorf("failed to create instance: %w", ErrCapabilityUnavailable)
	}

	surface := instance.CreateSurface(surfaceDescriptor)
	if surface == nil {
		instance.Release()
		return nil, nil, fmt.Errorf("failed to create surface: %w", ErrCapabilityUnavailable)
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.ForceFallbackAdapter,
		CompatibleSurface:    surface,
	})
	if err != nil {
		surface.Release()
		instance.Release()
		return nil, nil, fmt.Errorf("failed to request adapter: %v: %w", err, ErrCapabilityUnavailable)
	}

	label := opts.Label
	if label == "" {
		label = "Main Device"
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: label,
	})
	if err != nil {
		adapter.Release()
		surface.Release()
		instance.Release()
		return nil, nil, fmt.Errorf("failed to request device: %v: %w", err, ErrCapabilityUnavailable)
	}

	capabilities := surface.GetCapabilities(adapter)
	if len(capabilities.Formats) == 0 {
		device.Release()
		adapter.Release()
		surface.Release()
		instance.Release()
		return nil, nil, fmt.Errorf("surface reports no formats: %w", ErrCapabilityUnavailable)
	}

	d := &wgpuDeviceImpl{
		instance:        instance,
		adapter:         adapter,
		device:          device,
		queue:           &wgpuQueueImpl{queue: device.GetQueue()},
		preferredFormat: capabilities.Formats[0],
	}
	s := &wgpuSurfaceImpl{
		surface:    surface,
		alphaModes: capabilities.AlphaModes,
	}
	return d, s, nil
}

func (d *wgpuDeviceImpl) Queue() Queue {
	return d.queue
}

func (d *wgpuDeviceImpl) PreferredFormat() wgpu.TextureFormat {
	return d.preferredFormat
}

func (d *wgpuDeviceImpl) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", desc.Label, err)
	}
	return &wgpuBufferImpl{buffer: buf, size: desc.Size}, nil
}

func (d *wgpuDeviceImpl) CreateBufferInit(desc *BufferDescriptor, contents []byte) (Buffer, error) {
	buf, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    desc.Label,
		Contents: contents,
		Usage:    desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", desc.Label, err)
	}
	return &wgpuBufferImpl{buffer: buf, size: uint64(len(contents))}, nil
}

func (d *wgpuDeviceImpl) CreateTexture(desc *TextureDescriptor) (Texture, error) {
	sampleCount := desc.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", desc.Label, err)
	}
	return &wgpuTextureImpl{
		texture:     tex,
		width:       desc.Width,
		height:      desc.Height,
		sampleCount: sampleCount,
		format:      desc.Format,
		owned:       true,
	}, nil
}

func (d *wgpuDeviceImpl) CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Code,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shader module %q: %w", desc.Label, err)
	}
	return &wgpuShaderModuleImpl{module: module, label: desc.Label}, nil
}

func (d *wgpuDeviceImpl) CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error) {
	vs, ok := desc.Vertex.Module.(*wgpuShaderModuleImpl)
	if !ok {
		return nil, fmt.Errorf("vertex module of %q was not created by this device", desc.Label)
	}
	fs, ok := desc.Fragment.Module.(*wgpuShaderModuleImpl)
	if !ok {
		return nil, fmt.Errorf("fragment module of %q was not created by this device", desc.Label)
	}

	sampleCount := desc.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}

	// A nil Layout requests a layout derived from the shaders.
	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: desc.Label,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    desc.Buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    desc.ColorFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: desc.Primitive,
		Multisample: wgpu.MultisampleState{
			Count: sampleCount,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: desc.DepthStencil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create render pipeline %q: %w", desc.Label, err)
	}
	return &wgpuRenderPipelineImpl{pipeline: created, label: desc.Label}, nil
}

func (d *wgpuDeviceImpl) CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error) {
	p, ok := desc.Pipeline.(*wgpuRenderPipelineImpl)
	if !ok {
		return nil, fmt.Errorf("pipeline of bind group %q was not created by this device", desc.Label)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		buf, ok := e.Buffer.(*wgpuBufferImpl)
		if !ok {
			return nil, fmt.Errorf("binding %d of %q is not a buffer created by this device", e.Binding, desc.Label)
		}
		size := e.Size
		if size == 0 {
			size = wgpu.WholeSize
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: e.Binding,
			Buffer:  buf.buffer,
			Offset:  e.Offset,
			Size:    size,
		})
	}

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  p.pipeline.GetBindGroupLayout(desc.Group),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group %q: %w", desc.Label, err)
	}
	return &wgpuBindGroupImpl{bindGroup: bg}, nil
}

func (d *wgpuDeviceImpl) CreateCommandEncoder(label string) (CommandEncoder, error) {
	var desc *wgpu.CommandEncoderDescriptor
	if label != "" {
		desc = &wgpu.CommandEncoderDescriptor{Label: label}
	}
	encoder, err := d.device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoderImpl{encoder: encoder}, nil
}

func (d *wgpuDeviceImpl) Release() {
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

type wgpuQueueImpl struct {
	queue *wgpu.Queue
}

func (q *wgpuQueueImpl) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*wgpuBufferImpl)
	if !ok {
		return fmt.Errorf("buffer was not created by this device")
	}
	return q.queue.WriteBuffer(b.buffer, offset, data)
}

func (q *wgpuQueueImpl) Submit(cmds ...CommandBuffer) {
	buffers := make([]*wgpu.CommandBuffer, 0, len(cmds))
	for _, c := range cmds {
		if cb, ok := c.(*wgpuCommandBufferImpl); ok {
			buffers = append(buffers, cb.buffer)
		}
	}
	q.queue.Submit(buffers...)
}

type wgpuBufferImpl struct {
	buffer *wgpu.Buffer
	size   uint64
}

func (b *wgpuBufferImpl) Size() uint64 {
	return b.size
}

func (b *wgpuBufferImpl) Destroy() {
	if b.buffer == nil {
		return
	}
	b.buffer.Destroy()
	b.buffer.Release()
	b.buffer = nil
}

type wgpuTextureImpl struct {
	texture     *wgpu.Texture
	width       uint32
	height      uint32
	sampleCount uint32
	format      wgpu.TextureFormat

	// owned is false for surface textures, which are released but never destroyed.
	owned bool
}

func (t *wgpuTextureImpl) CreateView() (TextureView, error) {
	view, err := t.texture.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuTextureViewImpl{view: view}, nil
}

func (t *wgpuTextureImpl) Width() uint32 {
	return t.width
}

func (t *wgpuTextureImpl) Height() uint32 {
	return t.height
}

func (t *wgpuTextureImpl) SampleCount() uint32 {
	return t.sampleCount
}

func (t *wgpuTextureImpl) Format() wgpu.TextureFormat {
	return t.format
}

func (t *wgpuTextureImpl) Destroy() {
	if t.texture == nil {
		return
	}
	if t.owned {
		t.texture.Destroy()
	}
	t.texture.Release()
	t.texture = nil
}

type wgpuTextureViewImpl struct {
	view *wgpu.TextureView
}

func (v *wgpuTextureViewImpl) Release() {
	if v.view != nil {
		v.view.Release()
		v.view = nil
	}
}

type wgpuShaderModuleImpl struct {
	module *wgpu.ShaderModule
	label  string
}

func (m *wgpuShaderModuleImpl) Label() string {
	return m.label
}

func (m *wgpuShaderModuleImpl) Release() {
	if m.module != nil {
		m.module.Release()
		m.module = nil
	}
}

type wgpuRenderPipelineImpl struct {
	pipeline *wgpu.RenderPipeline
	label    string
}

func (p *wgpuRenderPipelineImpl) Label() string {
	return p.label
}

func (p *wgpuRenderPipelineImpl) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}

type wgpuBindGroupImpl struct {
	bindGroup *wgpu.BindGroup
}

func (b *wgpuBindGroupImpl) Release() {
	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}
}

type wgpuCommandBufferImpl struct {
	buffer *wgpu.CommandBuffer
}

func (c *wgpuCommandBufferImpl) Release() {
	if c.buffer != nil {
		c.buffer.Release()
		c.buffer = nil
	}
}

type wgpuCommandEncoderImpl struct {
	encoder *wgpu.CommandEncoder
}

func (e *wgpuCommandEncoderImpl) BeginRenderPass(desc *RenderPassDescriptor) (RenderPassEncoder, error) {
	colors := make([]wgpu.RenderPassColorAttachment, 0, len(desc.ColorAttachments))
	for i, c := range desc.ColorAttachments {
		view, ok := c.View.(*wgpuTextureViewImpl)
		if !ok || view.view == nil {
			return nil, fmt.Errorf("color attachment %d has no view", i)
		}
		attachment := wgpu.RenderPassColorAttachment{
			View:       view.view,
			LoadOp:     c.LoadOp,
			StoreOp:    c.StoreOp,
			ClearValue: c.ClearValue,
		}
		if c.ResolveTarget != nil {
			resolve, ok := c.ResolveTarget.(*wgpuTextureViewImpl)
			if !ok || resolve.view == nil {
				return nil, fmt.Errorf("color attachment %d has an invalid resolve target", i)
			}
			attachment.ResolveTarget = resolve.view
		}
		colors = append(colors, attachment)
	}

	descriptor := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: colors,
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		view, ok := ds.View.(*wgpuTextureViewImpl)
		if !ok || view.view == nil {
			return nil, fmt.Errorf("depth attachment has no view")
		}
		descriptor.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            view.view,
			DepthLoadOp:     ds.DepthLoadOp,
			DepthStoreOp:    ds.DepthStoreOp,
			DepthClearValue: ds.DepthClearValue,
		}
	}

	return &wgpuRenderPassEncoderImpl{pass: e.encoder.BeginRenderPass(descriptor)}, nil
}

func (e *wgpuCommandEncoderImpl) Finish() (CommandBuffer, error) {
	cb, err := e.encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuCommandBufferImpl{buffer: cb}, nil
}

func (e *wgpuCommandEncoderImpl) Release() {
	if e.encoder != nil {
		e.encoder.Release()
		e.encoder = nil
	}
}

type wgpuRenderPassEncoderImpl struct {
	pass *wgpu.RenderPassEncoder
}

func (p *wgpuRenderPassEncoderImpl) SetPipeline(rp RenderPipeline) {
	if impl, ok := rp.(*wgpuRenderPipelineImpl); ok {
		p.pass.SetPipeline(impl.pipeline)
	}
}

func (p *wgpuRenderPassEncoderImpl) SetBindGroup(group uint32, bg BindGroup) {
	if impl, ok := bg.(*wgpuBindGroupImpl); ok {
		p.pass.SetBindGroup(group, impl.bindGroup, nil)
	}
}

func (p *wgpuRenderPassEncoderImpl) SetVertexBuffer(slot uint32, buf Buffer) {
	if impl, ok := buf.(*wgpuBufferImpl); ok {
		p.pass.SetVertexBuffer(slot, impl.buffer, 0, wgpu.WholeSize)
	}
}

func (p *wgpuRenderPassEncoderImpl) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *wgpuRenderPassEncoderImpl) End() error {
	err := p.pass.End()
	p.pass.Release()
	return err
}
