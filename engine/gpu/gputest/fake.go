// Package gputest provides a recording implementation of the gpu abstraction for tests.
//
// The fake performs no rendering. It tracks every created resource, every queued write and every
// encoded render pass, and records an ordered operation log so tests can assert on sequencing
// (destroy before create, write before submit). Failures can be injected per call.
package gputest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrInjected is returned by fake calls configured to fail.
var ErrInjected = errors.New("injected failure")

// Device is a recording gpu.Device.
type Device struct {
	mu sync.Mutex

	// Format is returned by PreferredFormat.
	Format wgpu.TextureFormat

	// TextureErr, when set, is consulted before every texture creation.
	TextureErr func(desc *gpu.TextureDescriptor) error

	// ShaderErr, when set, is consulted before every shader module creation.
	ShaderErr func(desc *gpu.ShaderModuleDescriptor) error

	Textures   []*Texture
	Buffers    []*Buffer
	Shaders    []*ShaderModule
	Pipelines  []*RenderPipeline
	BindGroups []*BindGroup
	Encoders   []*CommandEncoder

	// Ops is the ordered log of recorded operations.
	Ops []string

	queue    *Queue
	released bool
}

var _ gpu.Device = &Device{}

// NewDevice creates a fake device presenting in BGRA8UnormSrgb.
func NewDevice() *Device {
	d := &Device{Format: wgpu.TextureFormatBGRA8UnormSrgb}
	d.queue = &Queue{device: d}
	return d
}

func (d *Device) record(format string, args ...any) {
	d.Ops = append(d.Ops, fmt.Sprintf(format, args...))
}

// Released reports whether Release was called.
func (d *Device) Released() bool {
	return d.released
}

func (d *Device) Queue() gpu.Queue {
	return d.queue
}

// FakeQueue returns the concrete queue for inspection.
func (d *Device) FakeQueue() *Queue {
	return d.queue
}

func (d *Device) PreferredFormat() wgpu.TextureFormat {
	return d.Format
}

func (d *Device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := &Buffer{Label: desc.Label, Usage: desc.Usage, Data: make([]byte, desc.Size)}
	d.Buffers = append(d.Buffers, b)
	d.record("create buffer %s", desc.Label)
	return b, nil
}

func (d *Device) CreateBufferInit(desc *gpu.BufferDescriptor, contents []byte) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data := make([]byte, len(contents))
	copy(data, contents)
	b := &Buffer{Label: desc.Label, Usage: desc.Usage, Data: data, Initialized: true}
	d.Buffers = append(d.Buffers, b)
	d.record("create buffer %s", desc.Label)
	return b, nil
}

func (d *Device) CreateTexture(desc *gpu.TextureDescriptor) (gpu.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.TextureErr != nil {
		if err := d.TextureErr(desc); err != nil {
			return nil, err
		}
	}
	t := &Texture{Desc: *desc, device: d}
	if t.Desc.SampleCount == 0 {
		t.Desc.SampleCount = 1
	}
	d.Textures = append(d.Textures, t)
	d.record("create texture %s %dx%d", desc.Label, desc.Width, desc.Height)
	return t, nil
}

func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ShaderErr != nil {
		if err := d.ShaderErr(desc); err != nil {
			return nil, err
		}
	}
	m := &ShaderModule{label: desc.Label, Code: desc.Code}
	d.Shaders = append(d.Shaders, m)
	d.record("create shader %s", desc.Label)
	return m, nil
}

func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := &RenderPipeline{Desc: *desc}
	d.Pipelines = append(d.Pipelines, p)
	d.record("create pipeline %s", desc.Label)
	return p, nil
}

func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	bg := &BindGroup{Desc: *desc}
	d.BindGroups = append(d.BindGroups, bg)
	d.record("create bind group %s", desc.Label)
	return bg, nil
}

func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e := &CommandEncoder{Label: label, device: d}
	d.Encoders = append(d.Encoders, e)
	return e, nil
}

func (d *Device) Release() {
	d.released = true
}

// LiveTextures returns the created textures that have not been destroyed.
func (d *Device) LiveTextures() []*Texture {
	live := make([]*Texture, 0, len(d.Textures))
	for _, t := range d.Textures {
		if !t.Destroyed {
			live = append(live, t)
		}
	}
	return live
}

// LiveColorTextures returns the live textures with a color format.
func (d *Device) LiveColorTextures() []*Texture {
	var out []*Texture
	for _, t := range d.LiveTextures() {
		if !IsDepthFormat(t.Desc.Format) {
			out = append(out, t)
		}
	}
	return out
}

// LiveDepthTextures returns the live textures with a depth format.
func (d *Device) LiveDepthTextures() []*Texture {
	var out []*Texture
	for _, t := range d.LiveTextures() {
		if IsDepthFormat(t.Desc.Format) {
			out = append(out, t)
		}
	}
	return out
}

// Passes returns every render pass begun on the device, in order.
func (d *Device) Passes() []*RenderPass {
	var out []*RenderPass
	for _, e := range d.Encoders {
		out = append(out, e.Passes...)
	}
	return out
}

// IsDepthFormat reports whether f is a depth or depth-stencil format.
func IsDepthFormat(f wgpu.TextureFormat) bool {
	switch f {
	case wgpu.TextureFormatDepth16Unorm,
		wgpu.TextureFormatDepth24Plus,
		wgpu.TextureFormatDepth24PlusStencil8,
		wgpu.TextureFormatDepth32Float,
		wgpu.TextureFormatDepth32FloatStencil8:
		return true
	}
	return false
}

// Write is one recorded queue write.
type Write struct {
	Buffer *Buffer
	Offset uint64
	Data   []byte
}

// Queue is a recording gpu.Queue.
type Queue struct {
	device *Device

	// WriteErr, when set, is returned by WriteBuffer.
	WriteErr error

	Writes  []Write
	Submits int
}

func (q *Queue) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	if q.WriteErr != nil {
		return q.WriteErr
	}
	b, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("buffer was not created by the fake device")
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		return fmt.Errorf("write of %d bytes at %d overflows buffer %s of %d bytes", len(data), offset, b.Label, len(b.Data))
	}
	copy(b.Data[offset:], data)

	recorded := make([]byte, len(data))
	copy(recorded, data)
	q.Writes = append(q.Writes, Write{Buffer: b, Offset: offset, Data: recorded})
	q.device.record("write buffer %s", b.Label)
	return nil
}

func (q *Queue) Submit(cmds ...gpu.CommandBuffer) {
	q.Submits++
	q.device.record("submit %d", len(cmds))
}

// Buffer is a recording gpu.Buffer backed by host memory.
type Buffer struct {
	Label       string
	Usage       wgpu.BufferUsage
	Data        []byte
	Initialized bool
	Destroyed   bool
}

func (b *Buffer) Size() uint64 {
	return uint64(len(b.Data))
}

func (b *Buffer) Destroy() {
	b.Destroyed = true
}

// Texture is a recording gpu.Texture.
type Texture struct {
	Desc      gpu.TextureDescriptor
	Destroyed bool
	Views     []*TextureView

	// Frame is true for textures handed out by a Surface.
	Frame bool

	device *Device
}

func (t *Texture) CreateView() (gpu.TextureView, error) {
	if t.Destroyed {
		return nil, fmt.Errorf("texture %s was destroyed", t.Desc.Label)
	}
	v := &TextureView{Texture: t}
	t.Views = append(t.Views, v)
	return v, nil
}

func (t *Texture) Width() uint32 {
	return t.Desc.Width
}

func (t *Texture) Height() uint32 {
	return t.Desc.Height
}

func (t *Texture) SampleCount() uint32 {
	return t.Desc.SampleCount
}

func (t *Texture) Format() wgpu.TextureFormat {
	return t.Desc.Format
}

func (t *Texture) Destroy() {
	if t.Destroyed {
		return
	}
	t.Destroyed = true
	if t.device != nil && !t.Frame {
		t.device.record("destroy texture %s", t.Desc.Label)
	}
}

// TextureView is a recording gpu.TextureView.
type TextureView struct {
	Texture  *Texture
	Released bool
}

func (v *TextureView) Release() {
	v.Released = true
}

// ShaderModule is a recording gpu.ShaderModule.
type ShaderModule struct {
	label    string
	Code     string
	Released bool
}

func (m *ShaderModule) Label() string {
	return m.label
}

func (m *ShaderModule) Release() {
	m.Released = true
}

// RenderPipeline is a recording gpu.RenderPipeline.
type RenderPipeline struct {
	Desc     gpu.RenderPipelineDescriptor
	Released bool
}

func (p *RenderPipeline) Label() string {
	return p.Desc.Label
}

func (p *RenderPipeline) Release() {
	p.Released = true
}

// BindGroup is a recording gpu.BindGroup.
type BindGroup struct {
	Desc     gpu.BindGroupDescriptor
	Released bool
}

func (b *BindGroup) Release() {
	b.Released = true
}

// CommandBuffer is a recording gpu.CommandBuffer.
type CommandBuffer struct {
	Released bool
}

func (c *CommandBuffer) Release() {
	c.Released = true
}

// CommandEncoder is a recording gpu.CommandEncoder.
type CommandEncoder struct {
	Label    string
	Passes   []*RenderPass
	Finished bool
	Released bool

	device *Device
}

func (e *CommandEncoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.RenderPassEncoder, error) {
	p := &RenderPass{Desc: *desc}
	e.Passes = append(e.Passes, p)
	e.device.record("begin pass")
	return p, nil
}

func (e *CommandEncoder) Finish() (gpu.CommandBuffer, error) {
	e.Finished = true
	return &CommandBuffer{}, nil
}

func (e *CommandEncoder) Release() {
	e.Released = true
}

// Draw is one recorded draw call.
type Draw struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// RenderPass is a recording gpu.RenderPassEncoder. Commands lists the encoded calls in order.
type RenderPass struct {
	Desc          gpu.RenderPassDescriptor
	Pipeline      gpu.RenderPipeline
	BindGroups    map[uint32]gpu.BindGroup
	VertexBuffers map[uint32]gpu.Buffer
	Draws         []Draw
	Commands      []string
	Ended         bool
}

func (p *RenderPass) SetPipeline(rp gpu.RenderPipeline) {
	p.Pipeline = rp
	p.Commands = append(p.Commands, "SetPipeline")
}

func (p *RenderPass) SetBindGroup(group uint32, bg gpu.BindGroup) {
	if p.BindGroups == nil {
		p.BindGroups = map[uint32]gpu.BindGroup{}
	}
	p.BindGroups[group] = bg
	p.Commands = append(p.Commands, "SetBindGroup")
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buf gpu.Buffer) {
	if p.VertexBuffers == nil {
		p.VertexBuffers = map[uint32]gpu.Buffer{}
	}
	p.VertexBuffers[slot] = buf
	p.Commands = append(p.Commands, "SetVertexBuffer")
}

func (p *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.Draws = append(p.Draws, Draw{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
	p.Commands = append(p.Commands, "Draw")
}

func (p *RenderPass) End() error {
	if p.Ended {
		return fmt.Errorf("render pass already ended")
	}
	p.Ended = true
	return nil
}

// Surface is a recording gpu.Surface. Frame textures match the last configured size and format.
type Surface struct {
	// ConfigureErr, when set, is consulted before every Configure.
	ConfigureErr func(config *gpu.SurfaceConfiguration) error

	// AcquireErr, when set, is returned by GetCurrentTexture.
	AcquireErr error

	// Lost makes GetCurrentTexture fail with gpu.ErrSurfaceLost.
	Lost bool

	Configs   []gpu.SurfaceConfiguration
	Frames    []*Texture
	Presented int
	Released  bool

	device *Device
}

var _ gpu.Surface = &Surface{}

// NewSurface creates a fake surface that records its operations into d's log.
func NewSurface(d *Device) *Surface {
	return &Surface{device: d}
}

// Config returns the last applied configuration, or nil if none was applied.
func (s *Surface) Config() *gpu.SurfaceConfiguration {
	if len(s.Configs) == 0 {
		return nil
	}
	return &s.Configs[len(s.Configs)-1]
}

func (s *Surface) Configure(device gpu.Device, config *gpu.SurfaceConfiguration) error {
	if s.ConfigureErr != nil {
		if err := s.ConfigureErr(config); err != nil {
			return err
		}
	}
	s.Configs = append(s.Configs, *config)
	if s.device != nil {
		s.device.record("configure surface %dx%d", config.Width, config.Height)
	}
	return nil
}

func (s *Surface) GetCurrentTexture() (gpu.Texture, error) {
	if s.Lost {
		return nil, gpu.ErrSurfaceLost
	}
	if s.AcquireErr != nil {
		return nil, s.AcquireErr
	}
	cfg := s.Config()
	if cfg == nil {
		return nil, fmt.Errorf("surface not configured")
	}
	t := &Texture{
		Desc: gpu.TextureDescriptor{
			Label:       "surface frame",
			Width:       cfg.Width,
			Height:      cfg.Height,
			SampleCount: 1,
			Format:      cfg.Format,
			Usage:       cfg.Usage,
		},
		Frame:  true,
		device: s.device,
	}
	s.Frames = append(s.Frames, t)
	return t, nil
}

func (s *Surface) Present() {
	s.Presented++
	if s.device != nil {
		s.device.record("present")
	}
}

func (s *Surface) Release() {
	s.Released = true
}
