// Package scheduler runs the frame loop: each tick it follows the host's size, keeps the surface
// and render targets in step with it, updates the uniforms and encodes a single draw.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-loop/engine/geometry"
	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/Carmen-Shannon/oxy-loop/engine/pipeline"
	"github.com/Carmen-Shannon/oxy-loop/engine/render_target"
	"github.com/Carmen-Shannon/oxy-loop/engine/surface"
	"github.com/Carmen-Shannon/oxy-loop/engine/transform"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

// State is the lifecycle state of a Scheduler.
type State int

const (
	StateUninitialized State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Host is the owner of the presentation surface, such as a window.
type Host interface {
	// Alive reports whether the host still exists. Once false the scheduler stops.
	Alive() bool

	// Size returns the current pixel size of the region the surface presents to.
	Size() (width, height int)
}

// Stats counts what the scheduler has done since Start.
type Stats struct {
	Ticks   uint64
	Frames  uint64
	Skipped uint64
	Resizes uint64
	State   State
}

type scheduler struct {
	device   gpu.Device
	host     Host
	surface  surface.Manager
	targets  render_target.Set
	pipeline pipeline.Pipeline
	geometry geometry.Buffer
	clock    Clock

	sampleCount uint32
	depthFormat *wgpu.TextureFormat
	alphaMode   wgpu.CompositeAlphaMode
	clearColor  *wgpu.Color

	uniform   gpu.Buffer
	bindGroup gpu.BindGroup
	mvp       mgl32.Mat4

	state   State
	stats   Stats
	stopReq atomic.Bool
	err     error
	onFrame func()
}

// Scheduler drives one pipeline and one draw per tick against a surface whose size may change
// between ticks. It is not safe for concurrent use apart from Stop.
type Scheduler interface {
	// Start validates the configuration, uploads the geometry, creates the uniform buffer and bind
	// group, configures the surface at the host's current size and moves to StateRunning.
	//
	// Returns:
	//   - error: a startup error; ErrSampleCountMismatch, ErrDepthStencilMismatch or
	//     ErrIncompatibleBindGroupLayout for configuration bugs
	Start() error

	// Tick runs one iteration of the loop. A failed frame is logged and skipped; the loop only
	// stops when the host is gone, Stop was called, or the surface is lost.
	//
	// Returns:
	//   - bool: false once the scheduler is stopped
	Tick() bool

	// Run starts the scheduler if needed and ticks once per value received on frames until the
	// scheduler stops, frames is closed, or ctx is done.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//   - frames: the tick source, such as a time.Ticker channel
	//
	// Returns:
	//   - error: a startup error or ctx.Err(); nil when the scheduler stopped on its own
	Run(ctx context.Context, frames <-chan time.Time) error

	// Stop requests a stop. It is observed at the start of the next tick. Safe to call from any goroutine.
	Stop()

	// State returns the lifecycle state.
	State() State

	// Stats returns a snapshot of the counters.
	Stats() Stats

	// Err returns the error that stopped the scheduler, if any.
	Err() error

	// Release frees the uniform buffer, the bind group and the render targets.
	Release()
}

var _ Scheduler = &scheduler{}

// NewScheduler creates a Scheduler with the given options applied.
//
// Parameters:
//   - device: the device every resource is created on
//   - options: functional options applied in order
//
// Returns:
//   - Scheduler: the scheduler, in StateUninitialized
func NewScheduler(device gpu.Device, options ...SchedulerBuilderOption) Scheduler {
	s := &scheduler{
		device:    device,
		alphaMode: wgpu.CompositeAlphaModeOpaque,
		state:     StateUninitialized,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.targets == nil {
		s.targets = render_target.NewSet()
	}
	if s.clock == nil {
		s.clock = NewClock()
	}
	if s.clearColor != nil {
		s.targets.SetClearColor(*s.clearColor)
	}
	return s
}

func (s *scheduler) Start() error {
	if s.state != StateUninitialized {
		return fmt.Errorf("scheduler: start in state %s", s.state)
	}
	switch {
	case s.device == nil:
		return errors.New("scheduler: no device")
	case s.host == nil:
		return errors.New("scheduler: no host")
	case s.surface == nil:
		return errors.New("scheduler: no surface")
	case s.pipeline == nil:
		return errors.New("scheduler: no pipeline")
	case s.geometry == nil:
		return errors.New("scheduler: no geometry")
	}

	if s.sampleCount == 0 {
		s.sampleCount = s.pipeline.SampleCount()
	}
	if err := s.pipeline.CheckTargets(s.sampleCount, s.depthFormat); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := s.geometry.Upload(s.device); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := s.createBindings(); err != nil {
		return err
	}

	if w, h := s.host.Size(); w > 0 && h > 0 && !s.surface.Configured() {
		if err := s.surface.Configure(s.device, s.pipeline.ColorFormat(), uint32(w), uint32(h), s.alphaMode); err != nil {
			return fmt.Errorf("scheduler: initial configure: %w", err)
		}
	}

	s.state = StateRunning
	log.WithFields(log.Fields{
		"pipeline":    s.pipeline.Key(),
		"sampleCount": s.sampleCount,
		"depth":       s.depthFormat != nil,
		"vertices":    s.geometry.VertexCount(),
	}).Info("frame loop running")
	return nil
}

// createBindings creates the uniform buffer and the group 0 bind group when the pipeline's
// shaders declare uniforms. Only a single group of uniform bindings is supported, all fed by the
// per-frame matrix.
func (s *scheduler) createBindings() error {
	groups := s.pipeline.Groups()
	if len(groups) == 0 {
		return nil
	}
	if len(groups) != 1 || groups[0] != 0 {
		return fmt.Errorf("scheduler: pipeline %s binds groups %v, only group 0 is fed: %w",
			s.pipeline.Key(), groups, gpu.ErrIncompatibleBindGroupLayout)
	}

	uniform, err := s.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: "Uniform Buffer",
		Size:  transform.MatrixSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("scheduler: create uniform buffer: %w", err)
	}

	layout := s.pipeline.BindGroupLayout(0)
	entries := make([]gpu.BindGroupEntry, 0, len(layout))
	for _, b := range layout {
		entries = append(entries, gpu.BindGroupEntry{Binding: b.Binding, Buffer: uniform, Size: transform.MatrixSize})
	}
	bg, err := s.pipeline.NewBindGroup(s.device, 0, entries)
	if err != nil {
		uniform.Destroy()
		return fmt.Errorf("scheduler: %w", err)
	}

	s.uniform, s.bindGroup = uniform, bg
	return nil
}

func (s *scheduler) Tick() bool {
	if s.state != StateRunning {
		return false
	}
	if s.stopReq.Load() {
		s.stop(nil, "stop requested")
		return false
	}
	if !s.host.Alive() {
		s.stop(nil, "host closed")
		return false
	}

	s.stats.Ticks++
	w, h := s.host.Size()
	if w <= 0 || h <= 0 {
		s.stats.Skipped++
		return true
	}

	if err := s.frame(uint32(w), uint32(h)); err != nil {
		if errors.Is(err, gpu.ErrSurfaceLost) {
			s.stop(err, "surface lost")
			return false
		}
		s.stats.Skipped++
		log.WithFields(log.Fields{
			"tick":  s.stats.Ticks,
			"error": err,
		}).Warn("frame skipped")
		return true
	}

	s.stats.Frames++
	if s.onFrame != nil {
		s.onFrame()
	}
	return true
}

// frame renders one frame at the given size.
func (s *scheduler) frame(width, height uint32) error {
	if err := s.syncSize(width, height); err != nil {
		return err
	}

	if s.uniform != nil {
		elapsed := float32(s.clock.Elapsed().Seconds())
		transform.ComputeMVP(&s.mvp, elapsed, transform.Aspect(width, height))
		if err := s.device.Queue().WriteBuffer(s.uniform, 0, transform.Bytes(&s.mvp)); err != nil {
			return fmt.Errorf("scheduler: write uniforms: %w", err)
		}
	}

	frameTex, err := s.surface.AcquireFrame()
	if err != nil {
		return err
	}
	views, frameView, err := s.targets.Attachments(frameTex)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	defer frameView.Release()

	if err := s.pipeline.CheckTargets(s.targets.SampleCount(), s.targets.DepthFormat()); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	encoder, err := s.device.CreateCommandEncoder("Frame Encoder")
	if err != nil {
		return fmt.Errorf("scheduler: create encoder: %w", err)
	}
	defer encoder.Release()

	color := gpu.ColorAttachment{
		View:          views.View,
		ResolveTarget: views.ResolveTarget,
		LoadOp:        wgpu.LoadOpClear,
		StoreOp:       wgpu.StoreOpStore,
		ClearValue:    s.targets.ClearColor(),
	}
	desc := &gpu.RenderPassDescriptor{
		Label:            "Frame Pass",
		ColorAttachments: []gpu.ColorAttachment{color},
	}
	if depth := s.targets.DepthView(); depth != nil {
		desc.DepthStencilAttachment = &gpu.DepthStencilAttachment{
			View:            depth,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
	}

	pass, err := encoder.BeginRenderPass(desc)
	if err != nil {
		return fmt.Errorf("scheduler: begin pass: %w", err)
	}
	pass.SetPipeline(s.pipeline.RenderPipeline())
	if s.bindGroup != nil {
		pass.SetBindGroup(0, s.bindGroup)
	}
	if vb := s.geometry.GPUBuffer(); vb != nil {
		pass.SetVertexBuffer(0, vb)
	}
	pass.Draw(s.geometry.VertexCount(), 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("scheduler: end pass: %w", err)
	}

	cmd, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("scheduler: finish encoder: %w", err)
	}
	defer cmd.Release()

	s.device.Queue().Submit(cmd)
	s.surface.Present()
	return nil
}

// syncSize brings the surface and the render targets to the given size. It runs when the host
// reports a new size and on every tick after a failed attempt, until both match.
func (s *scheduler) syncSize(width, height uint32) error {
	changed := s.surface.CheckResize(int(width), int(height))
	inSync := s.surface.Configured() &&
		s.surface.Width() == width && s.surface.Height() == height &&
		s.targets.Width() == width && s.targets.Height() == height &&
		s.targets.SampleCount() == s.sampleCount
	if !changed && inSync {
		return nil
	}

	if !s.surface.Configured() {
		if err := s.surface.Configure(s.device, s.pipeline.ColorFormat(), width, height, s.alphaMode); err != nil {
			return err
		}
	} else if s.surface.Width() != width || s.surface.Height() != height {
		if err := s.surface.Reconfigure(width, height); err != nil {
			return err
		}
	}

	if err := s.targets.Rebuild(s.device, width, height, s.sampleCount, s.surface.Format(), s.depthFormat); err != nil {
		return err
	}

	s.stats.Resizes++
	log.WithFields(log.Fields{
		"width":  width,
		"height": height,
	}).Debug("resized")
	return nil
}

func (s *scheduler) stop(err error, reason string) {
	s.state = StateStopped
	s.err = err
	entry := log.WithField("reason", reason)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Info("frame loop stopped")
}

func (s *scheduler) Run(ctx context.Context, frames <-chan time.Time) error {
	if s.state == StateUninitialized {
		if err := s.Start(); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			if s.state == StateRunning {
				s.stop(nil, "context done")
			}
			return ctx.Err()
		case _, ok := <-frames:
			if !ok {
				return nil
			}
			if !s.Tick() {
				return nil
			}
		}
	}
}

func (s *scheduler) Stop() {
	s.stopReq.Store(true)
}

func (s *scheduler) State() State {
	return s.state
}

func (s *scheduler) Stats() Stats {
	st := s.stats
	st.State = s.state
	return st
}

func (s *scheduler) Err() error {
	return s.err
}

func (s *scheduler) Release() {
	if s.bindGroup != nil {
		s.bindGroup.Release()
		s.bindGroup = nil
	}
	if s.uniform != nil {
		s.uniform.Destroy()
		s.uniform = nil
	}
	s.targets.Release()
}
