package scheduler

import (
	"github.com/Carmen-Shannon/oxy-loop/engine/geometry"
	"github.com/Carmen-Shannon/oxy-loop/engine/pipeline"
	"github.com/Carmen-Shannon/oxy-loop/engine/render_target"
	"github.com/Carmen-Shannon/oxy-loop/engine/surface"
	"github.com/cogentcore/webgpu/wgpu"
)

// SchedulerBuilderOption is a functional option for configuring a Scheduler.
type SchedulerBuilderOption func(*scheduler)

// WithHost sets the host the scheduler measures and polls for liveness. Required.
//
// Parameters:
//   - h: the host owning the surface
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithHost(h Host) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.host = h
	}
}

// WithSurface sets the surface manager frames are presented through. Required.
//
// Parameters:
//   - m: the surface manager
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithSurface(m surface.Manager) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.surface = m
	}
}

// WithPipeline sets the pipeline every frame draws with. Required.
//
// Parameters:
//   - p: the render pipeline
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithPipeline(p pipeline.Pipeline) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.pipeline = p
	}
}

// WithGeometry sets the geometry drawn every frame. Required.
//
// Parameters:
//   - g: the geometry buffer, uploaded on Start if it has vertex data
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithGeometry(g geometry.Buffer) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.geometry = g
	}
}

// WithTargets replaces the render target set. Defaults to an empty render_target.NewSet().
//
// Parameters:
//   - t: the render target set
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithTargets(t render_target.Set) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.targets = t
	}
}

// WithClock replaces the animation clock. Defaults to NewClock().
//
// Parameters:
//   - c: the clock
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithClock(c Clock) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.clock = c
	}
}

// WithSampleCount sets the sample count of the render targets. Defaults to the pipeline's sample count.
//
// Parameters:
//   - n: the sample count
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithSampleCount(n uint32) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.sampleCount = n
	}
}

// WithDepthFormat allocates a depth target of the given format. Without it the targets have no depth.
//
// Parameters:
//   - f: the depth texture format
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithDepthFormat(f wgpu.TextureFormat) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.depthFormat = &f
	}
}

// WithAlphaMode sets the alpha mode the surface is configured with. Defaults to opaque.
//
// Parameters:
//   - m: the composite alpha mode
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithAlphaMode(m wgpu.CompositeAlphaMode) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.alphaMode = m
	}
}

// WithClearColor sets the color every pass clears to.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithClearColor(c wgpu.Color) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.clearColor = &c
	}
}

// WithFrameCallback registers a function called after every presented frame.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithFrameCallback(fn func()) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.onFrame = fn
	}
}
