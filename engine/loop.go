package engine

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-loop/engine/geometry"
	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/Carmen-Shannon/oxy-loop/engine/pipeline"
	"github.com/Carmen-Shannon/oxy-loop/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-loop/engine/shader"
	"github.com/Carmen-Shannon/oxy-loop/engine/surface"
	"github.com/Carmen-Shannon/oxy-loop/engine/variant"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	vertexKey   = "vertex"
	fragmentKey = "fragment"
)

// loop is everything one variant renders with.
type loop struct {
	pipeline  pipeline.Pipeline
	geometry  geometry.Buffer
	surface   surface.Manager
	scheduler scheduler.Scheduler
}

// loopParams are the collaborators a loop is built from.
type loopParams struct {
	device      gpu.Device
	surface     gpu.Surface
	host        scheduler.Host
	source      shader.Source
	variant     variant.Variant
	presentMode wgpu.PresentMode
	options     []scheduler.SchedulerBuilderOption
}

// newLoop loads the variant's shaders, builds its pipeline and geometry, and starts a scheduler
// over them. Any error is a startup error.
func newLoop(p loopParams) (*loop, error) {
	v := p.variant
	shaders, err := shader.NewLoader(p.source).LoadAll(
		shader.Request{Key: vertexKey, Name: v.VertexShader, Type: shader.ShaderTypeVertex},
		shader.Request{Key: fragmentKey, Name: v.FragmentShader, Type: shader.ShaderTypeFragment},
	)
	if err != nil {
		return nil, err
	}

	g := v.Geometry()
	pipelineOpts := []pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(shaders[vertexKey]),
		pipeline.WithFragmentShader(shaders[fragmentKey]),
		pipeline.WithCullMode(v.CullMode),
		pipeline.WithSampleCount(v.SampleCount),
		pipeline.WithColorFormat(p.device.PreferredFormat()),
	}
	if layout := g.Layout(); layout != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithVertexLayout(*layout))
	}
	if v.DepthFormat != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithDepthStencil(*v.DepthFormat))
	}
	pl, err := pipeline.NewBuilder(v.Name, pipelineOpts...).Build(p.device)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", v.Name, err)
	}

	m := surface.NewManager(p.surface, p.presentMode)
	schedOpts := []scheduler.SchedulerBuilderOption{
		scheduler.WithHost(p.host),
		scheduler.WithSurface(m),
		scheduler.WithPipeline(pl),
		scheduler.WithGeometry(g),
		scheduler.WithSampleCount(v.SampleCount),
		scheduler.WithAlphaMode(v.AlphaMode),
	}
	if v.DepthFormat != nil {
		schedOpts = append(schedOpts, scheduler.WithDepthFormat(*v.DepthFormat))
	}
	s := scheduler.NewScheduler(p.device, append(schedOpts, p.options...)...)
	if err := s.Start(); err != nil {
		s.Release()
		g.Release()
		pl.Release()
		return nil, fmt.Errorf("variant %s: %w", v.Name, err)
	}

	return &loop{pipeline: pl, geometry: g, surface: m, scheduler: s}, nil
}

// release frees every GPU resource of the loop, the surface included.
func (l *loop) release() {
	l.scheduler.Release()
	l.geometry.Release()
	l.pipeline.Release()
	l.surface.Release()
}
