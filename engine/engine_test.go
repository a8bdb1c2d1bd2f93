package engine

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-loop/common"
	"github.com/Carmen-Shannon/oxy-loop/engine/config"
	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/Carmen-Shannon/oxy-loop/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-loop/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-loop/engine/shader"
	"github.com/Carmen-Shannon/oxy-loop/engine/variant"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	width, height int
	closed        bool
}

func (h *fakeHost) Alive() bool {
	return !h.closed
}

func (h *fakeHost) Size() (int, int) {
	return h.width, h.height
}

type missingSource struct{}

func (missingSource) Load(name string) (string, error) {
	return "", &shader.ShaderLoadError{Name: name, Err: errors.New("not found")}
}

func params(t *testing.T, name string) (loopParams, *gputest.Device, *gputest.Surface, *fakeHost) {
	t.Helper()
	v, err := variant.Lookup(name)
	require.NoError(t, err)
	d := gputest.NewDevice()
	s := gputest.NewSurface(d)
	h := &fakeHost{width: 800, height: 600}
	return loopParams{
		device:      d,
		surface:     s,
		host:        h,
		source:      shader.EmbeddedSource{},
		variant:     v,
		presentMode: wgpu.PresentModeFifo,
	}, d, s, h
}

func TestNewLoopRunsEveryVariant(t *testing.T) {
	for _, name := range variant.Names() {
		t.Run(name, func(t *testing.T) {
			p, d, s, h := params(t, name)
			l, err := newLoop(p)
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				require.True(t, l.scheduler.Tick())
			}
			h.width, h.height = 400, 300
			require.True(t, l.scheduler.Tick())

			assert.Equal(t, 4, s.Presented)
			assert.Equal(t, p.variant.AlphaMode, s.Config().AlphaMode)
			assert.Equal(t, uint32(400), s.Config().Width)

			pass := d.Passes()[len(d.Passes())-1]
			assert.Equal(t, p.variant.Geometry().VertexCount(), pass.Draws[0].VertexCount)
			assert.Equal(t, p.variant.DepthFormat != nil, pass.Desc.DepthStencilAttachment != nil)
			assert.Equal(t, p.variant.SampleCount > 1, pass.Desc.ColorAttachments[0].ResolveTarget != nil)

			l.release()
			assert.Empty(t, d.LiveTextures())
			assert.True(t, s.Released)
			for _, b := range d.Buffers {
				assert.True(t, b.Destroyed)
			}
		})
	}
}

func TestNewLoopShaderLoadFailure(t *testing.T) {
	p, d, _, _ := params(t, variant.RotatingCube)
	p.source = missingSource{}

	_, err := newLoop(p)
	assert.ErrorIs(t, err, gpu.ErrShaderLoad)
	var loadErr *shader.ShaderLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "cube.vert.wgsl", loadErr.Name)
	assert.Empty(t, d.Pipelines)
}

func TestNewLoopSampleCountMismatch(t *testing.T) {
	p, d, _, _ := params(t, variant.Triangle)
	p.options = []scheduler.SchedulerBuilderOption{scheduler.WithSampleCount(4)}

	_, err := newLoop(p)
	assert.ErrorIs(t, err, gpu.ErrSampleCountMismatch)
	require.Len(t, d.Pipelines, 1)
	assert.True(t, d.Pipelines[0].Released)
}

func TestNewLoopSurfaceLost(t *testing.T) {
	p, _, s, _ := params(t, variant.RotatingCube)
	l, err := newLoop(p)
	require.NoError(t, err)
	require.True(t, l.scheduler.Tick())

	s.Lost = true
	assert.False(t, l.scheduler.Tick())
	assert.ErrorIs(t, l.scheduler.Err(), gpu.ErrSurfaceLost)
}

func TestSourceFor(t *testing.T) {
	assert.IsType(t, shader.EmbeddedSource{}, sourceFor(""))
	assert.IsType(t, &shader.BoxSource{}, sourceFor("./shaders"))
}

func TestEngineOptions(t *testing.T) {
	v, err := variant.Lookup(variant.Resize)
	require.NoError(t, err)
	cfg := config.Config{Variant: variant.Triangle, Width: 10, Height: 10}

	e := NewEngine(WithConfig(cfg), WithVariant(v), WithProfiling(true), WithShaderSource(missingSource{})).(*engine)
	assert.Equal(t, variant.Resize, e.variant.Name)
	assert.Equal(t, variant.Triangle, e.cfg.Variant)
	assert.True(t, e.profilingEnabled)
	assert.IsType(t, missingSource{}, e.source)
	assert.Nil(t, e.Window())
}

func TestRunBeforeInit(t *testing.T) {
	e := NewEngine()
	assert.Error(t, e.Run())
	assert.Equal(t, scheduler.Stats{}, e.Stats())
	e.Quit()
}

func TestHandleKeyTogglesProfiler(t *testing.T) {
	e := NewEngine().(*engine)
	e.handleKey(common.KeyP)
	assert.True(t, e.profilingEnabled)
	e.handleKey(common.KeyI)
	e.handleKey(common.KeyP)
	assert.False(t, e.profilingEnabled)

	e.EnableProfiler()
	assert.True(t, e.profilingEnabled)
	e.DisableProfiler()
	assert.False(t, e.profilingEnabled)
}
