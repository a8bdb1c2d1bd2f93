package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-loop/engine/geometry"
	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/Carmen-Shannon/oxy-loop/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-loop/engine/pipeline"
	"github.com/Carmen-Shannon/oxy-loop/engine/render_target"
	"github.com/Carmen-Shannon/oxy-loop/engine/shader"
	"github.com/Carmen-Shannon/oxy-loop/engine/surface"
	"github.com/Carmen-Shannon/oxy-loop/engine/transform"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
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

type manualClock struct {
	now time.Duration
}

func (c *manualClock) Elapsed() time.Duration {
	return c.now
}

type rig struct {
	device  *gputest.Device
	surface *gputest.Surface
	host    *fakeHost
	clock   *manualClock
	sched   Scheduler
}

func loadShader(t *testing.T, name string, st shader.ShaderType) shader.Shader {
	t.Helper()
	src, err := shader.EmbeddedSource{}.Load(name)
	require.NoError(t, err)
	s, err := shader.NewShader(name, st, src)
	require.NoError(t, err)
	return s
}

// newCubeRig builds the rotating cube setup: 4 samples, depth24plus, back-face culling.
func newCubeRig(t *testing.T, width, height int, extra ...SchedulerBuilderOption) *rig {
	t.Helper()
	d := gputest.NewDevice()
	p, err := pipeline.NewBuilder("cube",
		pipeline.WithVertexShader(loadShader(t, "cube.vert.wgsl", shader.ShaderTypeVertex)),
		pipeline.WithFragmentShader(loadShader(t, "cube.frag.wgsl", shader.ShaderTypeFragment)),
		pipeline.WithVertexLayout(geometry.CubeLayout()),
		pipeline.WithCullMode(wgpu.CullModeBack),
		pipeline.WithSampleCount(4),
		pipeline.WithDepthStencil(wgpu.TextureFormatDepth24Plus),
	).Build(d)
	require.NoError(t, err)

	return newRig(t, d, p, geometry.Cube(), width, height,
		append([]SchedulerBuilderOption{WithDepthFormat(wgpu.TextureFormatDepth24Plus)}, extra...)...)
}

func newTriangleRig(t *testing.T, sampleCount uint32, width, height int, extra ...SchedulerBuilderOption) *rig {
	t.Helper()
	d := gputest.NewDevice()
	p, err := pipeline.NewBuilder("triangle",
		pipeline.WithVertexShader(loadShader(t, "triangle.vert.wgsl", shader.ShaderTypeVertex)),
		pipeline.WithFragmentShader(loadShader(t, "triangle.frag.wgsl", shader.ShaderTypeFragment)),
		pipeline.WithSampleCount(sampleCount),
	).Build(d)
	require.NoError(t, err)

	return newRig(t, d, p, geometry.NewProcedural("triangle", 3), width, height, extra...)
}

func newRig(t *testing.T, d *gputest.Device, p pipeline.Pipeline, g geometry.Buffer, width, height int, extra ...SchedulerBuilderOption) *rig {
	t.Helper()
	r := &rig{
		device:  d,
		surface: gputest.NewSurface(d),
		host:    &fakeHost{width: width, height: height},
		clock:   &manualClock{},
	}
	opts := []SchedulerBuilderOption{
		WithHost(r.host),
		WithSurface(surface.NewManager(r.surface, wgpu.PresentModeFifo)),
		WithPipeline(p),
		WithGeometry(g),
		WithClock(r.clock),
	}
	r.sched = NewScheduler(d, append(opts, extra...)...)
	return r
}

func (r *rig) start(t *testing.T) {
	t.Helper()
	require.NoError(t, r.sched.Start())
	require.Equal(t, StateRunning, r.sched.State())
}

func lastPass(t *testing.T, d *gputest.Device) *gputest.RenderPass {
	t.Helper()
	passes := d.Passes()
	require.NotEmpty(t, passes)
	return passes[len(passes)-1]
}

func viewTexture(t *testing.T, v gpu.TextureView) *gputest.Texture {
	t.Helper()
	fv, ok := v.(*gputest.TextureView)
	require.True(t, ok)
	return fv.Texture
}

func TestStartDefersTargetsToFirstTick(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)

	assert.Empty(t, r.device.Textures)
	require.Len(t, r.surface.Configs, 1)
	cfg := r.surface.Config()
	assert.Equal(t, uint32(800), cfg.Width)
	assert.Equal(t, uint32(600), cfg.Height)
	assert.Equal(t, r.device.Format, cfg.Format)

	// Cube vertices and the uniform buffer.
	require.Len(t, r.device.Buffers, 2)
	assert.True(t, r.device.Buffers[0].Initialized)
	assert.Len(t, r.device.Buffers[0].Data, geometry.CubeVertexSize*geometry.CubeVertexCount)
	assert.Len(t, r.device.Buffers[1].Data, transform.MatrixSize)
	require.Len(t, r.device.BindGroups, 1)

	assert.Error(t, r.sched.Start())
}

func TestFirstTickAllocatesMSAAAndDepth(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)
	require.True(t, r.sched.Tick())

	color := r.device.LiveColorTextures()
	depth := r.device.LiveDepthTextures()
	require.Len(t, color, 1)
	require.Len(t, depth, 1)
	for _, tex := range []*gputest.Texture{color[0], depth[0]} {
		assert.Equal(t, uint32(800), tex.Desc.Width)
		assert.Equal(t, uint32(600), tex.Desc.Height)
		assert.Equal(t, uint32(4), tex.Desc.SampleCount)
	}
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, depth[0].Desc.Format)
	assert.Equal(t, r.device.Format, color[0].Desc.Format)

	pass := lastPass(t, r.device)
	require.Len(t, pass.Desc.ColorAttachments, 1)
	ca := pass.Desc.ColorAttachments[0]
	assert.Same(t, color[0], viewTexture(t, ca.View))
	require.Len(t, r.surface.Frames, 1)
	assert.Same(t, r.surface.Frames[0], viewTexture(t, ca.ResolveTarget))
	assert.Equal(t, wgpu.LoadOpClear, ca.LoadOp)
	assert.Equal(t, wgpu.StoreOpStore, ca.StoreOp)
	assert.Equal(t, wgpu.Color{R: 0, G: 0, B: 0, A: 1}, ca.ClearValue)

	require.NotNil(t, pass.Desc.DepthStencilAttachment)
	ds := pass.Desc.DepthStencilAttachment
	assert.Same(t, depth[0], viewTexture(t, ds.View))
	assert.Equal(t, float32(1), ds.DepthClearValue)
	assert.Equal(t, wgpu.LoadOpClear, ds.DepthLoadOp)
	assert.Equal(t, wgpu.StoreOpStore, ds.DepthStoreOp)

	assert.Equal(t, []string{"SetPipeline", "SetBindGroup", "SetVertexBuffer", "Draw"}, pass.Commands)
	require.Len(t, pass.Draws, 1)
	assert.Equal(t, gputest.Draw{VertexCount: 36, InstanceCount: 1}, pass.Draws[0])
	assert.True(t, pass.Ended)
	assert.Same(t, r.device.Buffers[0], pass.VertexBuffers[0])

	assert.Equal(t, 1, r.device.FakeQueue().Submits)
	assert.Equal(t, 1, r.surface.Presented)
	assert.True(t, r.surface.Frames[0].Views[0].Released)

	st := r.sched.Stats()
	assert.Equal(t, uint64(1), st.Ticks)
	assert.Equal(t, uint64(1), st.Frames)
	assert.Equal(t, uint64(1), st.Resizes)
	assert.Equal(t, StateRunning, st.State)
}

func TestResizeRebuildsBeforeEncoding(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)
	require.True(t, r.sched.Tick())
	old := r.device.LiveTextures()

	r.host.width, r.host.height = 400, 300
	r.device.Ops = nil
	require.True(t, r.sched.Tick())

	assert.Equal(t, []string{
		"configure surface 400x300",
		"destroy texture MSAA Texture",
		"destroy texture Depth Texture",
		"create texture MSAA Texture 400x300",
		"create texture Depth Texture 400x300",
		"write buffer Uniform Buffer",
		"begin pass",
		"submit 1",
		"present",
	}, r.device.Ops)
	for _, tex := range old {
		assert.True(t, tex.Destroyed)
	}
}

func TestTargetsFollowEverySize(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)

	sizes := [][2]int{{800, 600}, {1920, 1080}, {640, 480}, {640, 480}, {1, 1}, {2560, 1440}, {300, 900}}
	for _, size := range sizes {
		r.host.width, r.host.height = size[0], size[1]
		require.True(t, r.sched.Tick())

		w, h := uint32(size[0]), uint32(size[1])
		live := r.device.LiveTextures()
		require.Len(t, live, 2)
		for _, tex := range live {
			assert.Equal(t, w, tex.Desc.Width)
			assert.Equal(t, h, tex.Desc.Height)
		}

		pass := lastPass(t, r.device)
		color := viewTexture(t, pass.Desc.ColorAttachments[0].View)
		resolve := viewTexture(t, pass.Desc.ColorAttachments[0].ResolveTarget)
		depth := viewTexture(t, pass.Desc.DepthStencilAttachment.View)
		for _, tex := range []*gputest.Texture{color, resolve, depth} {
			assert.Equal(t, w, tex.Desc.Width)
			assert.Equal(t, h, tex.Desc.Height)
			assert.False(t, tex.Destroyed)
		}
	}
	assert.Equal(t, uint64(len(sizes)), r.sched.Stats().Frames)
	assert.Equal(t, uint64(len(sizes)-1), r.sched.Stats().Resizes)
}

func TestConstantSizeAllocatesOnce(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)

	for i := 0; i < 100; i++ {
		require.True(t, r.sched.Tick())
	}
	assert.Len(t, r.device.Textures, 2)
	assert.Len(t, r.device.Buffers, 2)
	assert.Len(t, r.surface.Configs, 1)
	assert.Len(t, r.device.FakeQueue().Writes, 100)
	assert.Equal(t, 100, r.surface.Presented)

	uniform := r.device.Buffers[1]
	for _, w := range r.device.FakeQueue().Writes {
		assert.Same(t, uniform, w.Buffer)
	}
}

func TestUniformCarriesFrameTransform(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)

	r.clock.now = 2 * time.Second
	require.True(t, r.sched.Tick())

	var want mgl32.Mat4
	transform.ComputeMVP(&want, 2, transform.Aspect(800, 600))
	writes := r.device.FakeQueue().Writes
	require.Len(t, writes, 1)
	assert.Equal(t, uint64(0), writes[0].Offset)
	assert.Equal(t, transform.Bytes(&want), writes[0].Data)
}

func TestFailedRebuildSkipsAndRetries(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)
	require.True(t, r.sched.Tick())

	r.device.TextureErr = func(*gpu.TextureDescriptor) error { return gputest.ErrInjected }
	r.host.width, r.host.height = 400, 300
	passes := len(r.device.Passes())

	require.True(t, r.sched.Tick())
	assert.Len(t, r.device.Passes(), passes)
	assert.Empty(t, r.device.LiveTextures())
	assert.Equal(t, uint64(1), r.sched.Stats().Skipped)
	assert.Equal(t, StateRunning, r.sched.State())

	// The size did not change again, the rebuild is still retried.
	r.device.TextureErr = nil
	require.True(t, r.sched.Tick())
	live := r.device.LiveTextures()
	require.Len(t, live, 2)
	for _, tex := range live {
		assert.Equal(t, uint32(400), tex.Desc.Width)
	}
	assert.Len(t, r.device.Passes(), passes+1)
}

func TestFailedReconfigureSkipsAndRetries(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)
	require.True(t, r.sched.Tick())

	r.surface.ConfigureErr = func(*gpu.SurfaceConfiguration) error { return gputest.ErrInjected }
	r.host.width, r.host.height = 400, 300
	require.True(t, r.sched.Tick())
	assert.Equal(t, uint64(1), r.sched.Stats().Skipped)

	r.surface.ConfigureErr = nil
	require.True(t, r.sched.Tick())
	assert.Equal(t, uint32(400), r.surface.Config().Width)
	pass := lastPass(t, r.device)
	assert.Equal(t, uint32(400), viewTexture(t, pass.Desc.ColorAttachments[0].View).Desc.Width)
}

func TestZeroSizeSkipsTick(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)
	require.True(t, r.sched.Tick())

	r.host.width = 0
	require.True(t, r.sched.Tick())
	assert.Len(t, r.device.Passes(), 1)
	assert.Len(t, r.device.LiveTextures(), 2)
	assert.Equal(t, uint64(1), r.sched.Stats().Skipped)
}

func TestStartWithZeroSizeConfiguresLater(t *testing.T) {
	r := newCubeRig(t, 0, 0)
	r.start(t)
	assert.Empty(t, r.surface.Configs)

	require.True(t, r.sched.Tick())
	assert.Empty(t, r.surface.Configs)

	r.host.width, r.host.height = 320, 240
	require.True(t, r.sched.Tick())
	require.Len(t, r.surface.Configs, 1)
	assert.Equal(t, wgpu.CompositeAlphaModeOpaque, r.surface.Config().AlphaMode)
	assert.Equal(t, 1, r.surface.Presented)
}

func TestSampleCountMismatchFailsAtStart(t *testing.T) {
	r := newTriangleRig(t, 1, 800, 600, WithSampleCount(4))
	err := r.sched.Start()
	assert.ErrorIs(t, err, gpu.ErrSampleCountMismatch)
	assert.Equal(t, StateUninitialized, r.sched.State())
}

func TestDepthMismatchFailsAtStart(t *testing.T) {
	r := newTriangleRig(t, 4, 800, 600, WithDepthFormat(wgpu.TextureFormatDepth24Plus))
	assert.ErrorIs(t, r.sched.Start(), gpu.ErrDepthStencilMismatch)
}

func TestStartRequiresCollaborators(t *testing.T) {
	assert.Error(t, NewScheduler(gputest.NewDevice()).Start())
}

func TestTriangleDrawsIntoFrame(t *testing.T) {
	r := newTriangleRig(t, 1, 640, 480, WithAlphaMode(wgpu.CompositeAlphaModePremultiplied))
	r.start(t)
	require.True(t, r.sched.Tick())

	assert.Empty(t, r.device.Textures)
	assert.Empty(t, r.device.Buffers)
	assert.Empty(t, r.device.FakeQueue().Writes)
	assert.Equal(t, wgpu.CompositeAlphaModePremultiplied, r.surface.Config().AlphaMode)

	pass := lastPass(t, r.device)
	ca := pass.Desc.ColorAttachments[0]
	assert.Same(t, r.surface.Frames[0], viewTexture(t, ca.View))
	assert.Nil(t, ca.ResolveTarget)
	assert.Equal(t, wgpu.StoreOpStore, ca.StoreOp)
	assert.Nil(t, pass.Desc.DepthStencilAttachment)
	assert.Equal(t, []string{"SetPipeline", "Draw"}, pass.Commands)
	assert.Equal(t, uint32(3), pass.Draws[0].VertexCount)
}

func TestTriangleMSAAResolvesIntoFrame(t *testing.T) {
	r := newTriangleRig(t, 4, 640, 480, WithClearColor(wgpu.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}))
	r.start(t)
	require.True(t, r.sched.Tick())

	require.Len(t, r.device.LiveColorTextures(), 1)
	assert.Empty(t, r.device.LiveDepthTextures())

	ca := lastPass(t, r.device).Desc.ColorAttachments[0]
	assert.Equal(t, uint32(4), viewTexture(t, ca.View).Desc.SampleCount)
	assert.Same(t, r.surface.Frames[0], viewTexture(t, ca.ResolveTarget))
	assert.Equal(t, wgpu.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}, ca.ClearValue)
}

func TestSuppliedTargetsAreRebuiltAndReleased(t *testing.T) {
	targets := render_target.NewSet()
	targets.SetClearColor(wgpu.Color{R: 0.2, G: 0.4, B: 0.6, A: 1})

	r := newCubeRig(t, 800, 600, WithTargets(targets))
	r.start(t)
	require.True(t, r.sched.Tick())

	assert.Equal(t, uint32(800), targets.Width())
	assert.Equal(t, uint32(600), targets.Height())
	assert.True(t, targets.HasDepth())

	ca := lastPass(t, r.device).Desc.ColorAttachments[0]
	assert.Same(t, targets.ColorView(), ca.View)
	assert.Equal(t, wgpu.Color{R: 0.2, G: 0.4, B: 0.6, A: 1}, ca.ClearValue)

	r.sched.Release()
	assert.Empty(t, r.device.LiveTextures())
	assert.Nil(t, targets.ColorView())
}

func TestSurfaceLostStops(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)
	require.True(t, r.sched.Tick())

	r.surface.Lost = true
	assert.False(t, r.sched.Tick())
	assert.Equal(t, StateStopped, r.sched.State())
	assert.ErrorIs(t, r.sched.Err(), gpu.ErrSurfaceLost)

	r.surface.Lost = false
	assert.False(t, r.sched.Tick())
	assert.Len(t, r.device.Passes(), 1)
}

func TestHostClosedStops(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)
	r.host.closed = true

	assert.False(t, r.sched.Tick())
	assert.Equal(t, StateStopped, r.sched.State())
	assert.NoError(t, r.sched.Err())
	assert.Empty(t, r.device.Passes())
}

func TestStopIsObservedOnNextTick(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)
	require.True(t, r.sched.Tick())

	r.sched.Stop()
	assert.Equal(t, StateRunning, r.sched.State())
	assert.False(t, r.sched.Tick())
	assert.Equal(t, StateStopped, r.sched.State())
}

func TestTickBeforeStart(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	assert.False(t, r.sched.Tick())
	assert.Empty(t, r.device.Passes())
}

func TestFrameCallback(t *testing.T) {
	calls := 0
	r := newCubeRig(t, 800, 600, WithFrameCallback(func() { calls++ }))
	r.start(t)

	require.True(t, r.sched.Tick())
	r.host.width = 0
	require.True(t, r.sched.Tick())
	assert.Equal(t, 1, calls)
}

func TestRunUntilFramesClosed(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	frames := make(chan time.Time, 3)
	for i := 0; i < 3; i++ {
		frames <- time.Now()
	}
	close(frames)

	require.NoError(t, r.sched.Run(context.Background(), frames))
	assert.Equal(t, uint64(3), r.sched.Stats().Frames)
	assert.Equal(t, StateRunning, r.sched.State())
}

func TestRunStopsWhenHostCloses(t *testing.T) {
	var r *rig
	r = newCubeRig(t, 800, 600, WithFrameCallback(func() {
		if r.sched.Stats().Frames == 2 {
			r.host.closed = true
		}
	}))
	frames := make(chan time.Time, 3)
	for i := 0; i < 3; i++ {
		frames <- time.Now()
	}

	require.NoError(t, r.sched.Run(context.Background(), frames))
	assert.Equal(t, StateStopped, r.sched.State())
	assert.Equal(t, uint64(2), r.sched.Stats().Frames)
}

func TestRunCancelled(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.sched.Run(ctx, make(chan time.Time))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateStopped, r.sched.State())
}

func TestRunStartFailure(t *testing.T) {
	r := newTriangleRig(t, 1, 800, 600, WithSampleCount(4))
	err := r.sched.Run(context.Background(), make(chan time.Time))
	assert.ErrorIs(t, err, gpu.ErrSampleCountMismatch)
}

func TestRelease(t *testing.T) {
	r := newCubeRig(t, 800, 600)
	r.start(t)
	require.True(t, r.sched.Tick())

	r.sched.Release()
	assert.Empty(t, r.device.LiveTextures())
	assert.True(t, r.device.Buffers[1].Destroyed)
	assert.True(t, r.device.BindGroups[0].Released)
}
