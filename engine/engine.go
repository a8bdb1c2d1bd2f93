package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-loop/common"
	"github.com/Carmen-Shannon/oxy-loop/engine/config"
	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/Carmen-Shannon/oxy-loop/engine/profiler"
	"github.com/Carmen-Shannon/oxy-loop/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-loop/engine/shader"
	"github.com/Carmen-Shannon/oxy-loop/engine/variant"
	"github.com/Carmen-Shannon/oxy-loop/engine/window"
	log "github.com/sirupsen/logrus"
)

// engine implements the Engine interface.
// Everything runs on the goroutine that calls Init and Run, which is locked to its OS thread.
type engine struct {
	cfg     *config.Config
	variant *variant.Variant
	source  shader.Source

	window window.Window
	device gpu.Device
	loop   *loop

	profiler         *profiler.Profiler
	profilingEnabled bool

	quitOnce sync.Once
}

// Engine is the main entry point. It owns the window, the device and the frame loop of one variant.
type Engine interface {
	// Init creates the window if none was supplied, acquires the device, loads the shaders and
	// builds the pipeline and scheduler. Every error is fatal.
	//
	// Returns:
	//   - error: ErrCapabilityUnavailable, a *shader.ShaderLoadError or a pipeline configuration error
	Init() error

	// Window returns the window, or nil before Init.
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// Stats returns the frame loop counters.
	Stats() scheduler.Stats

	// Run pumps window messages and ticks the frame loop once per iteration. It blocks until the
	// window closes, Quit is called or the surface is lost.
	//
	// Returns:
	//   - error: the error that stopped the loop, nil on a normal close
	Run() error

	// Quit asks the frame loop to stop. Safe to call multiple times and from any goroutine.
	Quit()

	// Release frees the GPU resources and closes the window.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine, not yet initialized
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		profiler: profiler.NewProfiler(time.Second),
	}

	for _, opt := range options {
		opt(e)
	}

	return e
}

func (e *engine) Init() error {
	if e.cfg == nil {
		cfg, err := config.FromEnv()
		if err != nil {
			return err
		}
		e.cfg = &cfg
	}
	log.SetLevel(e.cfg.LogLevel)
	e.profilingEnabled = e.profilingEnabled || e.cfg.Profiling

	if e.variant == nil {
		v, err := variant.Lookup(e.cfg.Variant)
		if err != nil {
			return err
		}
		e.variant = &v
	}
	if e.source == nil {
		e.source = sourceFor(e.cfg.ShaderDir)
	}

	if e.window == nil {
		w, err := window.NewWindow(
			window.WithTitle(fmt.Sprintf("%s - %s", e.cfg.Title, e.variant.Name)),
			window.WithWidth(e.cfg.Width),
			window.WithHeight(e.cfg.Height),
			window.WithResizable(e.variant.Resizable),
		)
		if err != nil {
			return fmt.Errorf("%v: %w", err, gpu.ErrCapabilityUnavailable)
		}
		e.window = w
	}
	e.window.SetKeyDownCallback(e.handleKey)

	device, surf, err := gpu.NewWGPUDevice(e.window.SurfaceDescriptor(), gpu.DeviceOptions{
		ForceFallbackAdapter: e.cfg.ForceFallbackAdapter,
		Label:                e.variant.Name,
	})
	if err != nil {
		return err
	}
	e.device = device

	l, err := newLoop(loopParams{
		device:      device,
		surface:     surf,
		host:        e.window,
		source:      e.source,
		variant:     *e.variant,
		presentMode: e.cfg.WGPUPresentMode(),
		options:     []scheduler.SchedulerBuilderOption{scheduler.WithFrameCallback(e.onFrame)},
	})
	if err != nil {
		surf.Release()
		return err
	}
	e.loop = l

	log.WithFields(log.Fields{
		"variant":     e.variant.Name,
		"presentMode": e.cfg.PresentMode,
		"format":      device.PreferredFormat(),
	}).Info("engine initialized")
	return nil
}

// sourceFor returns the packr box over dir, or the embedded shaders when dir is empty.
func sourceFor(dir string) shader.Source {
	if dir == "" {
		return shader.EmbeddedSource{}
	}
	return shader.NewBoxSource(dir)
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) Stats() scheduler.Stats {
	if e.loop == nil {
		return scheduler.Stats{}
	}
	return e.loop.scheduler.Stats()
}

func (e *engine) Run() error {
	if e.loop == nil {
		return errors.New("engine: Run before Init")
	}

	sched := e.loop.scheduler
	e.window.SetUpdateCallback(func() {
		if !sched.Tick() {
			e.window.SetUpdateCallback(nil)
			if err := e.window.Close(); err != nil {
				log.WithError(err).Warn("failed to close window")
			}
		}
	})
	e.window.ProcessMessages()

	// Lets the scheduler observe a window closed by the user.
	sched.Tick()

	st := sched.Stats()
	log.WithFields(log.Fields{
		"ticks":   st.Ticks,
		"frames":  st.Frames,
		"skipped": st.Skipped,
		"resizes": st.Resizes,
	}).Info("engine stopped")
	return sched.Err()
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		if e.loop != nil {
			e.loop.scheduler.Stop()
		}
	})
}

func (e *engine) Release() {
	if e.loop != nil {
		e.loop.release()
		e.loop = nil
	}
	if e.device != nil {
		e.device.Release()
		e.device = nil
	}
	if e.window != nil {
		if err := e.window.Close(); err != nil {
			log.WithError(err).Debug("window already closed")
		}
	}
}

func (e *engine) onFrame() {
	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}
}

// handleKey toggles the profiler on P and logs the loop counters on I.
func (e *engine) handleKey(keyCode uint32) {
	switch keyCode {
	case common.KeyP:
		e.profilingEnabled = !e.profilingEnabled
		log.WithField("enabled", e.profilingEnabled).Info("profiler toggled")
	case common.KeyI:
		st := e.Stats()
		log.WithFields(log.Fields{
			"ticks":   st.Ticks,
			"frames":  st.Frames,
			"skipped": st.Skipped,
			"resizes": st.Resizes,
			"state":   st.State,
		}).Info("frame loop stats")
	}
}
