package engine

import (
	"github.com/Carmen-Shannon/oxy-loop/engine/config"
	"github.com/Carmen-Shannon/oxy-loop/engine/shader"
	"github.com/Carmen-Shannon/oxy-loop/engine/variant"
	"github.com/Carmen-Shannon/oxy-loop/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig sets the configuration. Defaults to config.FromEnv() at Init.
//
// Parameters:
//   - c: the configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(c config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = &c
	}
}

// WithVariant sets the variant to run, overriding the configured variant name.
//
// Parameters:
//   - v: the variant
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithVariant(v variant.Variant) EngineBuilderOption {
	return func(e *engine) {
		e.variant = &v
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithShaderSource sets where shaders are loaded from, overriding the configured shader directory.
//
// Parameters:
//   - src: the shader source
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithShaderSource(src shader.Source) EngineBuilderOption {
	return func(e *engine) {
		e.source = src
	}
}
