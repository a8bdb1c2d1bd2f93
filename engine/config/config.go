// Package config reads the frame loop settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-loop/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Environment keys.
const (
	KeyVariant              = "OXY_VARIANT"
	KeyWidth                = "OXY_WIDTH"
	KeyHeight               = "OXY_HEIGHT"
	KeyTitle                = "OXY_TITLE"
	KeyPresentMode          = "OXY_PRESENT_MODE"
	KeyShaderDir            = "OXY_SHADER_DIR"
	KeyLogLevel             = "OXY_LOG_LEVEL"
	KeyProfiling            = "OXY_PROFILING"
	KeyForceFallbackAdapter = "OXY_FORCE_FALLBACK_ADAPTER"
)

// Defaults.
const (
	DefaultVariant     = "rotating-cube"
	DefaultWidth       = 800
	DefaultHeight      = 600
	DefaultTitle       = "oxy-loop"
	DefaultPresentMode = PresentModeVSync
	DefaultLogLevel    = "info"
)

// Present mode names accepted in OXY_PRESENT_MODE.
const (
	PresentModeVSync    = "vsync"
	PresentModeUncapped = "uncapped"
)

// Config is the startup configuration of the frame loop.
type Config struct {
	Variant     string
	Width       int
	Height      int
	Title       string
	PresentMode string
	// ShaderDir is the directory shaders are read from; empty selects the embedded shaders.
	ShaderDir            string
	LogLevel             log.Level
	Profiling            bool
	ForceFallbackAdapter bool
}

// WGPUPresentMode maps the present mode name to the surface present mode.
func (c Config) WGPUPresentMode() wgpu.PresentMode {
	if c.PresentMode == PresentModeUncapped {
		return wgpu.PresentModeImmediate
	}
	return wgpu.PresentModeFifo
}

// Load reads envFile, if given, and then the configuration. Variables already present in the
// process environment take precedence over the file.
//
// Parameters:
//   - envFile: path of a .env file, or empty to skip
//
// Returns:
//   - Config: the configuration
//   - error: an error if the file cannot be read or a value is invalid
func Load(envFile string) (Config, error) {
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", envFile, err)
		}
		for k, v := range values {
			if _, set := os.LookupEnv(k); !set {
				envy.Set(k, v)
			}
		}
	}
	return FromEnv()
}

// FromEnv reads the configuration from the environment, applying defaults for unset keys.
//
// Returns:
//   - Config: the configuration
//   - error: an error if a value is invalid
func FromEnv() (Config, error) {
	c := Config{
		Variant:     common.Coalesce(lookup(KeyVariant), DefaultVariant),
		Title:       common.Coalesce(lookup(KeyTitle), DefaultTitle),
		PresentMode: strings.ToLower(common.Coalesce(lookup(KeyPresentMode), DefaultPresentMode)),
		ShaderDir:   lookup(KeyShaderDir),
	}

	var err error
	if c.Width, err = intVar(KeyWidth, DefaultWidth); err != nil {
		return Config{}, err
	}
	if c.Height, err = intVar(KeyHeight, DefaultHeight); err != nil {
		return Config{}, err
	}
	if c.Profiling, err = boolVar(KeyProfiling); err != nil {
		return Config{}, err
	}
	if c.ForceFallbackAdapter, err = boolVar(KeyForceFallbackAdapter); err != nil {
		return Config{}, err
	}

	level := common.Coalesce(lookup(KeyLogLevel), DefaultLogLevel)
	if c.LogLevel, err = log.ParseLevel(level); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", KeyLogLevel, err)
	}

	if c.Width <= 0 || c.Height <= 0 {
		return Config{}, fmt.Errorf("config: window size %dx%d must be positive", c.Width, c.Height)
	}
	if c.PresentMode != PresentModeVSync && c.PresentMode != PresentModeUncapped {
		return Config{}, fmt.Errorf("config: %s: unknown present mode %q", KeyPresentMode, c.PresentMode)
	}
	return c, nil
}

func lookup(key string) string {
	return strings.TrimSpace(envy.Get(key, ""))
}

func intVar(key string, fallback int) (int, error) {
	v := lookup(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func boolVar(key string) (bool, error) {
	v := lookup(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
