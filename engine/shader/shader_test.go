package shader

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource map[string]string

func (m mapSource) Load(name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", &ShaderLoadError{Name: name, Err: fmt.Errorf("not found")}
	}
	return text, nil
}

func TestNewShaderReflectsCubeVertexStage(t *testing.T) {
	src, err := EmbeddedSource{}.Load("cube.vert.wgsl")
	require.NoError(t, err)

	s, err := NewShader("cube-vs", ShaderTypeVertex, src)
	require.NoError(t, err)

	assert.Equal(t, "main", s.EntryPoint())
	assert.Equal(t, ShaderTypeVertex, s.ShaderType())
	assert.Equal(t, []VertexInput{
		{Location: 0, Name: "position", Format: wgpu.VertexFormatFloat32x4},
		{Location: 1, Name: "uv", Format: wgpu.VertexFormatFloat32x2},
	}, s.VertexInputs())

	require.Len(t, s.Bindings(), 1)
	b := s.Bindings()[0]
	assert.Equal(t, uint32(0), b.Group)
	assert.Equal(t, uint32(0), b.Binding)
	assert.Equal(t, "uniforms", b.Name)
	assert.Equal(t, BindingKindUniformBuffer, b.Kind)
	assert.Equal(t, uint64(64), b.MinSize)
	assert.Equal(t, wgpu.ShaderStageVertex, b.Visibility)
}

func TestNewShaderTriangleHasNoInputsOrBindings(t *testing.T) {
	src, err := EmbeddedSource{}.Load("triangle.vert.wgsl")
	require.NoError(t, err)

	s, err := NewShader("tri-vs", ShaderTypeVertex, src)
	require.NoError(t, err)
	assert.Equal(t, "main", s.EntryPoint())
	assert.Empty(t, s.VertexInputs())
	assert.Empty(t, s.Bindings())
}

func TestNewShaderFragmentParamsAreNotVertexInputs(t *testing.T) {
	src, err := EmbeddedSource{}.Load("cube.frag.wgsl")
	require.NoError(t, err)

	s, err := NewShader("cube-fs", ShaderTypeFragment, src)
	require.NoError(t, err)
	assert.Equal(t, "main", s.EntryPoint())
	assert.Nil(t, s.VertexInputs())
}

func TestNewShaderDirectLocationParams(t *testing.T) {
	src := `
// position and color arrive as separate parameters
@vertex
fn vs_main(@location(1) color: vec3<f32>, @builtin(vertex_index) i: u32, @location(0) pos: vec2f) -> @builtin(position) vec4f {
    return vec4f(pos, 0.0, 1.0);
}
`
	s, err := NewShader("vs", ShaderTypeVertex, src)
	require.NoError(t, err)
	assert.Equal(t, "vs_main", s.EntryPoint())
	assert.Equal(t, []VertexInput{
		{Location: 0, Name: "pos", Format: wgpu.VertexFormatFloat32x2},
		{Location: 1, Name: "color", Format: wgpu.VertexFormatFloat32x3},
	}, s.VertexInputs())
}

func TestNewShaderMissingEntryPoint(t *testing.T) {
	_, err := NewShader("fs", ShaderTypeFragment, "@vertex fn main() -> @builtin(position) vec4f { return vec4f(); }")
	assert.Error(t, err)
}

func TestReflectBindingsKindsAndSizes(t *testing.T) {
	src := `
struct Light { color: vec3f, intensity: f32 }
struct Lights { items: array<Light, 4> }
@group(1) @binding(2) var<storage, read> lights: Lights;
@group(1) @binding(0) var tex: texture_2d<f32>;
@group(0) @binding(0) var<storage, read_write> counts: array<u32>;
/* @group(3) @binding(0) var<uniform> hidden: f32; */
@group(1) @binding(1) var samp: sampler;
@fragment fn main() -> @location(0) vec4f { return vec4f(); }
`
	s, err := NewShader("fs", ShaderTypeFragment, src)
	require.NoError(t, err)

	bindings := s.Bindings()
	require.Len(t, bindings, 4)

	assert.Equal(t, BindingKindStorageBuffer, bindings[0].Kind)
	assert.Equal(t, uint64(4), bindings[0].MinSize)

	assert.Equal(t, BindingKindTexture, bindings[1].Kind)
	assert.Equal(t, BindingKindSampler, bindings[2].Kind)

	assert.Equal(t, "lights", bindings[3].Name)
	assert.Equal(t, BindingKindReadOnlyStorageBuffer, bindings[3].Kind)
	assert.Equal(t, uint64(4*16), bindings[3].MinSize)
	assert.Equal(t, wgpu.ShaderStageFragment, bindings[3].Visibility)
}

func TestEmbeddedSourceMissing(t *testing.T) {
	_, err := EmbeddedSource{}.Load("nope.wgsl")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gpu.ErrShaderLoad))

	var loadErr *ShaderLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "nope.wgsl", loadErr.Name)
	assert.Contains(t, err.Error(), `error loading shader code from "nope.wgsl"`)
}

func TestBoxSourceLoadsFromDirectory(t *testing.T) {
	src := NewBoxSource("./assets")

	text, err := src.Load("triangle.frag.wgsl")
	require.NoError(t, err)
	assert.Contains(t, text, "@fragment")

	_, err = src.Load("missing.wgsl")
	assert.ErrorIs(t, err, gpu.ErrShaderLoad)
}

func TestValidateRejectsBrokenSource(t *testing.T) {
	err := Validate("broken.wgsl", "fn main( {")
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrShaderLoad)
}
