package variant

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-loop/engine/geometry"
	"github.com/Carmen-Shannon/oxy-loop/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{Resize, RotatingCube, Triangle, TriangleMSAA}, Names())
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("teapot")
	assert.ErrorContains(t, err, "teapot")
}

func TestPresets(t *testing.T) {
	tests := []struct {
		name      string
		samples   uint32
		depth     bool
		vertices  uint32
		layout    bool
		alphaMode wgpu.CompositeAlphaMode
		cullMode  wgpu.CullMode
		resizable bool
	}{
		{Triangle, 1, false, 3, false, wgpu.CompositeAlphaModePremultiplied, wgpu.CullModeNone, false},
		{TriangleMSAA, 4, false, 3, false, wgpu.CompositeAlphaModePremultiplied, wgpu.CullModeNone, false},
		{Resize, 4, false, 3, false, wgpu.CompositeAlphaModePremultiplied, wgpu.CullModeNone, true},
		{RotatingCube, 4, true, geometry.CubeVertexCount, true, wgpu.CompositeAlphaModeOpaque, wgpu.CullModeBack, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Lookup(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, v.Name)
			assert.Equal(t, tt.samples, v.SampleCount)
			assert.Equal(t, tt.depth, v.DepthFormat != nil)
			assert.Equal(t, tt.vertices, v.Geometry().VertexCount())
			assert.Equal(t, tt.layout, v.VertexLayout() != nil)
			assert.Equal(t, tt.alphaMode, v.AlphaMode)
			assert.Equal(t, tt.cullMode, v.CullMode)
			assert.Equal(t, tt.resizable, v.Resizable)

			for _, name := range []string{v.VertexShader, v.FragmentShader} {
				_, err := shader.EmbeddedSource{}.Load(name)
				assert.NoError(t, err, name)
			}
		})
	}
}

func TestLookupReturnsCopies(t *testing.T) {
	a, err := Lookup(RotatingCube)
	require.NoError(t, err)
	*a.DepthFormat = wgpu.TextureFormatDepth32Float

	b, err := Lookup(RotatingCube)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, *b.DepthFormat)
}
