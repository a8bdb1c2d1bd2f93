package transform

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMVPIsDeterministic(t *testing.T) {
	var a, b mgl32.Mat4
	for _, elapsed := range []float32{0, 0.016, 1.5, 42.25} {
		ComputeMVP(&a, elapsed, 4.0/3.0)
		ComputeMVP(&b, elapsed, 4.0/3.0)
		assert.Equal(t, a, b)
	}
}

func TestComputeMVPMatchesComposition(t *testing.T) {
	var got mgl32.Mat4
	ComputeMVP(&got, 0, 1)

	// At t=0 the axis is +Y.
	want := mgl32.Perspective(2*math.Pi/5, 1, 1, 100).
		Mul4(mgl32.Translate3D(0, 0, -4)).
		Mul4(mgl32.HomogRotate3D(1, mgl32.Vec3{0, 1, 0}))
	assert.True(t, got.ApproxEqualThreshold(want, 1e-5))
}

func TestComputeMVPChangesOverTime(t *testing.T) {
	var a, b mgl32.Mat4
	ComputeMVP(&a, 0, 1)
	ComputeMVP(&b, 1, 1)
	assert.False(t, a.ApproxEqualThreshold(b, 1e-5))
}

func TestComputeMVPPlacesOriginInFront(t *testing.T) {
	var m mgl32.Mat4
	ComputeMVP(&m, 3, 16.0/9.0)

	clip := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	require.Greater(t, clip.W(), float32(0))
	ndc := clip.Vec3().Mul(1 / clip.W())
	assert.InDelta(t, 0, ndc.X(), 1e-5)
	assert.InDelta(t, 0, ndc.Y(), 1e-5)
	assert.Greater(t, ndc.Z(), float32(-1))
	assert.Less(t, ndc.Z(), float32(1))
}

func TestBytes(t *testing.T) {
	var m mgl32.Mat4
	ComputeMVP(&m, 0.5, 2)

	b := Bytes(&m)
	require.Len(t, b, MatrixSize)
	for i := 0; i < 16; i++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		assert.Equal(t, m[i], v)
	}
}

func TestAspect(t *testing.T) {
	assert.Equal(t, float32(2), Aspect(800, 400))
	assert.Equal(t, float32(1), Aspect(800, 0))
}
