// Package transform computes the per-frame model-view-projection matrix.
package transform

import (
	"math"

	"github.com/Carmen-Shannon/oxy-loop/common"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// FieldOfView is the vertical field of view of the projection, in radians.
	FieldOfView = 2 * math.Pi / 5
	// Near is the near clipping plane distance.
	Near = 1.0
	// Far is the far clipping plane distance.
	Far = 100.0
	// ViewDistance is how far the camera sits back along the view axis.
	ViewDistance = 4.0
	// RotationAngle is the fixed angle the view is rotated by every frame, in radians.
	RotationAngle = 1.0

	// MatrixSize is the size in bytes of one uploaded 4x4 float32 matrix.
	MatrixSize = 64
)

// ComputeMVP writes projection * view for the given elapsed time and aspect ratio into out. The
// model matrix is identity. The view is translated back ViewDistance units and rotated by
// RotationAngle around the axis (sin t, cos t, 0), so the axis itself turns over time.
//
// Parameters:
//   - out: the matrix to write into
//   - elapsedSeconds: seconds since the clock started
//   - aspect: width / height of the render target
func ComputeMVP(out *mgl32.Mat4, elapsedSeconds, aspect float32) {
	projection := mgl32.Perspective(FieldOfView, aspect, Near, Far)

	t := float64(elapsedSeconds)
	axis := mgl32.Vec3{float32(math.Sin(t)), float32(math.Cos(t)), 0}
	view := mgl32.Translate3D(0, 0, -ViewDistance).Mul4(mgl32.HomogRotate3D(RotationAngle, axis.Normalize()))

	*out = projection.Mul4(view)
}

// Bytes returns the column-major byte view of m for a uniform buffer write. The slice aliases m.
func Bytes(m *mgl32.Mat4) []byte {
	return common.StructToBytes(m)
}

// Aspect returns width / height, or 1 when height is zero.
func Aspect(width, height uint32) float32 {
	if height == 0 {
		return 1
	}
	return float32(width) / float32(height)
}
