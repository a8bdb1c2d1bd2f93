package geometry

import (
	"github.com/Carmen-Shannon/oxy-loop/common"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// CubeVertexSize is the byte size of one cube vertex: float32x4 position, float32x4 color, float32x2 uv.
	CubeVertexSize = 4 * 10

	// CubePositionOffset is the byte offset of the position within a cube vertex.
	CubePositionOffset = 0

	// CubeColorOffset is the byte offset of the color within a cube vertex.
	CubeColorOffset = 4 * 4

	// CubeUVOffset is the byte offset of the uv within a cube vertex.
	CubeUVOffset = 4 * 8

	// CubeVertexCount is the number of vertices of the cube, two triangles per face.
	CubeVertexCount = 36
)

var cubeVertices = []float32{
	// position        color           uv
	1, -1, 1, 1, 1, 0, 1, 1, 1, 1,
	-1, -1, 1, 1, 0, 0, 1, 1, 0, 1,
	-1, -1, -1, 1, 0, 0, 0, 1, 0, 0,
	1, -1, -1, 1, 1, 0, 0, 1, 1, 0,
	1, -1, 1, 1, 1, 0, 1, 1, 1, 1,
	-1, -1, -1, 1, 0, 0, 0, 1, 0, 0,

	1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, -1, 1, 1, 1, 0, 1, 1, 0, 1,
	1, -1, -1, 1, 1, 0, 0, 1, 0, 0,
	1, 1, -1, 1, 1, 1, 0, 1, 1, 0,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, -1, -1, 1, 1, 0, 0, 1, 0, 0,

	-1, 1, 1, 1, 0, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 0, 1,
	1, 1, -1, 1, 1, 1, 0, 1, 0, 0,
	-1, 1, -1, 1, 0, 1, 0, 1, 1, 0,
	-1, 1, 1, 1, 0, 1, 1, 1, 1, 1,
	1, 1, -1, 1, 1, 1, 0, 1, 0, 0,

	-1, -1, 1, 1, 0, 0, 1, 1, 1, 1,
	-1, 1, 1, 1, 0, 1, 1, 1, 0, 1,
	-1, 1, -1, 1, 0, 1, 0, 1, 0, 0,
	-1, -1, -1, 1, 0, 0, 0, 1, 1, 0,
	-1, -1, 1, 1, 0, 0, 1, 1, 1, 1,
	-1, 1, -1, 1, 0, 1, 0, 1, 0, 0,

	1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	-1, 1, 1, 1, 0, 1, 1, 1, 0, 1,
	-1, -1, 1, 1, 0, 0, 1, 1, 0, 0,
	-1, -1, 1, 1, 0, 0, 1, 1, 0, 0,
	1, -1, 1, 1, 1, 0, 1, 1, 1, 0,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1,

	1, -1, -1, 1, 1, 0, 0, 1, 1, 1,
	-1, -1, -1, 1, 0, 0, 0, 1, 0, 1,
	-1, 1, -1, 1, 0, 1, 0, 1, 0, 0,
	1, 1, -1, 1, 1, 1, 0, 1, 1, 0,
	1, -1, -1, 1, 1, 0, 0, 1, 1, 1,
	-1, 1, -1, 1, 0, 1, 0, 1, 0, 0,
}

// CubeLayout is the layout the cube shaders consume: position at location 0 and uv at location 1.
// The color is present in the data but not bound.
func CubeLayout() VertexLayout {
	return VertexLayout{
		Stride: CubeVertexSize,
		Attributes: []wgpu.VertexAttribute{
			{ShaderLocation: 0, Offset: CubePositionOffset, Format: wgpu.VertexFormatFloat32x4},
			{ShaderLocation: 1, Offset: CubeUVOffset, Format: wgpu.VertexFormatFloat32x2},
		},
	}
}

// Cube returns the unit cube centered on the origin.
func Cube() Buffer {
	data := make([]byte, 0, CubeVertexSize*CubeVertexCount)
	data = append(data, common.SliceToBytes(cubeVertices)...)
	b, err := NewBuffer("Cube Vertex Buffer", data, CubeLayout(), CubeVertexCount)
	if err != nil {
		// The constant data above always matches its layout.
		panic(err)
	}
	return b
}
