package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// typeLayout is the host-shareable size and alignment of a WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var primitiveLayouts = map[string]typeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	"mat2x2<f32>": {16, 8},
	"mat2x2f":     {16, 8},
	"mat3x3<f32>": {48, 16},
	"mat3x3f":     {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

// vertexFormats maps WGSL vertex input types to the vertex format that feeds them.
var vertexFormats = map[string]wgpu.VertexFormat{
	"f32":       wgpu.VertexFormatFloat32,
	"vec2f":     wgpu.VertexFormatFloat32x2,
	"vec2<f32>": wgpu.VertexFormatFloat32x2,
	"vec3f":     wgpu.VertexFormatFloat32x3,
	"vec3<f32>": wgpu.VertexFormatFloat32x3,
	"vec4f":     wgpu.VertexFormatFloat32x4,
	"vec4<f32>": wgpu.VertexFormatFloat32x4,
	"i32":       wgpu.VertexFormatSint32,
	"vec2i":     wgpu.VertexFormatSint32x2,
	"vec2<i32>": wgpu.VertexFormatSint32x2,
	"vec4i":     wgpu.VertexFormatSint32x4,
	"vec4<i32>": wgpu.VertexFormatSint32x4,
	"u32":       wgpu.VertexFormatUint32,
	"vec2u":     wgpu.VertexFormatUint32x2,
	"vec2<u32>": wgpu.VertexFormatUint32x2,
	"vec4u":     wgpu.VertexFormatUint32x4,
	"vec4<u32>": wgpu.VertexFormatUint32x4,
}

// VertexFormatSize returns the byte size of a vertex format, or 0 for formats this package does not reflect.
func VertexFormatSize(f wgpu.VertexFormat) uint64 {
	switch f {
	case wgpu.VertexFormatFloat32, wgpu.VertexFormatSint32, wgpu.VertexFormatUint32:
		return 4
	case wgpu.VertexFormatFloat32x2, wgpu.VertexFormatSint32x2, wgpu.VertexFormatUint32x2:
		return 8
	case wgpu.VertexFormatFloat32x3:
		return 12
	case wgpu.VertexFormatFloat32x4, wgpu.VertexFormatSint32x4, wgpu.VertexFormatUint32x4:
		return 16
	}
	return 0
}

func roundUp(align, v uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// resolveLayout resolves primitives, known structs and fixed-size arrays. A runtime-sized
// array resolves to one element stride.
func resolveLayout(typeName string, structs map[string]typeLayout) (typeLayout, bool) {
	if l, ok := primitiveLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := structs[typeName]; ok {
		return l, true
	}

	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return typeLayout{}, false
	}
	elemName, countStr, sized := strings.Cut(strings.TrimSuffix(inner, ">"), ",")
	elem, ok := resolveLayout(strings.TrimSpace(elemName), structs)
	if !ok {
		return typeLayout{}, false
	}
	stride := roundUp(elem.align, elem.size)
	if !sized {
		return typeLayout{stride, elem.align}, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(countStr), 10, 64)
	if err != nil {
		return typeLayout{}, false
	}
	return typeLayout{count * stride, elem.align}, true
}

func structLayout(s wgslStruct, known map[string]typeLayout) (typeLayout, bool) {
	var offset uint64
	align := uint64(1)
	for _, f := range s.fields {
		if f.builtin {
			continue
		}
		l, ok := resolveLayout(f.typeName, known)
		if !ok {
			return typeLayout{}, false
		}
		offset = roundUp(l.align, offset) + l.size
		if l.align > align {
			align = l.align
		}
	}
	return typeLayout{roundUp(align, offset), align}, true
}

// structLayouts resolves every struct it can, repeating while structs that reference
// other structs become resolvable.
func structLayouts(structs []wgslStruct) map[string]typeLayout {
	resolved := make(map[string]typeLayout, len(structs))
	pending := append([]wgslStruct(nil), structs...)
	for len(pending) > 0 {
		next := pending[:0]
		for _, s := range pending {
			if l, ok := structLayout(s, resolved); ok {
				resolved[s.name] = l
			} else {
				next = append(next, s)
			}
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}
	return resolved
}
