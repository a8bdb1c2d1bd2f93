package common

import "unsafe"

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// The returned slice shares memory with the input and must not be modified.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// StructToBytes reinterprets a pointer to a value as a raw byte slice of its in-memory size.
// The returned slice aliases v.
//
// Parameters:
//   - v: pointer to the value to reinterpret
//
// Returns:
//   - []byte: byte slice view of the value's memory
func StructToBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}
