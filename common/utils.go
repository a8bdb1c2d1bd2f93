// Package common holds small helpers shared by the engine packages.
package common

// Coalesce returns the first non-zero value, or the zero value if all are zero.
//
// Parameters:
//   - values: the candidates in order of preference
//
// Returns:
//   - T: the first non-zero value
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
