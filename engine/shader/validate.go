package shader

import (
	"fmt"

	"github.com/gogpu/naga"
)

// Validate compiles WGSL text with naga and discards the output. It catches syntax and type
// errors before any GPU object exists.
//
// Parameters:
//   - name: the resource name, used in the returned error
//   - source: the WGSL text
//
// Returns:
//   - error: a *ShaderLoadError if the source does not compile
func Validate(name, source string) error {
	if _, err := naga.Compile(source); err != nil {
		return &ShaderLoadError{Name: name, Err: fmt.Errorf("failed to compile shader: %w", err)}
	}
	return nil
}
