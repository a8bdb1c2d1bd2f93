package shader

import (
	"embed"
	"fmt"
	"path"

	"github.com/Carmen-Shannon/oxy-loop/engine/gpu"
	"github.com/gobuffalo/packr"
)

//go:embed assets/*.wgsl
var embeddedAssets embed.FS

// Source retrieves shader text by resource name.
type Source interface {
	// Load returns the WGSL text stored under name.
	//
	// Parameters:
	//   - name: the resource name, e.g. "cube.vert.wgsl"
	//
	// Returns:
	//   - string: the shader text
	//   - error: an error if the resource could not be retrieved
	Load(name string) (string, error)
}

// ShaderLoadError reports a shader resource that could not be retrieved or did not validate.
// It matches gpu.ErrShaderLoad under errors.Is.
type ShaderLoadError struct {
	Name string
	Err  error
}

func (e *ShaderLoadError) Error() string {
	return fmt.Sprintf("error loading shader code from %q: %v", e.Name, e.Err)
}

func (e *ShaderLoadError) Unwrap() []error {
	return []error{gpu.ErrShaderLoad, e.Err}
}

// EmbeddedSource serves the shaders compiled into the binary.
type EmbeddedSource struct{}

var _ Source = EmbeddedSource{}

func (EmbeddedSource) Load(name string) (string, error) {
	data, err := embeddedAssets.ReadFile(path.Join("assets", name))
	if err != nil {
		return "", &ShaderLoadError{Name: name, Err: err}
	}
	return string(data), nil
}

// BoxSource serves shaders from a packr box rooted at a directory, so shaders can be edited
// without rebuilding.
type BoxSource struct {
	box packr.Box
}

var _ Source = &BoxSource{}

// NewBoxSource creates a BoxSource over dir. Relative paths resolve against the calling file's
// directory during development and against the working directory otherwise.
func NewBoxSource(dir string) *BoxSource {
	return &BoxSource{box: packr.NewBox(dir)}
}

func (s *BoxSource) Load(name string) (string, error) {
	text, err := s.box.FindString(name)
	if err != nil {
		return "", &ShaderLoadError{Name: name, Err: err}
	}
	return text, nil
}
