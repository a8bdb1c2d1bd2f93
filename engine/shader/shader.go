package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader feeds.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex stage of a render pipeline.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment stage of a render pipeline, paired with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	if t == ShaderTypeFragment {
		return "fragment"
	}
	return "vertex"
}

// Visibility returns the shader stage flag bindings declared by this stage are visible to.
func (t ShaderType) Visibility() wgpu.ShaderStage {
	if t == ShaderTypeFragment {
		return wgpu.ShaderStageFragment
	}
	return wgpu.ShaderStageVertex
}

type shader struct {
	key        string
	source     string
	shaderType ShaderType
	entryPoint string
	inputs     []VertexInput
	bindings   []Binding
}

// Shader is a loaded WGSL shader together with the layout information reflected from its source.
// The render pipeline derives its bind group layout and validates its vertex layout against it.
type Shader interface {
	// Key retrieves the unique identifier of the shader, used as the module label.
	//
	// Returns:
	//   - string: the shader's key
	Key() string

	// Source retrieves the WGSL source.
	//
	// Returns:
	//   - string: the WGSL source code
	Source() string

	// ShaderType returns the stage the shader was loaded for.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// EntryPoint returns the name of the @vertex or @fragment function.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// VertexInputs returns the @location inputs of a vertex entry point sorted by location.
	// Fragment shaders return nil.
	//
	// Returns:
	//   - []VertexInput: the reflected vertex inputs
	VertexInputs() []VertexInput

	// Bindings returns every @group/@binding resource the shader declares, sorted by group then binding.
	// Each binding carries the stage visibility of this shader.
	//
	// Returns:
	//   - []Binding: the reflected bindings
	Bindings() []Binding
}

var _ Shader = &shader{}

// NewShader reflects the given WGSL source for the given stage.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the source is used for
//   - source: the WGSL source
//
// Returns:
//   - Shader: the reflected shader
//   - error: an error if the source declares no entry point for the stage
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	cleaned := stripComments(source)
	structs := parseStructs(cleaned)

	entryPoint, params := findEntryPoint(cleaned, shaderType)
	if entryPoint == "" {
		return nil, fmt.Errorf("shader %s: no @%s entry point", key, shaderType)
	}

	s := &shader{
		key:        key,
		source:     source,
		shaderType: shaderType,
		entryPoint: entryPoint,
		bindings:   reflectBindings(cleaned, structs, shaderType.Visibility()),
	}
	if shaderType == ShaderTypeVertex {
		s.inputs = reflectVertexInputs(params, structs)
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) VertexInputs() []VertexInput {
	return s.inputs
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}
