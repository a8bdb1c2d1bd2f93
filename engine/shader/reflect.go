package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// BindingKind is the resource category of a reflected binding.
type BindingKind int

const (
	BindingKindUniformBuffer BindingKind = iota
	BindingKindStorageBuffer
	BindingKindReadOnlyStorageBuffer
	BindingKindSampler
	BindingKindTexture
)

func (k BindingKind) String() string {
	switch k {
	case BindingKindUniformBuffer:
		return "uniform"
	case BindingKindStorageBuffer:
		return "storage"
	case BindingKindReadOnlyStorageBuffer:
		return "read-only storage"
	case BindingKindSampler:
		return "sampler"
	case BindingKindTexture:
		return "texture"
	}
	return "unknown"
}

// IsBuffer reports whether the binding is backed by a buffer.
func (k BindingKind) IsBuffer() bool {
	return k == BindingKindUniformBuffer || k == BindingKindStorageBuffer || k == BindingKindReadOnlyStorageBuffer
}

// Binding is one @group(G) @binding(B) resource declared by a shader.
type Binding struct {
	Group      uint32
	Binding    uint32
	Name       string
	Kind       BindingKind
	Visibility wgpu.ShaderStage

	// MinSize is the byte size of the bound type for buffer bindings, 0 when it cannot be resolved.
	MinSize uint64
}

// VertexInput is one @location(N) input consumed by a vertex entry point.
type VertexInput struct {
	Location uint32
	Name     string
	Format   wgpu.VertexFormat
}

type wgslField struct {
	name     string
	typeName string
	location int
	builtin  bool
}

type wgslStruct struct {
	name   string
	fields []wgslField
}

var (
	structRegex   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex  = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches "[attributes] name : type".
	fieldRegex = regexp.MustCompile(`^(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)$`)

	vertexEntryRegex   = regexp.MustCompile(`@vertex\s+fn\s+(\w+)\s*\(`)
	fragmentEntryRegex = regexp.MustCompile(`@fragment\s+fn\s+(\w+)\s*\(`)

	// bindingRegex matches "@group(G) @binding(B) var<space> name : type;" and handle types without an address space.
	bindingRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// findEntryPoint returns the entry point name and its raw parameter list for the stage.
func findEntryPoint(source string, stage ShaderType) (string, string) {
	re := vertexEntryRegex
	if stage == ShaderTypeFragment {
		re = fragmentEntryRegex
	}
	loc := re.FindStringSubmatchIndex(source)
	if loc == nil {
		return "", ""
	}
	name := source[loc[2]:loc[3]]

	// loc[1] is just past the opening parenthesis of the parameter list.
	depth := 1
	for i := loc[1]; i < len(source); i++ {
		switch source[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return name, source[loc[1]:i]
			}
		}
	}
	return name, ""
}

// reflectVertexInputs returns the @location inputs of a vertex entry point, whether declared
// as parameters directly or as fields of a struct parameter, sorted by location.
func reflectVertexInputs(params string, structs []wgslStruct) []VertexInput {
	byName := make(map[string]wgslStruct, len(structs))
	for _, s := range structs {
		byName[s.name] = s
	}

	var inputs []VertexInput
	for _, p := range splitTopLevel(params) {
		f, ok := parseField(p)
		if !ok || f.builtin {
			continue
		}
		if f.location >= 0 {
			if format, ok := vertexFormats[f.typeName]; ok {
				inputs = append(inputs, VertexInput{Location: uint32(f.location), Name: f.name, Format: format})
			}
			continue
		}
		s, ok := byName[f.typeName]
		if !ok {
			continue
		}
		for _, sf := range s.fields {
			if sf.builtin || sf.location < 0 {
				continue
			}
			if format, ok := vertexFormats[sf.typeName]; ok {
				inputs = append(inputs, VertexInput{Location: uint32(sf.location), Name: sf.name, Format: format})
			}
		}
	}

	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].Location < inputs[j].Location
	})
	return inputs
}

// reflectBindings returns every resource binding declared in the source, sorted by group then binding.
func reflectBindings(source string, structs []wgslStruct, visibility wgpu.ShaderStage) []Binding {
	layouts := structLayouts(structs)

	var bindings []Binding
	for _, m := range bindingRegex.FindAllStringSubmatch(source, -1) {
		group, _ := strconv.ParseUint(m[1], 10, 32)
		binding, _ := strconv.ParseUint(m[2], 10, 32)
		space := strings.TrimSpace(m[3])
		typeName := strings.TrimSpace(m[5])

		b := Binding{
			Group:      uint32(group),
			Binding:    uint32(binding),
			Name:       m[4],
			Kind:       classify(space, typeName),
			Visibility: visibility,
		}
		if b.Kind.IsBuffer() {
			if l, ok := resolveLayout(typeName, layouts); ok {
				b.MinSize = l.size
			}
		}
		bindings = append(bindings, b)
	}

	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Binding < bindings[j].Binding
	})
	return bindings
}

func classify(space, typeName string) BindingKind {
	switch {
	case space == "uniform":
		return BindingKindUniformBuffer
	case strings.HasPrefix(space, "storage") && strings.Contains(space, "read_write"):
		return BindingKindStorageBuffer
	case strings.HasPrefix(space, "storage"):
		return BindingKindReadOnlyStorageBuffer
	case strings.HasPrefix(typeName, "sampler"):
		return BindingKindSampler
	}
	return BindingKindTexture
}

func parseStructs(source string) []wgslStruct {
	matches := structRegex.FindAllStringSubmatch(source, -1)
	structs := make([]wgslStruct, 0, len(matches))
	for _, m := range matches {
		s := wgslStruct{name: m[1]}
		for _, part := range splitTopLevel(m[2]) {
			if f, ok := parseField(part); ok {
				s.fields = append(s.fields, f)
			}
		}
		structs = append(structs, s)
	}
	return structs
}

func parseField(text string) (wgslField, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return wgslField{}, false
	}
	m := fieldRegex.FindStringSubmatch(text)
	if m == nil {
		return wgslField{}, false
	}
	f := wgslField{
		name:     m[1],
		typeName: strings.TrimSpace(m[2]),
		location: -1,
		builtin:  builtinRegex.MatchString(text),
	}
	if lm := locationRegex.FindStringSubmatch(text); lm != nil {
		f.location, _ = strconv.Atoi(lm[1])
	}
	return f, true
}

// splitTopLevel splits at commas outside of <> and () nesting, so "array<T, 4>" and
// "@location(0)" stay intact.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes line comments and (nestable) block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case source[i] == '/' && source[i+1] == '/' && depth == 0:
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
