package common

// Key codes the engine reacts to. They match GLFW key codes, which use ASCII values for
// printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyI   = 73  // I key (ASCII)
	KeyP   = 80  // P key (ASCII)
	KeyEsc = 256 // Escape key (GLFW)
)
