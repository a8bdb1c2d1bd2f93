package gpu

import "errors"

// The error taxonomy shared by every package of the render loop. Callers wrap these with
// fmt.Errorf("...: %w", err) and match them with errors.Is.
var (
	// ErrCapabilityUnavailable reports that no usable GPU instance, adapter, device or surface exists.
	// Fatal, startup only.
	ErrCapabilityUnavailable = errors.New("gpu capability unavailable")

	// ErrShaderLoad reports that a shader source could not be retrieved or did not compile.
	// Fatal, startup only. See shader.ShaderLoadError for the resource name.
	ErrShaderLoad = errors.New("shader load failed")

	// ErrSurfaceLost reports that the presentation surface was invalidated. Stops the frame loop.
	ErrSurfaceLost = errors.New("surface lost")

	// ErrResizeReconfigureFailed reports that reconfiguring the surface or rebuilding the render
	// targets after a size change failed. Recoverable: the tick is skipped and retried.
	ErrResizeReconfigureFailed = errors.New("resize reconfigure failed")

	// ErrIncompatibleBindGroupLayout reports that a bind group does not match the layout the
	// pipeline derived from shader reflection.
	ErrIncompatibleBindGroupLayout = errors.New("incompatible bind group layout")

	// ErrSampleCountMismatch reports that a pipeline and its render targets disagree on sample count.
	ErrSampleCountMismatch = errors.New("sample count mismatch")

	// ErrVertexLayoutMismatch reports that the vertex layout does not supply an input the vertex shader declares.
	ErrVertexLayoutMismatch = errors.New("vertex layout mismatch")

	// ErrDepthStencilMismatch reports that a pipeline and its render targets disagree on the depth attachment.
	ErrDepthStencilMismatch = errors.New("depth stencil mismatch")
)
