package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithMaxSize sets the maximum window size the user can resize to.
//
// Parameters:
//   - width: maximum width in pixels
//   - height: maximum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.maxWidth = width
		w.maxHeight = height
	}
}

// WithMinSize sets the minimum window size the user can resize to.
//
// Parameters:
//   - width: minimum width in pixels
//   - height: minimum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = width
		w.minHeight = height
	}
}

// WithWidth sets the initial window width.
//
// Parameters:
//   - width: initial width in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithWidth(width int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
	}
}

// WithHeight sets the initial window height.
//
// Parameters:
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithHeight(height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.height = height
	}
}

// WithResizable sets whether the user can resize the window.
//
// Parameters:
//   - resizable: false for a fixed-size window
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithResizable(resizable bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.resizable = resizable
	}
}
