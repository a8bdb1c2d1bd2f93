package shader

// LoaderBuilderOption is a functional option for configuring a Loader.
type LoaderBuilderOption func(*loader)

// WithWorkers sets the number of workers that fetch and reflect sources in parallel.
// Values below 1 are ignored.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithValidation toggles naga compilation of every loaded source.
//
// Parameters:
//   - enabled: whether sources are validated
//
// Returns:
//   - LoaderBuilderOption: a function that applies the validation setting to a loader
func WithValidation(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.validate = enabled
	}
}
