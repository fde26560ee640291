package batch

// BuilderOption is a functional option for configuring a Builder via
// NewBuilder.
type BuilderOption func(*builder)

// WithWorkers is an option builder that sets the number of workers used for
// parallel matrix composition. Values below one are ignored.
//
// Parameters:
//   - workers: the worker count
//
// Returns:
//   - BuilderOption: a function that applies the workers option
func WithWorkers(workers int) BuilderOption {
	return func(b *builder) {
		if workers >= 1 {
			b.workers = workers
		}
	}
}

// WithParallelThreshold is an option builder that sets the entity count at
// which matrix composition moves from the calling goroutine to the worker
// pool. Values below one disable the serial path entirely.
//
// Parameters:
//   - threshold: the entity count threshold
//
// Returns:
//   - BuilderOption: a function that applies the threshold option
func WithParallelThreshold(threshold int) BuilderOption {
	return func(b *builder) {
		b.parallelThreshold = threshold
	}
}
