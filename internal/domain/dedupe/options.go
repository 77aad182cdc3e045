package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithCapacityHint preallocates room for n keys.
func WithCapacityHint(n int) Option {
	return func(d *inMemoryDeduper) {
		d.hint = n
	}
}
