package dedupe

// defaultMaxSize bounds the token cache when no option overrides it.
const defaultMaxSize = 50_000

// Option applies a configuration option to the token cache.
type Option func(*tokenCache)

// WithMaxSize sets the maximum number of tokens kept in memory.
// Zero or negative disables eviction entirely.
func WithMaxSize(size int) Option {
	return func(d *tokenCache) {
		d.maxSize = size
	}
}
