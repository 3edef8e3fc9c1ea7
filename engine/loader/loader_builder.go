package loader

import "github.com/Carmen-Shannon/oxy-rt/common"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithReadFile replaces os.ReadFile, for example to read from an embedded file system.
//
// Parameters:
//   - fn: the file reader
//
// Returns:
//   - LoaderBuilderOption: a function that applies the reader option to a loader
func WithReadFile(fn func(path string) ([]byte, error)) LoaderBuilderOption {
	return func(l *loader) {
		l.readFile = fn
	}
}

// WithParallelism bounds the number of files LoadAll decodes at once. Values below one keep
// the default.
//
// Parameters:
//   - n: the maximum number of concurrent decodes
//
// Returns:
//   - LoaderBuilderOption: a function that applies the parallelism option to a loader
func WithParallelism(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.parallelism = n
		}
	}
}

// WithLinear marks decoded textures as linear instead of sRGB, for data textures such as
// normal maps.
func WithLinear(linear bool) LoaderBuilderOption {
	return func(l *loader) {
		l.linear = linear
	}
}

// WithTexture pre-populates the cache.
//
// Parameters:
//   - name: the cache key
//   - tex: the texture
//
// Returns:
//   - LoaderBuilderOption: a function that applies the texture option to a loader
func WithTexture(name string, tex *common.TextureData) LoaderBuilderOption {
	return func(l *loader) {
		l.cache[name] = tex
	}
}
