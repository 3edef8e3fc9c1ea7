// Package loader decodes texture files into RGBA8 TextureData and caches the results. Decoding
// can run synchronously, as a bounded parallel batch (LoadAll) or on a worker pool whose
// completions the Framework drains at the start of each frame (Streamer).
package loader

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"golang.org/x/sync/errgroup"
)

// LoadTexture decodes one texture without caching. The format is chosen by magic bytes, then
// by the extension of name.
//
// Parameters:
//   - name: the texture name, usually the source path
//   - data: the encoded bytes
//
// Returns:
//   - *common.TextureData: the decoded RGBA8 pixels
//   - error: ErrUnsupportedFormat or a decode error
func LoadTexture(name string, data []byte) (*common.TextureData, error) {
	img, f, err := decodeImage(name, data)
	if err != nil {
		return nil, err
	}
	tex, err := common.NewTextureData(name, f.String(), img)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", name, err)
	}
	return tex, nil
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu    sync.RWMutex
	cache map[string]*common.TextureData

	readFile    func(string) ([]byte, error)
	parallelism int
	linear      bool
}

// Loader decodes and caches textures by name. All methods are safe for concurrent use.
type Loader interface {
	// LoadTexture decodes data and caches the result under name. A cached texture is returned
	// without decoding again.
	//
	// Parameters:
	//   - name: the cache key and format hint
	//   - data: the encoded bytes
	//
	// Returns:
	//   - *common.TextureData: the decoded texture
	//   - error: ErrUnsupportedFormat or a decode error
	LoadTexture(name string, data []byte) (*common.TextureData, error)

	// LoadFile reads and decodes the file at path, cached by path.
	//
	// Parameters:
	//   - path: the file to load
	//
	// Returns:
	//   - *common.TextureData: the decoded texture
	//   - error: a read or decode error
	LoadFile(path string) (*common.TextureData, error)

	// LoadAll decodes the files in parallel, bounded by the configured parallelism. The first
	// error cancels the files that have not started yet.
	//
	// Parameters:
	//   - ctx: cancels the batch
	//   - paths: the files to load
	//
	// Returns:
	//   - []*common.TextureData: the textures in the order of paths
	//   - error: the first failure
	LoadAll(ctx context.Context, paths ...string) ([]*common.TextureData, error)

	// Get returns a cached texture, nil when absent.
	Get(name string) *common.TextureData

	// Evict removes a texture from the cache.
	//
	// Returns:
	//   - bool: true if the texture was cached
	Evict(name string) bool

	// Len returns the number of cached textures.
	Len() int
}

var _ Loader = &loader{}

// NewLoader creates a Loader reading from the local file system with a parallelism of four.
//
// Parameters:
//   - options: variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the new loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		cache:       make(map[string]*common.TextureData),
		readFile:    os.ReadFile,
		parallelism: 4,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *loader) LoadTexture(name string, data []byte) (*common.TextureData, error) {
	if tex := l.Get(name); tex != nil {
		return tex, nil
	}
	tex, err := LoadTexture(name, data)
	if err != nil {
		return nil, err
	}
	if l.linear {
		tex.Format = common.TextureFormatRGBA8Linear
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// A concurrent load of the same name may have won; keep the first.
	if cached, ok := l.cache[name]; ok {
		return cached, nil
	}
	l.cache[name] = tex
	common.Logger().Debug("[Loader] texture decoded", "name", name, "format", tex.MimeType, "width", tex.Width, "height", tex.Height)
	return tex, nil
}

func (l *loader) LoadFile(path string) (*common.TextureData, error) {
	if tex := l.Get(path); tex != nil {
		return tex, nil
	}
	data, err := l.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read texture %s: %w", path, err)
	}
	return l.LoadTexture(path, data)
}

func (l *loader) LoadAll(ctx context.Context, paths ...string) ([]*common.TextureData, error) {
	out := make([]*common.TextureData, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallelism)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tex, err := l.LoadFile(path)
			if err != nil {
				return err
			}
			out[i] = tex
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *loader) Get(name string) *common.TextureData {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[name]
}

func (l *loader) Evict(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.cache[name]
	delete(l.cache, name)
	return ok
}

func (l *loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}
