package atlas

import (
	"github.com/gogpu/atlas/fetch"
	"github.com/gogpu/atlas/surface"
)

// Default configuration values.
const (
	// DefaultMaxSurfaceWidth is the packing row bound and surface width.
	DefaultMaxSurfaceWidth = 1024

	// DefaultMaxConcurrentFetches bounds in-flight sprite fetches per manager.
	DefaultMaxConcurrentFetches = 16

	// MaxSurfaceDimension is the largest width Validate accepts.
	MaxSurfaceDimension = 16384
)

// Config holds Manager configuration.
type Config struct {
	// MaxSurfaceWidth is the row bound used by Pack and the width of every
	// surface the manager allocates.
	MaxSurfaceWidth int

	// MaxConcurrentFetches bounds how many sprite fetches run at once.
	MaxConcurrentFetches int

	// Filtering is applied to every surface the manager allocates or adopts.
	Filtering surface.Filtering

	// Allocator creates atlas surfaces.
	Allocator surface.Allocator

	// Fetcher loads sprite bitmaps and prepacked atlas images.
	Fetcher fetch.Fetcher

	// OnUpdate receives change notifications in order. Calls are
	// serialized and never made while internal locks are held, so OnUpdate
	// may call Update. It must not call Close when invoked from a fetch
	// goroutine, since Close waits for those to finish.
	OnUpdate func(Update)
}

// DefaultConfig returns the default configuration: 1024 pixel wide
// surfaces from the best available surface backend, trilinear filtering,
// 16 concurrent fetches through a cached fetch.Loader.
func DefaultConfig() Config {
	alloc, err := surface.DefaultAllocator()
	if err != nil {
		alloc = surface.ImageAllocator{}
	}
	return Config{
		MaxSurfaceWidth:      DefaultMaxSurfaceWidth,
		MaxConcurrentFetches: DefaultMaxConcurrentFetches,
		Filtering:            surface.DefaultFiltering(),
		Allocator:            alloc,
		Fetcher:              fetch.NewCached(fetch.NewLoader(), 0),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxSurfaceWidth <= 0 {
		return &ConfigError{Field: "MaxSurfaceWidth", Reason: "must be positive"}
	}
	if c.MaxSurfaceWidth > MaxSurfaceDimension {
		return &ConfigError{Field: "MaxSurfaceWidth", Reason: "must be at most 16384"}
	}
	if c.MaxConcurrentFetches < 1 {
		return &ConfigError{Field: "MaxConcurrentFetches", Reason: "must be at least 1"}
	}
	if c.Allocator == nil {
		return &ConfigError{Field: "Allocator", Reason: "must not be nil"}
	}
	if c.Fetcher == nil {
		return ErrNilFetcher
	}
	return nil
}

// Option configures a Manager during creation.
//
// Example:
//
//	m, err := atlas.New(props,
//	    atlas.WithMaxSurfaceWidth(2048),
//	    atlas.WithOnUpdate(func(u atlas.Update) { redraw() }),
//	)
type Option func(*Config)

// WithConfig replaces the whole configuration. Options after it still apply.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithMaxSurfaceWidth sets the packing row bound.
func WithMaxSurfaceWidth(w int) Option {
	return func(c *Config) {
		c.MaxSurfaceWidth = w
	}
}

// WithMaxConcurrentFetches bounds in-flight fetches.
func WithMaxConcurrentFetches(n int) Option {
	return func(c *Config) {
		c.MaxConcurrentFetches = n
	}
}

// WithFiltering sets the sampler state applied to atlas surfaces.
func WithFiltering(f surface.Filtering) Option {
	return func(c *Config) {
		c.Filtering = f
	}
}

// WithAllocator sets the surface allocator.
//
// Example:
//
//	alloc, _ := surface.NewHALAllocatorFromProvider(provider)
//	m, _ := atlas.New(props, atlas.WithAllocator(alloc))
func WithAllocator(a surface.Allocator) Option {
	return func(c *Config) {
		c.Allocator = a
	}
}

// WithFetcher sets the sprite fetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithOnUpdate sets the notification sink.
func WithOnUpdate(fn func(Update)) Option {
	return func(c *Config) {
		c.OnUpdate = fn
	}
}
