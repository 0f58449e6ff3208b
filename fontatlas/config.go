package fontatlas

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/atlas"
	"github.com/gogpu/atlas/surface"
)

// Layout constants.
const (
	// HeightScale is the cell height as a multiple of the font size.
	HeightScale = 1.2

	// BaselineScale places the baseline below the top of a cell, as a
	// multiple of the font size.
	BaselineScale = 0.9
)

// Defaults.
const (
	DefaultFontSize = 64
	DefaultPadding  = 4
	DefaultBuffer   = 2
	DefaultRadius   = 3
	DefaultCutoff   = 0.25
	DefaultMaxWidth = atlas.DefaultMaxSurfaceWidth
)

// Config holds font atlas parameters.
type Config struct {
	// Font is TrueType or OpenType data. Nil selects Go Regular.
	Font []byte

	// CharacterSet lists the runes to include. Nil selects
	// DefaultCharacterSet. Order and duplicates do not matter.
	CharacterSet []rune

	// FontSize is the rasterization size in pixels per em.
	FontSize float64

	// Padding separates neighbouring cells, in pixels.
	Padding int

	// MaxWidth is the atlas width and packing row bound.
	MaxWidth int

	// SDF selects a signed distance field instead of plain coverage.
	SDF bool

	// Buffer, Radius and Cutoff configure the distance field.
	Buffer int
	Radius float64
	Cutoff float64

	// Filtering is the sampler state; its address mode is always forced
	// to clamp-to-edge.
	Filtering surface.Filtering

	// Measurer and Rasterizer override the OpenType implementations
	// created from Font.
	Measurer   Measurer
	Rasterizer Rasterizer
}

// DefaultConfig returns a 64px Go Regular ASCII atlas without SDF.
func DefaultConfig() Config {
	return Config{
		CharacterSet: DefaultCharacterSet(),
		FontSize:     DefaultFontSize,
		Padding:      DefaultPadding,
		MaxWidth:     DefaultMaxWidth,
		Buffer:       DefaultBuffer,
		Radius:       DefaultRadius,
		Cutoff:       DefaultCutoff,
		Filtering:    surface.DefaultFiltering(),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.FontSize <= 0 {
		return &atlas.ConfigError{Field: "FontSize", Reason: "must be positive"}
	}
	if c.Padding < 0 {
		return &atlas.ConfigError{Field: "Padding", Reason: "must be non-negative"}
	}
	if c.MaxWidth <= 0 || c.MaxWidth > atlas.MaxSurfaceDimension {
		return &atlas.ConfigError{Field: "MaxWidth", Reason: "must be in 1..16384"}
	}
	if c.SDF {
		if c.Buffer < 0 {
			return &atlas.ConfigError{Field: "Buffer", Reason: "must be non-negative"}
		}
		if c.Radius <= 0 {
			return &atlas.ConfigError{Field: "Radius", Reason: "must be positive"}
		}
		if c.Cutoff < 0 || c.Cutoff >= 1 {
			return &atlas.ConfigError{Field: "Cutoff", Reason: "must be in [0, 1)"}
		}
	}
	return nil
}

// sdf returns the distance field parameters.
func (c *Config) sdf() SDF {
	return SDF{Buffer: c.Buffer, Radius: c.Radius, Cutoff: c.Cutoff}
}

// filtering returns Filtering with clamp-to-edge addressing.
func (c *Config) filtering() surface.Filtering {
	f := c.Filtering
	if f == (surface.Filtering{}) {
		f = surface.DefaultFiltering()
	}
	f.AddressMode = gputypes.AddressModeClampToEdge
	return f
}
