// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
)

// Surface errors.
var (
	// ErrSurfaceClosed is returned when writing to a closed surface.
	ErrSurfaceClosed = errors.New("surface: surface is closed")

	// ErrInvalidDimensions is returned when allocating a surface with a
	// non-positive width or height.
	ErrInvalidDimensions = errors.New("surface: width and height must be positive")

	// ErrRegionOutOfBounds is returned when a write falls outside the surface.
	ErrRegionOutOfBounds = errors.New("surface: region is outside surface bounds")
)

// Surface is a GPU-resident (or GPU-like) 2D pixel buffer holding an atlas.
//
// Coordinates passed to Surface are storage coordinates: row 0 is the first
// row in memory. The atlas package stores images bottom-up, so row 0 is the
// bottom of the atlas as seen in packing space.
//
// Surfaces are NOT thread-safe. The atlas store serializes all access.
type Surface interface {
	// Width returns the surface width in pixels.
	Width() int

	// Height returns the surface height in pixels.
	Height() int

	// WriteSubRegion copies img into the surface with its top-left row at
	// (x, y) in storage coordinates. img.Bounds().Min is ignored.
	WriteSubRegion(x, y int, img *image.NRGBA) error

	// RegenerateMips recomputes all downsampled levels from level 0.
	RegenerateMips() error

	// SetFiltering configures how the surface is sampled.
	SetFiltering(f Filtering) error

	// Close releases all resources. Close is idempotent.
	Close() error
}

// Readable is implemented by surfaces that can return their level-0 pixels.
type Readable interface {
	Surface

	// Snapshot returns a copy of level 0 in storage order.
	Snapshot() *image.NRGBA
}

// Allocator creates surfaces.
type Allocator interface {
	Allocate(width, height int) (Surface, error)
}

// AllocatorFunc adapts a function to the Allocator interface.
type AllocatorFunc func(width, height int) (Surface, error)

// Allocate calls f(width, height).
func (f AllocatorFunc) Allocate(width, height int) (Surface, error) {
	return f(width, height)
}

// Filtering describes sampler state for an atlas surface.
type Filtering struct {
	// Min is the minification filter.
	Min gputypes.FilterMode

	// Mag is the magnification filter.
	Mag gputypes.FilterMode

	// Mipmap selects between mip levels. Linear here together with linear
	// Min gives trilinear filtering.
	Mipmap gputypes.FilterMode

	// AddressMode applies to both U and V.
	AddressMode gputypes.AddressMode
}

// DefaultFiltering returns trilinear minification, linear magnification and
// clamp-to-edge addressing.
func DefaultFiltering() Filtering {
	return Filtering{
		Min:         gputypes.FilterModeLinear,
		Mag:         gputypes.FilterModeLinear,
		Mipmap:      gputypes.FilterModeLinear,
		AddressMode: gputypes.AddressModeClampToEdge,
	}
}

// MipLevelCount returns the number of levels in a full mip chain for a
// width x height surface.
func MipLevelCount(width, height int) int {
	n := 1
	for d := max(width, height); d > 1; d >>= 1 {
		n++
	}
	return n
}

// checkRegion validates that a w x h write at (x, y) fits in a surface.
func checkRegion(s Surface, x, y, w, h int) error {
	if x < 0 || y < 0 || x+w > s.Width() || y+h > s.Height() {
		return fmt.Errorf("%w: %dx%d at (%d,%d) in %dx%d",
			ErrRegionOutOfBounds, w, h, x, y, s.Width(), s.Height())
	}
	return nil
}
