// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
)

// ImageSurface is a CPU-based surface backed by an *image.NRGBA.
//
// It keeps a full mip chain in memory and records the sampler state it was
// given, so it behaves like a GPU texture for tests, headless tools and
// atlas export.
//
// Example:
//
//	s, _ := surface.NewImageSurface(1024, 256)
//	defer s.Close()
//
//	_ = s.WriteSubRegion(0, 0, icon)
//	_ = s.RegenerateMips()
//	png.Encode(w, s.Snapshot())
type ImageSurface struct {
	width  int
	height int
	img    *image.NRGBA
	mips   *MipChain

	filtering Filtering

	// closed tracks if Close has been called
	closed bool
}

// NewImageSurface creates a new CPU-based surface with the given dimensions.
// All pixels start fully transparent.
func NewImageSurface(width, height int) (*ImageSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	return &ImageSurface{
		width:     width,
		height:    height,
		img:       img,
		mips:      newMipChain(img),
		filtering: DefaultFiltering(),
	}, nil
}

// NewImageSurfaceFromImage creates a surface holding a copy of img.
// img is taken to be in storage order already.
func NewImageSurfaceFromImage(img image.Image) (*ImageSurface, error) {
	b := img.Bounds()
	s, err := NewImageSurface(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	copy(s.img.Pix, ToNRGBA(img).Pix)
	s.mips.Regenerate()
	return s, nil
}

// Width returns the surface width.
func (s *ImageSurface) Width() int {
	return s.width
}

// Height returns the surface height.
func (s *ImageSurface) Height() int {
	return s.height
}

// WriteSubRegion copies img into level 0 with its first row at (x, y).
func (s *ImageSurface) WriteSubRegion(x, y int, img *image.NRGBA) error {
	if s.closed {
		return ErrSurfaceClosed
	}
	b := img.Bounds()
	if err := checkRegion(s, x, y, b.Dx(), b.Dy()); err != nil {
		return err
	}
	rowLen := b.Dx() * 4
	for row := 0; row < b.Dy(); row++ {
		si := img.PixOffset(b.Min.X, b.Min.Y+row)
		di := s.img.PixOffset(x, y+row)
		copy(s.img.Pix[di:di+rowLen], img.Pix[si:si+rowLen])
	}
	return nil
}

// RegenerateMips recomputes all downsampled levels.
func (s *ImageSurface) RegenerateMips() error {
	if s.closed {
		return ErrSurfaceClosed
	}
	s.mips.Regenerate()
	return nil
}

// SetFiltering records the sampler state.
func (s *ImageSurface) SetFiltering(f Filtering) error {
	if s.closed {
		return ErrSurfaceClosed
	}
	s.filtering = f
	return nil
}

// Filtering returns the last sampler state set on the surface.
func (s *ImageSurface) Filtering() Filtering {
	return s.filtering
}

// Mips returns the surface's mip chain. Level 0 aliases the surface pixels.
func (s *ImageSurface) Mips() *MipChain {
	return s.mips
}

// Snapshot returns a copy of level 0 in storage order.
func (s *ImageSurface) Snapshot() *image.NRGBA {
	out := image.NewNRGBA(s.img.Rect)
	copy(out.Pix, s.img.Pix)
	return out
}

// Close releases the pixel buffers. The surface cannot be used afterwards.
func (s *ImageSurface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.mips = nil
	return nil
}

var _ Readable = (*ImageSurface)(nil)
