// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fontatlas

import (
	"errors"
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/atlas"
	"github.com/gogpu/atlas/surface"
)

// ErrEmptyCharacterSet is returned when there is nothing to build.
var ErrEmptyCharacterSet = errors.New("fontatlas: empty character set")

// Glyph is the Meta value of every glyph rectangle.
type Glyph struct {
	Rune    rune
	Advance float64
}

// Atlas is a built font atlas.
type Atlas struct {
	// Mapping holds one Mask rectangle per rune, keyed by string(rune).
	// Rectangles exclude padding but include the SDF buffer.
	Mapping *atlas.Mapping

	// Scale is the cell height as a multiple of FontSize.
	Scale float64

	// FontSize and SDF echo the configuration.
	FontSize float64
	SDF      bool

	// Baseline is the distance from the top of a cell to the baseline.
	Baseline int

	// Surface holds the glyphs in storage (bottom-up) order.
	Surface surface.Surface

	// Image is the same canvas top-down, for export.
	Image *image.NRGBA
}

// Glyph returns the rectangle for r.
func (a *Atlas) Glyph(r rune) (atlas.PlacedRect, bool) {
	return a.Mapping.Get(string(r))
}

// Close releases the surface.
func (a *Atlas) Close() error {
	if a.Surface == nil {
		return nil
	}
	return a.Surface.Close()
}

// Build creates a font atlas synchronously. A nil alloc selects
// surface.ImageAllocator.
func Build(cfg Config, alloc surface.Allocator) (*Atlas, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	chars := NormalizeCharacterSet(cfg.CharacterSet)
	if cfg.CharacterSet == nil {
		chars = DefaultCharacterSet()
	}
	if len(chars) == 0 {
		return nil, ErrEmptyCharacterSet
	}
	if alloc == nil {
		alloc = surface.ImageAllocator{}
	}

	measurer, rasterizer := cfg.Measurer, cfg.Rasterizer
	if measurer == nil {
		m, err := NewOpenTypeMeasurer(cfg.Font, cfg.FontSize)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = m.Close()
		}()
		measurer = m
	}
	if rasterizer == nil {
		z, err := NewOpenTypeRasterizer(cfg.Font, cfg.FontSize)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = z.Close()
		}()
		rasterizer = z
	}

	cellH := int(math.Ceil(cfg.FontSize * HeightScale))
	baseline := int(math.Round(cfg.FontSize * BaselineScale))
	border := 0
	if cfg.SDF {
		border = cfg.Buffer
	}

	items := make([]atlas.Item, 0, len(chars))
	for _, r := range chars {
		adv := measurer.Measure(r)
		w := max(1, int(math.Ceil(adv))) + 2*border
		items = append(items, atlas.Item{
			Key:    string(r),
			Width:  w + cfg.Padding,
			Height: cellH + 2*border + cfg.Padding,
			Mask:   true,
			Meta:   Glyph{Rune: r, Advance: adv},
		})
	}

	layout, err := atlas.Pack(items, cfg.MaxWidth)
	if err != nil {
		return nil, err
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, layout.Width, layout.Height))
	sdf := cfg.sdf()
	rects := layout.Mapping.Rects()
	for i := range rects {
		r := &rects[i]
		r.Width -= cfg.Padding
		r.Height -= cfg.Padding
		r.NaturalWidth, r.NaturalHeight = r.Width, r.Height

		g := r.Meta.(Glyph)
		mask, err := rasterizer.Rasterize(g.Rune, r.Width, r.Height, image.Pt(border, border+baseline))
		if err != nil {
			return nil, fmt.Errorf("fontatlas: rasterize %q: %w", g.Rune, err)
		}
		if cfg.SDF {
			mask = sdf.Transform(mask)
		}
		xdraw.DrawMask(canvas, r.Bounds(), image.Black, image.Point{}, mask, mask.Bounds().Min, xdraw.Src)
	}

	surf, err := alloc.Allocate(layout.Width, layout.Height)
	if err != nil {
		return nil, fmt.Errorf("fontatlas: allocate %dx%d surface: %w", layout.Width, layout.Height, err)
	}
	if err := upload(surf, canvas, cfg.filtering()); err != nil {
		_ = surf.Close()
		return nil, err
	}

	atlas.Logger().Debug("fontatlas: built",
		"glyphs", len(rects), "width", layout.Width, "height", layout.Height,
		"fontSize", cfg.FontSize, "sdf", cfg.SDF)

	return &Atlas{
		Mapping:  atlas.NewMapping(rects...),
		Scale:    HeightScale,
		FontSize: cfg.FontSize,
		SDF:      cfg.SDF,
		Baseline: border + baseline,
		Surface:  surf,
		Image:    canvas,
	}, nil
}

// upload writes the top-down canvas into surf in storage order.
func upload(surf surface.Surface, canvas *image.NRGBA, f surface.Filtering) error {
	if err := surf.WriteSubRegion(0, 0, surface.FlipRows(canvas)); err != nil {
		return fmt.Errorf("fontatlas: upload: %w", err)
	}
	if err := surf.RegenerateMips(); err != nil {
		return fmt.Errorf("fontatlas: mips: %w", err)
	}
	if err := surf.SetFiltering(f); err != nil {
		return fmt.Errorf("fontatlas: filtering: %w", err)
	}
	return nil
}
