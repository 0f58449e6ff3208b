// Package fontatlas builds glyph atlases for text rendering.
//
// Build measures every rune of a character set, packs one cell per glyph
// with atlas.Pack, rasterizes the glyphs into a top-down canvas and uploads
// it once into a surface. Cells are as tall as FontSize*HeightScale and as
// wide as the measured advance; the glyph baseline sits at
// FontSize*BaselineScale from the top of its cell.
//
// With Config.SDF set, each cell grows by Buffer on every side and the
// rasterized coverage is replaced by a signed distance field, so the atlas
// can be sampled at any scale with a smoothstep around Cutoff.
//
// Glyph rectangles carry Mask: true, and the surface always uses
// clamp-to-edge addressing because padding separates glyphs but not the
// atlas border.
//
// Example:
//
//	cfg := fontatlas.DefaultConfig()
//	cfg.SDF = true
//	fa, err := fontatlas.Build(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	r, _ := fa.Glyph('A')
package fontatlas
