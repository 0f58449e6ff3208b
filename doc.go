// Package atlas packs sprites into a single GPU texture and keeps it current.
//
// # Overview
//
// A renderer that draws many small bitmaps (icons, glyphs, markers) binds
// one shared texture and samples a rectangle of it per sprite. This package
// computes those rectangles, owns the texture, and patches each sprite into
// it as its bitmap arrives, without blocking on the others.
//
// # Quick Start
//
//	type poi struct{ Icon string }
//
//	m, err := atlas.New(atlas.Props[poi]{
//	    Source: atlas.AutoPacked[poi]{Data: pois},
//	    Icon: func(p poi) (atlas.Item, bool) {
//	        return atlas.Item{Key: p.Icon, Width: 32, Height: 32}, true
//	    },
//	}, atlas.WithOnUpdate(func(u atlas.Update) { redraw() }))
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	rect := m.Lookup(pois[0])
//
// # Packing
//
// Pack places items on shelves: left to right until the row bound, then a
// new row below the tallest item of the previous one. The first occurrence
// of a key wins. The surface is as wide as the row bound and as tall as the
// next power of two of the packed height. Layout uses declared sizes only;
// a fetched bitmap is clipped to its declared rectangle.
//
// # Sources
//
// A Manager serves either a Prepacked atlas built elsewhere (a surface or
// an image URL, plus its mapping) or AutoPacked records it packs itself.
// Update compares the new props with the previous ones: a changed prepacked
// mapping is swapped in, a changed prepacked atlas is adopted, and
// auto-packed records are repacked only when ChangeFlags ask for it.
//
// # Orientation
//
// Mapping coordinates are top-down (origin top-left, Y down). Surfaces
// store rows bottom-up, so a sprite at y with height h occupies storage rows
// [H-y-h, H-y). Store.Image converts back for export.
//
// # Concurrency
//
// Each sprite fetch runs on its own goroutine, bounded by
// Config.MaxConcurrentFetches. All pixel writes go through
// Store.PatchRegion under one lock, and patches for a surface replaced by a
// later repack are dropped. Notifications are serialized.
//
// # Sub-packages
//
//   - surface: texture abstraction, CPU and wgpu HAL implementations
//   - fetch: sprite loading and decoding with caching
//   - fontatlas: glyph and SDF atlases built on Pack
//   - cache: sharded LRU cache
package atlas
