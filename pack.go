package atlas

import "math/bits"

// Layout is the result of packing a sequence of items.
type Layout struct {
	// Mapping holds one rectangle per unique key.
	Mapping *Mapping

	// Width is the row bound the items were packed against.
	Width int

	// Height is the surface height: the next power of two >= PackedHeight.
	Height int

	// PackedHeight is the tight height of all rows, last row included.
	PackedHeight int
}

// column is a pending placement in the row currently being filled.
type column struct {
	item    Item
	xOffset int
}

// cursor tracks shelf state while packing. It is discarded after Pack returns.
type cursor struct {
	xOffset   int
	yOffset   int
	rowHeight int
	pending   []column
}

// flush commits the pending row at the current vertical offset.
func (c *cursor) flush(m *Mapping) {
	for _, col := range c.pending {
		m.rects[col.item.Key] = PlacedRect{
			Key:    col.item.Key,
			X:      col.xOffset,
			Y:      c.yOffset,
			Width:  col.item.Width,
			Height: col.item.Height,
			Mask:   col.item.Mask,
			Anchor: col.item.Anchor,
			Meta:   col.item.Meta,
		}
	}
	c.pending = c.pending[:0]
}

// Pack lays items out in rows ("shelves") of at most maxRowWidth pixels.
//
// Items are visited in order. A key already placed is skipped, so the first
// occurrence's declared size wins. When the next item would overflow the
// current row, the row is closed and a new one starts below the tallest item
// of the previous row. An item wider than maxRowWidth gets a row of its own
// at x = 0 and overflows the bound.
//
// The result is deterministic for a given input order. An empty sequence
// yields an empty mapping and Height 1; callers should treat that as "no
// atlas needed".
//
// Pack fails fast with a *ConfigError when maxRowWidth <= 0 and with an
// *ItemError for an item with an empty key or a non-positive size.
func Pack(items []Item, maxRowWidth int) (Layout, error) {
	if maxRowWidth <= 0 {
		return Layout{}, &ConfigError{Field: "MaxSurfaceWidth", Reason: "must be positive"}
	}

	m := &Mapping{rects: make(map[string]PlacedRect, len(items))}
	seen := make(map[string]struct{}, len(items))
	c := cursor{pending: make([]column, 0, 16)}

	for _, it := range items {
		if it.Key == "" {
			return Layout{}, &ItemError{Key: it.Key, Reason: "empty key"}
		}
		if _, ok := seen[it.Key]; ok {
			continue
		}
		if it.Width <= 0 || it.Height <= 0 {
			return Layout{}, &ItemError{Key: it.Key, Reason: "width and height must be positive"}
		}
		seen[it.Key] = struct{}{}

		if c.xOffset+it.Width > maxRowWidth && len(c.pending) > 0 {
			c.flush(m)
			c.yOffset += c.rowHeight
			c.xOffset = 0
			c.rowHeight = 0
		}

		c.pending = append(c.pending, column{item: it, xOffset: c.xOffset})
		c.xOffset += it.Width
		c.rowHeight = max(c.rowHeight, it.Height)
	}

	if len(c.pending) > 0 {
		c.flush(m)
	}

	packed := c.yOffset + c.rowHeight
	return Layout{
		Mapping:      m,
		Width:        maxRowWidth,
		Height:       NextPowerOfTwo(packed),
		PackedHeight: packed,
	}, nil
}

// NextPowerOfTwo returns the smallest power of two >= n.
// For n <= 1 it returns 1.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// UniqueItems returns items with duplicate keys removed, keeping the first
// occurrence and the original order.
func UniqueItems(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.Key]; ok {
			continue
		}
		seen[it.Key] = struct{}{}
		out = append(out, it)
	}
	return out
}
