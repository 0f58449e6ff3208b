package atlas

import (
	"encoding/json"
	"fmt"
	"image"
	"sort"
	"sync"
)

// Item is a single sprite to be placed in an atlas.
//
// Width and Height are the declared size used for layout. The real bitmap
// fetched later may differ; layout is never recomputed from it.
type Item struct {
	// Key uniquely identifies the item, typically the bitmap locator (URL or path).
	Key string

	// Width is the declared width in pixels.
	Width int

	// Height is the declared height in pixels.
	Height int

	// Mask marks the sprite as an alpha mask to be tinted by the renderer.
	Mask bool

	// Anchor is the sprite's anchor point relative to its top-left corner.
	Anchor image.Point

	// Meta is arbitrary caller data carried into the PlacedRect unchanged.
	Meta any
}

// PlacedRect is an item's rectangle in the atlas.
//
// X, Y, Width and Height are in packing space (origin top-left, Y down) and
// are fixed by the declared size. NaturalWidth and NaturalHeight are zero until
// the real bitmap has been patched into the surface.
type PlacedRect struct {
	Key    string
	X      int
	Y      int
	Width  int
	Height int

	NaturalWidth  int
	NaturalHeight int

	Mask   bool
	Anchor image.Point
	Meta   any
}

// IsPlaceholder reports whether r is the empty rectangle returned for
// unknown keys.
func (r PlacedRect) IsPlaceholder() bool {
	return r.Key == "" && r.Width == 0 && r.Height == 0
}

// Bounds returns the rectangle in packing space.
func (r PlacedRect) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Loaded reports whether the real bitmap has been written for this rect.
func (r PlacedRect) Loaded() bool {
	return r.NaturalWidth > 0 && r.NaturalHeight > 0
}

// String returns a string representation of the rect.
func (r PlacedRect) String() string {
	return fmt.Sprintf("%s(%d,%d %dx%d)", r.Key, r.X, r.Y, r.Width, r.Height)
}

// Mapping maps item keys to their placed rectangles.
//
// The pointer identity of a Mapping is meaningful: Manager treats a different
// *Mapping as a changed mapping. Mapping is safe for concurrent use; the store
// merges natural sizes into it while renderers read from it.
type Mapping struct {
	mu    sync.RWMutex
	rects map[string]PlacedRect
}

// NewMapping creates a mapping from the given rectangles.
// When keys repeat, the first rectangle wins.
func NewMapping(rects ...PlacedRect) *Mapping {
	m := &Mapping{rects: make(map[string]PlacedRect, len(rects))}
	for _, r := range rects {
		if _, ok := m.rects[r.Key]; !ok {
			m.rects[r.Key] = r
		}
	}
	return m
}

// Get returns the rectangle for key.
func (m *Mapping) Get(key string) (PlacedRect, bool) {
	if m == nil {
		return PlacedRect{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rects[key]
	return r, ok
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rects)
}

// Keys returns all keys in sorted order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	keys := make([]string, 0, len(m.rects))
	for k := range m.rects {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Rects returns a copy of all rectangles sorted by key.
func (m *Mapping) Rects() []PlacedRect {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	out := make([]PlacedRect, 0, len(m.rects))
	for _, r := range m.rects {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// setNatural merges the fetched bitmap size into an existing entry.
// Geometry is left untouched.
func (m *Mapping) setNatural(key string, w, h int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rects[key]
	if !ok {
		return false
	}
	r.NaturalWidth = w
	r.NaturalHeight = h
	m.rects[key] = r
	return true
}

// jsonRect is the wire form of a PlacedRect.
type jsonRect struct {
	X             int  `json:"x"`
	Y             int  `json:"y"`
	Width         int  `json:"width"`
	Height        int  `json:"height"`
	NaturalWidth  int  `json:"naturalWidth,omitempty"`
	NaturalHeight int  `json:"naturalHeight,omitempty"`
	Mask          bool `json:"mask,omitempty"`
	AnchorX       int  `json:"anchorX,omitempty"`
	AnchorY       int  `json:"anchorY,omitempty"`
}

// MarshalJSON encodes the mapping as an object keyed by item key.
// Meta is not encoded.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	out := make(map[string]jsonRect, m.Len())
	for _, r := range m.Rects() {
		out[r.Key] = jsonRect{
			X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
			NaturalWidth: r.NaturalWidth, NaturalHeight: r.NaturalHeight,
			Mask: r.Mask, AnchorX: r.Anchor.X, AnchorY: r.Anchor.Y,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a mapping produced by MarshalJSON or by an external
// atlas tool using the same field names.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var in map[string]jsonRect
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("atlas: decode mapping: %w", err)
	}
	rects := make(map[string]PlacedRect, len(in))
	for key, r := range in {
		if r.Width < 0 || r.Height < 0 {
			return &ItemError{Key: key, Reason: "negative size in mapping"}
		}
		rects[key] = PlacedRect{
			Key: key, X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
			NaturalWidth: r.NaturalWidth, NaturalHeight: r.NaturalHeight,
			Mask: r.Mask, Anchor: image.Point{X: r.AnchorX, Y: r.AnchorY},
		}
	}
	m.mu.Lock()
	m.rects = rects
	m.mu.Unlock()
	return nil
}
