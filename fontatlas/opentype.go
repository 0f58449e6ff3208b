package fontatlas

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Measurer reports the horizontal advance of a rune in pixels.
type Measurer interface {
	Measure(r rune) float64
}

// Rasterizer draws a single glyph.
type Rasterizer interface {
	// Rasterize returns a w x h coverage mask with the glyph for r drawn
	// with its baseline origin at origin.
	Rasterize(r rune, w, h int, origin image.Point) (*image.Alpha, error)
}

// openTypeFace is a sized x/image face shared by the OpenType measurer and
// rasterizer. font.Face is not safe for concurrent use.
type openTypeFace struct {
	mu   sync.Mutex
	face font.Face
}

func newOpenTypeFace(data []byte, size float64) (*openTypeFace, error) {
	if data == nil {
		data = goregular.TTF
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fontatlas: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("fontatlas: create face: %w", err)
	}
	return &openTypeFace{face: face}, nil
}

// OpenTypeMeasurer measures advances with golang.org/x/image/font/opentype.
type OpenTypeMeasurer struct {
	f *openTypeFace
}

// NewOpenTypeMeasurer parses TrueType or OpenType data at size pixels per
// em. Nil data selects Go Regular.
func NewOpenTypeMeasurer(data []byte, size float64) (*OpenTypeMeasurer, error) {
	f, err := newOpenTypeFace(data, size)
	if err != nil {
		return nil, err
	}
	return &OpenTypeMeasurer{f: f}, nil
}

// Measure returns the advance of r, or 0 when the font has no glyph for it.
func (m *OpenTypeMeasurer) Measure(r rune) float64 {
	m.f.mu.Lock()
	defer m.f.mu.Unlock()
	adv, ok := m.f.face.GlyphAdvance(r)
	if !ok {
		return 0
	}
	return fixedToFloat(adv)
}

// Close releases the face.
func (m *OpenTypeMeasurer) Close() error {
	return m.f.face.Close()
}

// OpenTypeRasterizer renders glyphs with font.Drawer.
type OpenTypeRasterizer struct {
	f *openTypeFace
}

// NewOpenTypeRasterizer parses TrueType or OpenType data at size pixels per
// em. Nil data selects Go Regular.
func NewOpenTypeRasterizer(data []byte, size float64) (*OpenTypeRasterizer, error) {
	f, err := newOpenTypeFace(data, size)
	if err != nil {
		return nil, err
	}
	return &OpenTypeRasterizer{f: f}, nil
}

// Rasterize implements Rasterizer.
func (z *OpenTypeRasterizer) Rasterize(r rune, w, h int, origin image.Point) (*image.Alpha, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("fontatlas: invalid cell %dx%d for %q", w, h, r)
	}
	mask := image.NewAlpha(image.Rect(0, 0, w, h))

	z.f.mu.Lock()
	defer z.f.mu.Unlock()
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: z.f.face,
		Dot:  fixed.P(origin.X, origin.Y),
	}
	d.DrawString(string(r))
	return mask, nil
}

// Close releases the face.
func (z *OpenTypeRasterizer) Close() error {
	return z.f.face.Close()
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}
