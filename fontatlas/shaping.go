package fontatlas

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/gofont/goregular"
)

// ShapingMeasurer measures advances by shaping each rune with the
// go-text/typesetting HarfBuzz port. Unlike OpenTypeMeasurer the result is
// unhinted.
//
// ShapingMeasurer is safe for concurrent use: the parsed font is shared and
// each call gets its own face and pooled shaper.
type ShapingMeasurer struct {
	font *font.Font
	size float64

	shapers sync.Pool
}

// NewShapingMeasurer parses TrueType or OpenType data. Nil data selects
// Go Regular.
func NewShapingMeasurer(data []byte, size float64) (*ShapingMeasurer, error) {
	if data == nil {
		data = goregular.TTF
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("fontatlas: parse font: %w", err)
	}
	return &ShapingMeasurer{
		font: face.Font,
		size: size,
		shapers: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
	}, nil
}

// Measure returns the shaped advance of r.
func (m *ShapingMeasurer) Measure(r rune) float64 {
	runes := []rune{r}
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      font.NewFace(m.font),
		Size:      floatToFixed(m.size),
		Script:    language.LookupScript(r),
		Language:  language.NewLanguage("en"),
	}

	hb := m.shapers.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(input)
	m.shapers.Put(hb)

	return fixedToFloat(out.Advance)
}
