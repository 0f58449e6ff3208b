package surface

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// MipChain holds downscaled versions of a surface's level 0.
//
// Each level is half the size of the previous one (rounded down, minimum 1)
// until both dimensions reach 1 pixel. Level 0 is owned by the surface and
// is not copied.
type MipChain struct {
	levels []*image.NRGBA
}

// newMipChain allocates a chain for base with all levels beyond 0 blank.
func newMipChain(base *image.NRGBA) *MipChain {
	b := base.Bounds()
	n := MipLevelCount(b.Dx(), b.Dy())
	c := &MipChain{levels: make([]*image.NRGBA, n)}
	c.levels[0] = base
	w, h := b.Dx(), b.Dy()
	for i := 1; i < n; i++ {
		w, h = max(1, w/2), max(1, h/2)
		c.levels[i] = image.NewNRGBA(image.Rect(0, 0, w, h))
	}
	return c
}

// Regenerate recomputes levels 1..n from level 0.
func (c *MipChain) Regenerate() {
	if c == nil {
		return
	}
	for i := 1; i < len(c.levels); i++ {
		downsample(c.levels[i], c.levels[i-1])
	}
}

// downsample scales src into dst with a bilinear kernel.
func downsample(dst, src *image.NRGBA) {
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
}

// Level returns the image at level n, or nil if n is out of range.
func (c *MipChain) Level(n int) *image.NRGBA {
	if c == nil || n < 0 || n >= len(c.levels) {
		return nil
	}
	return c.levels[n]
}

// NumLevels returns the number of levels, level 0 included.
func (c *MipChain) NumLevels() int {
	if c == nil {
		return 0
	}
	return len(c.levels)
}

// FlipRows returns a copy of img with its rows in reverse order. The result
// has its origin at (0, 0).
func FlipRows(img image.Image) *image.NRGBA {
	b := img.Bounds()
	src := ToNRGBA(img)
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	rowLen := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		s := src.Pix[y*src.Stride : y*src.Stride+rowLen]
		d := (b.Dy() - 1 - y) * dst.Stride
		copy(dst.Pix[d:d+rowLen], s)
	}
	return dst
}

// ToNRGBA returns img as an *image.NRGBA with its origin at (0, 0). If img
// already is one with a zero origin it is returned unchanged.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// Crop returns the top-left w x h region of img as an NRGBA image.
func Crop(img image.Image, w, h int) *image.NRGBA {
	b := img.Bounds()
	if w == b.Dx() && h == b.Dy() {
		return ToNRGBA(img)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}
