// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fontatlas

import (
	"image"
	"math"
)

const inf = 1e20

// SDF converts glyph coverage into a signed distance field.
//
// Output values encode 255 * (1 - (d/Radius + Cutoff)), where d is the
// distance in pixels to the glyph edge, negative inside. The edge therefore
// maps to 255*(1-Cutoff) and values fall to zero Radius*(1-Cutoff) pixels
// outside the glyph.
type SDF struct {
	// Buffer is the empty margin around each glyph, in pixels.
	Buffer int

	// Radius is the distance range the field covers, in pixels.
	Radius float64

	// Cutoff shifts the edge value; 0.25 puts it at 191.
	Cutoff float64
}

// Transform returns the distance field of a coverage mask of the same size.
func (s SDF) Transform(mask *image.Alpha) *image.Alpha {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewAlpha(b)
	if w == 0 || h == 0 {
		return out
	}

	outer := make([]float64, w*h)
	inner := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := float64(mask.AlphaAt(b.Min.X+x, b.Min.Y+y).A) / 255
			i := y*w + x
			switch {
			case a == 1:
				outer[i], inner[i] = 0, inf
			case a == 0:
				outer[i], inner[i] = inf, 0
			default:
				outer[i] = sq(math.Max(0, 0.5-a))
				inner[i] = sq(math.Max(0, a-0.5))
			}
		}
	}

	n := max(w, h)
	t := &edtScratch{
		f: make([]float64, n),
		d: make([]float64, n),
		v: make([]int, n),
		z: make([]float64, n+1),
	}
	t.transform(outer, w, h)
	t.transform(inner, w, h)

	radius := s.Radius
	if radius <= 0 {
		radius = 1
	}
	for i := range outer {
		d := math.Sqrt(outer[i]) - math.Sqrt(inner[i])
		v := math.Round(255 - 255*(d/radius+s.Cutoff))
		out.Pix[(i/w)*out.Stride+i%w] = uint8(math.Max(0, math.Min(255, v)))
	}
	return out
}

// edtScratch holds the buffers of a 2D Euclidean distance transform
// (Felzenszwalb and Huttenlocher) done as two separable 1D passes.
type edtScratch struct {
	f, d []float64
	v    []int
	z    []float64
}

// transform replaces grid values with squared distances in place.
func (t *edtScratch) transform(grid []float64, w, h int) {
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			t.f[y] = grid[y*w+x]
		}
		t.edt1d(h)
		for y := 0; y < h; y++ {
			grid[y*w+x] = t.d[y]
		}
	}
	for y := 0; y < h; y++ {
		copy(t.f[:w], grid[y*w:(y+1)*w])
		t.edt1d(w)
		copy(grid[y*w:(y+1)*w], t.d[:w])
	}
}

// edt1d computes the lower envelope of parabolas rooted at f[0:n].
func (t *edtScratch) edt1d(n int) {
	f, v, z := t.f, t.v, t.z
	v[0] = 0
	z[0] = -inf
	z[1] = inf
	k := 0
	for q := 1; q < n; q++ {
		s := ((f[q] + float64(q*q)) - (f[v[k]] + float64(v[k]*v[k]))) / float64(2*q-2*v[k])
		for s <= z[k] {
			k--
			s = ((f[q] + float64(q*q)) - (f[v[k]] + float64(v[k]*v[k]))) / float64(2*q-2*v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = inf
	}
	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		t.d[q] = dq*dq + f[v[k]]
	}
}

func sq(v float64) float64 { return v * v }
