package atlas

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/atlas/surface"
)

// countingAllocator records allocations and hands out ImageSurfaces.
type countingAllocator struct {
	calls    int
	surfaces []*surface.ImageSurface
	err      error
}

func (a *countingAllocator) Allocate(w, h int) (surface.Surface, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	s, err := surface.NewImageSurface(w, h)
	if err != nil {
		return nil, err
	}
	a.surfaces = append(a.surfaces, s)
	return s, nil
}

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestStoreReplace(t *testing.T) {
	alloc := &countingAllocator{}
	s := NewStore(alloc, surface.DefaultFiltering())

	m1 := NewMapping(PlacedRect{Key: "a", Width: 4, Height: 4})
	gen1, err := s.Replace(m1, 16, 8)
	if err != nil {
		t.Fatal(err)
	}
	if s.CurrentMapping() != m1 {
		t.Error("CurrentMapping() is not the installed mapping")
	}
	if w, h := s.Size(); w != 16 || h != 8 {
		t.Errorf("Size() = %dx%d, want 16x8", w, h)
	}

	first := s.CurrentSurface()
	gen2, err := s.Replace(NewMapping(), 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	if gen2 == gen1 {
		t.Error("generation did not change on Replace")
	}
	if first == s.CurrentSurface() {
		t.Error("surface identity did not change on Replace")
	}
	if err := alloc.surfaces[0].WriteSubRegion(0, 0, fill(1, 1, color.NRGBA{})); !errors.Is(err, surface.ErrSurfaceClosed) {
		t.Errorf("previous owned surface should be closed, WriteSubRegion = %v", err)
	}
}

func TestStoreReplaceAllocError(t *testing.T) {
	boom := errors.New("out of memory")
	alloc := &countingAllocator{}
	s := NewStore(alloc, surface.DefaultFiltering())
	m := NewMapping()
	gen, _ := s.Replace(m, 4, 4)

	alloc.err = boom
	if _, err := s.Replace(NewMapping(), 4, 4); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if s.Generation() != gen || s.CurrentMapping() != m {
		t.Error("failed Replace must leave the store unchanged")
	}
}

func TestStorePatchRegionFlipsIntoStorage(t *testing.T) {
	s := NewStore(surface.ImageAllocator{}, surface.DefaultFiltering())
	m := NewMapping(
		PlacedRect{Key: "top", X: 0, Y: 0, Width: 2, Height: 2},
		PlacedRect{Key: "below", X: 2, Y: 2, Width: 2, Height: 3},
	)
	gen, _ := s.Replace(m, 8, 8)

	red := color.NRGBA{255, 0, 0, 255}
	blue := color.NRGBA{0, 0, 255, 255}
	src := fill(2, 3, red)
	src.SetNRGBA(0, 0, blue) // top-left of the sprite

	ok, err := s.PatchRegion(gen, "below", src)
	if err != nil || !ok {
		t.Fatalf("PatchRegion = %v, %v; want true, nil", ok, err)
	}

	storage := s.CurrentSurface().(surface.Readable).Snapshot()
	// Rows [8-2-3, 8-2) = [3, 6); the sprite's top row is the last one.
	tests := []struct {
		y    int
		want color.NRGBA
	}{
		{2, color.NRGBA{}},
		{3, red},
		{4, red},
		{5, blue},
		{6, color.NRGBA{}},
	}
	for _, tt := range tests {
		if got := storage.NRGBAAt(2, tt.y); got != tt.want {
			t.Errorf("storage (2,%d) = %v, want %v", tt.y, got, tt.want)
		}
	}

	// Image() converts back to top-down packing space.
	img := s.Image()
	if got := img.NRGBAAt(2, 2); got != blue {
		t.Errorf("top-down (2,2) = %v, want blue", got)
	}

	r, _ := m.Get("below")
	if r.NaturalWidth != 2 || r.NaturalHeight != 3 || r.X != 2 || r.Y != 2 {
		t.Errorf("rect after patch = %+v", r)
	}
}

func TestStorePatchRegionClipsToDeclaredSize(t *testing.T) {
	s := NewStore(surface.ImageAllocator{}, surface.DefaultFiltering())
	m := NewMapping(
		PlacedRect{Key: "a", X: 0, Y: 0, Width: 2, Height: 2},
		PlacedRect{Key: "b", X: 2, Y: 0, Width: 2, Height: 2},
	)
	gen, _ := s.Replace(m, 4, 2)

	ok, err := s.PatchRegion(gen, "a", fill(6, 6, color.NRGBA{0, 255, 0, 255}))
	if !ok || err != nil {
		t.Fatalf("PatchRegion = %v, %v", ok, err)
	}
	img := s.Image()
	if got := img.NRGBAAt(2, 0); got.A != 0 {
		t.Errorf("neighbour pixel = %v, want untouched", got)
	}
	r, _ := m.Get("a")
	if r.NaturalWidth != 6 || r.Width != 2 {
		t.Errorf("natural/declared = %d/%d, want 6/2", r.NaturalWidth, r.Width)
	}
}

func TestStorePatchRegionStale(t *testing.T) {
	s := NewStore(surface.ImageAllocator{}, surface.DefaultFiltering())
	old := NewMapping(PlacedRect{Key: "a", Width: 2, Height: 2})
	oldGen, _ := s.Replace(old, 4, 4)
	newGen, _ := s.Replace(NewMapping(PlacedRect{Key: "b", Width: 2, Height: 2}), 4, 4)

	tests := []struct {
		name string
		gen  uint64
		key  string
	}{
		{"old generation", oldGen, "a"},
		{"old generation known key", oldGen, "b"},
		{"unknown key", newGen, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := s.PatchRegion(tt.gen, tt.key, fill(2, 2, color.NRGBA{A: 255}))
			if ok || err != nil {
				t.Errorf("PatchRegion = %v, %v; want false, nil", ok, err)
			}
		})
	}
	if r, _ := old.Get("a"); r.Loaded() {
		t.Error("stale patch must not touch the old mapping")
	}
}

func TestStorePatchRegionEmptyBitmap(t *testing.T) {
	s := NewStore(surface.ImageAllocator{}, surface.DefaultFiltering())
	gen, _ := s.Replace(NewMapping(PlacedRect{Key: "a", Width: 2, Height: 2}), 4, 4)

	_, err := s.PatchRegion(gen, "a", image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	if !errors.Is(err, ErrInvalidItem) {
		t.Errorf("err = %v, want ErrInvalidItem", err)
	}
}

func TestStoreAdoptDoesNotClose(t *testing.T) {
	s := NewStore(surface.ImageAllocator{}, surface.DefaultFiltering())
	ext, _ := surface.NewImageSurface(4, 4)

	g1 := s.Adopt(NewMapping(), ext)
	g2, _ := s.Replace(NewMapping(), 4, 4)
	if g1 == g2 {
		t.Error("generation did not change")
	}
	if err := ext.WriteSubRegion(0, 0, fill(1, 1, color.NRGBA{})); err != nil {
		t.Errorf("adopted surface was closed: %v", err)
	}
}

func TestStoreLoad(t *testing.T) {
	s := NewStore(surface.ImageAllocator{}, surface.DefaultFiltering())
	m := NewMapping(PlacedRect{Key: "a", Width: 1, Height: 1})
	s.SetMapping(m)

	img := fill(2, 2, color.NRGBA{0, 0, 0, 255})
	img.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	if _, err := s.Load(img); err != nil {
		t.Fatal(err)
	}
	if s.CurrentMapping() != m {
		t.Error("Load must keep the current mapping")
	}
	storage := s.CurrentSurface().(surface.Readable).Snapshot()
	if got := storage.NRGBAAt(0, 1); got.R != 255 {
		t.Errorf("storage (0,1) = %v, want flipped white pixel", got)
	}
	if got := s.Image().NRGBAAt(0, 0); got.R != 255 {
		t.Errorf("Image() (0,0) = %v, want white", got)
	}
	if img, err := s.Export(); err != nil {
		t.Errorf("Export() error = %v", err)
	} else if img.Bounds().Dx() != 2 {
		t.Errorf("Export() bounds = %v", img.Bounds())
	}
}

func TestStoreClearAndClose(t *testing.T) {
	s := NewStore(surface.ImageAllocator{}, surface.DefaultFiltering())
	gen, _ := s.Replace(NewMapping(PlacedRect{Key: "a", Width: 1, Height: 1}), 2, 2)
	s.Clear()

	if s.CurrentMapping() != nil || s.CurrentSurface() != nil {
		t.Error("Clear should drop mapping and surface")
	}
	if s.Image() != nil {
		t.Error("Image() should be nil without a surface")
	}
	if _, err := s.Export(); !errors.Is(err, ErrNoSurface) {
		t.Errorf("Export() = %v, want ErrNoSurface", err)
	}
	if ok, _ := s.PatchRegion(gen, "a", fill(1, 1, color.NRGBA{})); ok {
		t.Error("patch after Clear should be dropped")
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Replace(NewMapping(), 2, 2); !errors.Is(err, ErrClosed) {
		t.Errorf("Replace after Close = %v, want ErrClosed", err)
	}
}
