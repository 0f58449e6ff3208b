package atlas

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/atlas/surface"
)

// Store holds the current mapping and the surface it describes.
//
// Every pixel write goes through PatchRegion or one of the methods that
// install a new surface, all under one mutex, so patches from concurrent
// fetches never interleave with a repack. The generation counter identifies
// the installed surface; a patch carrying an older generation is dropped.
type Store struct {
	mu        sync.Mutex
	alloc     surface.Allocator
	filtering surface.Filtering

	mapping *Mapping
	surf    surface.Surface
	owned   bool
	gen     uint64
	closed  bool
}

// NewStore creates an empty store that allocates surfaces with alloc and
// applies filtering to every surface it installs.
func NewStore(alloc surface.Allocator, filtering surface.Filtering) *Store {
	return &Store{alloc: alloc, filtering: filtering}
}

// CurrentMapping returns the current mapping, or nil.
func (s *Store) CurrentMapping() *Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapping
}

// CurrentSurface returns the current surface, or nil.
func (s *Store) CurrentSurface() surface.Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surf
}

// Generation returns the identity of the current surface.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Size returns the current surface dimensions, or zeros.
func (s *Store) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surf == nil {
		return 0, 0
	}
	return s.surf.Width(), s.surf.Height()
}

// Replace allocates a blank width x height surface and installs it with m.
// The previous surface is closed if the store owns it. On error the store
// is left unchanged.
func (s *Store) Replace(m *Mapping, width, height int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	surf, err := s.alloc.Allocate(width, height)
	if err != nil {
		return 0, fmt.Errorf("atlas: allocate %dx%d surface: %w", width, height, err)
	}
	if err := surf.SetFiltering(s.filtering); err != nil {
		Logger().Warn("atlas: set filtering failed", "err", err)
	}
	s.install(m, surf, true)
	Logger().Debug("atlas: surface replaced",
		"width", width, "height", height, "items", m.Len(), "generation", s.gen)
	return s.gen, nil
}

// Adopt installs an externally owned surface with m. The store never
// closes adopted surfaces.
func (s *Store) Adopt(m *Mapping, surf surface.Surface) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.gen
	}
	s.install(m, surf, false)
	return s.gen
}

// Load allocates a surface the size of img, uploads img with its rows
// flipped into storage order and installs it with the current mapping.
func (s *Store) Load(img image.Image) (uint64, error) {
	b := img.Bounds()
	if b.Empty() {
		return 0, fmt.Errorf("atlas: empty atlas image")
	}
	flipped := surface.FlipRows(img)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	surf, err := s.alloc.Allocate(b.Dx(), b.Dy())
	if err != nil {
		return 0, fmt.Errorf("atlas: allocate %dx%d surface: %w", b.Dx(), b.Dy(), err)
	}
	if err := surf.WriteSubRegion(0, 0, flipped); err != nil {
		_ = surf.Close()
		return 0, fmt.Errorf("atlas: upload atlas image: %w", err)
	}
	if err := surf.RegenerateMips(); err != nil {
		Logger().Warn("atlas: regenerate mips failed", "err", err)
	}
	if err := surf.SetFiltering(s.filtering); err != nil {
		Logger().Warn("atlas: set filtering failed", "err", err)
	}
	s.install(s.mapping, surf, true)
	return s.gen, nil
}

// SetMapping swaps the mapping without touching the surface.
func (s *Store) SetMapping(m *Mapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapping = m
}

// Clear drops the mapping and the surface.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.install(nil, nil, false)
}

// Close clears the store. Later Replace and Load calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.install(nil, nil, false)
	s.closed = true
	return nil
}

// install must be called with s.mu held.
func (s *Store) install(m *Mapping, surf surface.Surface, owned bool) {
	if s.surf != nil && s.owned && s.surf != surf {
		if err := s.surf.Close(); err != nil {
			Logger().Warn("atlas: close surface failed", "err", err)
		}
	}
	s.mapping = m
	s.surf = surf
	s.owned = owned
	s.gen++
}

// PatchRegion writes the bitmap for key into the current surface.
//
// It returns false without error when gen is not the current generation,
// there is no surface, or key is not in the current mapping: the patch was
// superseded by a later repack.
//
// The written area is the bitmap's natural size clipped to the declared
// rectangle. It is stored bottom-up in rows [H-y-writeHeight, H-y) of a
// surface H rows tall, so the sprite's bottom row comes first and its top
// row lands at H-y-1. Mip levels are regenerated and the natural size is
// merged into the mapping entry.
func (s *Store) PatchRegion(gen uint64, key string, img image.Image) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.surf == nil || s.mapping == nil {
		return false, nil
	}
	r, ok := s.mapping.Get(key)
	if !ok {
		return false, nil
	}

	b := img.Bounds()
	natW, natH := b.Dx(), b.Dy()
	if natW <= 0 || natH <= 0 {
		return false, &ItemError{Key: key, Reason: "empty bitmap"}
	}

	sw, sh := s.surf.Width(), s.surf.Height()
	writeW := min(natW, r.Width, sw-r.X)
	writeH := min(natH, r.Height, sh-r.Y)
	if writeW <= 0 || writeH <= 0 {
		return false, &ItemError{Key: key, Reason: "rectangle outside surface"}
	}

	region := surface.FlipRows(surface.Crop(img, writeW, writeH))
	destY := sh - r.Y - writeH
	if err := s.surf.WriteSubRegion(r.X, destY, region); err != nil {
		return false, fmt.Errorf("atlas: patch %q: %w", key, err)
	}
	if err := s.surf.RegenerateMips(); err != nil {
		return false, fmt.Errorf("atlas: patch %q: %w", key, err)
	}
	s.mapping.setNatural(key, natW, natH)
	return true, nil
}

// Image returns the current surface contents top-down, or nil when there
// is no surface or it cannot be read back.
func (s *Store) Image() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.surf.(surface.Readable)
	if !ok {
		return nil
	}
	return surface.FlipRows(rs.Snapshot())
}

// ErrNotReadable is returned by Export for surfaces without CPU read-back.
var ErrNotReadable = errors.New("atlas: surface cannot be read back")

// Export is Image with errors: ErrNoSurface when nothing is allocated and
// ErrNotReadable when the surface has no CPU copy.
func (s *Store) Export() (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surf == nil {
		return nil, ErrNoSurface
	}
	rs, ok := s.surf.(surface.Readable)
	if !ok {
		return nil, ErrNotReadable
	}
	return surface.FlipRows(rs.Snapshot()), nil
}
