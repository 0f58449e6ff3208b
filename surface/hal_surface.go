// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoHALProvider is returned when a device provider does not expose
// wgpu HAL objects.
var ErrNoHALProvider = errors.New("surface: provider does not expose HAL device and queue")

// surfaceSeq numbers GPU labels so captures can tell atlases apart.
var surfaceSeq atomic.Uint64

// HALSurface is an RGBA8 texture on a wgpu HAL device.
//
// Pixels are mirrored in a CPU ImageSurface. Sub-region writes upload only
// the written region of level 0 and grow a dirty rectangle; RegenerateMips
// downsamples on the CPU and uploads, per level beyond 0, only the texels
// that depend on the dirty rectangle.
type HALSurface struct {
	device hal.Device
	queue  hal.Queue

	label   string
	texture hal.Texture
	view    hal.TextureView
	sampler hal.Sampler

	shadow *ImageSurface
	dirty  image.Rectangle
	closed bool
}

// NewHALSurface creates a width x height texture with a full mip chain, a
// view covering all levels and a sampler using DefaultFiltering.
func NewHALSurface(device hal.Device, queue hal.Queue, width, height int) (*HALSurface, error) {
	if device == nil || queue == nil {
		return nil, ErrNoHALProvider
	}
	shadow, err := NewImageSurface(width, height)
	if err != nil {
		return nil, err
	}

	s := &HALSurface{
		device: device,
		queue:  queue,
		label:  fmt.Sprintf("atlas_surface_%d", surfaceSeq.Add(1)),
		shadow: shadow,
	}

	levels := uint32(shadow.Mips().NumLevels()) //nolint:gosec // level count is at most 32
	tex, err := device.CreateTexture(textureDescriptor(s.label, width, height, levels))
	if err != nil {
		return nil, fmt.Errorf("surface: create texture %s: %w", s.label, err)
	}
	s.texture = tex

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         s.label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: levels,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("surface: create texture view %s: %w", s.label, err)
	}
	s.view = view

	if err := s.SetFiltering(DefaultFiltering()); err != nil {
		device.DestroyTextureView(view)
		device.DestroyTexture(tex)
		return nil, err
	}

	Logger().Debug("surface: hal texture created",
		"label", s.label, "width", width, "height", height, "mips", levels)
	return s, nil
}

// Width returns the texture width.
func (s *HALSurface) Width() int { return s.shadow.Width() }

// Height returns the texture height.
func (s *HALSurface) Height() int { return s.shadow.Height() }

// Texture returns the underlying HAL texture.
func (s *HALSurface) Texture() hal.Texture { return s.texture }

// TextureView returns a view over all mip levels.
func (s *HALSurface) TextureView() hal.TextureView { return s.view }

// Sampler returns the sampler matching the last SetFiltering call.
func (s *HALSurface) Sampler() hal.Sampler { return s.sampler }

// WriteSubRegion writes img into the shadow copy and uploads the same
// region of level 0.
func (s *HALSurface) WriteSubRegion(x, y int, img *image.NRGBA) error {
	if s.closed {
		return ErrSurfaceClosed
	}
	if err := s.shadow.WriteSubRegion(x, y, img); err != nil {
		return err
	}
	b := img.Bounds()
	r := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	s.dirty = s.dirty.Union(r)
	return s.upload(0, s.shadow.img.SubImage(r).(*image.NRGBA))
}

// RegenerateMips downsamples the shadow copy and uploads the part of
// levels 1..n covered by writes since the previous call.
func (s *HALSurface) RegenerateMips() error {
	if s.closed {
		return ErrSurfaceClosed
	}
	if err := s.shadow.RegenerateMips(); err != nil {
		return err
	}
	mips := s.shadow.Mips()
	area := s.dirty
	s.dirty = image.Rectangle{}
	for i := 1; i < mips.NumLevels() && !area.Empty(); i++ {
		level := mips.Level(i)
		area = mipFootprint(area, mips.Level(i-1).Bounds(), level.Bounds())
		if err := s.upload(uint32(i), level.SubImage(area).(*image.NRGBA)); err != nil { //nolint:gosec // level index is small
			return err
		}
	}
	return nil
}

// mipFootprint maps r from a level with bounds src to the next level with
// bounds dst, widened by two texels for the bilinear kernel.
func mipFootprint(r, src, dst image.Rectangle) image.Rectangle {
	const margin = 2
	scale := func(v, to, from int, up bool) int {
		if up {
			return (v*to + from - 1) / from
		}
		return v * to / from
	}
	f := image.Rect(
		scale(r.Min.X, dst.Dx(), src.Dx(), false)-margin,
		scale(r.Min.Y, dst.Dy(), src.Dy(), false)-margin,
		scale(r.Max.X, dst.Dx(), src.Dx(), true)+margin,
		scale(r.Max.Y, dst.Dy(), src.Dy(), true)+margin,
	)
	return f.Intersect(dst)
}

// SetFiltering replaces the sampler.
func (s *HALSurface) SetFiltering(f Filtering) error {
	if s.closed {
		return ErrSurfaceClosed
	}
	sampler, err := s.device.CreateSampler(samplerDescriptor(s.label+"_sampler", f))
	if err != nil {
		return fmt.Errorf("surface: create sampler %s: %w", s.label, err)
	}
	if s.sampler != nil {
		s.device.DestroySampler(s.sampler)
	}
	s.sampler = sampler
	_ = s.shadow.SetFiltering(f)
	return nil
}

// Snapshot returns a copy of the shadow level 0.
func (s *HALSurface) Snapshot() *image.NRGBA {
	return s.shadow.Snapshot()
}

// Close destroys the sampler, view and texture. Close is idempotent.
func (s *HALSurface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.sampler != nil {
		s.device.DestroySampler(s.sampler)
		s.sampler = nil
	}
	if s.view != nil {
		s.device.DestroyTextureView(s.view)
		s.view = nil
	}
	if s.texture != nil {
		s.device.DestroyTexture(s.texture)
		s.texture = nil
	}
	return s.shadow.Close()
}

// upload copies img to the given mip level at img.Bounds().Min.
func (s *HALSurface) upload(level uint32, img *image.NRGBA) error {
	b := img.Bounds()
	w, h := uint32(b.Dx()), uint32(b.Dy()) //nolint:gosec // surface sizes fit uint32
	err := s.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  s.texture,
			MipLevel: level,
			Origin:   hal.Origin3D{X: uint32(b.Min.X), Y: uint32(b.Min.Y)}, //nolint:gosec // inside the level bounds
			Aspect:   gputypes.TextureAspectAll,
		},
		packRows(img),
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("surface: upload %s level %d: %w", s.label, level, err)
	}
	return nil
}

// packRows returns img's pixels with no padding between rows.
func packRows(img *image.NRGBA) []byte {
	b := img.Bounds()
	rowLen := b.Dx() * 4
	if img.Stride == rowLen && b.Min == (image.Point{}) {
		return img.Pix[:rowLen*b.Dy()]
	}
	out := make([]byte, rowLen*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		i := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*rowLen:(y+1)*rowLen], img.Pix[i:i+rowLen])
	}
	return out
}

func textureDescriptor(label string, width, height int, levels uint32) *hal.TextureDescriptor {
	return &hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(width),  //nolint:gosec // validated positive
			Height:             uint32(height), //nolint:gosec // validated positive
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: levels,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}
}

func samplerDescriptor(label string, f Filtering) *hal.SamplerDescriptor {
	return &hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: f.AddressMode,
		AddressModeV: f.AddressMode,
		AddressModeW: f.AddressMode,
		MagFilter:    f.Mag,
		MinFilter:    f.Min,
		MipmapFilter: f.Mipmap,
	}
}

// HALAllocator allocates HALSurfaces on one device.
type HALAllocator struct {
	device hal.Device
	queue  hal.Queue
}

// NewHALAllocator returns an allocator for device and queue.
func NewHALAllocator(device hal.Device, queue hal.Queue) (*HALAllocator, error) {
	if device == nil || queue == nil {
		return nil, ErrNoHALProvider
	}
	return &HALAllocator{device: device, queue: queue}, nil
}

// NewHALAllocatorFromProvider extracts the HAL device and queue from a
// gpucontext provider. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func NewHALAllocatorFromProvider(provider gpucontext.DeviceProvider) (*HALAllocator, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	return NewHALAllocator(device, queue)
}

// Allocate creates a HALSurface.
func (a *HALAllocator) Allocate(width, height int) (Surface, error) {
	s, err := NewHALSurface(a.device, a.queue, width, height)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RegisterHAL registers provider's device as the "hal" backend with GPU
// priority, so DefaultAllocator prefers it over the CPU backend.
func RegisterHAL(provider gpucontext.DeviceProvider) error {
	a, err := NewHALAllocatorFromProvider(provider)
	if err != nil {
		return err
	}
	Register("hal", 100, func() (Allocator, error) { return a, nil }, nil)
	return nil
}

var _ Readable = (*HALSurface)(nil)
