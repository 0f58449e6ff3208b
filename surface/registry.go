// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"sort"
	"sync"
)

// AllocatorFactory creates an Allocator for a backend.
type AllocatorFactory func() (Allocator, error)

// Backend describes a registered surface backend.
type Backend struct {
	Name string

	// Priority orders backends for DefaultAllocator, higher first. GPU
	// backends use 100, the CPU image backend 10.
	Priority int

	// Available reports whether the backend can be used right now.
	Available bool
}

type registration struct {
	priority  int
	factory   AllocatorFactory
	available func() bool
}

// Registry maps backend names to allocator factories.
//
//	surface.Register("hal", 100, halFactory, nil)
//	alloc, err := surface.DefaultAllocator()
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

// globalRegistry holds the built-in image backend and whatever RegisterHAL
// or Register adds.
var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// Register adds a backend to the global registry. A nil available means
// always available; registering an existing name replaces it.
func Register(name string, priority int, factory AllocatorFactory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Backends lists the global registry, highest priority first.
func Backends() []Backend {
	return globalRegistry.Backends()
}

// NewAllocator creates an allocator from the named global backend.
func NewAllocator(name string) (Allocator, error) {
	return globalRegistry.NewAllocator(name)
}

// DefaultAllocator creates an allocator from the best available global
// backend.
func DefaultAllocator() (Allocator, error) {
	return globalRegistry.DefaultAllocator()
}

// Register adds a backend.
func (r *Registry) Register(name string, priority int, factory AllocatorFactory, available func() bool) {
	if available == nil {
		available = func() bool { return true }
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registration{priority: priority, factory: factory, available: available}
}

// Backends lists the registered backends by descending priority, ties
// broken by name.
func (r *Registry) Backends() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Backend, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, Backend{Name: name, Priority: e.priority, Available: e.available()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DefaultAllocator tries the available backends in priority order and
// returns the first allocator whose factory succeeds.
func (r *Registry) DefaultAllocator() (Allocator, error) {
	var lastErr error = ErrNoBackendAvailable
	for _, b := range r.Backends() {
		if !b.Available {
			continue
		}
		a, err := r.NewAllocator(b.Name)
		if err == nil {
			return a, nil
		}
		Logger().Debug("surface: backend skipped", "name", b.Name, "err", err)
		lastErr = err
	}
	return nil, lastErr
}

// NewAllocator creates an allocator from the named backend.
func (r *Registry) NewAllocator(name string) (Allocator, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}
	if !e.available() {
		return nil, &BackendUnavailableError{Name: name}
	}
	return e.factory()
}

// ErrNoBackendAvailable is returned by DefaultAllocator when no backend is
// registered and available.
var ErrNoBackendAvailable = errors.New("surface: no backend available")

// BackendNotFoundError indicates a named backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "surface: backend not found: " + e.Name
}

// BackendUnavailableError indicates a backend exists but is not available.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "surface: backend unavailable: " + e.Name
}

// ImageAllocator allocates CPU ImageSurfaces.
type ImageAllocator struct{}

// Allocate creates an ImageSurface.
func (ImageAllocator) Allocate(width, height int) (Surface, error) {
	s, err := NewImageSurface(width, height)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func init() {
	Register("image", 10, func() (Allocator, error) {
		return ImageAllocator{}, nil
	}, nil)
}
