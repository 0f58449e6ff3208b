package atlas

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/gogpu/atlas/surface"
)

// Manager keeps an atlas consistent with a changing source.
//
// On every Update it decides between a full repack, a metadata swap and
// doing nothing. After a repack it fetches each sprite concurrently and
// patches it into the surface; renderers are told through Config.OnUpdate
// when the mapping or texture changed.
//
// Manager is safe for concurrent use. Update calls are serialized.
type Manager[T any] struct {
	cfg   Config
	store *Store
	sem   *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// updateMu serializes Update and Close.
	updateMu sync.Mutex

	// mu guards the fields below.
	mu        sync.RWMutex
	icon      func(T) (Item, bool)
	mode      Mode
	atlasRef  AtlasRef
	atlasSeq  uint64
	prepacked *Mapping
	height    int
	shown     bool

	// notifyMu guards the notification queue.
	notifyMu sync.Mutex
	queue    []Update
	draining bool

	closed atomic.Bool
}

// New creates a manager and runs the first update.
func New[T any](props Props[T], opts ...Option) (*Manager[T], error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager[T]{
		cfg:    cfg,
		store:  NewStore(cfg.Allocator, cfg.Filtering),
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrentFetches)),
		ctx:    ctx,
		cancel: cancel,
	}
	if err := m.Update(props, ChangeFlags{}); err != nil {
		cancel()
		return nil, err
	}
	return m, nil
}

// Update applies new props.
//
// For a prepacked source the mapping and atlas are compared with the
// previous ones and swapped when they differ. For an auto-packed source the
// atlas is repacked on the first update, on a mode switch, or when flags
// request it; otherwise nothing happens.
func (m *Manager[T]) Update(props Props[T], flags ChangeFlags) error {
	if props.Source == nil {
		return ErrUnknownSource
	}
	if props.Icon == nil {
		return ErrNilIconFunc
	}

	if err := m.update(props, flags); err != nil {
		return err
	}
	m.drain()
	return nil
}

// update applies props under updateMu. Its notifications are queued ahead
// of anything the fetches it launches can report.
func (m *Manager[T]) update(props Props[T], flags ChangeFlags) error {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()
	if m.closed.Load() {
		return ErrClosed
	}

	var (
		pending []Update
		launch  func()
		err     error
	)
	m.mu.Lock()
	m.icon = props.Icon
	switch src := props.Source.(type) {
	case Prepacked[T]:
		pending, launch = m.updatePrepacked(src)
	case AutoPacked[T]:
		pending, launch, err = m.updateAutoPacked(src, flags)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownSource, props.Source)
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.enqueue(pending...)
	if launch != nil {
		launch()
	}
	return nil
}

// updatePrepacked must be called with m.mu held.
func (m *Manager[T]) updatePrepacked(src Prepacked[T]) ([]Update, func()) {
	switched := m.mode != ModePrepacked
	m.mode = ModePrepacked
	m.shown = true

	var pending []Update
	if switched || src.Mapping != m.prepacked {
		m.prepacked = src.Mapping
		m.store.SetMapping(src.Mapping)
		pending = append(pending, Update{MappingChanged: true})
	}
	if !switched && src.Atlas == m.atlasRef {
		return pending, nil
	}

	m.atlasRef = src.Atlas
	m.atlasSeq++
	switch {
	case src.Atlas.Surface != nil:
		if err := src.Atlas.Surface.SetFiltering(m.cfg.Filtering); err != nil {
			Logger().Warn("atlas: set filtering on prepacked surface failed", "err", err)
		}
		m.store.Adopt(src.Mapping, src.Atlas.Surface)
		return append(pending, Update{TextureChanged: true}), nil
	case src.Atlas.URL != "":
		seq, url := m.atlasSeq, src.Atlas.URL
		launch := func() { m.spawn(func() { m.loadAtlas(seq, url) }) }
		if switched {
			// An auto-packed surface does not match the new mapping.
			m.store.Adopt(src.Mapping, nil)
			return append(pending, Update{TextureChanged: true}), launch
		}
		// Until the image arrives the previous atlas stays visible.
		return pending, launch
	default:
		m.store.Adopt(src.Mapping, nil)
		return append(pending, Update{TextureChanged: true}), nil
	}
}

// updateAutoPacked must be called with m.mu held.
func (m *Manager[T]) updateAutoPacked(src AutoPacked[T], flags ChangeFlags) ([]Update, func(), error) {
	switched := m.mode != ModeAutoPacked
	if !switched && !flags.repack() {
		return nil, nil, nil
	}

	items := m.items(src.Data)
	if len(items) == 0 {
		m.leavePrepacked()
		m.store.Clear()
		if !m.shown {
			return nil, nil, nil
		}
		m.shown = false
		return []Update{{MappingChanged: true, TextureChanged: true}}, nil, nil
	}

	layout, err := Pack(items, m.cfg.MaxSurfaceWidth)
	if err != nil {
		return nil, nil, err
	}
	height := max(layout.Height, m.height)
	gen, err := m.store.Replace(layout.Mapping, layout.Width, height)
	if err != nil {
		return nil, nil, err
	}

	m.leavePrepacked()
	m.height = height
	m.shown = true

	unique := UniqueItems(items)
	Logger().Debug("atlas: repacked",
		"items", len(unique), "width", layout.Width, "height", height,
		"packedHeight", layout.PackedHeight)

	return []Update{{MappingChanged: true, TextureChanged: true}},
		func() { m.loadImages(gen, unique) }, nil
}

// leavePrepacked switches to auto-packing. Bumping atlasSeq makes any
// prepacked atlas fetch still in flight stale. Must be called with m.mu held.
func (m *Manager[T]) leavePrepacked() {
	if m.mode == ModePrepacked {
		m.atlasSeq++
	}
	m.mode = ModeAutoPacked
	m.atlasRef, m.prepacked = AtlasRef{}, nil
}

// items derives packable items from records, skipping invalid ones.
func (m *Manager[T]) items(data []T) []Item {
	items := make([]Item, 0, len(data))
	for i, rec := range data {
		it, ok := m.icon(rec)
		if !ok {
			continue
		}
		if it.Key == "" || it.Width <= 0 || it.Height <= 0 {
			Logger().Warn("atlas: skipping record with invalid icon",
				"index", i, "key", it.Key, "width", it.Width, "height", it.Height)
			continue
		}
		items = append(items, it)
	}
	return items
}

// Lookup returns the placed rectangle for record, or the placeholder
// PlacedRect{} when the record has no icon or the icon is not in the atlas.
func (m *Manager[T]) Lookup(record T) PlacedRect {
	m.mu.RLock()
	icon := m.icon
	m.mu.RUnlock()
	if icon == nil {
		return PlacedRect{}
	}
	it, ok := icon(record)
	if !ok {
		return PlacedRect{}
	}
	r, _ := m.LookupKey(it.Key)
	return r
}

// LookupKey returns the placed rectangle for key.
func (m *Manager[T]) LookupKey(key string) (PlacedRect, bool) {
	return m.store.CurrentMapping().Get(key)
}

// Mapping returns the current mapping, or nil when nothing is shown.
func (m *Manager[T]) Mapping() *Mapping {
	return m.store.CurrentMapping()
}

// Texture returns the current surface, or nil when nothing is shown.
func (m *Manager[T]) Texture() surface.Surface {
	return m.store.CurrentSurface()
}

// Mode returns the current source mode.
func (m *Manager[T]) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// Store returns the manager's store, for export and debugging.
func (m *Manager[T]) Store() *Store {
	return m.store
}

// Wait blocks until every fetch started so far has finished.
func (m *Manager[T]) Wait() {
	m.wg.Wait()
}

// Close cancels in-flight fetches, waits for them and releases the owned
// surface. Close is idempotent.
func (m *Manager[T]) Close() error {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()
	if m.closed.Load() {
		return nil
	}
	m.cancel()
	m.wg.Wait()
	m.closed.Store(true)
	return m.store.Close()
}
