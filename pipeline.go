package atlas

// spawn runs fn on a goroutine tracked by Wait and Close.
func (m *Manager[T]) spawn(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

// loadImages starts one fetch per item for the surface identified by gen.
// Completion order is unspecified; each sprite is patched and announced on
// its own.
func (m *Manager[T]) loadImages(gen uint64, items []Item) {
	for _, it := range items {
		key := it.Key
		m.spawn(func() { m.loadImage(gen, key) })
	}
}

// loadImage fetches one sprite and patches it into generation gen.
// Failures are reported once and never retried. Patches for a superseded
// generation are dropped without notification.
func (m *Manager[T]) loadImage(gen uint64, key string) {
	if err := m.sem.Acquire(m.ctx, 1); err != nil {
		return
	}
	img, err := m.cfg.Fetcher.Fetch(m.ctx, key)
	m.sem.Release(1)

	if m.ctx.Err() != nil {
		return
	}
	if err != nil {
		if m.store.Generation() != gen {
			return
		}
		Logger().Warn("atlas: sprite fetch failed", "key", key, "err", err)
		m.notify(Update{Key: key, Err: err})
		return
	}

	ok, err := m.store.PatchRegion(gen, key, img)
	switch {
	case err != nil:
		Logger().Warn("atlas: sprite patch failed", "key", key, "err", err)
		m.notify(Update{Key: key, Err: err})
	case !ok:
		Logger().Debug("atlas: stale patch dropped", "key", key, "generation", gen)
	default:
		m.notify(Update{MappingChanged: true, TextureChanged: true, Key: key})
	}
}

// loadAtlas fetches a prepacked atlas image and installs it unless a later
// Update replaced the atlas reference in the meantime.
func (m *Manager[T]) loadAtlas(seq uint64, url string) {
	img, err := m.cfg.Fetcher.Fetch(m.ctx, url)
	if m.ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	if seq != m.atlasSeq || m.mode != ModePrepacked {
		m.mu.Unlock()
		Logger().Debug("atlas: superseded atlas fetch dropped", "url", url)
		return
	}
	if err != nil {
		m.mu.Unlock()
		Logger().Warn("atlas: atlas fetch failed", "url", url, "err", err)
		m.notify(Update{Key: url, Err: err})
		return
	}
	_, err = m.store.Load(img)
	m.mu.Unlock()

	if err != nil {
		Logger().Warn("atlas: atlas upload failed", "url", url, "err", err)
		m.notify(Update{Key: url, Err: err})
		return
	}
	b := img.Bounds()
	Logger().Info("atlas: prepacked atlas loaded", "url", url, "width", b.Dx(), "height", b.Dy())
	m.notify(Update{TextureChanged: true})
}

// notify queues u and delivers the queue.
func (m *Manager[T]) notify(u Update) {
	m.enqueue(u)
	m.drain()
}

// enqueue appends updates to the notification queue.
func (m *Manager[T]) enqueue(us ...Update) {
	if m.cfg.OnUpdate == nil || len(us) == 0 {
		return
	}
	m.notifyMu.Lock()
	m.queue = append(m.queue, us...)
	m.notifyMu.Unlock()
}

// drain delivers queued updates to Config.OnUpdate in order. Only one
// goroutine drains at a time; a drain entered from inside OnUpdate returns
// at once and the outer loop delivers what it queued. Calls never overlap.
func (m *Manager[T]) drain() {
	m.notifyMu.Lock()
	if m.draining {
		m.notifyMu.Unlock()
		return
	}
	m.draining = true
	for len(m.queue) > 0 {
		u := m.queue[0]
		m.queue = m.queue[1:]
		if m.closed.Load() {
			m.queue = nil
			break
		}
		m.notifyMu.Unlock()
		m.cfg.OnUpdate(u)
		m.notifyMu.Lock()
	}
	m.draining = false
	m.notifyMu.Unlock()
}
