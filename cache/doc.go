// Package cache provides a generic sharded LRU cache.
//
// ShardedCache splits its entries across a power-of-two number of shards,
// each guarded by its own mutex and evicting its least recently used entry
// once it holds more than its share of the capacity. The fetch package uses
// it to keep decoded sprite bitmaps between repacks.
//
//	c := cache.NewSharded[string, image.Image](512, cache.StringHasher)
//	c.Set(url, img)
//	img, ok := c.Get(url)
//
// ShardedCache is safe for concurrent use and must not be copied after
// creation.
package cache
