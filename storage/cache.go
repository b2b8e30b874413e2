package storage

import (
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/voxfeat/voxfeat"
)

const numCacheShards = 64

// CachedStore is a write-through freecache in front of another Store.
type CachedStore struct {
	Store
	cache *freecache.Cache
	mu    [numCacheShards]sync.RWMutex

	attempts uint64
	hits     uint64
}

// NewCachedStore wraps store with a cache of roughly numBytes.  Values larger than
// 1/1024 of the cache are never cached.
func NewCachedStore(store Store, numBytes int) *CachedStore {
	voxfeat.Infof("Created freecache of ~ %s for store.\n", humanize.Bytes(uint64(numBytes)))
	return &CachedStore{Store: store, cache: freecache.NewCache(numBytes)}
}

func (c *CachedStore) shard(key []byte) *sync.RWMutex {
	h := fnv.New32a()
	h.Write(key)
	return &c.mu[h.Sum32()%numCacheShards]
}

func (c *CachedStore) Get(key []byte) ([]byte, error) {
	atomic.AddUint64(&c.attempts, 1)
	mu := c.shard(key)
	mu.RLock()
	defer mu.RUnlock()

	v, err := c.cache.Get(key)
	if err == nil {
		atomic.AddUint64(&c.hits, 1)
		return v, nil
	}
	if err != freecache.ErrNotFound {
		return nil, err
	}
	if v, err = c.Store.Get(key); err != nil || v == nil {
		return v, err
	}
	if err := c.cache.Set(key, v, 0); err != nil {
		voxfeat.Debugf("not caching %d byte value for key %q: %v\n", len(v), key, err)
	}
	return v, nil
}

func (c *CachedStore) Put(key, value []byte) error {
	mu := c.shard(key)
	mu.Lock()
	defer mu.Unlock()

	c.cache.Del(key)
	if err := c.Store.Put(key, value); err != nil {
		return err
	}
	if err := c.cache.Set(key, value, 0); err != nil {
		voxfeat.Debugf("not caching %d byte value for key %q: %v\n", len(value), key, err)
	}
	return nil
}

func (c *CachedStore) Delete(key []byte) error {
	mu := c.shard(key)
	mu.Lock()
	defer mu.Unlock()

	c.cache.Del(key)
	return c.Store.Delete(key)
}

// HitRate returns the fraction of Get calls served from the cache.
func (c *CachedStore) HitRate() float64 {
	attempts := atomic.LoadUint64(&c.attempts)
	if attempts == 0 {
		return 0
	}
	return float64(atomic.LoadUint64(&c.hits)) / float64(attempts)
}

func (c *CachedStore) Close() error {
	voxfeat.Infof("Store cache hit rate %.1f%% over %d gets\n", 100*c.HitRate(), atomic.LoadUint64(&c.attempts))
	c.cache.Clear()
	return c.Store.Close()
}
