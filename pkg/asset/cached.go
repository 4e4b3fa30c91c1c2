package asset

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// CachedStore は Store の読み込み結果をメモリにキャッシュします。
// 検証と保存で同じ画像を何度も読むため、同一参照への同時読み込みは 1 回にまとめます。
type CachedStore struct {
	Store
	cache     *cache.Cache
	readGroup singleflight.Group

	// mu は versions と epoch を保護します。
	// 読み込み中に書き込みや削除が起きた参照は、古いデータでキャッシュを上書きしません。
	mu       sync.Mutex
	versions map[string]uint64
	epoch    uint64
}

type refVersion struct {
	epoch uint64
	gen   uint64
}

// NewCachedStore は有効期限 ttl のキャッシュで inner を包みます。
func NewCachedStore(inner Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store:    inner,
		cache:    cache.New(ttl, 2*ttl),
		versions: make(map[string]uint64),
	}
}

// Write は書き込み後、該当参照のキャッシュを新しいデータで置き換えます。
func (c *CachedStore) Write(ctx context.Context, sceneNumber int, data []byte) (string, error) {
	ref, err := c.Store.Write(ctx, sceneNumber, data)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.versions[ref]++
	c.cache.Set(ref, append([]byte(nil), data...), cache.DefaultExpiration)
	c.mu.Unlock()
	c.readGroup.Forget(ref)
	return ref, nil
}

// Read implements Store.
func (c *CachedStore) Read(ctx context.Context, ref string) ([]byte, error) {
	if v, ok := c.cache.Get(ref); ok {
		return v.([]byte), nil
	}

	v, err, _ := c.readGroup.Do(ref, func() (interface{}, error) {
		if v, ok := c.cache.Get(ref); ok {
			return v, nil
		}
		before := c.version(ref)
		data, err := c.Store.Read(ctx, ref)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.versionLocked(ref) == before {
			c.cache.Set(ref, data, cache.DefaultExpiration)
		}
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Delete implements Store.
func (c *CachedStore) Delete(ctx context.Context, ref string) error {
	c.mu.Lock()
	c.versions[ref]++
	c.cache.Delete(ref)
	c.mu.Unlock()
	c.readGroup.Forget(ref)
	return c.Store.Delete(ctx, ref)
}

// ClearBatch implements Store.
func (c *CachedStore) ClearBatch(ctx context.Context) error {
	c.mu.Lock()
	c.epoch++
	c.versions = make(map[string]uint64)
	c.cache.Flush()
	c.mu.Unlock()
	return c.Store.ClearBatch(ctx)
}

func (c *CachedStore) version(ref string) refVersion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versionLocked(ref)
}

func (c *CachedStore) versionLocked(ref string) refVersion {
	return refVersion{epoch: c.epoch, gen: c.versions[ref]}
}
