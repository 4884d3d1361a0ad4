package storage

import (
	"github.com/colorfulnotion/jdcore/common"
	"github.com/colorfulnotion/jdcore/log"
)

var resultPrefix = []byte("result/")

// ResultCache keeps encoded class results keyed by the class bytes, the
// options they were produced with and the jdcore version.
type ResultCache struct {
	store *PersistenceStore
}

// OpenResultCache opens the cache under dir, or an in-memory cache when
// dir is empty.
func OpenResultCache(dir string) (*ResultCache, error) {
	store, err := NewPersistenceStore(dir)
	if err != nil {
		return nil, err
	}
	return &ResultCache{store: store}, nil
}

// Key derives the cache key of a class file decompiled with options.
func Key(class []byte, options []byte) common.Hash {
	return common.Blake2HashParts([]byte(common.Version), options, class)
}

func resultKey(key common.Hash) []byte {
	return append(append([]byte{}, resultPrefix...), key.Bytes()...)
}

func (c *ResultCache) Get(key common.Hash) ([]byte, bool, error) {
	data, ok, err := c.store.Get(resultKey(key))
	if err != nil {
		return nil, false, err
	}
	if ok {
		log.Debug(log.CacheMonitoring, "cache hit", "key", key.Short(12))
	} else {
		log.Trace(log.CacheMonitoring, "cache miss", "key", key.Short(12))
	}
	return data, ok, nil
}

func (c *ResultCache) Put(key common.Hash, result []byte) error {
	log.Trace(log.CacheMonitoring, "cache put", "key", key.Short(12), "bytes", len(result))
	return c.store.Put(resultKey(key), result)
}

// Keys lists the cached result keys in key order.
func (c *ResultCache) Keys() ([]common.Hash, error) {
	kvs, err := c.store.GetWithPrefix(resultPrefix)
	if err != nil {
		return nil, err
	}
	keys := make([]common.Hash, 0, len(kvs))
	for _, kv := range kvs {
		keys = append(keys, common.BytesToHash(kv[0][len(resultPrefix):]))
	}
	return keys, nil
}

// Clear removes every cached result.
func (c *ResultCache) Clear() (int, error) {
	n, err := c.store.DeleteWithPrefix(resultPrefix)
	if err == nil {
		log.Info(log.CacheMonitoring, "cache cleared", "entries", n)
	}
	return n, err
}

func (c *ResultCache) Close() error {
	return c.store.Close()
}
