// Package keydir provides the in-memory hash table at the heart of the
// engine: a concurrent map from key to the on-disk location of its latest
// value. It embodies the core Bitcask principle of keeping every key in
// memory with minimal metadata while values stay on disk.
//
// The map is sharded by key hash. Every operation touches exactly one shard,
// so unbounded concurrent readers proceed in parallel and a writer only
// contends with readers of the same shard. A put for an existing key
// overwrites unconditionally; ordering between competing writes is the
// caller's concern, not this layer's.
package keydir

import "hash/fnv"

const shardCount = 32

// New creates an empty key directory.
func New() *KeyDir {
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{entries: make(map[string]Entry)}
	}
	return &KeyDir{shards: shards}
}

func (kd *KeyDir) shardFor(key []byte) *shard {
	h := fnv.New32a()
	_, _ = h.Write(key)
	return kd.shards[h.Sum32()%shardCount]
}

// Get returns the location entry for the given key. The entry is a copy;
// callers never observe in-flight mutation.
func (kd *KeyDir) Get(key []byte) (Entry, bool) {
	s := kd.shardFor(key)
	s.mu.RLock()
	entry, ok := s.entries[string(key)]
	s.mu.RUnlock()
	return entry, ok
}

// Put installs or overwrites the entry for the given key.
func (kd *KeyDir) Put(key []byte, entry Entry) {
	s := kd.shardFor(key)
	s.mu.Lock()
	s.entries[string(key)] = entry
	s.mu.Unlock()
}

// Del removes the entry for the given key, if present.
func (kd *KeyDir) Del(key []byte) {
	s := kd.shardFor(key)
	s.mu.Lock()
	delete(s.entries, string(key))
	s.mu.Unlock()
}

// Has reports whether the key is present.
func (kd *KeyDir) Has(key []byte) bool {
	s := kd.shardFor(key)
	s.mu.RLock()
	_, ok := s.entries[string(key)]
	s.mu.RUnlock()
	return ok
}

// Keys returns all keys currently present. The result is a point-in-time
// view assembled shard by shard, not an atomic snapshot across shards.
func (kd *KeyDir) Keys() [][]byte {
	keys := make([][]byte, 0, kd.Len())
	for _, s := range kd.shards {
		s.mu.RLock()
		for k := range s.entries {
			keys = append(keys, []byte(k))
		}
		s.mu.RUnlock()
	}
	return keys
}

// Len returns the number of live keys.
func (kd *KeyDir) Len() int {
	n := 0
	for _, s := range kd.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Snapshot copies the full directory into a plain map, keyed by the string
// form of each key. Used by recovery tests to compare directory states.
func (kd *KeyDir) Snapshot() map[string]Entry {
	out := make(map[string]Entry, kd.Len())
	for _, s := range kd.shards {
		s.mu.RLock()
		for k, e := range s.entries {
			out[k] = e
		}
		s.mu.RUnlock()
	}
	return out
}

// Clear drops every entry. Used when a failed recovery must not leave a
// half-built directory behind.
func (kd *KeyDir) Clear() {
	for _, s := range kd.shards {
		s.mu.Lock()
		clear(s.entries)
		s.mu.Unlock()
	}
}
