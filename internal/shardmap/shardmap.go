// Package shardmap provides a generic concurrent map with per-bucket locking,
// so operations on different keys proceed in parallel instead of contending
// on one global mutex.
package shardmap

import "sync"

const shardCount = 64

// Map is a sharded, mutex-guarded hash map. The hash function supplied at
// construction selects the shard; it does not need to be collision-free.
type Map[K comparable, V any] struct {
	hash   func(K) uint64
	shards [shardCount]shard[K, V]
}

type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// New creates an empty map using the given shard-selection hash.
func New[K comparable, V any](hash func(K) uint64) *Map[K, V] {
	sm := &Map[K, V]{hash: hash}
	for i := range sm.shards {
		sm.shards[i].m = make(map[K]V)
	}
	return sm
}

func (sm *Map[K, V]) shardFor(key K) *shard[K, V] {
	return &sm.shards[sm.hash(key)%shardCount]
}

// Get returns the value stored under key, if any.
func (sm *Map[K, V]) Get(key K) (V, bool) {
	s := sm.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (sm *Map[K, V]) Set(key K, value V) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

// Delete removes key from the map.
func (sm *Map[K, V]) Delete(key K) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// Update applies fn to the current value under key while holding the shard
// lock. fn receives the value and whether it was present, and returns the
// new value and whether to keep the entry. The whole read-modify-write is
// atomic with respect to other operations on the same key.
func (sm *Map[K, V]) Update(key K, fn func(V, bool) (V, bool)) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[key]
	next, keep := fn(cur, ok)
	if keep {
		s.m[key] = next
	} else if ok {
		delete(s.m, key)
	}
}

// Range calls fn for every entry until fn returns false. Entries written
// concurrently with the iteration may or may not be observed.
func (sm *Map[K, V]) Range(fn func(K, V) bool) {
	for i := range sm.shards {
		s := &sm.shards[i]
		s.mu.RLock()
		for k, v := range s.m {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Len returns the total number of entries.
func (sm *Map[K, V]) Len() int {
	n := 0
	for i := range sm.shards {
		s := &sm.shards[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// Clear removes every entry.
func (sm *Map[K, V]) Clear() {
	for i := range sm.shards {
		s := &sm.shards[i]
		s.mu.Lock()
		s.m = make(map[K]V)
		s.mu.Unlock()
	}
}
