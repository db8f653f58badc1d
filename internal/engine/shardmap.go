package engine

import "sync"

const shardCount = 32

// shardedMap is a hash-sharded map safe for concurrent use from any number
// of sessions. Lookups only need per-key atomicity of read-modify-write, so
// each shard carries its own reader/writer lock instead of one map-wide
// critical section becoming a cross-instrument bottleneck.
type shardedMap[K comparable, V any] struct {
	hash   func(K) uint64
	shards [shardCount]mapShard[K, V]
}

type mapShard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func newShardedMap[K comparable, V any](hash func(K) uint64) *shardedMap[K, V] {
	sm := &shardedMap[K, V]{hash: hash}
	for i := range sm.shards {
		sm.shards[i].m = make(map[K]V)
	}
	return sm
}

func (sm *shardedMap[K, V]) shard(key K) *mapShard[K, V] {
	return &sm.shards[sm.hash(key)%shardCount]
}

func (sm *shardedMap[K, V]) Load(key K) (V, bool) {
	s := sm.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.m[key]
	return v, ok
}

func (sm *shardedMap[K, V]) Store(key K, value V) {
	s := sm.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[key] = value
}

// LoadOrCreate returns the value for key, constructing and publishing it on
// first use. The constructor runs under the shard lock, at most once per key.
func (sm *shardedMap[K, V]) LoadOrCreate(key K, create func() V) V {
	s := sm.shard(key)

	s.mu.RLock()
	if v, ok := s.m[key]; ok {
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[key]; ok {
		return v
	}
	v := create()
	s.m[key] = v
	return v
}

func (sm *shardedMap[K, V]) Len() int {
	n := 0
	for i := range sm.shards {
		s := &sm.shards[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// hashUint64 is splitmix64's finalizer, enough to spread sequential ids
// across shards.
func hashUint64(v uint64) uint64 {
	v ^= v >> 30
	v *= 0xbf58476d1ce4e5b9
	v ^= v >> 27
	v *= 0x94d049bb133111eb
	v ^= v >> 31
	return v
}

func hashUint32(v uint32) uint64 {
	return hashUint64(uint64(v))
}
