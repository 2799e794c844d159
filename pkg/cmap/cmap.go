// Package cmap provides a sharded concurrent map keyed by uint64.
//
// The map is split into a fixed number of buckets, each guarded by its own
// mutex, so writers on different shards never contend. It backs the actor
// table and the facade's id and term registries.
package cmap

import (
	"sync"
	"sync/atomic"
)

// DefaultShards is the bucket count used when none is specified.
const DefaultShards = 32

// Map is a sharded map from uint64 keys to values of type V.
type Map[V any] struct {
	shards []shard[V]
	mask   uint64
	count  atomic.Int64
}

type shard[V any] struct {
	mu sync.Mutex
	m  map[uint64]V
}

// New creates a Map with the given shard count, rounded up to a power of two.
// A non-positive count falls back to DefaultShards.
func New[V any](shards int) *Map[V] {
	if shards <= 0 {
		shards = DefaultShards
	}
	n := 1
	for n < shards {
		n <<= 1
	}

	m := &Map[V]{
		shards: make([]shard[V], n),
		mask:   uint64(n - 1),
	}
	for i := range m.shards {
		m.shards[i].m = make(map[uint64]V)
	}
	return m
}

// splitmix64 finalizer; spreads sequential keys across shards.
func mix(k uint64) uint64 {
	k ^= k >> 30
	k *= 0xbf58476d1ce4e5b9
	k ^= k >> 27
	k *= 0x94d049bb133111eb
	k ^= k >> 31
	return k
}

func (m *Map[V]) shardFor(k uint64) *shard[V] {
	return &m.shards[mix(k)&m.mask]
}

// Get returns the value stored under k.
func (m *Map[V]) Get(k uint64) (V, bool) {
	s := m.shardFor(k)
	s.mu.Lock()
	v, ok := s.m[k]
	s.mu.Unlock()
	return v, ok
}

// Put inserts or overwrites the value under k.
func (m *Map[V]) Put(k uint64, v V) {
	s := m.shardFor(k)
	s.mu.Lock()
	_, existed := s.m[k]
	s.m[k] = v
	s.mu.Unlock()
	if !existed {
		m.count.Add(1)
	}
}

// PutIfAbsent stores v under k only if no value is present.
// It returns the value now stored under k and whether the store happened.
func (m *Map[V]) PutIfAbsent(k uint64, v V) (V, bool) {
	s := m.shardFor(k)
	s.mu.Lock()
	if existing, ok := s.m[k]; ok {
		s.mu.Unlock()
		return existing, false
	}
	s.m[k] = v
	s.mu.Unlock()
	m.count.Add(1)
	return v, true
}

// Remove deletes the value under k and reports whether it was present.
func (m *Map[V]) Remove(k uint64) bool {
	s := m.shardFor(k)
	s.mu.Lock()
	_, ok := s.m[k]
	if ok {
		delete(s.m, k)
	}
	s.mu.Unlock()
	if ok {
		m.count.Add(-1)
	}
	return ok
}

// Count returns the number of stored entries.
func (m *Map[V]) Count() int {
	return int(m.count.Load())
}

// Range calls fn for every entry, one shard at a time. Only one shard lock
// is held at any moment, so mutators on other shards proceed concurrently.
// Entries inserted or removed while Range runs may or may not be visited.
// Returning false from fn stops the traversal.
func (m *Map[V]) Range(fn func(k uint64, v V) bool) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		// Copy the shard's entries so fn never runs under the shard lock;
		// fn is free to call back into the map without deadlocking.
		snapshot := make(map[uint64]V, len(s.m))
		for k, v := range s.m {
			snapshot[k] = v
		}
		s.mu.Unlock()

		for k, v := range snapshot {
			if !fn(k, v) {
				return
			}
		}
	}
}

// Keys returns a point-in-time-ish list of keys, assembled shard by shard.
func (m *Map[V]) Keys() []uint64 {
	keys := make([]uint64, 0, m.Count())
	m.Range(func(k uint64, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}
