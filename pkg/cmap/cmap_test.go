package cmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PutGetRemove(t *testing.T) {
	m := New[uint64](8)

	_, ok := m.Get(1)
	assert.False(t, ok)

	m.Put(1, 100)
	v, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, uint64(100), v)

	// Overwrite does not change the count.
	m.Put(1, 200)
	v, _ = m.Get(1)
	assert.Equal(t, uint64(200), v)
	assert.Equal(t, 1, m.Count())

	assert.True(t, m.Remove(1))
	assert.False(t, m.Remove(1))
	assert.Equal(t, 0, m.Count())
}

func TestMap_PutIfAbsent(t *testing.T) {
	m := New[uint64](8)

	v, stored := m.PutIfAbsent(7, 70)
	require.True(t, stored)
	assert.Equal(t, uint64(70), v)

	v, stored = m.PutIfAbsent(7, 71)
	assert.False(t, stored)
	assert.Equal(t, uint64(70), v)
	assert.Equal(t, 1, m.Count())
}

func TestMap_ShardRounding(t *testing.T) {
	tests := []struct {
		name   string
		shards int
		want   int
	}{
		{"zero falls back to default", 0, DefaultShards},
		{"negative falls back to default", -4, DefaultShards},
		{"power of two kept", 16, 16},
		{"rounded up", 20, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New[int](tt.shards)
			assert.Equal(t, tt.want, len(m.shards))
		})
	}
}

func TestMap_ConcurrentMutators(t *testing.T) {
	m := New[uint64](16)

	const (
		writers = 8
		perW    = 500
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(base uint64) {
			defer wg.Done()
			for i := uint64(0); i < perW; i++ {
				k := base*perW + i
				m.Put(k, k*2)
				if v, ok := m.Get(k); ok {
					assert.Equal(t, k*2, v)
				}
				if i%3 == 0 {
					m.Remove(k)
				}
			}
		}(uint64(w))
	}
	wg.Wait()

	// Every surviving key maps to exactly twice its value.
	m.Range(func(k, v uint64) bool {
		assert.Equal(t, k*2, v)
		return true
	})

	want := writers * (perW - (perW+2)/3) // keys with i%3 != 0
	assert.Equal(t, want, m.Count())
}

func TestMap_RangeDuringMutation(t *testing.T) {
	m := New[int](4)
	for i := uint64(0); i < 100; i++ {
		m.Put(i, int(i))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint64(100); i < 200; i++ {
			m.Put(i, int(i))
			m.Remove(i - 100)
		}
	}()

	// Range must not deadlock or observe torn values.
	seen := 0
	m.Range(func(k uint64, v int) bool {
		assert.Equal(t, int(k), v)
		seen++
		return true
	})
	<-done
	assert.Greater(t, seen, 0)
}

func TestMap_RangeEarlyStop(t *testing.T) {
	m := New[int](4)
	for i := uint64(0); i < 50; i++ {
		m.Put(i, 1)
	}

	visited := 0
	m.Range(func(uint64, int) bool {
		visited++
		return visited < 10
	})
	assert.Equal(t, 10, visited)
}

func TestMap_ReentrantRange(t *testing.T) {
	m := New[int](4)
	m.Put(1, 1)
	m.Put(2, 2)

	// Calling back into the map from the traversal callback must not deadlock.
	m.Range(func(k uint64, _ int) bool {
		m.Put(k+100, int(k))
		_, _ = m.Get(k)
		return true
	})
	assert.GreaterOrEqual(t, m.Count(), 4)
}
