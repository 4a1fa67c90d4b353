package kv

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_GetSet(t *testing.T) {
	s := New[string, int]()

	s.Set("foo", 42)
	val, ok := s.Get("foo")
	assert.True(t, ok)
	assert.Equal(t, 42, val)

	_, ok = s.Get("bar")
	assert.False(t, ok)
}

func TestStore_Delete(t *testing.T) {
	s := New[string, string]()
	s.Set("key", "value")

	s.Delete("key")

	_, ok := s.Get("key")
	assert.False(t, ok)
}

func TestStore_DeleteFunc(t *testing.T) {
	s := New[string, int]()
	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("c", 3)

	removed := s.DeleteFunc(func(_ string, v int) bool { return v%2 == 1 })

	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"b"}, s.Keys())
}

func TestStore_Bounded(t *testing.T) {
	s := NewBounded[int, int](2)
	s.Set(1, 1)
	s.Set(2, 2)
	s.Set(2, 20) // overwrite does not evict
	assert.Equal(t, 2, s.Len())

	s.Set(3, 3)
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get(1)
	assert.False(t, ok)
	v, _ := s.Get(3)
	assert.Equal(t, 3, v)
}

func TestStore_Clear(t *testing.T) {
	s := New[string, int]()
	s.Set("a", 1)
	s.Set("b", 2)

	s.Clear()

	assert.Equal(t, 0, s.Len())
}

func TestStore_Concurrent(t *testing.T) {
	s := New[int, int]()
	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Set(n, n*2)
			_, _ = s.Get(n)
		}(i)
	}

	wg.Wait()
	assert.Equal(t, 100, s.Len())
}
