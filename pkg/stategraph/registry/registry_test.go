package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRegistry_RegisterGet tests basic registration and lookup.
func TestRegistry_RegisterGet(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("b", 2)

	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.True(t, r.Has("b"))
	assert.Equal(t, 2, r.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, r.Keys())
}

// TestRegistry_RegisterOverwrites tests that re-registering replaces.
func TestRegistry_RegisterOverwrites(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("a", 9)

	v, _ := r.Get("a")
	assert.Equal(t, 9, v)
	assert.Equal(t, 1, r.Len())
}

// TestRegistry_Delete tests removal.
func TestRegistry_Delete(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Delete("a")

	assert.False(t, r.Has("a"))
	assert.Equal(t, 0, r.Len())
}

// TestRegistry_Range tests snapshot iteration with early stop.
func TestRegistry_Range(t *testing.T) {
	r := New[string, int]()
	r.Register("a", 1)
	r.Register("b", 2)
	r.Register("c", 3)

	seen := 0
	r.Range(func(k string, v int) bool {
		seen++
		return seen < 2
	})
	assert.Equal(t, 2, seen)
}

// TestRegistry_ConcurrentAccess tests goroutine safety under the race
// detector.
func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register(i, i*i)
			r.Get(i)
			r.Has(i)
			r.Keys()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, r.Len())
}
