package pattern

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/propgrid/internal/propkey"
)

func deps(names ...string) []propkey.Dependency {
	out := make([]propkey.Dependency, 0, len(names))
	for i, n := range names {
		out = append(out, propkey.NewDependency(propkey.QueryID(n), i))
	}
	return out
}

func TestInternSharesIdenticalLists(t *testing.T) {
	c := NewCache()

	a := c.Intern(deps("style.color", "style.font"))
	b := c.Intern(deps("style.color", "style.font"))

	// Identity equality, not just value equality.
	assert.Same(t, a, b)
	assert.Equal(t, 1, c.Stats().Size)
	assert.Equal(t, uint64(1), c.Stats().Hits)
	assert.Equal(t, uint64(1), c.Stats().Misses)
}

func TestInternDistinguishesOrder(t *testing.T) {
	c := NewCache()

	a := c.Intern([]propkey.Dependency{
		propkey.NewDependency("a", 1),
		propkey.NewDependency("b", 2),
	})
	b := c.Intern([]propkey.Dependency{
		propkey.NewDependency("b", 2),
		propkey.NewDependency("a", 1),
	})
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, c.Stats().Size)
}

func TestReleaseEvictsAtZero(t *testing.T) {
	c := NewCache()

	a := c.Intern(deps("x"))
	b := c.Intern(deps("x"))
	require.Same(t, a, b)
	require.Equal(t, 1, c.Stats().Size)

	c.Release(a)
	assert.Equal(t, 1, c.Stats().Size, "one reference still held")

	c.Release(b)
	assert.Equal(t, 0, c.Stats().Size)
	assert.Equal(t, uint64(1), c.Stats().Released)

	// Re-interning after eviction produces a fresh canonical instance.
	d := c.Intern(deps("x"))
	assert.NotNil(t, d)
	assert.Equal(t, 1, c.Stats().Size)
}

func TestEmptyPattern(t *testing.T) {
	c := NewCache()
	p := c.Intern(nil)
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Len())

	q := c.Intern([]propkey.Dependency{})
	assert.Same(t, p, q)
}

func TestConcurrentInterning(t *testing.T) {
	c := NewCache()
	const goroutines = 16

	var wg sync.WaitGroup
	results := make([]*Pattern, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Intern(deps("shared.a", "shared.b", "shared.c"))
		}(i)
	}
	wg.Wait()

	// All racers observe one canonical winner.
	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0], results[i], fmt.Sprintf("goroutine %d got a different handle", i))
	}
	assert.Equal(t, 1, c.Stats().Size)
}
