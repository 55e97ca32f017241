package statuscache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory_SetEmptyRemovesEntry(t *testing.T) {
	c := New()
	c.Set("m1", "lofi")

	text, ok := c.Get("m1")
	assert.True(t, ok)
	assert.Equal(t, "lofi", text)

	c.Set("m1", "")
	_, ok = c.Get("m1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemory_SwapReturnsPrevious(t *testing.T) {
	c := New()

	prev, existed := c.Swap("m1", "first")
	assert.False(t, existed)
	assert.Empty(t, prev)

	prev, existed = c.Swap("m1", "second")
	assert.True(t, existed)
	assert.Equal(t, "first", prev)

	prev, existed = c.Swap("m1", "")
	assert.True(t, existed)
	assert.Equal(t, "second", prev)

	_, ok := c.Get("m1")
	assert.False(t, ok)
}

func TestMemory_Delete(t *testing.T) {
	c := New()
	c.Set("m1", "a")
	c.Set("m2", "b")
	c.Delete("m1")

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("m1")
	assert.False(t, ok)
}

func TestMemory_ConcurrentSwapsPerKey(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("m%d", i%5)
			c.Swap(id, fmt.Sprintf("text-%d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
}
