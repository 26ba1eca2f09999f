package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("https://cdn.example.com/a.jpg")

	assert.Len(t, a, 64)
	assert.Equal(t, a, Key("https://cdn.example.com/a.jpg"))
	assert.NotEqual(t, a, Key("https://cdn.example.com/b.jpg"))
}

func TestSetGet(t *testing.T) {
	c := New(10, 0)
	defer c.Stop()

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", "output/photos/photo_1_1.jpg")
	path, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "output/photos/photo_1_1.jpg", path)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCapacityEviction(t *testing.T) {
	c := New(2, 0)
	defer c.Stop()

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("b", "2b")
	assert.Equal(t, 2, c.Len())

	c.Set("c", "3")
	assert.Equal(t, 2, c.Len())
	path, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "3", path)
}

func TestExpiry(t *testing.T) {
	c := New(10, 20*time.Millisecond)
	defer c.Stop()

	c.Set("k", "p")
	_, ok := c.Get("k")
	assert.True(t, ok)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 10*time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestStopIsIdempotent(t *testing.T) {
	c := New(1, time.Minute)
	c.Stop()
	c.Stop()
}
