package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	c := NewTTL()
	c.Set("k", "v", time.Minute)

	val, found := c.Get("k")
	assert.True(t, found)
	assert.Equal(t, "v", val)
}

func TestExpiry(t *testing.T) {
	c := NewTTL()
	c.Set("k", "v", 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	c := NewTTL()
	c.Set("k", "v", time.Minute)
	c.Delete("k")

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestMissingKey(t *testing.T) {
	c := NewTTL()

	_, found := c.Get("nope")
	assert.False(t, found)
}
