package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalFreeCache_PushPopIsLIFO(t *testing.T) {
	c := newGlobalFreeCache()
	ai := AllocKey{Kind: Device, Size: 64}

	c.push(ai, 0x100)
	c.push(ai, 0x200)

	ptr, ok := c.pop(ai)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x200), ptr)

	ptr, ok = c.pop(ai)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x100), ptr)

	_, ok = c.pop(ai)
	assert.False(t, ok, "cache must be empty after draining both entries")
}

func TestGlobalFreeCache_PopMissOnUnknownKey(t *testing.T) {
	c := newGlobalFreeCache()
	_, ok := c.pop(AllocKey{Kind: Host, Size: 64})
	assert.False(t, ok)
}

func TestGlobalFreeCache_ExtendAppendsAll(t *testing.T) {
	c := newGlobalFreeCache()
	ai := AllocKey{Kind: Host, Size: 128}
	c.extend(ai, []uintptr{0x1, 0x2, 0x3})
	assert.True(t, c.contains(0x1))
	assert.True(t, c.contains(0x2))
	assert.True(t, c.contains(0x3))
}

func TestGlobalFreeCache_SwapIsolatesOldContents(t *testing.T) {
	c := newGlobalFreeCache()
	ai := AllocKey{Kind: Device, Size: 64}
	c.push(ai, 0x10)

	old := c.swap()
	assert.Contains(t, old[ai], uintptr(0x10))
	assert.False(t, c.contains(0x10), "swap must leave a fresh empty map behind")

	c.push(ai, 0x20)
	assert.True(t, c.contains(0x20))
	assert.False(t, c.contains(0x10))
}

func TestGlobalFreeCache_DistinctKeysDoNotCollide(t *testing.T) {
	c := newGlobalFreeCache()
	small := AllocKey{Kind: Device, Size: 64}
	large := AllocKey{Kind: Device, Size: 128}

	c.push(small, 0x1)
	c.push(large, 0x2)

	ptr, ok := c.pop(small)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x1), ptr)

	ptr, ok = c.pop(large)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x2), ptr)
}
