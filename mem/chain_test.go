package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainNode_PushPopIsLIFO(t *testing.T) {
	n := newChainNode()
	ai := AllocKey{Kind: Device, Size: 64}
	n.push(ai, 0x1)
	n.push(ai, 0x2)

	ptr, ok := n.pop(ai)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x2), ptr)
	assert.False(t, n.empty())

	ptr, ok = n.pop(ai)
	require.True(t, ok)
	assert.Equal(t, uintptr(0x1), ptr)
	assert.True(t, n.empty())
}

func TestStreamChains_HeadCreatesOnFirstUse(t *testing.T) {
	c := newStreamChains()
	s := newFakeCUDAStream(0)

	h1 := c.head(s)
	h2 := c.head(s)
	assert.Same(t, h1, h2, "head must return the same node for the same stream until sealed")
}

func TestStreamChains_SealLinksOldHeadAndReturnsIt(t *testing.T) {
	c := newStreamChains()
	s := newFakeCUDAStream(0)
	ai := AllocKey{Kind: Device, Size: 64}

	c.head(s).push(ai, 0x1)
	old := c.seal(s)
	require.NotNil(t, old)

	fresh := c.head(s)
	assert.NotSame(t, old, fresh, "seal must install a new empty head")
	assert.Same(t, old, fresh.next, "the fresh head must chain to the old one")
	assert.True(t, fresh.empty())
}

func TestStreamChains_SealOnEmptyHeadIsNoop(t *testing.T) {
	c := newStreamChains()
	s := newFakeCUDAStream(0)

	before := c.head(s)
	sealed := c.seal(s)
	assert.Nil(t, sealed)
	assert.Same(t, before, c.head(s), "an empty head must not be replaced")
}

func TestStreamChains_DetachUnlinksNode(t *testing.T) {
	c := newStreamChains()
	s := newFakeCUDAStream(0)
	ai := AllocKey{Kind: Device, Size: 64}

	c.head(s).push(ai, 0x1)
	old := c.seal(s)

	c.detach(s, old)
	assert.Nil(t, c.head(s).next, "detach must unlink the drained node from the current head")
}

func TestStreamChains_IndependentPerStream(t *testing.T) {
	c := newStreamChains()
	s1 := newFakeCUDAStream(0)
	s2 := newFakeCUDAStream(1)
	ai := AllocKey{Kind: Device, Size: 64}

	c.head(s1).push(ai, 0x1)
	assert.True(t, c.head(s2).empty(), "pushing to one stream's chain must not affect another's")
}
