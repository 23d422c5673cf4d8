package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnmapQueue_PushSwapDrains(t *testing.T) {
	q := newUnmapQueue()
	q.push(unmapEntry{shouldFree: true, ptr: 0x1})
	q.push(unmapEntry{shouldFree: false, ptr: 0x2})
	assert.Equal(t, 2, q.len())

	drained := q.swap()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, q.len(), "swap must leave the queue empty")
	assert.Equal(t, uintptr(0x1), drained[0].ptr)
	assert.True(t, drained[0].shouldFree)
	assert.False(t, drained[1].shouldFree)
}

func TestUnmapQueue_SwapOnEmptyQueue(t *testing.T) {
	q := newUnmapQueue()
	drained := q.swap()
	assert.Empty(t, drained)
}
