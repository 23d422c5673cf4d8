package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveTable_InsertLookupRemove(t *testing.T) {
	lt := newLiveTable()
	ai := AllocKey{Kind: Host, Size: 64}

	lt.insert(0x100, ai)
	got, ok := lt.lookup(0x100)
	require.True(t, ok)
	assert.Equal(t, ai, got)

	lt.remove(0x100)
	_, ok = lt.lookup(0x100)
	assert.False(t, ok)
}

func TestLiveTable_RelabelKindPreservesSizeAndDevice(t *testing.T) {
	lt := newLiveTable()
	ai := AllocKey{Kind: Host, Size: 128}
	lt.insert(0x200, ai)

	lt.relabelKind(0x200, HostAsync)

	got, ok := lt.lookup(0x200)
	require.True(t, ok)
	assert.Equal(t, HostAsync, got.Kind)
	assert.Equal(t, ai.Size, got.Size)
	assert.Equal(t, ai.Device, got.Device)
}

func TestLiveTable_SnapshotIsACopy(t *testing.T) {
	lt := newLiveTable()
	lt.insert(0x1, AllocKey{Kind: Host, Size: 64})

	snap := lt.snapshot()
	lt.insert(0x2, AllocKey{Kind: Host, Size: 64})

	assert.Len(t, snap, 1, "mutating the table after snapshot must not affect it")
	assert.Equal(t, 2, lt.len())
}

func TestLiveTable_LookupMissOnUnknownPointer(t *testing.T) {
	lt := newLiveTable()
	_, ok := lt.lookup(0xdead)
	assert.False(t, ok)
}
