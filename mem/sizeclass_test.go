package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundSize_FloorsToSixtyFour(t *testing.T) {
	assert.Equal(t, uintptr(64), roundSize(Device, 1, 0))
	assert.Equal(t, uintptr(64), roundSize(Device, 63, 0))
	assert.Equal(t, uintptr(64), roundSize(Device, 64, 0))
}

func TestRoundSize_PowerOfTwo(t *testing.T) {
	assert.Equal(t, uintptr(128), roundSize(Device, 65, 0))
	assert.Equal(t, uintptr(128), roundSize(Device, 128, 0))
	assert.Equal(t, uintptr(4096), roundSize(Device, 4097-64, 0))
}

func TestRoundSize_HostPacketWidening(t *testing.T) {
	// vectorWidth below the packing threshold: plain 64-byte floor.
	assert.Equal(t, uintptr(64), roundSize(Host, 1, 8))

	// vectorWidth at/above the threshold widens Q to vectorWidth*8 for
	// Host/HostAsync only.
	narrow := roundSize(Host, 1, 16)
	assert.Equal(t, uintptr(128), narrow) // ceil(1,128)=128, nextPow2=128

	// Device is unaffected by vectorWidth.
	assert.Equal(t, uintptr(64), roundSize(Device, 1, 16))
}

func TestRoundSize_Deterministic(t *testing.T) {
	for _, size := range []uintptr{1, 17, 63, 64, 65, 1000, 1 << 20} {
		a := roundSize(Device, size, 0)
		b := roundSize(Device, size, 0)
		assert.Equal(t, a, b, "roundSize must be a pure function of its inputs")
	}
}

func TestNextPow2_AlreadyPowerOfTwo(t *testing.T) {
	assert.Equal(t, uintptr(1), nextPow2(1))
	assert.Equal(t, uintptr(64), nextPow2(64))
	assert.Equal(t, uintptr(1024), nextPow2(1024))
}

func TestNextPow2_RoundsUp(t *testing.T) {
	assert.Equal(t, uintptr(128), nextPow2(65))
	assert.Equal(t, uintptr(2), nextPow2(2))
}

func TestCeilToMultiple(t *testing.T) {
	assert.Equal(t, uintptr(64), ceilToMultiple(1, 64))
	assert.Equal(t, uintptr(64), ceilToMultiple(64, 64))
	assert.Equal(t, uintptr(128), ceilToMultiple(65, 64))
}
