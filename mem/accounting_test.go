package mem

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccounting_GrowTracksUsageAndWatermark(t *testing.T) {
	a := newAccounting(nil)
	a.grow(Device, 100)
	a.grow(Device, 50)

	usage, watermark := a.snapshot()
	assert.Equal(t, uintptr(150), usage[Device])
	assert.Equal(t, uintptr(150), watermark[Device])
}

func TestAccounting_ShrinkLowersUsageButNotWatermark(t *testing.T) {
	a := newAccounting(nil)
	a.grow(Host, 200)
	a.shrink(Host, 80)

	usage, watermark := a.snapshot()
	assert.Equal(t, uintptr(120), usage[Host])
	assert.Equal(t, uintptr(200), watermark[Host], "watermark is a historical high, never lowered by shrink")
}

func TestAccounting_KindsAreIndependent(t *testing.T) {
	a := newAccounting(nil)
	a.grow(Host, 10)
	a.grow(Device, 20)

	usage, _ := a.snapshot()
	assert.Equal(t, uintptr(10), usage[Host])
	assert.Equal(t, uintptr(20), usage[Device])
}

func TestAccounting_WatermarkTracksPeakAcrossGrowShrinkCycles(t *testing.T) {
	a := newAccounting(nil)
	a.grow(Device, 100)
	a.shrink(Device, 100)
	a.grow(Device, 40)

	usage, watermark := a.snapshot()
	assert.Equal(t, uintptr(40), usage[Device])
	assert.Equal(t, uintptr(100), watermark[Device])
}

func TestAccounting_RegistererReceivesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newAccounting(reg)
	require.NotNil(t, a.usageGauge)

	a.grow(Device, 256)

	metrics, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, metrics)
}

func TestAccounting_NilRegistererSkipsGauges(t *testing.T) {
	a := newAccounting(nil)
	assert.Nil(t, a.usageGauge)
	assert.Nil(t, a.watermarkGauge)
	// publish must tolerate nil gauges without panicking.
	assert.NotPanics(t, func() { a.grow(Host, 1) })
}
