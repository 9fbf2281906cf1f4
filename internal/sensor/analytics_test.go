package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceAnalytics(t *testing.T) {
	pa := NewPerformanceAnalytics()

	_, ok := pa.State()
	assert.False(t, ok)

	m := sample()
	m.AverageGfxActivity = 80
	m.AverageSocketPower = 200
	m.TemperatureEdge = 50
	state := pa.Update(m)

	assert.InDelta(t, 0.4, state.PowerEfficiency, 1e-9)
	assert.InDelta(t, 1.6, state.ThermalEfficiency, 1e-9)
	assert.InDelta(t, 80, state.UtilizationEfficiency, 1e-9)
	assert.Empty(t, state.Bottlenecks)
	assert.Empty(t, state.Hints)

	// Half the best clock halves the utilization efficiency.
	m.CurrentClocks.Gfx = 900
	state = pa.Update(m)
	assert.InDelta(t, 40, state.UtilizationEfficiency, 1e-9)

	// Power is averaged over the window.
	m.AverageSocketPower = 100
	state = pa.Update(m)
	assert.InDelta(t, 500.0/3, state.AveragePower, 1e-9)

	got, ok := pa.State()
	require.True(t, ok)
	assert.Equal(t, state, got)
}

func TestPerformanceAnalyticsRules(t *testing.T) {
	pa := NewPerformanceAnalytics()

	m := sample()
	m.ThrottleStatus = 1<<32 | 1<<20
	m.AverageGfxActivity = 99
	state := pa.Update(m)

	assert.Equal(t, []string{"Thermal throttling", "Power limit reached", "GPU fully utilized"}, state.Bottlenecks)
	assert.Contains(t, state.Hints, "Improve cooling or raise the fan curve")

	pa.Reset()
	_, ok := pa.State()
	assert.False(t, ok)

	m = sample()
	m.AverageGfxActivity = 10
	m.AverageSocketPower = 100
	state = pa.Update(m)
	assert.Equal(t, []string{"Clocks are high at low load, check the power profile", "Low performance per watt"}, state.Hints)
	assert.InDelta(t, 100, state.AveragePower, 1e-9, "reset clears the power window")
}
