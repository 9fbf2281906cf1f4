package sensor

import (
	"testing"

	"codeberg.org/mutker/waysensor/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertFor(t *testing.T) {
	tests := []struct {
		temp float64
		want ThermalAlert
	}{
		{temp: 40, want: AlertNormal},
		{temp: 64.9, want: AlertNormal},
		{temp: 65, want: AlertElevated},
		{temp: 75, want: AlertWarning},
		{temp: 89, want: AlertWarning},
		{temp: 90, want: AlertCritical},
		{temp: 99, want: AlertCritical},
		{temp: 100, want: AlertEmergency},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AlertFor(tt.temp, 75, 90), "temp %v", tt.temp)
	}
}

func TestThermalAlertOrdering(t *testing.T) {
	assert.Less(t, AlertNormal, AlertElevated)
	assert.Less(t, AlertElevated, AlertWarning)
	assert.Less(t, AlertWarning, AlertCritical)
	assert.Less(t, AlertCritical, AlertEmergency)
	assert.Equal(t, "Emergency", AlertEmergency.String())
}

func TestThermalMonitor(t *testing.T) {
	_, err := NewThermalMonitor(90, 90, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidThreshold))

	tm, err := NewThermalMonitor(75, 90, []string{"edge", "memory", "missing"})
	require.NoError(t, err)

	_, ok := tm.State()
	assert.False(t, ok)

	m := sample()
	tm.Update(m)
	m.TemperatureEdge = 80
	state := tm.Update(m)

	assert.Equal(t, 80.0, state.Temperature)
	assert.Equal(t, 70.0, state.Average)
	assert.Equal(t, 2, state.Samples)
	assert.Equal(t, AlertWarning, state.AlertLevel)

	require.Len(t, state.Zones, 2)
	assert.Equal(t, "Edge", state.Zones[0].Name)
	assert.Equal(t, AlertWarning, state.Zones[0].AlertLevel)
	assert.Equal(t, "Memory", state.Zones[1].Name)
	assert.Equal(t, 58.0, state.Zones[1].Temperature)
	require.NotNil(t, state.Zones[1].CriticalPoint)
	assert.Equal(t, 90.0, *state.Zones[1].CriticalPoint)

	tm.SetThresholds(85, 95)
	assert.Equal(t, AlertElevated, tm.Update(m).AlertLevel)

	tm.Reset()
	_, ok = tm.State()
	assert.False(t, ok)
}
