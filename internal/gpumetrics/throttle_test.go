package gpumetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThrottleStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      ThrottleStatus
		throttling  bool
		thermal     bool
		power       bool
		flags       []string
		severity    float64
		description string
	}{
		{
			name:        "idle",
			status:      0,
			description: "none",
		},
		{
			name:        "core thermal",
			status:      1 << 32,
			throttling:  true,
			thermal:     true,
			flags:       []string{"THM_CORE"},
			severity:    1.0 / 13,
			description: "THM_CORE",
		},
		{
			name:        "prochot and ppt0",
			status:      (1 << 16) | 1,
			throttling:  true,
			power:       true,
			flags:       []string{"PROCHOT_CPU", "PPT0"},
			severity:    2.0 / 13,
			description: "PROCHOT_CPU,PPT0",
		},
		{
			name:        "sppt apu",
			status:      1 << 23,
			throttling:  true,
			power:       true,
			flags:       []string{"SPPT_APU"},
			severity:    1.0 / 13,
			description: "SPPT_APU",
		},
		{
			name:        "unnamed bit only",
			status:      1 << 40,
			throttling:  true,
			description: "unknown",
		},
		{
			name:        "prochot gfx is neither category",
			status:      1 << 1,
			throttling:  true,
			flags:       []string{"PROCHOT_GFX"},
			severity:    1.0 / 13,
			description: "PROCHOT_GFX",
		},
		{
			name:        "every named bit",
			status:      0b111<<32 | 0xff<<16 | 0b11,
			throttling:  true,
			thermal:     true,
			power:       true,
			flags:       []string{"PROCHOT_CPU", "PROCHOT_GFX", "PPT0", "PPT1", "PPT2", "PPT3", "SPL", "FPPT", "SPPT", "SPPT_APU", "THM_CORE", "THM_GFX", "THM_SOC"},
			severity:    1,
			description: "PROCHOT_CPU,PROCHOT_GFX,PPT0,PPT1,PPT2,PPT3,SPL,FPPT,SPPT,SPPT_APU,THM_CORE,THM_GFX,THM_SOC",
		},
		{
			name:        "reserved bits do not raise severity",
			status:      1<<63 | 1<<2 | 1<<35,
			throttling:  true,
			description: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.throttling, tt.status.IsThrottling())
			assert.Equal(t, tt.thermal, tt.status.IsThermalThrottling())
			assert.Equal(t, tt.power, tt.status.IsPowerThrottling())
			assert.Equal(t, tt.flags, tt.status.ActiveFlags())
			assert.InDelta(t, tt.severity, tt.status.Severity(), 1e-9)
			assert.Equal(t, tt.description, tt.status.String())
		})
	}
}

func TestThrottleFlagTableIsFixed(t *testing.T) {
	assert.Len(t, ThrottleFlags, 13)

	bits := map[string]uint{}
	for _, f := range ThrottleFlags {
		bits[f.Name] = f.Bit
	}

	assert.Equal(t, uint(0), bits["PROCHOT_CPU"])
	assert.Equal(t, uint(1), bits["PROCHOT_GFX"])
	assert.Equal(t, uint(16), bits["PPT0"])
	assert.Equal(t, uint(20), bits["SPL"])
	assert.Equal(t, uint(23), bits["SPPT_APU"])
	assert.Equal(t, uint(32), bits["THM_CORE"])
	assert.Equal(t, uint(34), bits["THM_SOC"])
}

func TestThrottleFromMetrics(t *testing.T) {
	m := decodeV1(t, newBlob(96, 1, 0).put64(v1ThrottleStatus, 1<<33))

	status := Throttle(m)
	assert.True(t, status.IsThermalThrottling())
	assert.Equal(t, []string{"THM_GFX"}, status.ActiveFlags())
}
