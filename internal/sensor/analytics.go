package sensor

import (
	"codeberg.org/mutker/waysensor/internal/gpu"
	"codeberg.org/mutker/waysensor/internal/gpumetrics"
)

// PerformanceState summarises how well the GPU is using its power and clocks.
type PerformanceState struct {
	// PowerEfficiency is activity percent per watt.
	PowerEfficiency float64
	// ThermalEfficiency is activity percent per °C.
	ThermalEfficiency float64
	// UtilizationEfficiency is activity scaled by the current clock over
	// the highest clock seen so far.
	UtilizationEfficiency float64
	// AveragePower is the socket power averaged over the last few readings.
	AveragePower float64

	Bottlenecks []string
	Hints       []string
}

const (
	saturatedActivity     = 95
	idleActivity          = 30
	highClockRatio        = 0.9
	lowPowerEfficiency    = 0.2
	minEfficiencyActivity = 10
)

// PerformanceAnalytics derives a PerformanceState from each reading.
type PerformanceAnalytics struct {
	maxFrequency float64
	power        *gpu.Smoother
	state        *PerformanceState
}

func NewPerformanceAnalytics() *PerformanceAnalytics {
	return &PerformanceAnalytics{power: gpu.NewSmoother()}
}

func (p *PerformanceAnalytics) Update(m gpumetrics.Metrics) PerformanceState {
	activity := float64(m.GetActivity())
	freq := float64(m.GetFrequency())
	if freq > p.maxFrequency {
		p.maxFrequency = freq
	}

	state := PerformanceState{
		PowerEfficiency:   gpumetrics.PowerEfficiency(m),
		ThermalEfficiency: gpumetrics.ThermalEfficiency(m),
		AveragePower:      float64(p.power.UpdatePowerHistory(gpu.Power(m.GetPower()))),
	}

	var clockRatio float64
	if p.maxFrequency > 0 {
		clockRatio = freq / p.maxFrequency
		state.UtilizationEfficiency = activity * clockRatio
	}

	throttle := gpumetrics.Throttle(m)
	if throttle.IsThermalThrottling() {
		state.Bottlenecks = append(state.Bottlenecks, "Thermal throttling")
		state.Hints = append(state.Hints, "Improve cooling or raise the fan curve")
	}
	if throttle.IsPowerThrottling() {
		state.Bottlenecks = append(state.Bottlenecks, "Power limit reached")
		state.Hints = append(state.Hints, "Raise the power limit or reduce the load")
	}
	if activity >= saturatedActivity {
		state.Bottlenecks = append(state.Bottlenecks, "GPU fully utilized")
	}
	if activity > 0 && activity < idleActivity && clockRatio >= highClockRatio {
		state.Hints = append(state.Hints, "Clocks are high at low load, check the power profile")
	}
	if activity >= minEfficiencyActivity && state.PowerEfficiency > 0 && state.PowerEfficiency < lowPowerEfficiency {
		state.Hints = append(state.Hints, "Low performance per watt")
	}

	p.state = &state

	return state
}

func (p *PerformanceAnalytics) State() (PerformanceState, bool) {
	if p.state == nil {
		return PerformanceState{}, false
	}

	return *p.state, true
}

func (p *PerformanceAnalytics) Reset() {
	p.maxFrequency = 0
	p.power.Reset()
	p.state = nil
}
