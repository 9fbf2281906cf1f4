// Package gpumetrics decodes the amdgpu gpu_metrics sysfs blob.
//
// The blob starts with a four byte header selecting one of several packed,
// little-endian layouts. Each supported layout family decodes into its own
// value type; callers work against the Metrics interface and never need to
// know which revision the driver exported.
package gpumetrics

// Metrics exposes the readings every layout family can provide.
type Metrics interface {
	GetHeader() Header

	// GetTemperature returns the primary temperature in °C and its label.
	GetTemperature() (uint16, string)
	GetAllTemperatures() []Reading

	// GetPower returns the socket power in watts.
	GetPower() uint16
	GetPowerBreakdown() map[string]uint16

	// GetActivity returns the graphics engine activity in percent.
	GetActivity() uint16
	GetActivityBreakdown() map[string]uint16

	// GetFrequency returns the current graphics clock in MHz.
	GetFrequency() uint16
	GetAllFrequencies() map[string]uint16

	GetThrottleStatus() uint64

	// GetFanSpeed returns the fan speed in percent and whether a fan is reporting.
	GetFanSpeed() (uint16, bool)

	GetMemoryInfo() (MemoryInfo, bool)
	GetVoltageInfo() (VoltageInfo, bool)
	GetSystemClockCounter() uint64
}

// Reading is a labelled value from a fixed-order listing.
type Reading struct {
	Label string
	Value uint16
}

// MemoryInfo groups memory controller readings. Nil fields are not
// reported by the layout.
type MemoryInfo struct {
	TotalVRAM   *uint64
	UsedVRAM    *uint64
	Frequency   *uint16
	Utilization *uint16
}

// VoltageInfo groups rail voltages in millivolts.
type VoltageInfo struct {
	Core   *uint16
	SOC    *uint16
	Memory *uint16
}

func (v VoltageInfo) any() bool {
	return v.Core != nil || v.SOC != nil || v.Memory != nil
}

// PowerEfficiency returns activity per watt, or 0 when power is 0.
func PowerEfficiency(m Metrics) float64 {
	power := m.GetPower()
	if power == 0 {
		return 0
	}

	return float64(m.GetActivity()) / float64(power)
}

// ThermalEfficiency returns activity per degree, or 0 when the temperature is 0.
func ThermalEfficiency(m Metrics) float64 {
	temp, _ := m.GetTemperature()
	if temp == 0 {
		return 0
	}

	return float64(m.GetActivity()) / float64(temp)
}

// Throttle returns the decoded throttle status word.
func Throttle(m Metrics) ThrottleStatus {
	return ThrottleStatus(m.GetThrottleStatus())
}
