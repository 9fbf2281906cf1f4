package sensor

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/waysensor/internal/errors"
	"codeberg.org/mutker/waysensor/internal/gpu"
	"codeberg.org/mutker/waysensor/internal/gpumetrics"
)

// ThermalAlert levels are ordered by severity.
type ThermalAlert int

const (
	AlertNormal ThermalAlert = iota
	AlertElevated
	AlertWarning
	AlertCritical
	AlertEmergency
)

func (a ThermalAlert) String() string {
	switch a {
	case AlertNormal:
		return "Normal"
	case AlertElevated:
		return "Elevated"
	case AlertWarning:
		return "Warning"
	case AlertCritical:
		return "Critical"
	case AlertEmergency:
		return "Emergency"
	default:
		return fmt.Sprintf("ThermalAlert(%d)", int(a))
	}
}

// Bands around the thresholds.
const (
	elevatedMargin  = 10
	emergencyMargin = 10
)

// AlertFor classifies a temperature against the warning and critical thresholds.
func AlertFor(temp, warning, critical float64) ThermalAlert {
	switch {
	case temp >= critical+emergencyMargin:
		return AlertEmergency
	case temp >= critical:
		return AlertCritical
	case temp >= warning:
		return AlertWarning
	case temp >= warning-elevatedMargin:
		return AlertElevated
	default:
		return AlertNormal
	}
}

// ThermalZone is a named temperature from the metrics blob.
type ThermalZone struct {
	Name          string
	Temperature   float64
	CriticalPoint *float64
	AlertLevel    ThermalAlert
}

// ThermalState is the monitor's view after the latest update.
type ThermalState struct {
	Temperature float64
	Average     float64
	Samples     int
	AlertLevel  ThermalAlert
	Zones       []ThermalZone
}

// ThermalMonitor tracks a smoothed temperature and the alert level.
type ThermalMonitor struct {
	warning  float64
	critical float64
	zones    []string
	smoother *gpu.Smoother
	state    *ThermalState
}

func NewThermalMonitor(warning, critical float64, zones []string) (*ThermalMonitor, error) {
	if warning >= critical {
		return nil, errors.New().WithData(ErrInvalidThreshold,
			fmt.Sprintf("thermal warning: %v, critical: %v", warning, critical))
	}

	return &ThermalMonitor{
		warning:  warning,
		critical: critical,
		zones:    zones,
		smoother: gpu.NewSmoother(),
	}, nil
}

// Update feeds a reading into the monitor.
func (t *ThermalMonitor) Update(m gpumetrics.Metrics) ThermalState {
	temp, _ := m.GetTemperature()
	current := float64(temp)
	avg := float64(t.smoother.UpdateTemperatureHistory(gpu.Temperature(current)))

	state := ThermalState{
		Temperature: current,
		Average:     avg,
		Samples:     t.smoother.Samples(),
		AlertLevel:  AlertFor(current, t.warning, t.critical),
		Zones:       t.readZones(m),
	}
	t.state = &state

	return state
}

func (t *ThermalMonitor) readZones(m gpumetrics.Metrics) []ThermalZone {
	if len(t.zones) == 0 {
		return nil
	}

	readings := m.GetAllTemperatures()
	critical := t.critical

	var zones []ThermalZone
	for _, name := range t.zones {
		for _, r := range readings {
			if !strings.EqualFold(r.Label, name) {
				continue
			}

			v := float64(r.Value)
			zones = append(zones, ThermalZone{
				Name:          r.Label,
				Temperature:   v,
				CriticalPoint: &critical,
				AlertLevel:    AlertFor(v, t.warning, t.critical),
			})

			break
		}
	}

	return zones
}

// State returns the latest state, if any update happened.
func (t *ThermalMonitor) State() (ThermalState, bool) {
	if t.state == nil {
		return ThermalState{}, false
	}

	return *t.state, true
}

// SetThresholds replaces the thresholds. The smoothing window is kept.
func (t *ThermalMonitor) SetThresholds(warning, critical float64) {
	t.warning = warning
	t.critical = critical
}

func (t *ThermalMonitor) Reset() {
	t.smoother.Reset()
	t.state = nil
}
