package sensor

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/waysensor/internal/errors"
	"codeberg.org/mutker/waysensor/internal/gpumetrics"
	"codeberg.org/mutker/waysensor/internal/waybar"
)

// Format selects what the status text shows.
type Format string

const (
	FormatCompact     Format = "compact"
	FormatDetailed    Format = "detailed"
	FormatMinimal     Format = "minimal"
	FormatPower       Format = "power"
	FormatActivity    Format = "activity"
	FormatThermal     Format = "thermal"
	FormatPerformance Format = "performance"
	FormatCustom      Format = "custom"
)

var formats = []Format{
	FormatCompact,
	FormatDetailed,
	FormatMinimal,
	FormatPower,
	FormatActivity,
	FormatThermal,
	FormatPerformance,
	FormatCustom,
}

// Custom format fields.
const (
	FieldTemp      = "temp"
	FieldPower     = "power"
	FieldActivity  = "activity"
	FieldFrequency = "frequency"
	FieldFan       = "fan"
)

// Activity has no configurable thresholds.
const (
	activityWarning  = 70
	activityCritical = 90
)

func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if f == "" {
		return FormatCompact, nil
	}

	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}

	return "", errors.New().WithData(ErrInvalidFormat, name)
}

// Display holds the compact format's field selection.
type Display struct {
	Temperature bool
	Power       bool
	Utilization bool
	Memory      bool
	Frequency   bool
	// Order, when set, replaces the flags above and fixes the field order.
	Order []string
}

func DefaultDisplay() Display {
	return Display{
		Temperature: true,
		Power:       true,
		Utilization: true,
	}
}

// fields returns the compact fields to render, in order.
func (d Display) fields() []string {
	if len(d.Order) > 0 {
		return d.Order
	}

	var out []string
	if d.Temperature {
		out = append(out, "temperature")
	}
	if d.Power {
		out = append(out, "power")
	}
	if d.Utilization {
		out = append(out, "utilization")
	}
	if d.Memory {
		out = append(out, "memory")
	}
	if d.Frequency {
		out = append(out, "frequency")
	}

	return out
}

// rendered is the text, the value used for the class, and the bar percentage.
type rendered struct {
	text       string
	value      float64
	percentage *int
}

func fmtTemp(v uint16) string { return fmt.Sprintf("%3d°C", v) }
func fmtPower(v uint16) string { return fmt.Sprintf("%dW", v) }
func fmtPercent(v uint16) string { return fmt.Sprintf("%3d%%", v) }
func fmtFreq(v uint16) string { return fmt.Sprintf("%dMHz", v) }
func fmtMemory(pct float64) string { return fmt.Sprintf("%.0f%%M", pct) }

func (s *Sensor) render(m gpumetrics.Metrics) rendered {
	temp, _ := m.GetTemperature()
	power := m.GetPower()
	activity := m.GetActivity()
	freq := m.GetFrequency()

	activityPct := waybar.Percent(float64(activity))

	switch s.format {
	case FormatDetailed:
		parts := []string{fmtTemp(temp), fmtPower(power), fmtPercent(activity), fmtFreq(freq)}
		if fan, ok := m.GetFanSpeed(); ok && fan > 0 {
			parts = append(parts, fmtPercent(fan))
		}

		return rendered{strings.Join(parts, " "), float64(temp), activityPct}
	case FormatMinimal:
		return rendered{fmtTemp(temp), float64(temp), nil}
	case FormatPower:
		return rendered{fmtPower(power), float64(power), waybar.Percent(float64(power) / s.power.Critical * 100)}
	case FormatActivity:
		return rendered{fmtPercent(activity), float64(activity), activityPct}
	case FormatThermal:
		return rendered{fmtTemp(temp), float64(temp), waybar.Percent(float64(temp) / s.temp.Critical * 100)}
	case FormatPerformance:
		return rendered{fmtFreq(freq) + " " + fmtPower(power), float64(temp), activityPct}
	case FormatCustom:
		var parts []string
		for _, field := range s.fields {
			switch field {
			case FieldTemp:
				parts = append(parts, fmtTemp(temp))
			case FieldPower:
				parts = append(parts, fmtPower(power))
			case FieldActivity:
				parts = append(parts, fmtPercent(activity))
			case FieldFrequency:
				parts = append(parts, fmtFreq(freq))
			case FieldFan:
				if fan, ok := m.GetFanSpeed(); ok {
					parts = append(parts, fmtPercent(fan))
				}
			}
		}

		text := fmtTemp(temp)
		if len(parts) > 0 {
			text = strings.Join(parts, " ")
		}

		return rendered{text, float64(temp), activityPct}
	default:
		var parts []string
		for _, field := range s.display.fields() {
			switch field {
			case "temperature":
				parts = append(parts, fmtTemp(temp))
			case "power":
				parts = append(parts, fmtPower(power))
			case "utilization":
				parts = append(parts, fmtPercent(activity))
			case "memory":
				if usage, err := s.vram(s.metricsPath); err == nil && usage.Total > 0 {
					parts = append(parts, fmtMemory(usage.Percent()))
				}
			case "frequency":
				parts = append(parts, fmtFreq(freq))
			}
		}

		text := fmtPercent(activity)
		if len(parts) > 0 {
			text = strings.Join(parts, " ")
		}

		return rendered{text, float64(temp), activityPct}
	}
}

// thresholds returns the warning and critical values the class is judged by.
func (s *Sensor) thresholds() (float64, float64) {
	switch s.format {
	case FormatPower:
		return s.power.Warning, s.power.Critical
	case FormatActivity:
		return activityWarning, activityCritical
	default:
		return s.temp.Warning, s.temp.Critical
	}
}
