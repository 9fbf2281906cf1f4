package sensor

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/waysensor/internal/gpumetrics"
	"codeberg.org/mutker/waysensor/internal/waybar"
	"github.com/dustin/go-humanize"
)

const gaugeWidth = 10

func (s *Sensor) tooltip(m gpumetrics.Metrics) string {
	kv := s.style.KeyValue
	var lines []string

	// Detailed views carry a bar after the percentages.
	gauge := func(float64) string { return "" }
	if s.format == FormatDetailed || s.format == FormatPerformance {
		gauge = func(pct float64) string { return " " + waybar.Gauge(pct, gaugeWidth) }
	}

	lines = append(lines,
		kv("GPU", s.device.CardName),
		kv("Device", fmt.Sprintf("%s (%s)", s.device.DeviceID, s.device.VendorID)),
	)

	temp, label := m.GetTemperature()
	lines = append(lines,
		kv(fmt.Sprintf("Temperature (%s)", label), fmt.Sprintf("%d°C", temp)),
		kv("Power", fmtPower(m.GetPower())),
		kv("Activity", fmt.Sprintf("%d%%", m.GetActivity())+gauge(float64(m.GetActivity()))),
		kv("Frequency", fmtFreq(m.GetFrequency())),
	)

	if fan, ok := m.GetFanSpeed(); ok && fan > 0 {
		lines = append(lines, kv("Fan Speed", fmt.Sprintf("%d%%", fan)))
	}

	if usage, err := s.vram(s.metricsPath); err == nil && usage.Total > 0 {
		lines = append(lines, kv("VRAM", fmt.Sprintf("%s / %s (%.0f%%)",
			humanize.IBytes(usage.Used), humanize.IBytes(usage.Total), usage.Percent())+gauge(usage.Percent())))
	}

	if throttle := gpumetrics.Throttle(m); throttle.IsThrottling() {
		reasons := strings.Join(throttle.ActiveFlags(), ", ")
		if reasons == "" {
			reasons = throttle.String()
		}
		lines = append(lines, "", "Throttling Active", kv("Reasons", reasons))

		var kinds []string
		if throttle.IsThermalThrottling() {
			kinds = append(kinds, "thermal")
		}
		if throttle.IsPowerThrottling() {
			kinds = append(kinds, "power")
		}
		if len(kinds) > 0 {
			lines = append(lines, kv("Type", strings.Join(kinds, ", ")))
		}
	}

	if s.thermal != nil {
		if state, ok := s.thermal.State(); ok {
			lines = append(lines, "",
				kv("Thermal State", state.AlertLevel.String()),
				kv(fmt.Sprintf("Average (%d samples)", state.Samples), fmt.Sprintf("%.1f°C", state.Average)),
			)
			for _, zone := range state.Zones {
				lines = append(lines, kv(zone.Name, fmt.Sprintf("%.0f°C (%s)", zone.Temperature, zone.AlertLevel)))
			}
		}
	}

	if s.analytics != nil {
		if state, ok := s.analytics.State(); ok {
			lines = append(lines, "",
				kv("Power Efficiency", fmt.Sprintf("%.1f Perf/W", state.PowerEfficiency)),
				kv("Average Power", fmt.Sprintf("%.0fW", state.AveragePower)),
			)
			if len(state.Bottlenecks) > 0 {
				lines = append(lines, kv("Bottlenecks", strings.Join(state.Bottlenecks, ", ")))
			}
			if len(state.Hints) > 0 {
				lines = append(lines, "Optimization Hints:")
				for _, hint := range state.Hints {
					lines = append(lines, "• "+hint)
				}
			}
		}
	}

	if s.consecutiveErrors > 0 {
		lines = append(lines, "", kv("Recent errors", fmt.Sprintf("%d (last %s)",
			s.consecutiveErrors, humanize.RelTime(s.lastErrorTime, s.now(), "ago", "from now"))))
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
