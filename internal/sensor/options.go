package sensor

import (
	"time"

	"codeberg.org/mutker/waysensor/internal/gpumetrics"
	"codeberg.org/mutker/waysensor/internal/reader"
	"codeberg.org/mutker/waysensor/internal/waybar"
)

// MetricsReader reads decoded metrics for a path, possibly from a cache.
type MetricsReader interface {
	Read(path string) (gpumetrics.Metrics, error)
	Invalidate()
	Close() error
}

// Thresholds is a warning/critical pair. Warning must be below Critical.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// Option defines a sensor option that can be passed to New
type Option func(*options) error

type options struct {
	metricsPath string
	format      Format
	fields      []string
	temp        Thresholds
	power       Thresholds
	strategy    reader.Strategy
	reader      MetricsReader

	thermalMonitoring    bool
	thermalZones         []string
	performanceAnalytics bool
	errorRecovery        bool

	style waybar.Style
	now   func() time.Time
}

func defaultOptions() options {
	return options{
		format:        FormatCompact,
		temp:          Thresholds{Warning: 75, Critical: 90},
		power:         Thresholds{Warning: 200, Critical: 250},
		strategy:      reader.Default(),
		errorRecovery: true,
		style:         waybar.DefaultStyle(),
		now:           time.Now,
	}
}

// WithMetricsPath binds the sensor to a gpu_metrics file instead of auto-detecting one.
func WithMetricsPath(path string) Option {
	return func(o *options) error {
		o.metricsPath = path
		return nil
	}
}

// WithFormat selects the output format. Fields apply to FormatCustom.
func WithFormat(format Format, fields ...string) Option {
	return func(o *options) error {
		o.format = format
		o.fields = fields
		return nil
	}
}

func WithTemperatureThresholds(warning, critical float64) Option {
	return func(o *options) error {
		o.temp = Thresholds{Warning: warning, Critical: critical}
		return nil
	}
}

func WithPowerThresholds(warning, critical float64) Option {
	return func(o *options) error {
		o.power = Thresholds{Warning: warning, Critical: critical}
		return nil
	}
}

func WithCacheStrategy(strategy reader.Strategy) Option {
	return func(o *options) error {
		o.strategy = strategy
		return nil
	}
}

func WithThermalMonitoring(enabled bool) Option {
	return func(o *options) error {
		o.thermalMonitoring = enabled
		return nil
	}
}

// WithThermalZones lists temperature labels (edge, hotspot, mem, ...) shown
// by the thermal monitor.
func WithThermalZones(zones ...string) Option {
	return func(o *options) error {
		o.thermalZones = zones
		return nil
	}
}

func WithPerformanceAnalytics(enabled bool) Option {
	return func(o *options) error {
		o.performanceAnalytics = enabled
		return nil
	}
}

// WithErrorRecovery toggles serving the last good reading across short failures.
func WithErrorRecovery(enabled bool) Option {
	return func(o *options) error {
		o.errorRecovery = enabled
		return nil
	}
}

func WithStyle(style waybar.Style) Option {
	return func(o *options) error {
		o.style = style
		return nil
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		o.now = now
		return nil
	}
}

// WithReader replaces the reader built from the cache strategy.
func WithReader(r MetricsReader) Option {
	return func(o *options) error {
		o.reader = r
		return nil
	}
}
