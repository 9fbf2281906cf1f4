// Package sensor turns gpu_metrics readings into themed waybar records.
package sensor

import (
	"fmt"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/waysensor/internal/errors"
	"codeberg.org/mutker/waysensor/internal/gpu"
	"codeberg.org/mutker/waysensor/internal/gpumetrics"
	"codeberg.org/mutker/waysensor/internal/logger"
	"codeberg.org/mutker/waysensor/internal/reader"
	"codeberg.org/mutker/waysensor/internal/waybar"
)

// A failed read is masked by the last good reading while both limits hold.
const (
	maxRecoveredErrors = 3
	recoveryWindow     = 10 * time.Second
)

type lastGood struct {
	metrics gpumetrics.Metrics
	at      time.Time
}

// Sensor reads one GPU. It is not safe for concurrent use; the polling
// loop owns it.
type Sensor struct {
	name        string
	metricsPath string
	device      gpu.DeviceInfo

	format  Format
	fields  []string
	temp    Thresholds
	power   Thresholds
	display Display
	style   waybar.Style

	reader    MetricsReader
	thermal   *ThermalMonitor
	analytics *PerformanceAnalytics

	errorRecovery     bool
	last              *lastGood
	consecutiveErrors int
	lastErrorTime     time.Time

	now  func() time.Time
	vram func(metricsPath string) (gpu.VRAMUsage, error)
}

// New builds a sensor. Without WithMetricsPath the primary AMD GPU is detected.
func New(opts ...Option) (*Sensor, error) {
	errFactory := errors.New()

	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	path := o.metricsPath
	if path == "" {
		card, err := gpu.FindPrimary()
		if err != nil {
			return nil, err
		}
		path = card.MetricsPath
	}

	if _, err := os.Stat(path); err != nil {
		return nil, errFactory.Wrap(ErrUnavailable, err).
			WithMessage(fmt.Sprintf("GPU metrics file error: %s", path))
	}

	if err := validateThresholds("Temperature", o.temp); err != nil {
		return nil, err
	}
	if err := validateThresholds("Power", o.power); err != nil {
		return nil, err
	}

	device, err := gpu.ReadDeviceInfo(path)
	if err != nil {
		return nil, err
	}

	r := o.reader
	if r == nil {
		r = reader.New(o.strategy, reader.WithClock(o.now))
	}

	s := &Sensor{
		name:          "amd-gpu-" + strings.ToLower(strings.ReplaceAll(device.CardName, " ", "-")),
		metricsPath:   path,
		device:        device,
		format:        o.format,
		fields:        o.fields,
		temp:          o.temp,
		power:         o.power,
		display:       DefaultDisplay(),
		style:         o.style,
		reader:        r,
		errorRecovery: o.errorRecovery,
		now:           o.now,
		vram:          gpu.ReadVRAMUsage,
	}

	if o.thermalMonitoring {
		s.thermal, err = NewThermalMonitor(o.temp.Warning, o.temp.Critical, o.thermalZones)
		if err != nil {
			return nil, err
		}
	}

	if o.performanceAnalytics {
		s.analytics = NewPerformanceAnalytics()
	}

	logger.Debug().
		Str("sensor", s.name).
		Str("path", path).
		Str("format", string(s.format)).
		Msg("Sensor initialized")

	return s, nil
}

func validateThresholds(kind string, t Thresholds) error {
	if t.Warning < t.Critical {
		return nil
	}

	return errors.New().WithMessage(ErrInvalidThreshold,
		fmt.Sprintf("%s warning threshold must be less than critical threshold (warning: %v, critical: %v)",
			kind, t.Warning, t.Critical))
}

// Read produces one record from the current metrics.
func (s *Sensor) Read() (waybar.Output, error) {
	m, err := s.readWithRecovery()
	if err != nil {
		return waybar.Output{}, err
	}

	if s.thermal != nil {
		s.thermal.Update(m)
	}
	if s.analytics != nil {
		s.analytics.Update(m)
	}

	r := s.render(m)
	warning, critical := s.thresholds()

	return s.style.Theme.Themed(s.style.WithIcon(r.text), s.tooltip(m), r.percentage, r.value, warning, critical), nil
}

func (s *Sensor) readWithRecovery() (gpumetrics.Metrics, error) {
	m, err := s.reader.Read(s.metricsPath)
	if err == nil {
		s.consecutiveErrors = 0
		s.lastErrorTime = time.Time{}
		s.last = &lastGood{metrics: m, at: s.now()}

		return m, nil
	}

	s.consecutiveErrors++
	s.lastErrorTime = s.now()

	if s.errorRecovery && s.consecutiveErrors <= maxRecoveredErrors && s.last != nil {
		if age := s.now().Sub(s.last.at); age < recoveryWindow {
			logger.Debug().
				Err(err).
				Int("consecutive_errors", s.consecutiveErrors).
				Dur("age", age).
				Msg("Serving last good reading")

			return s.last.metrics, nil
		}
	}

	return nil, err
}

// Settings replaces parts of the sensor configuration. Nil fields are kept.
type Settings struct {
	Style       *waybar.Style
	Temperature *Thresholds
	Power       *Thresholds
	Display     *Display
}

// Configure applies settings and invalidates the cache so they show on the next read.
func (s *Sensor) Configure(settings Settings) error {
	temp, power := s.temp, s.power
	if settings.Temperature != nil {
		temp = *settings.Temperature
	}
	if settings.Power != nil {
		power = *settings.Power
	}

	if err := validateThresholds("Temperature", temp); err != nil {
		return err
	}
	if err := validateThresholds("Power", power); err != nil {
		return err
	}

	s.temp, s.power = temp, power
	if s.thermal != nil {
		s.thermal.SetThresholds(temp.Warning, temp.Critical)
	}

	if settings.Style != nil {
		s.style = *settings.Style
	}
	if settings.Display != nil {
		s.display = *settings.Display
	}

	s.InvalidateCache()

	return nil
}

// CheckAvailability verifies the metrics file still exists and decodes.
func (s *Sensor) CheckAvailability() error {
	errFactory := errors.New()

	if _, err := os.Stat(s.metricsPath); err != nil {
		return errFactory.Wrap(ErrUnavailable, err).WithMessage("GPU metrics file no longer exists")
	}

	if _, err := s.reader.Read(s.metricsPath); err != nil {
		return errFactory.Wrap(ErrUnavailable, err).WithMessage("Cannot read GPU metrics")
	}

	return nil
}

// InvalidateCache forces the next read to go to the file.
func (s *Sensor) InvalidateCache() {
	s.reader.Invalidate()
	s.last = nil
}

func (s *Sensor) Name() string {
	return s.name
}

func (s *Sensor) MetricsPath() string {
	return s.metricsPath
}

func (s *Sensor) DeviceInfo() gpu.DeviceInfo {
	return s.device
}

// LastMetrics returns the last successful reading and when it was taken.
func (s *Sensor) LastMetrics() (gpumetrics.Metrics, time.Time, bool) {
	if s.last == nil {
		return nil, time.Time{}, false
	}

	return s.last.metrics, s.last.at, true
}

// ThermalState returns the alert level when thermal monitoring is on and has data.
func (s *Sensor) ThermalState() (ThermalAlert, bool) {
	if s.thermal == nil {
		return AlertNormal, false
	}

	state, ok := s.thermal.State()

	return state.AlertLevel, ok
}

func (s *Sensor) PerformanceState() (PerformanceState, bool) {
	if s.analytics == nil {
		return PerformanceState{}, false
	}

	return s.analytics.State()
}

// IsThrottling reports the throttle state of the last good reading.
func (s *Sensor) IsThrottling() (bool, bool) {
	if s.last == nil {
		return false, false
	}

	return gpumetrics.Throttle(s.last.metrics).IsThrottling(), true
}

// ConsecutiveErrors is the number of failed reads since the last success.
func (s *Sensor) ConsecutiveErrors() int {
	return s.consecutiveErrors
}

func (s *Sensor) Close() error {
	return s.reader.Close()
}
