// Copyright © 2024 Mutker Telag <witty.text5011@fastmail.com>
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/waysensor/internal/config"
	"codeberg.org/mutker/waysensor/internal/errors"
	"codeberg.org/mutker/waysensor/internal/history"
	"codeberg.org/mutker/waysensor/internal/logger"
	"codeberg.org/mutker/waysensor/internal/pid"
	"codeberg.org/mutker/waysensor/internal/sensor"
	"codeberg.org/mutker/waysensor/internal/waybar"
	"github.com/spf13/pflag"
)

type app struct {
	cfg      *config.Config
	sensor   *sensor.Sensor
	recorder history.Recorder
	out      *waybar.Encoder

	lastRecorded time.Time
}

func main() {
	os.Exit(run())
}

func run() int {
	out := waybar.NewEncoder(os.Stdout)

	cfg, err := config.Load(os.Args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		_ = out.Encode(waybar.ErrorOutput(err))
		return 1
	}

	initLogger(cfg)
	logger.Debug().Str("config", cfg.ConfigFile).Msg("Config loaded")

	if cfg.GenerateConfig {
		return generateConfig(cfg)
	}

	s, err := newSensor(cfg)
	if err != nil {
		logger.ErrorWithContext(err, "sensor", "init").Msg("failed to initialize sensor")
		_ = out.Encode(waybar.ErrorOutput(err))
		return 1
	}
	defer s.Close()

	if cfg.Check {
		return check(s)
	}

	if cfg.Once {
		a := &app{cfg: cfg, sensor: s, out: out}
		if ok, err := a.emit(); err != nil || !ok {
			return 1
		}
		return 0
	}

	if cfg.PIDFile != "" {
		if err := pid.Write(cfg.PIDFile); err != nil {
			logger.Error().Err(err).Msg("failed to write PID file")
			return 1
		}
		defer func() {
			if err := pid.Remove(cfg.PIDFile); err != nil {
				logger.Warn().Err(err).Msg("failed to remove PID file")
			}
		}()
	}

	recorder, err := history.NewService(cfg.HistoryConfig(), logger.Default())
	if err != nil {
		logger.Error().Err(err).Msg("history disabled")
		recorder = nil
	}

	a := &app{cfg: cfg, sensor: s, recorder: recorder, out: out}
	defer a.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.loop(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
		return 1
	}

	return 0
}

func initLogger(cfg *config.Config) {
	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())

	if cfg.Debug || cfg.Verbose {
		return
	}
	logger.SetLogLevel(config.LogLevel(cfg.LogLevel).Level())
}

func newSensor(cfg *config.Config) (*sensor.Sensor, error) {
	opts, err := cfg.SensorOptions()
	if err != nil {
		return nil, err
	}

	s, err := sensor.New(opts...)
	if err != nil {
		return nil, err
	}

	if err := s.Configure(cfg.SensorSettings()); err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Info().
		Str("sensor", s.Name()).
		Str("path", s.MetricsPath()).
		Str("format", cfg.Format).
		Msg("Sensor initialized")

	return s, nil
}

func generateConfig(cfg *config.Config) int {
	path := cfg.ConfigFile
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			logger.Error().Err(err).Msg("failed to resolve config path")
			return 1
		}
	}

	if err := config.WriteExample(path); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to write example config")
		return 1
	}

	fmt.Fprintf(os.Stderr, "Example configuration written to %s\n", path)

	return 0
}

func check(s *sensor.Sensor) int {
	if err := s.CheckAvailability(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: unavailable: %v\n", s.Name(), err)
		return 1
	}

	info := s.DeviceInfo()
	fmt.Fprintf(os.Stdout, "%s: available\n  card: %s\n  device: %s (%s)\n  driver: %s\n  metrics: %s\n",
		s.Name(), info.CardName, info.DeviceID, info.VendorID, info.DriverVersion, s.MetricsPath())

	return 0
}

func (a *app) loop(ctx context.Context) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	ticker := time.NewTicker(a.cfg.UpdateInterval())
	defer ticker.Stop()

	if err := a.tick(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				if a.reload() {
					ticker.Reset(a.cfg.UpdateInterval())
				}
			case syscall.SIGUSR1:
				logger.Info().Msg("Cache invalidated")
				a.sensor.InvalidateCache()
			default:
				logger.Info().Str("signal", sig.String()).Msg("Received termination signal.")
				return nil
			}
		case <-ticker.C:
			if err := a.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *app) tick(ctx context.Context) error {
	if _, err := a.emit(); err != nil {
		return err
	}

	a.record(ctx)

	return nil
}

// emit writes one record and reports whether it was a reading. Only a
// failure to write stdout is returned as an error.
func (a *app) emit() (bool, error) {
	out, err := a.sensor.Read()
	ok := err == nil
	if !ok {
		logger.WarnWithCode(err).
			Int("consecutive_errors", a.sensor.ConsecutiveErrors()).
			Msg("failed to read sensor")
		out = waybar.ErrorOutput(err)
	}

	if err := a.out.Encode(out); err != nil {
		return ok, errors.New().Wrap(errors.ErrMainLoop, err).WithMessage("failed to write output")
	}

	return ok, nil
}

func (a *app) record(ctx context.Context) {
	if a.recorder == nil {
		return
	}

	m, at, ok := a.sensor.LastMetrics()
	if !ok || !at.After(a.lastRecorded) {
		return
	}
	a.lastRecorded = at

	snapshot := history.NewSnapshot(a.sensor.DeviceInfo().CardName, m, at)
	if err := a.recorder.Record(ctx, snapshot); err != nil {
		logger.Warn().Err(err).Msg("failed to record reading")
	}
}

// reload re-reads the configuration and applies the settings a running
// sensor can change. Metrics path, format and cache strategy need a restart.
func (a *app) reload() bool {
	cfg, err := config.Load(os.Args)
	if err != nil {
		logger.Error().Err(err).Msg("failed to reload config, keeping current settings")
		return false
	}

	if err := a.sensor.Configure(cfg.SensorSettings()); err != nil {
		logger.Error().Err(err).Msg("failed to apply reloaded config")
		return false
	}

	initLogger(cfg)
	a.cfg = cfg
	logger.Info().Str("config", cfg.ConfigFile).Msg("Configuration reloaded")

	return true
}

func (a *app) cleanup() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			logger.ErrorWithContext(err, "history", "close").Msg("failed to close history")
		}
	}
	logger.Info().Msg("Exiting...")
}
