// Package config loads sensor settings from defaults, a config file, the
// environment and command line flags, in increasing order of precedence.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/waysensor/internal/errors"
	"codeberg.org/mutker/waysensor/internal/history"
	"codeberg.org/mutker/waysensor/internal/reader"
	"codeberg.org/mutker/waysensor/internal/sensor"
	"codeberg.org/mutker/waysensor/internal/waybar"
	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
)

const (
	DefaultEnvPrefix = "WAYSENSOR"
	DefaultLogLevel  = LogLevelWarning

	MinInterval = 100 // milliseconds

	appDir = "waysensor"
)

var configNames = []string{"config.toml", "config.jsonc"}

type Config struct {
	File     string   `mapstructure:"file" toml:"file,omitempty"`
	Interval int      `mapstructure:"interval" toml:"interval"`
	Format   string   `mapstructure:"format" toml:"format"`
	Fields   []string `mapstructure:"fields" toml:"fields,omitempty"`
	LogLevel string   `mapstructure:"log_level" toml:"log_level"`
	Debug    bool     `mapstructure:"debug" toml:"debug"`
	Verbose  bool     `mapstructure:"verbose" toml:"verbose"`
	PIDFile  string   `mapstructure:"pid_file" toml:"pid_file,omitempty"`

	ErrorRecovery        bool `mapstructure:"error_recovery" toml:"error_recovery"`
	PerformanceAnalytics bool `mapstructure:"performance_analytics" toml:"performance_analytics"`

	Temperature Thresholds    `mapstructure:"temperature" toml:"temperature"`
	Power       Thresholds    `mapstructure:"power" toml:"power"`
	Cache       CacheConfig   `mapstructure:"cache" toml:"cache"`
	Display     DisplayConfig `mapstructure:"display" toml:"display"`
	Style       StyleConfig   `mapstructure:"style" toml:"style"`
	Theme       waybar.Theme  `mapstructure:"theme" toml:"theme"`
	Thermal     ThermalConfig `mapstructure:"thermal" toml:"thermal"`
	History     HistoryConfig `mapstructure:"history" toml:"history"`

	// Command line only
	ConfigFile     string `mapstructure:"-" toml:"-"`
	Once           bool   `mapstructure:"-" toml:"-"`
	Check          bool   `mapstructure:"-" toml:"-"`
	GenerateConfig bool   `mapstructure:"-" toml:"-"`
}

type Thresholds struct {
	Warning  float64 `mapstructure:"warning" toml:"warning"`
	Critical float64 `mapstructure:"critical" toml:"critical"`
}

type CacheConfig struct {
	Strategy        string  `mapstructure:"strategy" toml:"strategy"`
	MaxAge          int     `mapstructure:"max_age" toml:"max_age"`
	ChangeThreshold float64 `mapstructure:"change_threshold" toml:"change_threshold"`
}

type DisplayConfig struct {
	ShowTemperature bool     `mapstructure:"show_temperature" toml:"show_temperature"`
	ShowPower       bool     `mapstructure:"show_power" toml:"show_power"`
	ShowUtilization bool     `mapstructure:"show_utilization" toml:"show_utilization"`
	ShowMemory      bool     `mapstructure:"show_memory" toml:"show_memory"`
	ShowFrequency   bool     `mapstructure:"show_frequency" toml:"show_frequency"`
	Order           []string `mapstructure:"display_order" toml:"display_order,omitempty"`
}

type StyleConfig struct {
	IconStyle         string `mapstructure:"icon_style" toml:"icon_style"`
	Icon              string `mapstructure:"icon" toml:"icon"`
	IconPosition      string `mapstructure:"icon_position" toml:"icon_position"`
	IconSpacing       int    `mapstructure:"icon_spacing" toml:"icon_spacing"`
	IconColor         string `mapstructure:"icon_color" toml:"icon_color,omitempty"`
	TextColor         string `mapstructure:"text_color" toml:"text_color,omitempty"`
	TooltipLabelColor string `mapstructure:"tooltip_label_color" toml:"tooltip_label_color,omitempty"`
	TooltipValueColor string `mapstructure:"tooltip_value_color" toml:"tooltip_value_color,omitempty"`
}

type ThermalConfig struct {
	Enabled bool     `mapstructure:"enabled" toml:"enabled"`
	Zones   []string `mapstructure:"zones" toml:"zones,omitempty"`
}

type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled" toml:"enabled"`
	DBPath       string `mapstructure:"db_path" toml:"db_path,omitempty"`
	BatchSize    int    `mapstructure:"batch_size" toml:"batch_size"`
	BatchTimeout int    `mapstructure:"batch_timeout" toml:"batch_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	theme := waybar.DefaultTheme()
	hist := history.DefaultConfig()

	return &Config{
		Interval:      1000,
		Format:        string(sensor.FormatCompact),
		LogLevel:      string(DefaultLogLevel),
		ErrorRecovery: true,
		Temperature:   Thresholds{Warning: 80, Critical: 90},
		Power:         Thresholds{Warning: 200, Critical: 250},
		Cache: CacheConfig{
			Strategy:        "basic",
			MaxAge:          500,
			ChangeThreshold: 5,
		},
		Display: DisplayConfig{
			ShowTemperature: true,
			ShowPower:       true,
			ShowUtilization: true,
		},
		Style: StyleConfig{
			IconStyle:    string(waybar.IconNone),
			Icon:         waybar.DefaultGPUIcon,
			IconPosition: string(waybar.IconBefore),
			IconSpacing:  1,
		},
		Theme: theme,
		History: HistoryConfig{
			BatchSize:    hist.BatchSize,
			BatchTimeout: int(hist.BatchTimeout / time.Second),
		},
	}
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"file":                  "file",
	"interval":              "interval",
	"temp-warning":          "temperature.warning",
	"temp-critical":         "temperature.critical",
	"power-warning":         "power.warning",
	"power-critical":        "power.critical",
	"format":                "format",
	"fields":                "fields",
	"cache":                 "cache.strategy",
	"cache-max-age":         "cache.max_age",
	"verbose":               "verbose",
	"debug":                 "debug",
	"log-level":             "log_level",
	"icon-style":            "style.icon_style",
	"icon-color":            "style.icon_color",
	"text-color":            "style.text_color",
	"tooltip-label-color":   "style.tooltip_label_color",
	"tooltip-value-color":   "style.tooltip_value_color",
	"thermal-monitoring":    "thermal.enabled",
	"performance-analytics": "performance_analytics",
	"history":               "history.enabled",
	"history-db":            "history.db_path",
	"pid-file":              "pid_file",
}

// NewFlagSet declares the command line flags.
func NewFlagSet(name string) *pflag.FlagSet {
	d := Default()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.StringP("config", "c", "", "Path to config file (.toml or .jsonc)")
	fs.StringP("file", "f", "", "Path to gpu_metrics file (auto-detect if not specified)")
	fs.IntP("interval", "i", d.Interval, "Update interval in milliseconds")
	fs.Float64("temp-warning", d.Temperature.Warning, "Temperature warning threshold (Celsius)")
	fs.Float64("temp-critical", d.Temperature.Critical, "Temperature critical threshold (Celsius)")
	fs.Float64("power-warning", d.Power.Warning, "Power warning threshold (watts)")
	fs.Float64("power-critical", d.Power.Critical, "Power critical threshold (watts)")
	fs.String("format", d.Format, "Output format: compact, detailed, minimal, power, activity, thermal, performance, custom")
	fs.StringSlice("fields", nil, "Fields for the custom format: temp, power, activity, frequency, fan")
	fs.String("cache", d.Cache.Strategy, "Cache strategy: none, basic, aggressive, mmap")
	fs.Int("cache-max-age", d.Cache.MaxAge, "Cache max age in milliseconds")
	fs.BoolP("once", "o", false, "Print one reading and exit")
	fs.Bool("check", false, "Check sensor availability and exit")
	fs.Bool("generate-config", false, "Write an example config file and exit")
	fs.BoolP("verbose", "v", false, "Enable verbose logging")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.String("log-level", d.LogLevel, "Log level: debug, info, warning, error")
	fs.String("icon-style", d.Style.IconStyle, "Icon style: nerdfont, none")
	fs.String("icon-color", "", "Icon color (hex, e.g. #7aa2f7)")
	fs.String("text-color", "", "Text color (hex, e.g. #c0caf5)")
	fs.String("tooltip-label-color", "", "Tooltip label color (hex, e.g. #bb9af7)")
	fs.String("tooltip-value-color", "", "Tooltip value color (hex, e.g. #9ece6a)")
	fs.Bool("thermal-monitoring", false, "Track thermal alert levels")
	fs.Bool("performance-analytics", false, "Show efficiency and optimization hints")
	fs.Bool("history", false, "Record readings to the history database")
	fs.String("history-db", "", "Path to the history database")
	fs.String("pid-file", "", "Write a PID file to this path")

	return fs
}

// Load parses args and merges every configuration source.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.searchDirs == nil {
		o.searchDirs = searchDirs()
	}

	fs := NewFlagSet(appName(args))
	if err := fs.Parse(flagArgs(args)); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v, Default())

	for flagName, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	configFile, err := resolveConfigFile(fs, o)
	if err != nil {
		return nil, err
	}

	if configFile != "" {
		if err := readConfigFile(v, configFile); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	cfg.ConfigFile = configFile
	cfg.Once, _ = fs.GetBool("once")
	cfg.Check, _ = fs.GetBool("check")
	cfg.GenerateConfig, _ = fs.GetBool("generate-config")
	if cfg.ConfigFile == "" && cfg.GenerateConfig {
		cfg.ConfigFile, _ = fs.GetString("config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func appName(args []string) string {
	if len(args) == 0 {
		return "waysensor-amd-gpu"
	}

	return filepath.Base(args[0])
}

func flagArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}

	return args[1:]
}

// setDefaults registers every key so that environment lookups apply to it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("file", d.File)
	v.SetDefault("interval", d.Interval)
	v.SetDefault("format", d.Format)
	v.SetDefault("fields", d.Fields)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("pid_file", d.PIDFile)
	v.SetDefault("error_recovery", d.ErrorRecovery)
	v.SetDefault("performance_analytics", d.PerformanceAnalytics)

	v.SetDefault("temperature.warning", d.Temperature.Warning)
	v.SetDefault("temperature.critical", d.Temperature.Critical)
	v.SetDefault("power.warning", d.Power.Warning)
	v.SetDefault("power.critical", d.Power.Critical)

	v.SetDefault("cache.strategy", d.Cache.Strategy)
	v.SetDefault("cache.max_age", d.Cache.MaxAge)
	v.SetDefault("cache.change_threshold", d.Cache.ChangeThreshold)

	v.SetDefault("display.show_temperature", d.Display.ShowTemperature)
	v.SetDefault("display.show_power", d.Display.ShowPower)
	v.SetDefault("display.show_utilization", d.Display.ShowUtilization)
	v.SetDefault("display.show_memory", d.Display.ShowMemory)
	v.SetDefault("display.show_frequency", d.Display.ShowFrequency)
	v.SetDefault("display.display_order", d.Display.Order)

	v.SetDefault("style.icon_style", d.Style.IconStyle)
	v.SetDefault("style.icon", d.Style.Icon)
	v.SetDefault("style.icon_position", d.Style.IconPosition)
	v.SetDefault("style.icon_spacing", d.Style.IconSpacing)
	v.SetDefault("style.icon_color", d.Style.IconColor)
	v.SetDefault("style.text_color", d.Style.TextColor)
	v.SetDefault("style.tooltip_label_color", d.Style.TooltipLabelColor)
	v.SetDefault("style.tooltip_value_color", d.Style.TooltipValueColor)

	v.SetDefault("theme.normal", d.Theme.Normal)
	v.SetDefault("theme.warning", d.Theme.Warning)
	v.SetDefault("theme.critical", d.Theme.Critical)
	v.SetDefault("theme.good", d.Theme.Good)
	v.SetDefault("theme.unknown", d.Theme.Unknown)

	v.SetDefault("thermal.enabled", d.Thermal.Enabled)
	v.SetDefault("thermal.zones", d.Thermal.Zones)

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.db_path", d.History.DBPath)
	v.SetDefault("history.batch_size", d.History.BatchSize)
	v.SetDefault("history.batch_timeout", d.History.BatchTimeout)
}

func searchDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, appDir))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", appDir))
	}

	return append(dirs, filepath.Join("/etc", appDir))
}

// resolveConfigFile picks the first of --config, the explicit option, the
// <PREFIX>_CONFIG variable and the search directories. An explicitly named
// file must exist; none found in the search directories is not an error.
func resolveConfigFile(fs *pflag.FlagSet, o *options) (string, error) {
	explicit, _ := fs.GetString("config")
	if explicit == "" {
		explicit = o.configPath
	}
	if explicit == "" {
		explicit = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if explicit != "" {
		if generate, _ := fs.GetBool("generate-config"); generate {
			return "", nil
		}
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.New().Wrap(errors.ErrReadConfig, err)
		}

		return explicit, nil
	}

	for _, dir := range o.searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", nil
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonc", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}

		v.SetConfigType("json")
		if err := v.ReadConfig(bytes.NewReader(jsonc.ToJSON(data))); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	default:
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval < MinInterval {
		return errFactory.WithData(errors.ErrInvalidInterval,
			fmt.Sprintf("interval %dms is below the minimum of %dms", c.Interval, MinInterval))
	}

	if c.Temperature.Warning >= c.Temperature.Critical {
		return errFactory.WithData(errors.ErrInvalidThreshold,
			fmt.Sprintf("temperature warning: %v, critical: %v", c.Temperature.Warning, c.Temperature.Critical))
	}
	if c.Power.Warning >= c.Power.Critical {
		return errFactory.WithData(errors.ErrInvalidThreshold,
			fmt.Sprintf("power warning: %v, critical: %v", c.Power.Warning, c.Power.Critical))
	}

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if _, err := sensor.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := c.CacheStrategy(); err != nil {
		return err
	}
	if _, err := waybar.ParseIconStyle(c.Style.IconStyle); err != nil {
		return err
	}

	switch waybar.IconPosition(c.Style.IconPosition) {
	case waybar.IconBefore, waybar.IconAfter:
	default:
		return errFactory.WithData(errors.ErrInvalidConfig,
			fmt.Sprintf("invalid icon position %q, valid options: before, after", c.Style.IconPosition))
	}

	return nil
}

func (c *Config) CacheStrategy() (reader.Strategy, error) {
	maxAge := time.Duration(c.Cache.MaxAge) * time.Millisecond
	return reader.ParseStrategy(c.Cache.Strategy, maxAge, c.Cache.ChangeThreshold)
}

func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Interval) * time.Millisecond
}

// WaybarStyle builds the output style. Validate must have passed.
func (c *Config) WaybarStyle() waybar.Style {
	iconStyle, _ := waybar.ParseIconStyle(c.Style.IconStyle)

	return waybar.Style{
		IconStyle:         iconStyle,
		Icon:              c.Style.Icon,
		IconPosition:      waybar.IconPosition(c.Style.IconPosition),
		IconSpacing:       c.Style.IconSpacing,
		IconColor:         c.Style.IconColor,
		TextColor:         c.Style.TextColor,
		TooltipLabelColor: c.Style.TooltipLabelColor,
		TooltipValueColor: c.Style.TooltipValueColor,
		Theme:             c.Theme,
	}
}

// SensorOptions translates the configuration into sensor options.
func (c *Config) SensorOptions() ([]sensor.Option, error) {
	format, err := sensor.ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}

	strategy, err := c.CacheStrategy()
	if err != nil {
		return nil, err
	}

	opts := []sensor.Option{
		sensor.WithFormat(format, c.Fields...),
		sensor.WithTemperatureThresholds(c.Temperature.Warning, c.Temperature.Critical),
		sensor.WithPowerThresholds(c.Power.Warning, c.Power.Critical),
		sensor.WithCacheStrategy(strategy),
		sensor.WithThermalMonitoring(c.Thermal.Enabled),
		sensor.WithThermalZones(c.Thermal.Zones...),
		sensor.WithPerformanceAnalytics(c.PerformanceAnalytics),
		sensor.WithErrorRecovery(c.ErrorRecovery),
		sensor.WithStyle(c.WaybarStyle()),
	}

	if c.File != "" {
		opts = append(opts, sensor.WithMetricsPath(c.File))
	}

	return opts, nil
}

// SensorSettings is the part of the configuration a running sensor can pick up.
func (c *Config) SensorSettings() sensor.Settings {
	style := c.WaybarStyle()
	temp := sensor.Thresholds(c.Temperature)
	power := sensor.Thresholds(c.Power)
	display := sensor.Display{
		Temperature: c.Display.ShowTemperature,
		Power:       c.Display.ShowPower,
		Utilization: c.Display.ShowUtilization,
		Memory:      c.Display.ShowMemory,
		Frequency:   c.Display.ShowFrequency,
		Order:       c.Display.Order,
	}

	return sensor.Settings{
		Style:       &style,
		Temperature: &temp,
		Power:       &power,
		Display:     &display,
	}
}

func (c *Config) HistoryConfig() history.Config {
	cfg := history.DefaultConfig()
	cfg.Enabled = c.History.Enabled
	if c.History.DBPath != "" {
		cfg.DBPath = c.History.DBPath
	}
	cfg.BatchSize = c.History.BatchSize
	cfg.BatchTimeout = time.Duration(c.History.BatchTimeout) * time.Second

	return cfg
}

// DefaultConfigPath is where --generate-config writes without --config.
func DefaultConfigPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.New().Wrap(errors.ErrWriteConfig, err)
		}
		dir = filepath.Join(home, ".config")
	}

	return filepath.Join(dir, appDir, "config.toml"), nil
}

// WriteExample writes the default configuration as TOML, replacing path atomically.
func WriteExample(path string) error {
	errFactory := errors.New()

	var data bytes.Buffer
	data.WriteString("# waysensor-amd-gpu configuration\n\n")
	if err := toml.NewEncoder(&data).Encode(Default()); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data.Bytes()); err != nil {
		_ = tmpFile.Close()
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}
	if err := tmpFile.Close(); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}
	tmpPath = ""

	return nil
}
