package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/pkg/models"
)

// EnvPrefix prefixes environment overrides, e.g. WIFICOMP_SCAN_INTERVAL.
const EnvPrefix = "WIFICOMP"

// AppName names the config and data directories.
const AppName = "wificomp"

var validate = validator.New()

// ScanSettings control acquisition.
type ScanSettings struct {
	Interval        time.Duration `mapstructure:"interval" validate:"gt=0"`
	DefaultTimer    time.Duration `mapstructure:"default_timer" validate:"gte=0"`
	AutoScan        bool          `mapstructure:"auto_scan"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
	BreakerFailures uint32        `mapstructure:"breaker_failures" validate:"gte=1"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" validate:"gt=0"`
}

// DisplaySettings control how live data is presented.
type DisplaySettings struct {
	TimerMode       string `mapstructure:"timer_mode" validate:"oneof=countdown elapsed"`
	ShowChannel     bool   `mapstructure:"show_channel"`
	ShowBand        bool   `mapstructure:"show_band"`
	HighlightBest   bool   `mapstructure:"highlight_best"`
	SortBy          string `mapstructure:"sort_by" validate:"oneof=signal ssid channel"`
	FrequencyFilter string `mapstructure:"frequency_filter" validate:"oneof=all 2.4g 5g 6g"`
	// AlertThreshold flags access points weaker than this many dBm.
	AlertThreshold *int `mapstructure:"alert_threshold" validate:"omitempty,min=-120,max=0"`
}

// HistorySettings are the history view defaults.
type HistorySettings struct {
	Window string `mapstructure:"window" validate:"oneof=5m 10m 30m all"`
	Mode   string `mapstructure:"mode" validate:"oneof=raw avg"`
	Width  int    `mapstructure:"width" validate:"gte=1"`
}

// CompareSettings are the comparison defaults.
type CompareSettings struct {
	Match  string `mapstructure:"match" validate:"oneof=bssid ssid both"`
	Metric string `mapstructure:"metric" validate:"oneof=avg min max"`
}

// Settings is the configuration record. The last saved values are the next
// run's defaults.
type Settings struct {
	DataDir     string          `mapstructure:"data_dir" validate:"required"`
	LogLevel    string          `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	MetricsAddr string          `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
	Scan        ScanSettings    `mapstructure:"scan"`
	Display     DisplaySettings `mapstructure:"display"`
	History     HistorySettings `mapstructure:"history"`
	Compare     CompareSettings `mapstructure:"compare"`
}

// SetDefaults registers the stock values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("scan.interval", 5*time.Second)
	v.SetDefault("scan.default_timer", 300*time.Second)
	v.SetDefault("scan.auto_scan", true)
	v.SetDefault("scan.timeout", 30*time.Second)
	v.SetDefault("scan.breaker_failures", 5)
	v.SetDefault("scan.breaker_cooldown", 30*time.Second)
	v.SetDefault("display.timer_mode", "countdown")
	v.SetDefault("display.show_channel", true)
	v.SetDefault("display.show_band", true)
	v.SetDefault("display.highlight_best", true)
	v.SetDefault("display.sort_by", "signal")
	v.SetDefault("display.frequency_filter", "all")
	v.SetDefault("history.window", "5m")
	v.SetDefault("history.mode", "raw")
	v.SetDefault("history.width", 60)
	v.SetDefault("compare.match", "bssid")
	v.SetDefault("compare.metric", "avg")
}

// DefaultConfigPath is $XDG_CONFIG_HOME/wificomp/config.yaml.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, AppName, "config.yaml")
}

// DefaultDataDir is $XDG_DATA_HOME/wificomp, falling back to
// ~/.local/share/wificomp.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// Load reads settings from path (DefaultConfigPath when empty), applying a
// .env file and WIFICOMP_ environment overrides. A missing config file is
// not an error.
func Load(path string, logger *zap.Logger) (*Settings, *Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("could not load .env", zap.Error(err))
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultConfigPath()
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("read config %s: %w", path, err)
		}
		logger.Debug("no config file, using defaults", zap.String("path", path))
	}

	s, err := decode(New(v))
	if err != nil {
		return nil, nil, err
	}
	return s, New(v), nil
}

func decode(c *Config) (*Settings, error) {
	var s Settings
	if err := c.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every field against its constraints.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes s to path as YAML, creating the directory when needed.
func Save(path string, s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	for key, val := range s.Values() {
		v.Set(key, val)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Values flattens s into dotted config keys.
func (s *Settings) Values() map[string]any {
	m := map[string]any{
		"data_dir":                 s.DataDir,
		"log_level":                s.LogLevel,
		"metrics_addr":             s.MetricsAddr,
		"scan.interval":            s.Scan.Interval.String(),
		"scan.default_timer":       s.Scan.DefaultTimer.String(),
		"scan.auto_scan":           s.Scan.AutoScan,
		"scan.timeout":             s.Scan.Timeout.String(),
		"scan.breaker_failures":    s.Scan.BreakerFailures,
		"scan.breaker_cooldown":    s.Scan.BreakerCooldown.String(),
		"display.timer_mode":       s.Display.TimerMode,
		"display.show_channel":     s.Display.ShowChannel,
		"display.show_band":        s.Display.ShowBand,
		"display.highlight_best":   s.Display.HighlightBest,
		"display.sort_by":          s.Display.SortBy,
		"display.frequency_filter": s.Display.FrequencyFilter,
		"history.window":           s.History.Window,
		"history.mode":             s.History.Mode,
		"history.width":            s.History.Width,
		"compare.match":            s.Compare.Match,
		"compare.metric":           s.Compare.Metric,
	}
	if s.Display.AlertThreshold != nil {
		m["display.alert_threshold"] = *s.Display.AlertThreshold
	}
	return m
}

// With returns a copy of s with key set to value. The result is validated.
func (s *Settings) With(key, value string) (*Settings, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	values := s.Values()
	if _, ok := values[key]; !ok && key != "display.alert_threshold" {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	v.Set(key, value)
	return decode(New(v))
}

// Modes converts the string settings into their typed forms. Validate
// guarantees every value parses.
type Modes struct {
	TimerMode models.TimerMode
	SortBy    models.SortBy
	Filter    models.FrequencyFilter
	Window    models.Window
	DataMode  models.DataMode
	Match     models.MatchMode
	Metric    models.Metric
}

// Modes parses the mode settings.
func (s *Settings) Modes() (Modes, error) {
	var (
		m    Modes
		errs []error
		err  error
	)
	m.TimerMode, err = models.ParseTimerMode(s.Display.TimerMode)
	errs = append(errs, err)
	m.SortBy, err = models.ParseSortBy(s.Display.SortBy)
	errs = append(errs, err)
	m.Filter, err = models.ParseFrequencyFilter(s.Display.FrequencyFilter)
	errs = append(errs, err)
	m.Window, err = models.ParseWindow(s.History.Window)
	errs = append(errs, err)
	m.DataMode, err = models.ParseDataMode(s.History.Mode)
	errs = append(errs, err)
	m.Match, err = models.ParseMatchMode(s.Compare.Match)
	errs = append(errs, err)
	m.Metric, err = models.ParseMetric(s.Compare.Metric)
	errs = append(errs, err)
	return m, errors.Join(errs...)
}
