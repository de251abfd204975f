// Package config loads the glide command's configuration with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/phanxgames/glide"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. GLIDE_ENGINE_EASE.
const EnvPrefix = "GLIDE"

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Engine  glide.Config  `mapstructure:"engine" yaml:"engine"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
}

// LoggerConfig configures the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	// LogFile enables a rotating JSON log file when set.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig configures the Chromium page the drive command attaches to.
type BrowserConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
	// Selector locates the scroll container.
	Selector     string        `mapstructure:"selector" yaml:"selector"`
	Headless     bool          `mapstructure:"headless" yaml:"headless"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	WindowWidth  int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int           `mapstructure:"window_height" yaml:"window_height"`
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "glide")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)

	// -- Engine --
	v.SetDefault("engine.ease", glide.DefaultEase)
	v.SetDefault("engine.change_threshold", glide.DefaultChangeThreshold)
	v.SetDefault("engine.precision", glide.DefaultPrecision)
	v.SetDefault("engine.snap", glide.DefaultSnap)
	v.SetDefault("engine.poll_interval", glide.DefaultPollInterval)
	v.SetDefault("engine.poll_ticks", glide.DefaultPollTicks)
	v.SetDefault("engine.load_rechecks", glide.DefaultLoadRechecks)
	v.SetDefault("engine.frame_interval", glide.DefaultFrameInterval)

	// -- Browser --
	v.SetDefault("browser.url", "")
	v.SetDefault("browser.selector", "[data-scroll-container]")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.timeout", "30s")
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 800)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults always decode.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Load reads the configuration from path (optional), applies GLIDE_*
// environment overrides and validates the result. With an empty path,
// ./glide.yaml is used if it exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("glide")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return NewConfigFromViper(v)
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.Browser.Validate(); err != nil {
		return err
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be \"console\" or \"json\", got %q", c.Logger.Format)
	}
	return nil
}

// Validate checks the browser section. The selector must be valid CSS so
// that a typo fails here rather than as a missing container in the page.
func (b *BrowserConfig) Validate() error {
	if b.Selector == "" {
		return fmt.Errorf("browser.selector is required")
	}
	if _, err := cascadia.Compile(b.Selector); err != nil {
		return fmt.Errorf("browser.selector %q: %w", b.Selector, err)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("browser.timeout must be positive")
	}
	if b.WindowWidth <= 0 || b.WindowHeight <= 0 {
		return fmt.Errorf("browser window size must be positive, got %dx%d", b.WindowWidth, b.WindowHeight)
	}
	return nil
}
