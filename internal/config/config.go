// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Shell     ShellConfig     `mapstructure:"shell" yaml:"shell"`
	Health    HealthConfig    `mapstructure:"health" yaml:"health"`
	Downloads DownloadsConfig `mapstructure:"downloads" yaml:"downloads"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the per-profile browser engine instances.
type BrowserConfig struct {
	Headless      bool     `mapstructure:"headless" yaml:"headless"`
	UserAgent     string   `mapstructure:"user_agent" yaml:"user_agent"`
	CacheMaxBytes int64    `mapstructure:"cache_max_bytes" yaml:"cache_max_bytes"`
	Args          []string `mapstructure:"args" yaml:"args"`
}

// ShellConfig tunes the multi-session shell itself.
type ShellConfig struct {
	HomeURL string `mapstructure:"home_url" yaml:"home_url"`
	// DataDir is the root for profiles/, logs/, and config.json.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// HealthConfig governs the focused-session self-healing behavior.
type HealthConfig struct {
	// ReloadCooldown is the shared per-session window during which at most
	// one automatic reload may be issued, regardless of which detector fired.
	ReloadCooldown time.Duration `mapstructure:"reload_cooldown" yaml:"reload_cooldown"`
	// RecoveryDelay is how long a reload is deferred after a failure signal.
	RecoveryDelay time.Duration `mapstructure:"recovery_delay" yaml:"recovery_delay"`
	// ProbeDelay is the pause between load completion and the blank-render probe.
	ProbeDelay time.Duration `mapstructure:"probe_delay" yaml:"probe_delay"`
	// MaxBlankRetries caps consecutive blank-render reloads per session.
	MaxBlankRetries int `mapstructure:"max_blank_retries" yaml:"max_blank_retries"`
	// FatalConsoleErrors is the substring table that classifies a console
	// message as a fatal script-bundle failure.
	FatalConsoleErrors []string `mapstructure:"fatal_console_errors" yaml:"fatal_console_errors"`
}

// DownloadsConfig tunes download progress reporting.
type DownloadsConfig struct {
	// ProgressInterval throttles progress status notifications per download.
	ProgressInterval time.Duration `mapstructure:"progress_interval" yaml:"progress_interval"`
}

// DesktopUserAgent is the fixed identification string every session presents.
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/126.0.0.0 Safari/537.36"

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "multisteam")
	// Empty means "derive from the data directory" at startup.
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", false)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_agent", DesktopUserAgent)
	v.SetDefault("browser.cache_max_bytes", int64(256*1024*1024))

	// -- Shell --
	v.SetDefault("shell.home_url", "https://steamcommunity.com/")
	v.SetDefault("shell.data_dir", "")

	// -- Health --
	v.SetDefault("health.reload_cooldown", 5*time.Second)
	v.SetDefault("health.recovery_delay", 150*time.Millisecond)
	v.SetDefault("health.probe_delay", 800*time.Millisecond)
	v.SetDefault("health.max_blank_retries", 3)
	v.SetDefault("health.fatal_console_errors", []string{
		"ChunkLoadError",
		"jQuery is not defined",
		"Prototype is not defined",
	})

	// -- Downloads --
	v.SetDefault("downloads.progress_interval", 120*time.Millisecond)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.ResolveDataDir(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ResolveDataDir expands the data directory to an absolute path, defaulting
// to ~/.multisteam when unset.
func (c *Config) ResolveDataDir() error {
	if c.Shell.DataDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		c.Shell.DataDir = filepath.Join(home, ".multisteam")
		return nil
	}
	expanded, err := homedir.Expand(c.Shell.DataDir)
	if err != nil {
		return fmt.Errorf("cannot expand data_dir: %w", err)
	}
	c.Shell.DataDir = expanded
	return nil
}

// ProfilesDir is the root under which each profile's storage lives.
func (c *Config) ProfilesDir() string {
	return filepath.Join(c.Shell.DataDir, "profiles")
}

// LogsDir holds the rotated log files.
func (c *Config) LogsDir() string {
	return filepath.Join(c.Shell.DataDir, "logs")
}

// StatePath is the persisted shell state document.
func (c *Config) StatePath() string {
	return filepath.Join(c.Shell.DataDir, "config.json")
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Health.ReloadCooldown <= 0 {
		return fmt.Errorf("health.reload_cooldown must be a positive duration")
	}
	if c.Health.MaxBlankRetries <= 0 {
		return fmt.Errorf("health.max_blank_retries must be a positive integer")
	}
	if c.Health.ProbeDelay < 0 {
		return fmt.Errorf("health.probe_delay must not be negative")
	}
	if c.Downloads.ProgressInterval <= 0 {
		return fmt.Errorf("downloads.progress_interval must be a positive duration")
	}
	if c.Browser.UserAgent == "" {
		return fmt.Errorf("browser.user_agent must not be empty")
	}
	if c.Shell.HomeURL == "" {
		return fmt.Errorf("shell.home_url must not be empty")
	}
	return nil
}
