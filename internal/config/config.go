// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (RAILSCOPE_VERIFY_OUTPUT etc).
const EnvPrefix = "RAILSCOPE"

// EnvKeyReplacer maps nested config keys to environment variable names.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Verify() VerifyConfig
	Server() ServerConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserExecPath(string)

	// Verify Setters
	SetVerifyOutput(string)
	SetVerifySuite(string)
	SetVerifyServe(bool)

	// Server Setters
	SetServerAddr(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	VerifyCfg  VerifyConfig  `mapstructure:"verify" yaml:"verify"`
	ServerCfg  ServerConfig  `mapstructure:"server" yaml:"server"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Verify() VerifyConfig   { return c.VerifyCfg }
func (c *Config) Server() ServerConfig   { return c.ServerCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)   { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserExecPath(p string) { c.BrowserCfg.ExecPath = p }

func (c *Config) SetVerifyOutput(p string) { c.VerifyCfg.Output = p }
func (c *Config) SetVerifySuite(p string)  { c.VerifyCfg.Suite = p }
func (c *Config) SetVerifyServe(b bool)    { c.VerifyCfg.Serve = b }

func (c *Config) SetServerAddr(a string) { c.ServerCfg.Addr = a }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser instance a run launches.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	LaunchTimeout   time.Duration  `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// ViewportConfig is the initial window size. Zero means the browser default.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// VerifyConfig holds the per-step budgets and defaults for verification runs.
type VerifyConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ElementTimeout    time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	ScreenshotTimeout time.Duration `mapstructure:"screenshot_timeout" yaml:"screenshot_timeout"`
	// SettleDelay is slept after the action before the capture so the page can repaint.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	Output      string        `mapstructure:"output" yaml:"output"`
	Suite       string        `mapstructure:"suite" yaml:"suite"`
	Serve       bool          `mapstructure:"serve" yaml:"serve"`
}

// ServerConfig configures the decoder page server.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	// RateLimit is the sustained API requests per second allowed per client. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// SetDefaults registers every default value on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "railscope")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 720)
	v.SetDefault("browser.launch_timeout", "30s")

	// -- Verify --
	v.SetDefault("verify.navigation_timeout", "30s")
	v.SetDefault("verify.element_timeout", "10s")
	v.SetDefault("verify.action_timeout", "10s")
	v.SetDefault("verify.screenshot_timeout", "20s")
	v.SetDefault("verify.settle_delay", "250ms")
	v.SetDefault("verify.output", "verification.png")
	v.SetDefault("verify.suite", "")
	v.SetDefault("verify.serve", false)

	// -- Server --
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
}

// NewDefaultConfig returns a configuration populated purely from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults are well-formed, an error here is a programming mistake.
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default configuration does not unmarshal: %v", err))
	}
	return &cfg
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every user supplied path.
func (c *Config) expandPaths() error {
	paths := []*string{
		&c.LoggerCfg.LogFile,
		&c.BrowserCfg.ExecPath,
		&c.VerifyCfg.Output,
		&c.VerifyCfg.Suite,
	}
	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.VerifyCfg.Validate(); err != nil {
		return fmt.Errorf("verify configuration invalid: %w", err)
	}
	if err := c.ServerCfg.Validate(); err != nil {
		return fmt.Errorf("server configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	if b.Viewport.Width < 0 || b.Viewport.Height < 0 {
		return fmt.Errorf("viewport dimensions must not be negative")
	}
	if b.LaunchTimeout <= 0 {
		return fmt.Errorf("launch_timeout must be a positive duration")
	}
	return nil
}

// Validate checks that every step budget is positive.
func (v *VerifyConfig) Validate() error {
	budgets := map[string]time.Duration{
		"navigation_timeout": v.NavigationTimeout,
		"element_timeout":    v.ElementTimeout,
		"action_timeout":     v.ActionTimeout,
		"screenshot_timeout": v.ScreenshotTimeout,
	}
	for name, d := range budgets {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	if v.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative")
	}
	return nil
}

// Validate checks the server settings.
func (s *ServerConfig) Validate() error {
	if s.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if s.RateLimit > 0 && s.RateBurst <= 0 {
		return fmt.Errorf("rate_burst must be positive when rate_limit is set")
	}
	return nil
}
