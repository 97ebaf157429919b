// File: internal/config/config.go
package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	LinkedIn   LinkedInConfig   `mapstructure:"linkedin" yaml:"linkedin"`
	Automation AutomationConfig `mapstructure:"automation" yaml:"automation"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
}

// LoggerConfig controls the zap logger built by the observability package.
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

// ColorConfig defines the color names used for each log level in console output.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig describes how Chrome is launched and which identity it presents.
type BrowserConfig struct {
	Headless  bool           `mapstructure:"headless" yaml:"headless"`
	ExecPath  string         `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent string         `mapstructure:"user_agent" yaml:"user_agent"`
	Platform  string         `mapstructure:"platform" yaml:"platform"`
	Viewport  ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	Languages []string       `mapstructure:"languages" yaml:"languages"`
	Timezone  string         `mapstructure:"timezone" yaml:"timezone"`
	Locale    string         `mapstructure:"locale" yaml:"locale"`
	// Args are extra command line switches, e.g. "proxy-server=host:port".
	Args []string `mapstructure:"args" yaml:"args"`
}

// ViewportConfig is the emulated window size in CSS pixels.
type ViewportConfig struct {
	Width  int64 `mapstructure:"width" yaml:"width"`
	Height int64 `mapstructure:"height" yaml:"height"`
}

// LinkedInConfig holds the target site settings.
type LinkedInConfig struct {
	LoginURL    string            `mapstructure:"login_url" yaml:"login_url"`
	AllowedHost string            `mapstructure:"allowed_host" yaml:"allowed_host"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
}

// CredentialsConfig is where the account identifier and secret come from.
// The secret is never written back to disk by this program.
type CredentialsConfig struct {
	Identifier     string `mapstructure:"identifier" yaml:"identifier"`
	Secret         string `mapstructure:"secret" yaml:"-"`
	KeyringService string `mapstructure:"keyring_service" yaml:"keyring_service"`
}

// AutomationConfig groups timeouts, retries and pacing for the browser session.
type AutomationConfig struct {
	MaxRetries          int           `mapstructure:"max_retries" yaml:"max_retries"`
	LaunchTimeout       time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	NavigationTimeout   time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SelectorTimeout     time.Duration `mapstructure:"selector_timeout" yaml:"selector_timeout"`
	WaitUntil           string        `mapstructure:"wait_until" yaml:"wait_until"`
	MaxScrollIterations int           `mapstructure:"max_scroll_iterations" yaml:"max_scroll_iterations"`
	Delays              DelaysConfig  `mapstructure:"delays" yaml:"delays"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigin      string        `mapstructure:"cors_origin" yaml:"cors_origin"`
}

// LLMConfig configures the persona generator. An empty APIKey disables it.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// Enabled reports whether persona generation can run.
func (l LLMConfig) Enabled() bool { return strings.TrimSpace(l.APIKey) != "" }

// NewDefaultConfig creates a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail in practice.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SetDefaults registers every default value on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "postlens")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", DefaultUserAgent)
	v.SetDefault("browser.platform", "Win32")
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 800)
	v.SetDefault("browser.languages", []string{"en-US", "en"})
	v.SetDefault("browser.timezone", "")
	v.SetDefault("browser.locale", "en-US")

	// -- LinkedIn --
	v.SetDefault("linkedin.login_url", "https://www.linkedin.com/login")
	v.SetDefault("linkedin.allowed_host", "linkedin.com")
	v.SetDefault("linkedin.credentials.keyring_service", "")

	// -- Automation --
	v.SetDefault("automation.max_retries", 3)
	v.SetDefault("automation.launch_timeout", "45s")
	v.SetDefault("automation.navigation_timeout", "60s")
	v.SetDefault("automation.selector_timeout", "10s")
	v.SetDefault("automation.wait_until", "networkIdle")
	v.SetDefault("automation.max_scroll_iterations", 200)
	setPacingDefaults(v)

	// -- Server --
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.rate_limit", 0.2)
	v.SetDefault("server.rate_burst", 2)
	v.SetDefault("server.request_timeout", "10m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_origin", "*")

	// -- LLM --
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.api_timeout", "90s")
}

// DefaultUserAgent is a current desktop Chrome on Windows.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// NewConfigFromViper unmarshals a viper instance into a validated Config.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	for key, aliases := range legacyEnv {
		_ = v.BindEnv(append([]string{key, envName(key)}, aliases...)...)
	}

	hook := mapstructure.ComposeDecodeHookFunc(
		millisecondsHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	// PORT and a bare "addr: 8080" both mean every interface.
	if _, err := strconv.Atoi(cfg.Server.Addr); err == nil {
		cfg.Server.Addr = ":" + cfg.Server.Addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// legacyEnv lists the bare variable names existing deployments use, next to
// the POSTLENS_ name every key already answers to. Delay variables hold
// milliseconds.
var legacyEnv = map[string][]string{
	"linkedin.credentials.identifier":     {"LINKEDIN_EMAIL"},
	"linkedin.credentials.secret":         {"LINKEDIN_PASSWORD"},
	"llm.api_key":                         {"GEMINI_API_KEY"},
	"automation.max_retries":              {"AUTOMATION_MAX_RETRIES"},
	"automation.delays.general.base":      {"AUTOMATION_BASE_DELAY"},
	"automation.delays.general.spread":    {"AUTOMATION_RANDOM_DELAY"},
	"automation.delays.scroll.base":       {"AUTOMATION_SCROLL_DELAY"},
	"automation.delays.scroll.spread":     {"AUTOMATION_RANDOM_DELAY"},
	"automation.delays.navigation.base":   {"AUTOMATION_NAVIGATION_DELAY"},
	"automation.delays.navigation.spread": {"AUTOMATION_RANDOM_DELAY"},
	"browser.headless":                    {"BROWSER_HEADLESS", "HEADLESS"},
	"browser.viewport.width":              {"BROWSER_WIDTH"},
	"browser.viewport.height":             {"BROWSER_HEIGHT"},
	"server.addr":                         {"PORT"},
}

func envName(key string) string {
	return "POSTLENS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// millisecondsHook reads a bare integer string as milliseconds when the
// target is a time.Duration ("1500" == 1500ms).
func millisecondsHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(data.(string)), 10, 64)
	if err != nil {
		return data, nil
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport width and height must be positive integers")
	}
	if strings.TrimSpace(c.Browser.UserAgent) == "" {
		return fmt.Errorf("browser.user_agent is a required configuration field")
	}
	if c.LinkedIn.LoginURL == "" {
		return fmt.Errorf("linkedin.login_url is a required configuration field")
	}
	if c.LinkedIn.AllowedHost == "" {
		return fmt.Errorf("linkedin.allowed_host is a required configuration field")
	}
	if err := c.Automation.Validate(); err != nil {
		return fmt.Errorf("automation configuration invalid: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration invalid: %w", err)
	}
	return nil
}

// Validate checks retry counts, timeouts and pacing.
func (a *AutomationConfig) Validate() error {
	if a.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be a positive integer")
	}
	if a.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be positive")
	}
	if a.SelectorTimeout <= 0 {
		return fmt.Errorf("selector_timeout must be positive")
	}
	if a.LaunchTimeout <= 0 {
		return fmt.Errorf("launch_timeout must be positive")
	}
	if a.MaxScrollIterations < 0 {
		return fmt.Errorf("max_scroll_iterations cannot be negative")
	}
	if a.WaitUntil == "" {
		return fmt.Errorf("wait_until is required (e.g. networkIdle, load)")
	}
	return a.Delays.Validate()
}

// Validate checks the HTTP listener settings.
func (s *ServerConfig) Validate() error {
	if s.Addr == "" {
		return fmt.Errorf("addr is a required configuration field")
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}
	if s.RateLimit > 0 && s.RateBurst <= 0 {
		return fmt.Errorf("rate_burst must be a positive integer when rate_limit is set")
	}
	return nil
}
