// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "postlens", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, int64(1280), cfg.Browser.Viewport.Width)
	assert.Equal(t, int64(800), cfg.Browser.Viewport.Height)
	assert.Equal(t, DefaultUserAgent, cfg.Browser.UserAgent)
	assert.Equal(t, []string{"en-US", "en"}, cfg.Browser.Languages)
	assert.Equal(t, "https://www.linkedin.com/login", cfg.LinkedIn.LoginURL)
	assert.Equal(t, 3, cfg.Automation.MaxRetries)
	assert.Equal(t, "networkIdle", cfg.Automation.WaitUntil)
	assert.Equal(t, 2*time.Second, cfg.Automation.Delays.General.Base)
	assert.Equal(t, 1500*time.Millisecond, cfg.Automation.Delays.General.Spread)
	assert.Equal(t, time.Second, cfg.Automation.Delays.Scroll.Base)
	assert.Equal(t, 3*time.Second, cfg.Automation.Delays.Navigation.Base)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.False(t, cfg.LLM.Enabled())

	require.NoError(t, cfg.Validate(), "defaults must always validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()

		bad := *cfg
		bad.Browser.Viewport.Width = 0
		err := bad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser.viewport width and height must be positive integers")

		bad = *cfg
		bad.LinkedIn.AllowedHost = ""
		err = bad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "linkedin.allowed_host")
	})

	t.Run("Automation Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Automation
		assert.NoError(t, valid.Validate())

		noRetries := valid
		noRetries.MaxRetries = 0
		err := noRetries.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_retries must be a positive integer")

		negativeDelay := valid
		negativeDelay.Delays.Scroll.Spread = -time.Second
		err = negativeDelay.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delays.scroll")

		noWait := valid
		noWait.WaitUntil = ""
		assert.Error(t, noWait.Validate())
	})

	t.Run("Server Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Server
		assert.NoError(t, valid.Validate())

		noBurst := valid
		noBurst.RateBurst = 0
		err := noBurst.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate_burst")

		unlimited := valid
		unlimited.RateLimit = 0
		unlimited.RateBurst = 0
		assert.NoError(t, unlimited.Validate())
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	yamlConfig := []byte(`
logger:
  level: debug
browser:
  headless: false
  viewport:
    width: 1440
    height: 900
automation:
  max_retries: 5
  navigation_timeout: 2m
  delays:
    scroll:
      base: 250ms
      spread: 100ms
server:
  addr: "127.0.0.1:8080"
`)

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, int64(1440), cfg.Browser.Viewport.Width)
	assert.Equal(t, 5, cfg.Automation.MaxRetries)
	assert.Equal(t, 2*time.Minute, cfg.Automation.NavigationTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Automation.Delays.Scroll.Base)
	assert.Equal(t, 100*time.Millisecond, cfg.Automation.Delays.Scroll.Spread)
	// Untouched values keep their defaults.
	assert.Equal(t, 3*time.Second, cfg.Automation.Delays.Navigation.Base)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestNewConfigFromViper_EnvAliases(t *testing.T) {
	t.Setenv("LINKEDIN_EMAIL", "jane@example.com")
	t.Setenv("LINKEDIN_PASSWORD", "hunter2")
	t.Setenv("GEMINI_API_KEY", "test-key")

	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", cfg.LinkedIn.Credentials.Identifier)
	assert.Equal(t, "hunter2", cfg.LinkedIn.Credentials.Secret)
	assert.True(t, cfg.LLM.Enabled())
}

func TestNewConfigFromViper_LegacyEnvNames(t *testing.T) {
	t.Setenv("AUTOMATION_BASE_DELAY", "2500")
	t.Setenv("AUTOMATION_RANDOM_DELAY", "400")
	t.Setenv("AUTOMATION_SCROLL_DELAY", "750")
	t.Setenv("AUTOMATION_NAVIGATION_DELAY", "5000")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("BROWSER_WIDTH", "1920")
	t.Setenv("BROWSER_HEIGHT", "1080")
	t.Setenv("PORT", "8081")

	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	d := cfg.Automation.Delays
	assert.Equal(t, 2500*time.Millisecond, d.General.Base)
	assert.Equal(t, 750*time.Millisecond, d.Scroll.Base)
	assert.Equal(t, 5*time.Second, d.Navigation.Base)
	for _, p := range []DelayProfile{d.General, d.Scroll, d.Navigation} {
		assert.Equal(t, 400*time.Millisecond, p.Spread)
	}
	assert.Equal(t, 100*time.Millisecond, d.Keystroke.Base, "no legacy name for keystrokes")
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, int64(1920), cfg.Browser.Viewport.Width)
	assert.Equal(t, int64(1080), cfg.Browser.Viewport.Height)
	assert.Equal(t, ":8081", cfg.Server.Addr)
}

func TestNewConfigFromViper_PrefixedNameWins(t *testing.T) {
	t.Setenv("POSTLENS_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("PORT", "8081")
	t.Setenv("POSTLENS_AUTOMATION_DELAYS_SCROLL_BASE", "2s")

	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Automation.Delays.Scroll.Base)
}

func TestNewConfigFromViper_InvalidValues(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("automation.max_retries", 0)

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
