// internal/browser/allocator_test.go
package browser

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xkilldash9x/postlens/internal/config"
)

// flagValue returns the last value set for name, mirroring how the allocator resolves duplicates.
func flagValue(flags []launchFlag, name string) (interface{}, bool) {
	var (
		v  interface{}
		ok bool
	)
	for _, f := range flags {
		if f.Name == name {
			v, ok = f.Value, true
		}
	}
	return v, ok
}

func TestLaunchFlags(t *testing.T) {
	base := config.NewDefaultConfig().Browser

	t.Run("stealth defaults", func(t *testing.T) {
		flags := launchFlags(base)

		v, ok := flagValue(flags, "enable-automation")
		assert.True(t, ok)
		assert.Equal(t, false, v, "automation switch must be explicitly disabled")

		v, _ = flagValue(flags, "disable-blink-features")
		assert.Equal(t, "AutomationControlled", v)

		v, _ = flagValue(flags, "user-agent")
		assert.Equal(t, config.DefaultUserAgent, v)

		v, _ = flagValue(flags, "window-size")
		assert.Equal(t, "1280,800", v)

		v, _ = flagValue(flags, "disable-notifications")
		assert.Equal(t, true, v)

		if runtime.GOOS == "linux" {
			v, _ = flagValue(flags, "no-sandbox")
			assert.Equal(t, true, v)
			v, _ = flagValue(flags, "disable-setuid-sandbox")
			assert.Equal(t, true, v)
		}
	})

	t.Run("headful", func(t *testing.T) {
		cfg := base
		cfg.Headless = false
		v, _ := flagValue(launchFlags(cfg), "headless")
		assert.Equal(t, false, v)
	})

	t.Run("custom args override", func(t *testing.T) {
		cfg := base
		cfg.Args = []string{"--proxy-server=127.0.0.1:8080", "--disable-notifications=false", "mute-audio", "  ", "--"}
		flags := launchFlags(cfg)

		v, _ := flagValue(flags, "proxy-server")
		assert.Equal(t, "127.0.0.1:8080", v)
		v, _ = flagValue(flags, "mute-audio")
		assert.Equal(t, true, v)
		v, _ = flagValue(flags, "disable-notifications")
		assert.Equal(t, "false", v)
		_, ok := flagValue(flags, "")
		assert.False(t, ok)
	})
}

func TestAllocatorOptions(t *testing.T) {
	cfg := config.NewDefaultConfig().Browser
	opts := AllocatorOptions(cfg)
	assert.Greater(t, len(opts), len(launchFlags(cfg)))

	cfg.ExecPath = "/usr/bin/chromium"
	assert.Len(t, AllocatorOptions(cfg), len(opts)+1)
}
