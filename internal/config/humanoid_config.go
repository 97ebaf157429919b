// File: internal/config/humanoid_config.go
// Pacing settings for the humanoid delay policy. Every pause the session makes
// (between form fields, between panel scrolls, after navigation, between
// keystrokes) is drawn from one of these profiles.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DelayProfile is a base duration plus a uniform random spread on top of it.
type DelayProfile struct {
	Base   time.Duration `mapstructure:"base" yaml:"base"`
	Spread time.Duration `mapstructure:"spread" yaml:"spread"`
}

// DelaysConfig holds the named pacing profiles.
type DelaysConfig struct {
	General    DelayProfile `mapstructure:"general" yaml:"general"`
	Scroll     DelayProfile `mapstructure:"scroll" yaml:"scroll"`
	Navigation DelayProfile `mapstructure:"navigation" yaml:"navigation"`
	Keystroke  DelayProfile `mapstructure:"keystroke" yaml:"keystroke"`
}

func setPacingDefaults(v *viper.Viper) {
	v.SetDefault("automation.delays.general.base", "2s")
	v.SetDefault("automation.delays.general.spread", "1500ms")
	v.SetDefault("automation.delays.scroll.base", "1s")
	v.SetDefault("automation.delays.scroll.spread", "1500ms")
	v.SetDefault("automation.delays.navigation.base", "3s")
	v.SetDefault("automation.delays.navigation.spread", "1500ms")
	v.SetDefault("automation.delays.keystroke.base", "100ms")
	v.SetDefault("automation.delays.keystroke.spread", "60ms")
}

// Validate rejects negative durations.
func (d DelaysConfig) Validate() error {
	profiles := map[string]DelayProfile{
		"general":    d.General,
		"scroll":     d.Scroll,
		"navigation": d.Navigation,
		"keystroke":  d.Keystroke,
	}
	for name, p := range profiles {
		if p.Base < 0 || p.Spread < 0 {
			return fmt.Errorf("delays.%s base and spread cannot be negative", name)
		}
	}
	return nil
}
