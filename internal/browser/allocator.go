// internal/browser/allocator.go
package browser

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/xkilldash9x/postlens/internal/config"
)

// launchFlag is one Chrome command line switch. A false bool drops the switch.
type launchFlag struct {
	Name  string
	Value interface{}
}

// launchFlags lists the switches layered on top of chromedp's defaults.
func launchFlags(cfg config.BrowserConfig) []launchFlag {
	flags := []launchFlag{
		// chromedp's defaults turn this on; it sets navigator.webdriver and shows the infobar.
		{"enable-automation", false},
		{"disable-blink-features", "AutomationControlled"},
		{"headless", cfg.Headless},
		{"disable-notifications", true},
		{"disable-extensions", true},
		{"disable-gpu", cfg.Headless},
		{"user-agent", cfg.UserAgent},
		{"window-size", fmt.Sprintf("%d,%d", cfg.Viewport.Width, cfg.Viewport.Height)},
	}
	if len(cfg.Languages) > 0 {
		flags = append(flags, launchFlag{"lang", cfg.Languages[0]})
	}

	// Containers (Docker on Linux) have no usable sandbox or /dev/shm.
	if runtime.GOOS == "linux" {
		flags = append(flags,
			launchFlag{"no-sandbox", true},
			launchFlag{"disable-setuid-sandbox", true},
			launchFlag{"disable-dev-shm-usage", true},
		)
	}

	// Extra switches from config, "--name=value" or "--name".
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(strings.TrimSpace(arg), "--"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags = append(flags, launchFlag{name, value})
		} else {
			flags = append(flags, launchFlag{name, true})
		}
	}
	return flags
}

// AllocatorOptions builds the exec allocator options for a stealth session.
// Later flags override earlier ones, so config args win over the defaults.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+16)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range launchFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}
