// -- internal/humanoid/keyboard.go --
package humanoid

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Type focuses selector and enters text one key at a time, pausing a
// Keystroke delay before each key. Nothing about text is logged.
func (p *Policy) Type(selector, text string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		// 1. Focus the field the way a user would, by clicking it.
		if err := chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible).Do(ctx); err != nil {
			return fmt.Errorf("humanoid: failed to focus selector '%s': %w", selector, err)
		}
		if err := p.Pause(ctx, Keystroke); err != nil {
			return err
		}

		// 2. Key loop. Runes keep multi-byte characters intact.
		for i, r := range []rune(text) {
			if i > 0 {
				if err := p.Pause(ctx, Keystroke); err != nil {
					return err
				}
			}
			if err := sendKey(ctx, r); err != nil {
				return fmt.Errorf("humanoid: failed to send key %d to '%s': %w", i, selector, err)
			}
		}
		return nil
	})
}

// sendKey dispatches one key to the focused element.
func sendKey(ctx context.Context, key rune) error {
	return chromedp.SendKeys("document.activeElement", string(key), chromedp.ByJSPath).Do(ctx)
}
