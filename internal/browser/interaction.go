// internal/browser/interaction.go
package browser

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

func (d *cdpDriver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("Navigating.", zap.String("url", url))
	if err := d.settle(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (d *cdpDriver) Type(ctx context.Context, selector, text string) error {
	if err := d.waitVisible(ctx, selector); err != nil {
		return fmt.Errorf("field '%s' not ready: %w", selector, err)
	}
	return d.run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		d.pacer.Type(selector, text),
	)
}

func (d *cdpDriver) Submit(ctx context.Context, selector string) error {
	if err := d.waitVisible(ctx, selector); err != nil {
		return fmt.Errorf("submit control '%s' not ready: %w", selector, err)
	}
	if err := d.settle(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("submit via '%s' failed: %w", selector, err)
	}
	return nil
}

func (d *cdpDriver) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	script := fmt.Sprintf(`document.querySelector(%s) !== null`, strconv.Quote(selector))
	if err := d.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return false, fmt.Errorf("failed to query '%s': %w", selector, err)
	}
	return found, nil
}

func (d *cdpDriver) Location(ctx context.Context) (string, error) {
	var loc string
	if err := d.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}
