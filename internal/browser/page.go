// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chromedp/chromedp"
	"github.com/xkilldash9x/postlens/internal/engagement"
	"github.com/xkilldash9x/postlens/internal/humanoid"
)

// cdpPage implements engagement.PageReader on the live tab.
type cdpPage struct {
	d *cdpDriver
}

var _ engagement.PageReader = (*cdpPage)(nil)

var (
	readPostJS = fmt.Sprintf(`(() => {
  const actor = document.querySelector(%s);
  const body = document.querySelector(%s);
  const text = (el) => ((el && el.innerText) || '').trim();
  return {
    actorLabel: actor ? (actor.getAttribute('aria-label') || '') : '',
    actorHref: actor ? (actor.href || '') : '',
    bodyText: text(body),
    bodyLinks: body ? Array.from(body.querySelectorAll('a')).map(text) : [],
    buttons: Array.from(document.querySelectorAll(%s)).map((b) => ({
      label: b.getAttribute('aria-label') || '',
      text: text(b),
    })),
  };
})()`,
		strconv.Quote(engagement.SelectorActorLink),
		strconv.Quote(engagement.SelectorPostBody),
		strconv.Quote(engagement.SelectorLabeledButtons),
	)

	readInteractorsJS = fmt.Sprintf(`(() => {
  const text = (el) => ((el && el.innerText) || '').trim();
  return Array.from(document.querySelectorAll(%s)).map((a) => ({
    href: a.href || '',
    name: text(a.querySelector(%s)),
    headline: text(a.querySelector(%s)),
  }));
})()`,
		strconv.Quote(engagement.SelectorPanelProfiles),
		strconv.Quote(engagement.SelectorEntryName),
		strconv.Quote(engagement.SelectorEntryHeadline),
	)

	scrollPanelJS = fmt.Sprintf(`(() => {
  const panel = document.querySelector(%s);
  if (!panel) { return 0; }
  panel.scrollTop = panel.scrollHeight;
  return panel.scrollHeight;
})()`,
		strconv.Quote(engagement.SelectorPanelContent),
	)
)

func (p *cdpPage) AwaitPost(ctx context.Context) error {
	return p.d.waitVisible(ctx, engagement.SelectorPostContainer)
}

func (p *cdpPage) ReadPost(ctx context.Context) (engagement.RawPost, error) {
	var raw engagement.RawPost
	if err := p.d.run(ctx, chromedp.Evaluate(readPostJS, &raw)); err != nil {
		return engagement.RawPost{}, fmt.Errorf("failed to read post: %w", err)
	}
	return raw, nil
}

func (p *cdpPage) OpenReactions(ctx context.Context) error {
	const op = "page.OpenReactions"

	found, err := p.d.Exists(ctx, engagement.SelectorReactionsOpen)
	if err != nil {
		return err
	}
	if !found {
		return engagement.NewError(engagement.ErrCodeReactionsPanel, op, fmt.Errorf("no control matching '%s'", engagement.SelectorReactionsOpen))
	}

	if err := p.d.run(ctx,
		chromedp.ScrollIntoView(engagement.SelectorReactionsOpen, chromedp.ByQuery),
		chromedp.Click(engagement.SelectorReactionsOpen, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		return engagement.NewError(engagement.ErrCodeReactionsPanel, op, err)
	}
	if err := p.d.waitVisible(ctx, engagement.SelectorPanelContent); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return engagement.NewError(engagement.ErrCodeReactionsPanel, op, err)
	}
	return nil
}

func (p *cdpPage) ReadInteractors(ctx context.Context) ([]engagement.RawInteractor, error) {
	var rows []engagement.RawInteractor
	if err := p.d.run(ctx, chromedp.Evaluate(readInteractorsJS, &rows)); err != nil {
		return nil, fmt.Errorf("failed to read reactions panel: %w", err)
	}
	return rows, nil
}

func (p *cdpPage) ScrollPanelToBottom(ctx context.Context) (int64, error) {
	var extent int64
	if err := p.d.run(ctx, chromedp.Evaluate(scrollPanelJS, &extent)); err != nil {
		return 0, fmt.Errorf("failed to scroll reactions panel: %w", err)
	}
	return extent, nil
}

func (p *cdpPage) ClosePanel(ctx context.Context) error {
	if err := p.d.pacer.Pause(ctx, humanoid.General); err != nil {
		return err
	}
	if err := p.d.waitVisible(ctx, engagement.SelectorPanelDismiss); err != nil {
		return fmt.Errorf("dismiss control missing: %w", err)
	}
	if err := p.d.run(ctx, chromedp.Click(engagement.SelectorPanelDismiss, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to close reactions panel: %w", err)
	}
	return nil
}
