// internal/browser/driver.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/xkilldash9x/postlens/internal/browser/stealth"
	"github.com/xkilldash9x/postlens/internal/config"
	"github.com/xkilldash9x/postlens/internal/engagement"
	"github.com/xkilldash9x/postlens/internal/humanoid"
	"go.uber.org/zap"
)

// Driver is the set of page primitives the session lifecycle is built from.
// The production implementation drives Chrome over CDP.
type Driver interface {
	// Navigate loads url and waits for the page to settle.
	Navigate(ctx context.Context, url string) error
	// Type enters text into the field matched by selector, one key at a time.
	Type(ctx context.Context, selector, text string) error
	// Submit clicks selector and waits for the resulting page to settle.
	Submit(ctx context.Context, selector string) error
	// Exists reports whether selector currently matches an element.
	Exists(ctx context.Context, selector string) (bool, error)
	// Location returns the current document URL.
	Location(ctx context.Context) (string, error)
	// Page exposes the tab to the extraction code.
	Page() engagement.PageReader
	// Close kills the browser. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Launcher starts a browser and returns a driver for its first tab.
type Launcher func(ctx context.Context) (Driver, error)

// NewLauncher returns the chromedp launcher used in production.
func NewLauncher(bcfg config.BrowserConfig, acfg config.AutomationConfig, pacer *humanoid.Policy, logger *zap.Logger) Launcher {
	return func(ctx context.Context) (Driver, error) {
		return launch(ctx, bcfg, acfg, pacer, logger)
	}
}

// cdpDriver owns one Chrome process and one tab.
type cdpDriver struct {
	cfg    config.AutomationConfig
	pacer  *humanoid.Policy
	logger *zap.Logger

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	closeOnce   sync.Once

	page *cdpPage
}

var _ Driver = (*cdpDriver)(nil)

func launch(ctx context.Context, bcfg config.BrowserConfig, acfg config.AutomationConfig, pacer *humanoid.Policy, logger *zap.Logger) (*cdpDriver, error) {
	l := logger.Named("cdp")

	// The browser is rooted in Background so it lives until Close, not until
	// the caller's context ends.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(bcfg)...)
	sugar := l.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	d := &cdpDriver{
		cfg:         acfg,
		pacer:       pacer,
		logger:      l,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}
	d.page = &cdpPage{d: d}

	launchCtx, cancel := context.WithTimeout(ctx, acfg.LaunchTimeout)
	defer cancel()

	// The first Run on a tab context starts Chrome. It must receive tabCtx
	// itself, so it runs in a goroutine and the caller's deadline is enforced here.
	errc := make(chan error, 1)
	go func() {
		errc <- chromedp.Run(tabCtx,
			stealth.Apply(stealth.PersonaFromConfig(bcfg), l),
			page.SetLifecycleEventsEnabled(true),
		)
	}()

	select {
	case err := <-errc:
		if err != nil {
			d.shutdown()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
	case <-launchCtx.Done():
		d.shutdown()
		return nil, fmt.Errorf("browser launch aborted after %s: %w", acfg.LaunchTimeout, launchCtx.Err())
	}

	l.Info("Browser launched.", zap.Bool("headless", bcfg.Headless))
	return d, nil
}

// shutdown cancels the tab then the allocator, which kills Chrome.
func (d *cdpDriver) shutdown() {
	d.closeOnce.Do(func() {
		d.tabCancel()
		d.allocCancel()
	})
}

func (d *cdpDriver) Close(ctx context.Context) error {
	var err error
	d.closeOnce.Do(func() {
		// Ask the browser to close cleanly first, then tear everything down.
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(d.tabCtx) }()
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(5 * time.Second):
			err = errors.New("timed out waiting for browser to close")
		}
		d.tabCancel()
		d.allocCancel()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

func (d *cdpDriver) Page() engagement.PageReader { return d.page }

// run executes actions on the tab under the caller's cancellation.
func (d *cdpDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(d.tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// waitVisible waits up to the selector timeout for selector to be visible.
func (d *cdpDriver) waitVisible(ctx context.Context, selector string) error {
	waitCtx, cancel := context.WithTimeout(ctx, d.cfg.SelectorTimeout)
	defer cancel()
	if err := d.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("selector '%s' not visible after %s: %w", selector, d.cfg.SelectorTimeout, context.DeadlineExceeded)
		}
		return err
	}
	return nil
}

// settle runs trigger and then waits for the main frame to report the
// configured lifecycle event for the new document.
func (d *cdpDriver) settle(ctx context.Context, trigger chromedp.Action) error {
	timeout := d.cfg.NavigationTimeout
	runCtx, cancel := CombineContext(d.tabCtx, ctx)
	defer cancel()
	navCtx, navCancel := context.WithTimeout(runCtx, timeout)
	defer navCancel()

	var mainFrame cdp.FrameID
	if err := chromedp.Run(navCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		mainFrame = tree.Frame.ID
		return nil
	})); err != nil {
		return fmt.Errorf("failed to read frame tree: %w", err)
	}

	settled := waitForLifecycle(navCtx, mainFrame, d.cfg.WaitUntil)
	if err := chromedp.Run(navCtx, trigger); err != nil {
		if ctx.Err() == nil && errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("navigation timed out after %s: %w", timeout, err)
		}
		return err
	}

	select {
	case <-settled:
		return nil
	case <-navCtx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("page did not reach %q within %s: %w", d.cfg.WaitUntil, timeout, navCtx.Err())
	}
}

// waitForLifecycle closes the returned channel once frame fires the named
// lifecycle event after a new document started loading ("init").
func waitForLifecycle(ctx context.Context, frame cdp.FrameID, name string) <-chan struct{} {
	done := make(chan struct{})
	var (
		mu      sync.Mutex
		started bool
		fired   bool
	)
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || e.FrameID != frame {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch {
		case e.Name == "init":
			started = true
		case started && !fired && e.Name == name:
			fired = true
			close(done)
		}
	})
	return done
}
