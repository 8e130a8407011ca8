// Package bridge drives Chrome over the DevTools protocol as a
// driver.Driver. Each session runs in its own browser context, so cookies
// and storage never leak between scenarios.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/config"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
)

// DefaultSettle is how long a click waits for a navigation it may have
// started before the page is considered idle.
const DefaultSettle = 150 * time.Millisecond

// Browser owns one Chrome process (or a remote one) and hands out sessions.
type Browser struct {
	cfg        *config.RuntimeConfig
	log        *slog.Logger
	base       *url.URL
	browserCtx context.Context
	cancel     context.CancelFunc
	settle     time.Duration
}

// Start launches Chrome, or attaches to cfg.CdpURL when set.
func Start(cfg *config.RuntimeConfig, log *slog.Logger) (*Browser, error) {
	if log == nil {
		log = slog.Default()
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	log.Info("starting chrome", "headless", cfg.Headless, "binary", cfg.ChromeBinary, "remote", cfg.CdpURL != "")

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.CdpURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.CdpURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg, log)...)
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// The first Run allocates the browser; a cancellable child context here
	// would tear it down again.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		log.Error("chrome initialization failed", "err", err)
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	log.Info("chrome started")
	return &Browser{
		cfg:        cfg,
		log:        log,
		base:       base,
		browserCtx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		settle: DefaultSettle,
	}, nil
}

func allocatorOptions(cfg *config.RuntimeConfig, log *slog.Logger) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedpDefaults()...)

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
		log.Debug("chrome mode set to headed")
	}
	if cfg.ChromeBinary != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromeBinary))
	}

	opts = append(opts,
		chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	for _, f := range strings.Fields(cfg.ChromeExtraFlags) {
		name, value, hasValue := strings.Cut(strings.TrimLeft(f, "-"), "=")
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// NewSession opens a tab in a fresh browser context.
func (b *Browser) NewSession(ctx context.Context) (driver.Driver, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx, chromedp.WithNewBrowserContext())
	s := &Session{ctx: tabCtx, cancel: cancel, base: b.base, log: b.log, settle: b.settle}

	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	if b.cfg.BlockTrackers {
		if err := s.run(ctx, blockResources(TrackerPatterns)); err != nil {
			b.log.Warn("tracker blocking unavailable", "err", err)
		}
	}
	if b.cfg.NoAnimations {
		if err := s.run(ctx, disableAnimations()); err != nil {
			b.log.Warn("animation suppression unavailable", "err", err)
		}
	}
	b.log.Debug("chrome session opened")
	return s, nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.cancel()
	b.log.Info("chrome stopped")
}

func chromedpDefaults() []chromedp.ExecAllocatorOption {
	return chromedp.DefaultExecAllocatorOptions[:]
}
