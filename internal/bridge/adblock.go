package bridge

import (
	"context"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// TrackerPatterns are third-party endpoints the storefront reports to.
// Blocking them keeps error reports from error_user runs off the network.
var TrackerPatterns = []string{
	"*backtrace.io/*",
	"*google-analytics.com/*",
	"*googletagmanager.com/*",
	"*doubleclick.net/*",
	"*hotjar.com/*",
	"*segment.io/*",
	"*optimizely.com/*",
}

func blockResources(patterns []string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}
		return network.SetBlockedURLs(patterns).Do(ctx)
	})
}
