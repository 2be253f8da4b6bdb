package scrape

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/cockroachdb/errors"
)

// ChromeSource renders pages in one headless Chrome tab. One browser
// process per Open; Close tears the whole allocator down so no Chrome
// is left behind after a run.
type ChromeSource struct {
	tab    context.Context
	cancel context.CancelFunc
}

func NewChromeSource() *ChromeSource { return &ChromeSource{} }

func (s *ChromeSource) Open(ctx context.Context) error {
	if s.tab != nil {
		return errors.Wrap(ErrSessionSetup, "session already open")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Starting the browser is lazy in chromedp; force it now so a
	// missing Chrome binary fails the run up front, not on page 1.
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return errors.WithSecondaryError(ErrSessionSetup, err)
	}

	s.tab = tab
	s.cancel = func() {
		cancelTab()
		cancelAlloc()
	}
	return nil
}

func (s *ChromeSource) Fetch(ctx context.Context, url string, wait FetchWait) (*goquery.Document, error) {
	if s.tab == nil {
		return nil, errors.Wrap(ErrSessionSetup, "fetch before open")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := chromedp.Run(s.tab, chromedp.Navigate(url)); err != nil {
		return nil, errors.Wrapf(err, "navigate %s", url)
	}
	if wait.Settle > 0 {
		_ = chromedp.Run(s.tab, chromedp.Sleep(wait.Settle))
	}
	if wait.Selector != "" && wait.Timeout > 0 {
		wctx, cancel := context.WithTimeout(s.tab, wait.Timeout)
		err := chromedp.Run(wctx, chromedp.WaitReady(wait.Selector, chromedp.ByQuery))
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, errors.Wrapf(ErrPageTimeout, "waiting for %q on %s", wait.Selector, url)
			}
			return nil, errors.Wrapf(err, "waiting for %q on %s", wait.Selector, url)
		}
	}

	var html string
	if err := chromedp.Run(s.tab, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, errors.Wrapf(err, "snapshot %s", url)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *ChromeSource) Close() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.tab = nil
	s.cancel = nil
	return nil
}
