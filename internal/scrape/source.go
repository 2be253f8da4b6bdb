package scrape

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
)

// ErrPageTimeout means the wait selector never showed up within the
// fetch bound. The pipeline treats it as end-of-pagination, not a
// run failure.
var ErrPageTimeout = errors.New("page load timed out")

// ErrSessionSetup means a rendering session could not be acquired at
// all. This is the only error that fails a whole run.
var ErrSessionSetup = errors.New("browser session setup failed")

// FetchWait bounds one Fetch: block until Selector is present, up to
// Timeout, after an optional fixed Settle delay for pages that attach
// content late.
type FetchWait struct {
	Selector string
	Timeout  time.Duration
	Settle   time.Duration
}

// Source is the rendering capability the pipeline runs against. One
// Open per run, one Close per Open on every exit path. Implementations
// are not safe for concurrent Fetch calls; the pipeline is sequential.
type Source interface {
	Open(ctx context.Context) error
	Fetch(ctx context.Context, url string, wait FetchWait) (*goquery.Document, error)
	Close() error
}
