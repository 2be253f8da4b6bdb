package scrape

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"joblist-engine/internal/domain"
	"joblist-engine/internal/store"
)

func newTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))
	return db
}

func newTestRunner(t *testing.T, st JobStore, src Source) *Runner {
	t.Helper()
	r := NewRunner(st, func() Source { return src }, zap.NewNop(), Options{
		BaseURL:     "https://example.test/",
		MaxPages:    5,
		PageTimeout: time.Second,
	})
	r.limiter = rate.NewLimiter(rate.Inf, 1)
	return r
}

func twoCardPage(titleA, titleB string) string {
	card := func(title string) string {
		return `<article>
  <p class="Job_job-card__position__ic1rc">` + title + `</p>
  <p class="Job_job-card__company__7T9qY">Acme Re</p>
  <p class="Job_job-card__country__GRVhK">London, UK</p>
  <p class="Job_job-card__posted-on__NCZaJ">2h ago</p>
</article>`
	}
	return "<html><body>" + card(titleA) + card(titleB) + "</body></html>"
}

func TestRunStopsAtTimeoutPage(t *testing.T) {
	db := newTestStore(t)
	src := &fakeSource{
		pages: map[string]string{
			"https://example.test/":        twoCardPage("Pricing Actuary", "Reserving Analyst"),
			"https://example.test/?page=2": twoCardPage("Capital Modeler", "Chief Actuary"),
		},
		timeouts: map[string]bool{"https://example.test/?page=3": true},
	}

	res := newTestRunner(t, db, src).Run(context.Background())

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.PagesVisited)
	assert.Equal(t, 0, res.PagesFailed)
	assert.Equal(t, 4, res.ListingsSeen)
	assert.Equal(t, 4, res.ListingsSaved)
	assert.Empty(t, res.Error)

	n, err := db.CountBySource(context.Background(), domain.SourceScraped)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	// One session for the whole run, torn down exactly once.
	assert.Equal(t, 1, src.opens)
	assert.Equal(t, 1, src.closes)
}

func TestRunIsIdempotent(t *testing.T) {
	db := newTestStore(t)
	src := &fakeSource{
		pages: map[string]string{
			"https://example.test/": twoCardPage("Pricing Actuary", "Reserving Analyst"),
		},
		timeouts: map[string]bool{"https://example.test/?page=2": true},
	}

	first := newTestRunner(t, db, src).Run(context.Background())
	assert.Equal(t, 2, first.ListingsSaved)

	second := newTestRunner(t, db, src).Run(context.Background())
	assert.True(t, second.Success)
	assert.Equal(t, 2, second.ListingsSeen)
	assert.Equal(t, 0, second.ListingsSaved)

	n, err := db.CountBySource(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRunPageLocalDuplicatesCollapse(t *testing.T) {
	db := newTestStore(t)
	src := &fakeSource{
		pages: map[string]string{
			"https://example.test/": twoCardPage("Pricing Actuary", "Pricing Actuary"),
		},
		timeouts: map[string]bool{"https://example.test/?page=2": true},
	}

	res := newTestRunner(t, db, src).Run(context.Background())
	assert.Equal(t, 2, res.ListingsSeen)
	assert.Equal(t, 1, res.ListingsSaved)
}

// failingStore delegates to the real store but rejects the write for
// one chosen page.
type failingStore struct {
	*store.DB
	failOnCall int
	calls      int
}

func (f *failingStore) SaveScrapedPage(ctx context.Context, listings []domain.Listing) error {
	f.calls++
	if f.calls == f.failOnCall {
		return errors.New("disk full")
	}
	return f.DB.SaveScrapedPage(ctx, listings)
}

func TestRunPersistFailureOnOnePageContinues(t *testing.T) {
	db := newTestStore(t)
	src := &fakeSource{
		pages: map[string]string{
			"https://example.test/":        twoCardPage("Pricing Actuary", "Reserving Analyst"),
			"https://example.test/?page=2": twoCardPage("Capital Modeler", "Chief Actuary"),
		},
		timeouts: map[string]bool{"https://example.test/?page=3": true},
	}

	res := newTestRunner(t, &failingStore{DB: db, failOnCall: 1}, src).Run(context.Background())

	// Page one's write failed; the run absorbs it and page two commits.
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.PagesVisited)
	assert.Equal(t, 1, res.PagesFailed)
	assert.Equal(t, 4, res.ListingsSeen)
	assert.Equal(t, 2, res.ListingsSaved)

	// Nothing from the failed page reached the store.
	views, err := db.ListJobs(context.Background(), domain.ListFilters{SortBy: "title"})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Capital Modeler", views[0].Title)
	assert.Equal(t, "Chief Actuary", views[1].Title)
}

func TestRunSessionSetupFailureFailsRun(t *testing.T) {
	db := newTestStore(t)
	src := &fakeSource{failOpen: true}

	res := newTestRunner(t, db, src).Run(context.Background())

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 0, res.PagesVisited)
	assert.Equal(t, 0, res.ListingsSaved)
	// The session never opened, so there is nothing to tear down.
	assert.Equal(t, 0, src.closes)
}

func TestRunEveryPageFailingFailsRun(t *testing.T) {
	db := newTestStore(t)
	// No pages defined at all: every fetch errors (not a timeout), so
	// every attempted page fails.
	src := &fakeSource{pages: map[string]string{}}

	res := newTestRunner(t, db, src).Run(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, 0, res.PagesVisited)
	assert.Equal(t, 5, res.PagesFailed)
}

func TestRunOnSavedCallback(t *testing.T) {
	db := newTestStore(t)
	src := &fakeSource{
		pages: map[string]string{
			"https://example.test/": twoCardPage("Pricing Actuary", "Reserving Analyst"),
		},
		timeouts: map[string]bool{"https://example.test/?page=2": true},
	}

	r := newTestRunner(t, db, src)
	var saved []string
	r.OnSaved(func(l domain.Listing) { saved = append(saved, l.Title) })

	r.Run(context.Background())
	assert.Equal(t, []string{"Pricing Actuary", "Reserving Analyst"}, saved)
}
