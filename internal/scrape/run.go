package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"joblist-engine/internal/domain"
)

// JobStore is the slice of the persistence router the pipeline needs:
// the dedup lookup and the per-page transactional write.
type JobStore interface {
	HasListing(ctx context.Context, key domain.IdentityKey) (bool, error)
	SaveScrapedPage(ctx context.Context, listings []domain.Listing) error
}

// Options bounds one run.
type Options struct {
	BaseURL     string
	MaxPages    int
	PageTimeout time.Duration
}

// Runner executes the scrape/extract/dedup/persist pipeline. One Source
// session per run, pages strictly sequential, page failures absorbed.
type Runner struct {
	store     JobStore
	newSource func() Source
	log       *zap.Logger
	opts      Options

	// limiter paces page fetches so a 20-page run doesn't hammer the site.
	limiter *rate.Limiter
	onSaved func(domain.Listing)
	now     func() time.Time
}

func NewRunner(store JobStore, newSource func() Source, log *zap.Logger, opts Options) *Runner {
	return &Runner{
		store:     store,
		newSource: newSource,
		log:       log,
		opts:      opts,
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 1),
		now:       time.Now,
	}
}

// OnSaved registers a callback invoked for every newly persisted
// listing, after its page committed.
func (r *Runner) OnSaved(fn func(domain.Listing)) { r.onSaved = fn }

// Run executes one full pipeline pass and always returns a finalized
// RunResult; it never panics outward and never returns an error — a
// failed run is a RunResult with Success=false.
func (r *Runner) Run(ctx context.Context) domain.RunResult {
	res := domain.RunResult{StartedAt: r.now()}
	r.log.Info("job scraping started", zap.String("url", r.opts.BaseURL))

	src := r.newSource()
	if err := src.Open(ctx); err != nil {
		r.log.Error("could not open rendering session", zap.Error(err))
		res.Success = false
		res.Error = err.Error()
		res.FinishedAt = r.now()
		return res
	}
	defer src.Close()

	ex := NewExtractor(src, r.log, r.opts.PageTimeout)

	attempted := 0
	for page := 1; page <= r.opts.MaxPages; page++ {
		if err := r.limiter.Wait(ctx); err != nil {
			break
		}
		pageURL := PageURL(r.opts.BaseURL, page)
		r.log.Info("scraping page", zap.Int("page", page), zap.String("url", pageURL))

		cands, err := ex.ExtractPage(ctx, pageURL)
		if err != nil {
			attempted++
			res.PagesFailed++
			r.log.Error("page scrape failed", zap.Int("page", page), zap.Error(err))
			continue
		}
		if len(cands) == 0 {
			// End of pagination: no cards within the wait bound.
			break
		}
		attempted++
		res.ListingsSeen += len(cands)

		saved, err := r.persistPage(ctx, cands)
		if err != nil {
			res.PagesFailed++
			r.log.Error("page persist failed", zap.Int("page", page), zap.Error(err))
			continue
		}
		res.PagesVisited++
		res.ListingsSaved += saved
		r.log.Info("saved jobs from page", zap.Int("page", page), zap.Int("saved", saved))
	}

	// Only a run where nothing at all went through is a failed run;
	// individual bad pages are already counted.
	res.Success = !(attempted > 0 && res.PagesFailed == attempted)
	res.FinishedAt = r.now()
	r.log.Info("scraping completed",
		zap.Int("pages_visited", res.PagesVisited),
		zap.Int("listings_saved", res.ListingsSaved),
		zap.Bool("success", res.Success))
	return res
}

// persistPage runs every candidate through the dedup gate and commits
// the survivors in one transaction.
func (r *Runner) persistPage(ctx context.Context, cands []domain.Candidate) (int, error) {
	var batch []domain.Listing
	seen := map[domain.IdentityKey]bool{}

	for _, c := range cands {
		key := c.Identity()
		if seen[key] {
			continue
		}
		exists, err := r.store.HasListing(ctx, key)
		if err != nil {
			r.log.Warn("dedup lookup failed, skipping candidate",
				zap.String("title", key.Title), zap.Error(err))
			continue
		}
		if exists {
			continue
		}
		seen[key] = true
		batch = append(batch, listingFromCandidate(c))
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := r.store.SaveScrapedPage(ctx, batch); err != nil {
		return 0, err
	}
	if r.onSaved != nil {
		for _, l := range batch {
			r.onSaved(l)
		}
	}
	return len(batch), nil
}

func listingFromCandidate(c domain.Candidate) domain.Listing {
	return domain.Listing{
		Title:       c.Title.Value,
		Company:     c.Company.Value,
		Location:    c.Location.Value,
		Description: c.Description,
		JobType:     c.Category.Value,
		PostingDate: c.PostedAt,
		URL:         c.URL,
		Source:      domain.SourceScraped,
	}
}
