// Package persist routes writes to the store that owns them — scraped
// listings to SQLite, manual listings to the document store — and
// exposes one merged read view over both, so callers never care which
// store a listing lives in.
package persist

import (
	"context"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"joblist-engine/internal/domain"
)

// ScrapedStore is the relational side (pipeline writes, merged reads).
type ScrapedStore interface {
	HasListing(ctx context.Context, key domain.IdentityKey) (bool, error)
	SaveScrapedPage(ctx context.Context, listings []domain.Listing) error
	ListJobs(ctx context.Context, f domain.ListFilters) ([]domain.JobView, error)
	CountBySource(ctx context.Context, source string) (int64, error)
	MostRecentUpdate(ctx context.Context) (string, error)
	GroupCounts(ctx context.Context, column string) (map[string]int64, error)
	DeleteJob(ctx context.Context, id int64) (bool, error)
}

// ManualStore is the document side, owned by the CRUD surface.
type ManualStore interface {
	Insert(ctx context.Context, l domain.Listing) (domain.JobView, error)
	List(ctx context.Context, f domain.ListFilters) ([]domain.JobView, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) (bool, error)
	GroupCounts(ctx context.Context, field string) (map[string]int64, error)
}

type Router struct {
	scraped ScrapedStore
	manual  ManualStore // may be nil when the document store is unavailable
	log     *zap.Logger
}

func NewRouter(scraped ScrapedStore, manual ManualStore, log *zap.Logger) *Router {
	return &Router{scraped: scraped, manual: manual, log: log}
}

// HasListing and SaveScrapedPage make the Router the pipeline's store:
// the dedup gate and the per-page commit both land on the scraped side.

func (r *Router) HasListing(ctx context.Context, key domain.IdentityKey) (bool, error) {
	return r.scraped.HasListing(ctx, key)
}

func (r *Router) SaveScrapedPage(ctx context.Context, listings []domain.Listing) error {
	return r.scraped.SaveScrapedPage(ctx, listings)
}

// AddManual writes a manually entered listing to the document store.
func (r *Router) AddManual(ctx context.Context, l domain.Listing) (domain.JobView, error) {
	if r.manual == nil {
		return domain.JobView{}, ErrManualUnavailable
	}
	return r.manual.Insert(ctx, l)
}

// ListAll merges both stores into one view, querying them concurrently.
func (r *Router) ListAll(ctx context.Context, f domain.ListFilters) ([]domain.JobView, error) {
	var scraped, manual []domain.JobView
	g, gctx := errgroup.WithContext(ctx)

	if f.Source == "" || f.Source == domain.SourceScraped {
		g.Go(func() error {
			var err error
			scraped, err = r.scraped.ListJobs(gctx, f)
			return err
		})
	}
	if r.manual != nil && (f.Source == "" || f.Source == domain.SourceManual) {
		g.Go(func() error {
			var err error
			manual, err = r.manual.List(gctx, f)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := append(scraped, manual...)
	sortViews(merged, f)
	return merged, nil
}

// Stats aggregates group counts across both stores.
func (r *Router) Stats(ctx context.Context) (map[string]map[string]int64, error) {
	out := map[string]map[string]int64{}
	for _, col := range []string{"company", "location", "job_type", "source"} {
		counts, err := r.scraped.GroupCounts(ctx, col)
		if err != nil {
			return nil, err
		}
		if r.manual != nil {
			manualCounts, err := r.manual.GroupCounts(ctx, col)
			if err != nil {
				r.log.Warn("manual store stats unavailable", zap.Error(err))
			} else {
				for k, n := range manualCounts {
					counts[k] += n
				}
			}
		}
		out[col] = counts
	}
	return out, nil
}

// Status is the counts block of the scraper status endpoint.
type Status struct {
	ScrapedCount     int64  `json:"scraped_jobs"`
	ManualCount      int64  `json:"manual_jobs"`
	TotalCount       int64  `json:"total_jobs"`
	MostRecentUpdate string `json:"most_recent_update,omitempty"`
}

func (r *Router) Status(ctx context.Context) (Status, error) {
	var st Status
	scraped, err := r.scraped.CountBySource(ctx, domain.SourceScraped)
	if err != nil {
		return st, err
	}
	st.ScrapedCount = scraped
	if r.manual != nil {
		manual, err := r.manual.Count(ctx)
		if err != nil {
			r.log.Warn("manual store count unavailable", zap.Error(err))
		} else {
			st.ManualCount = manual
		}
	}
	st.TotalCount = st.ScrapedCount + st.ManualCount
	st.MostRecentUpdate, err = r.scraped.MostRecentUpdate(ctx)
	if err != nil {
		return st, err
	}
	return st, nil
}

// Delete routes by ID shape: integer row IDs belong to the scraped
// store, hex document IDs to the manual store.
func (r *Router) Delete(ctx context.Context, id string) (bool, error) {
	if rowID, err := strconv.ParseInt(id, 10, 64); err == nil {
		return r.scraped.DeleteJob(ctx, rowID)
	}
	if r.manual == nil {
		return false, nil
	}
	return r.manual.Delete(ctx, id)
}

func sortViews(views []domain.JobView, f domain.ListFilters) {
	key := func(v domain.JobView) string {
		switch f.SortBy {
		case "updated_at":
			return v.UpdatedAt
		case "posting_date":
			return v.PostingDate
		case "title":
			return v.Title
		case "company":
			return v.Company
		case "location":
			return v.Location
		default:
			return v.CreatedAt
		}
	}
	sort.SliceStable(views, func(i, j int) bool {
		if f.SortDesc {
			return key(views[i]) > key(views[j])
		}
		return key(views[i]) < key(views[j])
	})
}
