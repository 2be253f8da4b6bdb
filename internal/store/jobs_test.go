package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joblist-engine/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db
}

func listing(title, company, location string) domain.Listing {
	return domain.Listing{
		Title:       title,
		Company:     company,
		Location:    location,
		Description: "desc",
		PostingDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		URL:         "https://example.test/jobs/x",
		JobType:     "Health",
		Source:      domain.SourceScraped,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, 1, v)
}

func TestHasListing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	key := domain.IdentityKey{Title: "Pricing Actuary", Company: "Acme Re", Location: "London, UK"}
	ok, err := db.HasListing(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SaveScrapedPage(ctx, []domain.Listing{
		listing("Pricing Actuary", "Acme Re", "London, UK"),
	}))

	ok, err = db.HasListing(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	// Identity is the full tuple: same title elsewhere is a new listing.
	ok, err = db.HasListing(ctx, domain.IdentityKey{
		Title: "Pricing Actuary", Company: "Acme Re", Location: "Remote",
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveScrapedPageAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveScrapedPage(ctx, []domain.Listing{
		listing("Pricing Actuary", "Acme Re", "London, UK"),
		listing("Reserving Analyst", "Beta Life", "Remote"),
	}))

	views, err := db.ListJobs(ctx, domain.ListFilters{SortBy: "title"})
	require.NoError(t, err)
	require.Len(t, views, 2)

	v := views[0]
	assert.Equal(t, "Pricing Actuary", v.Title)
	assert.Equal(t, "Acme Re", v.Company)
	assert.Equal(t, "2025-06-01", v.PostingDate)
	assert.Equal(t, domain.SourceScraped, v.Source)
	assert.NotEmpty(t, v.ID)
	assert.NotEmpty(t, v.CreatedAt)

	// Filters narrow by substring.
	views, err = db.ListJobs(ctx, domain.ListFilters{Company: "Beta"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Reserving Analyst", views[0].Title)

	views, err = db.ListJobs(ctx, domain.ListFilters{Location: "Remote"})
	require.NoError(t, err)
	require.Len(t, views, 1)

	// An unknown sort column falls back instead of erroring.
	_, err = db.ListJobs(ctx, domain.ListFilters{SortBy: "evil; DROP TABLE jobs"})
	require.NoError(t, err)
}

func TestCountsAndGroups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveScrapedPage(ctx, []domain.Listing{
		listing("Pricing Actuary", "Acme Re", "London, UK"),
		listing("Reserving Analyst", "Acme Re", "Remote"),
		listing("Capital Modeler", "Beta Life", "Remote"),
	}))

	n, err := db.CountBySource(ctx, domain.SourceScraped)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = db.CountBySource(ctx, domain.SourceManual)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	byCompany, err := db.GroupCounts(ctx, "company")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Acme Re": 2, "Beta Life": 1}, byCompany)

	_, err = db.GroupCounts(ctx, "description")
	assert.Error(t, err)

	ts, err := db.MostRecentUpdate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, ts)
	_, err = time.Parse(domain.TimeLayout, ts)
	assert.NoError(t, err)
}

func TestMostRecentUpdateEmptyTable(t *testing.T) {
	db := newTestDB(t)
	ts, err := db.MostRecentUpdate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ts)
}

func TestDeleteJob(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveScrapedPage(ctx, []domain.Listing{
		listing("Pricing Actuary", "Acme Re", "London, UK"),
	}))
	views, err := db.ListJobs(ctx, domain.ListFilters{})
	require.NoError(t, err)
	require.Len(t, views, 1)

	var id int64
	require.NoError(t, db.Pool.QueryRow(`SELECT id FROM jobs LIMIT 1;`).Scan(&id))

	ok, err := db.DeleteJob(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.DeleteJob(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}
