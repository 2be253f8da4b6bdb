package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"joblist-engine/internal/domain"
)

// HasListing is the dedup gate's lookup: exact match on the
// (title, company, location) identity key.
func (d *DB) HasListing(ctx context.Context, key domain.IdentityKey) (bool, error) {
	var one int
	err := d.Pool.QueryRowContext(ctx, `
SELECT 1 FROM jobs
WHERE title = ? AND company = ? AND location = ?
LIMIT 1;`, key.Title, key.Company, key.Location).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveScrapedPage inserts one page's listings in a single transaction.
// A failure rolls back this page only; earlier pages stay committed.
func (d *DB) SaveScrapedPage(ctx context.Context, listings []domain.Listing) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(domain.TimeLayout)
	for _, l := range listings {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO jobs(title, company, location, description, posting_date, url, salary, job_type, experience_level, source, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?);`,
			l.Title,
			l.Company,
			l.Location,
			l.Description,
			l.PostingDate.UTC().Format(domain.DateLayout),
			l.URL,
			l.Salary,
			l.JobType,
			l.ExperienceLevel,
			domain.SourceScraped,
			now,
			now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListJobs reads scraped listings in the uniform view shape.
func (d *DB) ListJobs(ctx context.Context, f domain.ListFilters) ([]domain.JobView, error) {
	where := "WHERE 1=1"
	var args []any
	if f.Company != "" {
		where += " AND company LIKE ?"
		args = append(args, "%"+f.Company+"%")
	}
	if f.Location != "" {
		where += " AND location LIKE ?"
		args = append(args, "%"+f.Location+"%")
	}
	if f.JobType != "" {
		where += " AND job_type LIKE ?"
		args = append(args, "%"+f.JobType+"%")
	}
	if f.Source != "" {
		where += " AND source = ?"
		args = append(args, f.Source)
	}

	// whitelist sort columns (prevents SQL injection)
	sortCol := map[string]string{
		"created_at":   "created_at",
		"updated_at":   "updated_at",
		"posting_date": "posting_date",
		"title":        "title",
		"company":      "company",
		"location":     "location",
	}[f.SortBy]
	if sortCol == "" {
		sortCol = "created_at"
	}
	order := "ASC"
	if f.SortDesc {
		order = "DESC"
	}

	query := fmt.Sprintf(`
SELECT id, title, company, location, description, posting_date, url, salary, job_type, experience_level, source, created_at, updated_at
FROM jobs
%s
ORDER BY %s %s;`, where, sortCol, order)

	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JobView
	for rows.Next() {
		var j domain.JobView
		var id int64
		if err := rows.Scan(
			&id,
			&j.Title,
			&j.Company,
			&j.Location,
			&j.Description,
			&j.PostingDate,
			&j.URL,
			&j.Salary,
			&j.JobType,
			&j.ExperienceLevel,
			&j.Source,
			&j.CreatedAt,
			&j.UpdatedAt,
		); err != nil {
			return nil, err
		}
		j.ID = strconv.FormatInt(id, 10)
		out = append(out, j)
	}
	return out, rows.Err()
}

// CountBySource returns how many rows carry the given source tag;
// an empty source counts everything.
func (d *DB) CountBySource(ctx context.Context, source string) (int64, error) {
	var n int64
	var err error
	if source == "" {
		err = d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs;`).Scan(&n)
	} else {
		err = d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE source = ?;`, source).Scan(&n)
	}
	return n, err
}

// MostRecentUpdate returns the newest updated_at value, or "" for an
// empty table. The layout sorts lexically, so MAX works on the text.
func (d *DB) MostRecentUpdate(ctx context.Context) (string, error) {
	var ts sql.NullString
	err := d.Pool.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM jobs;`).Scan(&ts)
	if err != nil {
		return "", err
	}
	return ts.String, nil
}

// GroupCounts aggregates row counts by one of the whitelisted columns.
func (d *DB) GroupCounts(ctx context.Context, column string) (map[string]int64, error) {
	col := map[string]string{
		"company":  "company",
		"location": "location",
		"job_type": "job_type",
		"source":   "source",
	}[column]
	if col == "" {
		return nil, fmt.Errorf("unsupported group column %q", column)
	}

	rows, err := d.Pool.QueryContext(ctx, fmt.Sprintf(`
SELECT %s, COUNT(*) FROM jobs GROUP BY %s;`, col, col))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var k string
		var n int64
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

// DeleteJob removes one scraped row by ID.
func (d *DB) DeleteJob(ctx context.Context, id int64) (bool, error) {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?;`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
