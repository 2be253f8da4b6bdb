package domain

import "time"

// Field is one extracted value plus whether the named fallback was
// substituted because the element could not be located.
type Field struct {
	Value    string
	Fallback bool
}

// Candidate is a freshly extracted listing that has not passed the
// dedup gate yet. It only ever lives in memory.
type Candidate struct {
	Title      Field
	Company    Field
	Location   Field
	Category   Field
	PostedText Field
	PostedAt   time.Time
	URL        string
	// Description is resolved after the card itself, from the detail page.
	Description string
}

// IdentityKey is the (title, company, location) tuple that makes a
// listing unique within the scraped store.
type IdentityKey struct {
	Title    string
	Company  string
	Location string
}

func (c Candidate) Identity() IdentityKey {
	return IdentityKey{
		Title:    c.Title.Value,
		Company:  c.Company.Value,
		Location: c.Location.Value,
	}
}

// Listing is a persisted job posting, scraped or manual.
type Listing struct {
	Title           string
	Company         string
	Location        string
	Description     string
	PostingDate     time.Time
	URL             string
	Salary          string
	JobType         string
	ExperienceLevel string
	Source          string // "scraped" or "manual"
}

const (
	SourceScraped = "scraped"
	SourceManual  = "manual"
)
