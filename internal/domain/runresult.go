package domain

import "time"

// RunResult is the outcome record of one pipeline execution. It is
// created when the run starts, finalized when it ends, and read-only
// afterwards.
type RunResult struct {
	PagesVisited  int    `json:"pages_visited"`
	PagesFailed   int    `json:"pages_failed"`
	ListingsSeen  int    `json:"listings_seen"`
	ListingsSaved int    `json:"listings_saved"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
