package domain

// String layouts for the wire view. Both stores format timestamps the
// same way so merged reads need no special-casing per origin.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "2006-01-02 15:04:05"
)

// JobView is the uniform read shape served for listings of either
// origin. IDs are strings because the scraped store uses integer row
// IDs while manual listings carry document IDs.
type JobView struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Company         string `json:"company"`
	Location        string `json:"location"`
	Description     string `json:"description"`
	PostingDate     string `json:"postingDate"`
	URL             string `json:"url"`
	Salary          string `json:"salary"`
	JobType         string `json:"jobType"`
	ExperienceLevel string `json:"experienceLevel"`
	Source          string `json:"source"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

// ListFilters narrows a listing read. Empty fields match everything.
type ListFilters struct {
	Company  string
	Location string
	JobType  string
	Source   string
	SortBy   string
	SortDesc bool
}
