package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"joblist-engine/internal/domain"
	"joblist-engine/internal/events"
	"joblist-engine/internal/persist"
)

type JobsHandler struct {
	Router *persist.Router
	Hub    *events.Hub
	Log    *zap.Logger
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ListFilters{
		Company:  q.Get("company"),
		Location: q.Get("location"),
		JobType:  q.Get("job_type"),
		Source:   q.Get("source"),
		SortBy:   q.Get("sort_by"),
		SortDesc: strings.ToLower(q.Get("sort_order")) != "asc",
	}

	jobs, err := h.Router.ListAll(r.Context(), f)
	if err != nil {
		h.Log.Error("listing jobs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to retrieve jobs")
		return
	}
	if jobs == nil {
		jobs = []domain.JobView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(jobs),
		"jobs":    jobs,
	})
}

type createJobRequest struct {
	Title           string `json:"title"`
	Company         string `json:"company"`
	Location        string `json:"location"`
	Description     string `json:"description"`
	PostingDate     string `json:"posting_date"`
	URL             string `json:"url"`
	Salary          string `json:"salary"`
	JobType         string `json:"job_type"`
	ExperienceLevel string `json:"experience_level"`
}

// Create adds a manually entered listing; these go to the document
// store, never to the scraped table.
func (h JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "missing required field: title")
		return
	}
	if strings.TrimSpace(req.Company) == "" {
		writeError(w, http.StatusBadRequest, "missing required field: company")
		return
	}

	l := domain.Listing{
		Title:           req.Title,
		Company:         req.Company,
		Location:        req.Location,
		Description:     req.Description,
		URL:             req.URL,
		Salary:          req.Salary,
		JobType:         req.JobType,
		ExperienceLevel: req.ExperienceLevel,
		Source:          domain.SourceManual,
	}
	if req.PostingDate != "" {
		d, err := time.Parse(domain.DateLayout, req.PostingDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
			return
		}
		l.PostingDate = d
	}

	job, err := h.Router.AddManual(r.Context(), l)
	if err != nil {
		h.Log.Error("adding manual job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to add job")
		return
	}

	h.Hub.Publish(events.ListingCreated(l))
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "job added successfully",
		"job":     job,
	})
}

func (h JobsHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	found, err := h.Router.Delete(r.Context(), id)
	if err != nil {
		h.Log.Error("deleting job failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	h.Hub.Publish(events.ListingDeleted(id))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (h JobsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Router.Stats(r.Context())
	if err != nil {
		h.Log.Error("computing job stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to retrieve job statistics")
		return
	}

	st, err := h.Router.Status(r.Context())
	if err != nil {
		h.Log.Error("counting jobs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to retrieve job statistics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"total_jobs": st.TotalCount,
		"companies":  stats["company"],
		"locations":  stats["location"],
		"job_types":  stats["job_type"],
		"sources":    stats["source"],
	})
}
