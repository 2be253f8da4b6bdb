package httpapi

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"joblist-engine/internal/config"
	"joblist-engine/internal/persist"
	"joblist-engine/internal/scheduler"
)

type ScraperHandler struct {
	Router *persist.Router
	Sched  *scheduler.Scheduler
	Cfg    config.Config
	Log    *zap.Logger
}

// Run triggers a pipeline run synchronously and returns its result.
// A second request during an active run gets a conflict, not a queue.
func (h ScraperHandler) Run(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sched.RunNow(r.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "scraper is already running")
			return
		}
		h.Log.Error("manual scraper run failed to start", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to trigger job scraper")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        res.Success,
		"jobs_processed": res.ListingsSaved,
		"result":         res,
	})
}

func (h ScraperHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.Router.Status(r.Context())
	if err != nil {
		h.Log.Error("scraper status failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get scraper status")
		return
	}

	resp := map[string]any{
		"success":  true,
		"running":  h.Sched.IsRunning(),
		"stats":    st,
		"schedule": h.Cfg.ScheduleDescription(),
	}
	if last, ok := h.Sched.LastResult(); ok {
		resp["last_run"] = last
	}
	writeJSON(w, http.StatusOK, resp)
}
