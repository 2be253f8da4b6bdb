package httpapi

import "net/http"

func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	jh := JobsHandler{Router: d.Router, Hub: d.Hub, Log: d.Log}
	mux.HandleFunc("/api/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  jh.List,
		http.MethodPost: jh.Create,
	}))
	mux.HandleFunc("/api/jobs/", methodMux(map[string]http.HandlerFunc{
		http.MethodDelete: jh.DeleteByPath, // expects /api/jobs/{id}
	}))
	mux.HandleFunc("/api/jobs/stats", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Stats,
	}))

	sh := ScraperHandler{Router: d.Router, Sched: d.Sched, Cfg: d.Cfg, Log: d.Log}
	mux.HandleFunc("/api/scraper/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.Run,
	}))
	mux.HandleFunc("/api/scraper/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Status,
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/api/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: handleHealth,
	}))

	return mux
}
