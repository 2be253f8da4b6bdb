package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"joblist-engine/internal/config"
	"joblist-engine/internal/docstore"
	"joblist-engine/internal/domain"
	"joblist-engine/internal/events"
	"joblist-engine/internal/httpapi"
	"joblist-engine/internal/persist"
	"joblist-engine/internal/scheduler"
	"joblist-engine/internal/scrape"
	"joblist-engine/internal/store"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("engine exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	dataDir, err := config.ResolveDataDir()
	if err != nil {
		return err
	}

	// One engine per data dir; a second instance would double-fire
	// every trigger against the same stores.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !locked {
		return errors.New("another engine instance already holds this data dir")
	}
	defer func() { _ = lock.Unlock() }()

	cfg := loadConfig(dataDir, logger)
	if v := config.Validate(cfg); !v.OK() {
		for _, e := range v.Errors {
			logger.Error("config error", zap.String("problem", e))
		}
		return errors.New("invalid configuration")
	} else {
		for _, warn := range v.Warnings {
			logger.Warn("config warning", zap.String("problem", warn))
		}
	}

	sqlitePath := cfg.Stores.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(dataDir, "joblist.db")
	}
	db, err := store.Open(sqlitePath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		return err
	}
	logger.Info("scraped store ready", zap.String("path", sqlitePath))

	// The document store is best-effort: without it the scraping core
	// still runs, only manual listings are unavailable.
	var manual persist.ManualStore
	var docs *docstore.Store
	if cfg.Stores.MongoURI != "" {
		docs, err = docstore.Connect(context.Background(), cfg.Stores.MongoURI, cfg.Stores.MongoDB)
		if err != nil {
			logger.Warn("document store unavailable, manual listings disabled", zap.Error(err))
		} else {
			manual = docs
			defer func() { _ = docs.Close(context.Background()) }()
			logger.Info("document store ready", zap.String("db", cfg.Stores.MongoDB))
		}
	}

	hub := events.NewHub()
	router := persist.NewRouter(db, manual, logger)

	runner := scrape.NewRunner(
		router,
		func() scrape.Source { return scrape.NewChromeSource() },
		logger,
		scrape.Options{
			BaseURL:     cfg.Scraper.URL,
			MaxPages:    cfg.Scraper.MaxPages,
			PageTimeout: time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
		},
	)
	runner.OnSaved(func(l domain.Listing) { hub.Publish(events.ListingCreated(l)) })

	// Every run, scheduled or manual, announces its completion to the
	// event stream.
	pipeline := func(ctx context.Context) domain.RunResult {
		res := runner.Run(ctx)
		hub.Publish(events.RunFinished(res))
		return res
	}

	sched := scheduler.New(pipeline, logger)
	registerTriggers(sched, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)

	mux := httpapi.NewMux(httpapi.Deps{
		Router: router,
		Sched:  sched,
		Hub:    hub,
		Cfg:    cfg,
		Log:    logger,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           httpapi.Chain(mux, httpapi.RequestID, httpapi.Cors, httpapi.Logging(logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sched.Stop()

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func loadConfig(dataDir string, logger *zap.Logger) config.Config {
	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		logger.Warn("no config file, using built-in defaults", zap.Error(err))
		return config.ApplyEnv(config.Default())
	}

	cfg, err := config.Load(userCfgPath)
	if err != nil {
		logger.Warn("config load failed, using built-in defaults",
			zap.String("path", userCfgPath), zap.Error(err))
		cfg = config.Default()
	}
	return config.ApplyEnv(cfg)
}

// registerTriggers turns the schedule config into scheduler triggers:
// the named daily runs, the fast recurring run, and one immediate run
// at startup. Daily runs tolerate being up to an hour late; the fast
// lane only five minutes, matching its cadence.
func registerTriggers(s *scheduler.Scheduler, cfg config.Config, logger *zap.Logger) {
	for name, tm := range cfg.Scraper.Schedule {
		hour, minute, err := config.ParseClock(tm)
		if err != nil {
			logger.Warn("skipping malformed schedule entry",
				zap.String("name", name), zap.String("time", tm))
			continue
		}
		s.Register("scraper_"+name, scheduler.Daily{
			Hour:        hour,
			Minute:      minute,
			GraceWindow: time.Hour,
		})
	}

	if cfg.Scraper.TestIntervalMinutes > 0 {
		s.Register("scraper_test", scheduler.Interval{
			Every:       time.Duration(cfg.Scraper.TestIntervalMinutes) * time.Minute,
			GraceWindow: 5 * time.Minute,
		})
	}

	s.Register("scraper_immediate", scheduler.Immediate{})
}
