package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"joblist-engine/internal/domain"
)

// ErrAlreadyRunning is returned by RunNow while a pipeline run is
// active; manual fires are dropped, never queued.
var ErrAlreadyRunning = errors.New("a pipeline run is already active")

// RunFunc is the pipeline entry point a fired trigger invokes.
type RunFunc func(ctx context.Context) domain.RunResult

type entry struct {
	trig Trigger
	next time.Time
}

// Scheduler owns the registered triggers and guarantees at most one
// pipeline run is active at any time. It cycles between Idle and
// Running and never exits that cycle because a run failed.
type Scheduler struct {
	run   RunFunc
	log   *zap.Logger
	clock Clock
	tick  time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	running bool
	started bool
	last    *domain.RunResult

	stopCh chan struct{}
	wg     sync.WaitGroup
}

type Option func(*Scheduler)

func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }

// WithTick sets the evaluation period of the background loop.
func WithTick(d time.Duration) Option { return func(s *Scheduler) { s.tick = d } }

func New(run RunFunc, log *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		run:     run,
		log:     log,
		clock:   systemClock{},
		tick:    time.Second,
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds a trigger under a stable ID. Re-registering an ID
// removes the old trigger first, so reconfiguration never leaves a
// duplicate firing schedule behind.
func (s *Scheduler) Register(id string, t Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	e := &entry{trig: t}
	if s.started {
		s.initEntry(e, s.clock.Now())
	}
	s.entries[id] = e
	s.log.Info("trigger registered", zap.String("id", id), zap.String("schedule", t.Describe()))
}

func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// initEntry sets the first fire time. Immediate triggers are due right
// away; recurring triggers fire at their next occurrence.
func (s *Scheduler) initEntry(e *entry, now time.Time) {
	if _, ok := e.trig.(Immediate); ok {
		e.next = now
		return
	}
	e.next = e.trig.Next(now)
}

// Start launches the background evaluation loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	now := s.clock.Now()
	for _, e := range s.entries {
		s.initEntry(e, now)
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-t.C:
				s.evaluate(ctx)
			}
		}
	}()
}

// Stop clears all triggers and halts background execution. Only called
// on process shutdown; an in-flight run is allowed to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.started = false
	s.mu.Unlock()
	s.log.Info("scheduler stopped")
}

// RunNow executes the pipeline synchronously on the caller's goroutine
// and returns its result. Returns ErrAlreadyRunning instead of queueing
// when a run is active.
func (s *Scheduler) RunNow(ctx context.Context) (domain.RunResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return domain.RunResult{}, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	res := s.run(ctx)

	s.mu.Lock()
	s.running = false
	s.last = &res
	s.mu.Unlock()
	return res, nil
}

// IsRunning reports whether a pipeline run is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastResult returns the most recent finalized RunResult, if any.
func (s *Scheduler) LastResult() (domain.RunResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.RunResult{}, false
	}
	return *s.last, true
}

// evaluate processes every due trigger once. At most one fire launches
// a run; other fires due in the same pass are dropped. A fire that
// comes due while a run is in progress stays pending: it is caught up
// after the run if still inside its grace window, skipped otherwise.
func (s *Scheduler) evaluate(ctx context.Context) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	launched := false
	for id, e := range s.entries {
		if e.next.IsZero() || now.Before(e.next) {
			continue
		}
		delay := now.Sub(e.next)

		if delay > e.trig.Grace() {
			s.log.Warn("trigger misfire outside grace window, skipping",
				zap.String("id", id), zap.Duration("late_by", delay))
			s.advanceOrRemove(id, e, now)
			continue
		}
		if launched {
			// Due in the same pass as a fire that just launched: dropped,
			// never queued.
			s.log.Info("concurrent trigger fire dropped", zap.String("id", id))
			s.advanceOrRemove(id, e, now)
			continue
		}
		if s.running {
			// A run started before this pass is still active: leave the
			// fire pending so it can be caught up within its grace window.
			continue
		}

		s.advanceOrRemove(id, e, now)
		launched = true
		s.launchLocked(ctx, id)
	}
}

// advanceOrRemove moves a fired entry past now, coalescing any missed
// occurrences into none; one-shot triggers are removed instead.
func (s *Scheduler) advanceOrRemove(id string, e *entry, now time.Time) {
	next := e.trig.Next(e.next)
	for !next.IsZero() && !next.After(now) {
		next = e.trig.Next(next)
	}
	if next.IsZero() {
		delete(s.entries, id)
		return
	}
	e.next = next
}

// launchLocked starts the pipeline on its own goroutine; the caller
// holds the mutex. The Running state is what keeps the loop from
// blocking on a long scrape while other triggers fire.
func (s *Scheduler) launchLocked(ctx context.Context, id string) {
	s.running = true
	s.log.Info("trigger fired, starting pipeline run", zap.String("id", id))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := s.run(ctx)

		s.mu.Lock()
		s.running = false
		s.last = &res
		s.mu.Unlock()

		if res.Success {
			s.log.Info("scheduled run completed",
				zap.String("id", id), zap.Int("saved", res.ListingsSaved))
		} else {
			s.log.Error("scheduled run failed",
				zap.String("id", id), zap.String("error", res.Error))
		}
	}()
}
