package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"joblist-engine/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// runRecorder is a controllable pipeline stand-in. When block is set,
// runs signal started and then wait for block to be closed.
type runRecorder struct {
	mu      sync.Mutex
	count   int
	block   chan struct{}
	started chan struct{}
}

func (r *runRecorder) run(ctx context.Context) domain.RunResult {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	return domain.RunResult{Success: true, ListingsSaved: 1}
}

func (r *runRecorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func waitStarted(t *testing.T, rec *runRecorder) {
	t.Helper()
	select {
	case <-rec.started:
	case <-time.After(time.Second):
		t.Fatal("pipeline run never started")
	}
}

func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	require.Eventually(t, func() bool { return !s.IsRunning() },
		time.Second, 5*time.Millisecond)
}

func newTestScheduler(rec *runRecorder, clk *fakeClock) *Scheduler {
	// A one-hour tick keeps the background loop out of the way; tests
	// drive evaluation directly.
	return New(rec.run, zap.NewNop(), WithClock(clk), WithTick(time.Hour))
}

func TestImmediateTriggerFiresOnce(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	rec := &runRecorder{}
	s := newTestScheduler(rec, clk)
	s.Register("boot", Immediate{})

	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	s.evaluate(ctx)
	waitIdle(t, s)
	assert.Equal(t, 1, rec.calls())

	// The one-shot entry is gone; further evaluation never refires it.
	clk.Advance(time.Hour)
	s.evaluate(ctx)
	waitIdle(t, s)
	assert.Equal(t, 1, rec.calls())
}

func TestSimultaneousFiresLaunchOneRun(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	rec := &runRecorder{block: make(chan struct{}), started: make(chan struct{})}
	s := newTestScheduler(rec, clk)
	s.Register("a", Interval{Every: time.Minute, GraceWindow: 5 * time.Minute})
	s.Register("b", Interval{Every: time.Minute, GraceWindow: 5 * time.Minute})

	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	clk.Advance(time.Minute)
	s.evaluate(ctx)
	waitStarted(t, rec)

	// Both triggers were due at the same instant; only one run started
	// and the other fire was dropped, not queued.
	assert.Equal(t, 1, rec.calls())
	assert.True(t, s.IsRunning())

	close(rec.block)
	rec.started = nil
	waitIdle(t, s)

	// The dropped fire was advanced, not queued: nothing else is due.
	s.evaluate(ctx)
	waitIdle(t, s)
	assert.Equal(t, 1, rec.calls())
}

func TestFireDuringRunIsCaughtUpWithinGrace(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	rec := &runRecorder{block: make(chan struct{}), started: make(chan struct{})}
	s := newTestScheduler(rec, clk)
	s.Register("a", Interval{Every: time.Minute, GraceWindow: 5 * time.Minute})

	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	clk.Advance(time.Minute)
	s.evaluate(ctx)
	waitStarted(t, rec)

	// The next occurrence comes due while the run is still active; it
	// stays pending rather than starting a concurrent run.
	clk.Advance(time.Minute)
	s.evaluate(ctx)
	assert.Equal(t, 1, rec.calls())

	close(rec.block)
	rec.started = nil
	waitIdle(t, s)

	// Still inside the grace window, so the pending fire is caught up.
	s.evaluate(ctx)
	waitIdle(t, s)
	assert.Equal(t, 2, rec.calls())
}

func TestMisfireOutsideGraceIsSkipped(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	rec := &runRecorder{}
	s := newTestScheduler(rec, clk)
	s.Register("a", Interval{Every: time.Minute, GraceWindow: 30 * time.Second})

	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	// The 09:01 occurrence is evaluated a full minute late, beyond the
	// 30s grace window: skipped, and the missed 09:02 coalesces away.
	clk.Advance(2 * time.Minute)
	s.evaluate(ctx)
	waitIdle(t, s)
	assert.Equal(t, 0, rec.calls())

	// The cadence is preserved: the next fire is 09:03, not 09:02+1m.
	clk.Advance(time.Minute)
	s.evaluate(ctx)
	waitIdle(t, s)
	assert.Equal(t, 1, rec.calls())
}

func TestReRegisterReplacesSchedule(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	rec := &runRecorder{}
	s := newTestScheduler(rec, clk)
	s.Register("daily", Daily{Hour: 10, GraceWindow: time.Hour})

	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	// Reconfigure under the same ID: the 10:00 schedule must be gone.
	s.Register("daily", Daily{Hour: 12, GraceWindow: time.Hour})

	clk.Advance(time.Hour + time.Minute) // 10:01
	s.evaluate(ctx)
	waitIdle(t, s)
	assert.Equal(t, 0, rec.calls())

	clk.Advance(2 * time.Hour) // 12:01
	s.evaluate(ctx)
	waitIdle(t, s)
	assert.Equal(t, 1, rec.calls())
}

func TestRunNowRejectsConcurrentRun(t *testing.T) {
	rec := &runRecorder{block: make(chan struct{}), started: make(chan struct{})}
	s := New(rec.run, zap.NewNop())

	ctx := context.Background()
	type outcome struct {
		res domain.RunResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.RunNow(ctx)
		done <- outcome{res, err}
	}()
	waitStarted(t, rec)

	_, err := s.RunNow(ctx)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(rec.block)
	rec.started = nil
	first := <-done
	require.NoError(t, first.err)
	res := first.res
	assert.True(t, res.Success)

	last, ok := s.LastResult()
	require.True(t, ok)
	assert.Equal(t, res, last)
}

func TestDailyNext(t *testing.T) {
	d := Daily{Hour: 14, Minute: 30}
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 1, 1, 14, 30, 0, 0, time.UTC), d.Next(base))

	// At or past the wall time, the next fire rolls to tomorrow.
	at := time.Date(2025, 1, 1, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 2, 14, 30, 0, 0, time.UTC), d.Next(at))
}

func TestIntervalNextKeepsCadence(t *testing.T) {
	i := Interval{Every: 3 * time.Minute}
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(3*time.Minute), i.Next(base))
}

func TestImmediateNeverFiresAgain(t *testing.T) {
	assert.True(t, Immediate{}.Next(time.Now()).IsZero())
}
