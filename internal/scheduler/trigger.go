package scheduler

import "time"

// Trigger computes when a registered schedule fires.
type Trigger interface {
	// Next returns the first fire time strictly after t, or the zero
	// time if the trigger never fires again.
	Next(t time.Time) time.Time
	// Grace is the misfire window: a firing delayed past its nominal
	// time by more than this is skipped instead of caught up.
	Grace() time.Duration
	Describe() string
}

// Daily fires once a day at a wall-clock time.
type Daily struct {
	Hour, Minute int
	GraceWindow  time.Duration
}

func (d Daily) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d Daily) Grace() time.Duration { return d.GraceWindow }

func (d Daily) Describe() string {
	return "daily at " + time.Date(0, 1, 1, d.Hour, d.Minute, 0, 0, time.UTC).Format("15:04")
}

// Interval fires on a fixed cadence anchored to its registration; a
// missed occurrence does not shift the cadence.
type Interval struct {
	Every       time.Duration
	GraceWindow time.Duration
}

func (i Interval) Next(t time.Time) time.Time { return t.Add(i.Every) }

func (i Interval) Grace() time.Duration { return i.GraceWindow }

func (i Interval) Describe() string { return "every " + i.Every.String() }

// Immediate fires exactly once, as soon as the scheduler starts.
type Immediate struct{}

func (Immediate) Next(t time.Time) time.Time { return time.Time{} }

func (Immediate) Grace() time.Duration { return time.Hour }

func (Immediate) Describe() string { return "once, immediately" }
