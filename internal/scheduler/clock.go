package scheduler

import "time"

// Clock abstracts time so trigger firing can be tested without waiting.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
