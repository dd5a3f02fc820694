package domain

import "time"

// Clock supplies every persisted timestamp. Stored times are always UTC.
type Clock func() time.Time

func SystemClock() Clock {
	return func() time.Time { return time.Now().UTC() }
}

// CollectorID identifies the process that opened a collection run.
type CollectorID string
