package source

import (
	"context"
	"time"

	appLog "calwidget/internal/log"
	"calwidget/internal/model"
)

const (
	defaultAttempts   = 5
	defaultRetryDelay = 2 * time.Second
)

// Retry wraps a source with bounded retries and growing delay. After the
// last attempt fails it logs and returns an empty event list with a nil
// error: callers treat "no events" as a valid outcome and simply try again
// on the next refresh tick, which keeps the refresh path free of failure
// branches.
type Retry struct {
	Source   Source
	Attempts int           // default 5
	Delay    time.Duration // base delay, grows linearly per attempt; default 2s

	// Sleep is injectable for tests. Nil means time.Sleep.
	Sleep func(time.Duration)
}

func (r *Retry) FetchEvents(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	delay := r.Delay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		events, err := r.Source.FetchEvents(ctx, start, end)
		if err == nil {
			return events, nil
		}
		lastErr = err

		if attempt < attempts {
			sleep(delay * time.Duration(attempt))
		}
	}

	appLog.Error("calendar fetch failed after retries, returning no events",
		lastErr, "attempts", attempts)
	return []model.Event{}, nil
}
