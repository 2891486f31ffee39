// Package sched runs the widget's two periodic triggers: a slow refresh
// tick that re-fetches events from the sources, and a fast countdown tick
// that only recomputes derived view state from the in-memory snapshot.
package sched

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calwidget/internal/log"
)

// Scheduler owns the cron runner behind both periodic jobs.
type Scheduler struct {
	cron *cron.Cron
}

// New builds a scheduler with a refresh job every refreshEvery and a
// countdown job every tickEvery. Jobs are wrapped with SkipIfStillRunning,
// so a refresh tick that arrives while the previous fetch is still in
// flight is skipped rather than run concurrently, and with Recover so a
// panicking job cannot kill the process.
func New(refreshEvery, tickEvery time.Duration, refresh, tick func()) (*Scheduler, error) {
	logger := cronLogger{}
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	))

	if _, err := c.AddFunc(every(refreshEvery), refresh); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(every(tickEvery), tick); err != nil {
		return nil, err
	}

	return &Scheduler{cron: c}, nil
}

// Start begins running jobs on their schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling new runs and returns a context that is done once
// in-flight jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

// cronLogger adapts the app logger to cron.Logger. Cron's routine chatter
// goes to debug; job errors stay at error level.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
