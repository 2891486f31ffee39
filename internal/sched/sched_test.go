package sched

import (
	"testing"
	"time"
)

func TestEverySpec(t *testing.T) {
	if got := every(60 * time.Second); got != "@every 1m0s" {
		t.Errorf("every(60s) = %q", got)
	}
	if got := every(time.Second); got != "@every 1s" {
		t.Errorf("every(1s) = %q", got)
	}
}

func TestSchedulerRunsBothJobs(t *testing.T) {
	if testing.Short() {
		t.Skip("cron granularity is one second")
	}

	refreshed := make(chan struct{}, 1)
	ticked := make(chan struct{}, 1)

	s, err := New(time.Second, time.Second,
		func() {
			select {
			case refreshed <- struct{}{}:
			default:
			}
		},
		func() {
			select {
			case ticked <- struct{}{}:
			default:
			}
		},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.Start()
	defer func() { <-s.Stop().Done() }()

	deadline := time.After(3 * time.Second)
	for _, ch := range []chan struct{}{refreshed, ticked} {
		select {
		case <-ch:
		case <-deadline:
			t.Fatal("job did not run within three seconds")
		}
	}
}
