package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"calwidget/internal/model"
)

type flakySource struct {
	failures int // fail this many calls before succeeding
	events   []model.Event
	calls    int
}

func (f *flakySource) FetchEvents(_ context.Context, _, _ time.Time) ([]model.Event, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("transient failure")
	}
	return f.events, nil
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	inner := &flakySource{
		failures: 2,
		events:   []model.Event{{Title: "ok", ID: "1", Calendar: "Work"}},
	}
	var slept []time.Duration
	r := &Retry{
		Source:   inner,
		Attempts: 5,
		Delay:    time.Millisecond,
		Sleep:    func(d time.Duration) { slept = append(slept, d) },
	}

	events, err := r.FetchEvents(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
	// Delay grows per attempt.
	want := []time.Duration{time.Millisecond, 2 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestRetryExhaustionFallsBackToEmpty(t *testing.T) {
	inner := &flakySource{failures: 100}
	r := &Retry{
		Source:   inner,
		Attempts: 3,
		Delay:    time.Millisecond,
		Sleep:    func(time.Duration) {},
	}

	events, err := r.FetchEvents(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("exhausted retries must not surface an error, got %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Fatalf("got %v, want an empty (non-nil) slice", events)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakySource{failures: 100}
	r := &Retry{Source: inner, Attempts: 3, Sleep: func(time.Duration) {}}

	if _, err := r.FetchEvents(ctx, time.Time{}, time.Time{}); err == nil {
		t.Fatal("expected the context error")
	}
	if inner.calls != 0 {
		t.Errorf("calls = %d, want none after cancellation", inner.calls)
	}
}
