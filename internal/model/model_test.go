package model

import (
	"testing"
	"time"
)

func TestDurationHelpers(t *testing.T) {
	start := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)
	e := Event{Start: start, End: start.Add(90 * time.Minute)}

	if e.Duration() != 90*time.Minute {
		t.Errorf("Duration = %v", e.Duration())
	}
	if e.Minutes() != 90 {
		t.Errorf("Minutes = %d", e.Minutes())
	}

	zero := Event{Start: start, End: start}
	if zero.Minutes() != 0 {
		t.Errorf("zero-length Minutes = %d", zero.Minutes())
	}
}

func TestStartsOn(t *testing.T) {
	start := time.Date(2026, 8, 21, 23, 30, 0, 0, time.UTC)
	e := Event{Start: start, End: start.Add(time.Hour)}

	if !e.StartsOn(time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC)) {
		t.Error("event must match its own start date")
	}
	if e.StartsOn(time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)) {
		t.Error("event spilling past midnight still starts on the 21st")
	}
}
