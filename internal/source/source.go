// Package source provides calendar event sources for the widget. The main
// implementation is an ICS feed adapter (fetch, parse, recurrence
// expansion, filtering); Multi merges several sources and Retry adds the
// bounded-retry / empty-fallback policy the view controller relies on.
package source

import (
	"context"
	"sort"
	"time"

	appLog "calwidget/internal/log"
	"calwidget/internal/model"
)

// Source produces calendar events for a half-open time range. The returned
// slice is sorted ascending by start time and pre-filtered: no all-day
// events, no cancelled events, no events from calendars whose name contains
// "birthday" (case-insensitive).
type Source interface {
	FetchEvents(ctx context.Context, start, end time.Time) ([]model.Event, error)
}

// Multi merges several sources into one. Individual source failures are
// logged and skipped; an error is returned only when every source failed,
// so one broken feed cannot blank the whole widget.
type Multi []Source

func (m Multi) FetchEvents(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	merged := make([]model.Event, 0)
	var lastErr error
	failures := 0

	for _, s := range m {
		events, err := s.FetchEvents(ctx, start, end)
		if err != nil {
			failures++
			lastErr = err
			appLog.Error("source fetch failed", err)
			continue
		}
		merged = append(merged, events...)
	}

	if len(m) > 0 && failures == len(m) {
		return nil, lastErr
	}

	SortEvents(merged)
	return merged, nil
}

// SortEvents sorts events ascending by start time, keeping the original
// order of equal starts.
func SortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}
