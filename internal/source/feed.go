package source

import (
	"context"
	"strings"
	"time"

	"calwidget/internal/model"
)

// Feed is a single ICS subscription exposed as a Source. It owns the
// fetch → parse → expand → filter pipeline for one calendar.
type Feed struct {
	id      string
	name    string
	url     string
	fetcher *Fetcher
	loc     *time.Location
}

// NewFeed constructs a feed source. name is the calendar display name
// attached to every event; loc is the display timezone (nil means local).
func NewFeed(id, name, url string, fetcher *Fetcher, loc *time.Location) *Feed {
	if loc == nil {
		loc = time.Local
	}
	return &Feed{
		id:      id,
		name:    name,
		url:     url,
		fetcher: fetcher,
		loc:     loc,
	}
}

// FetchEvents implements Source. The result is sorted ascending by start
// and filtered per the display contract: no all-day events, no cancelled
// events, and nothing at all from birthday calendars.
func (f *Feed) FetchEvents(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	if isBirthdayCalendar(f.name) {
		return []model.Event{}, nil
	}

	res, err := f.fetcher.Fetch(ctx, f.id, f.url)
	if err != nil {
		return nil, err
	}

	parsed, err := parseICS(f.id, res.Body)
	if err != nil {
		return nil, err
	}

	instances := expandInstances(parsed, expandConfig{
		loc:        f.loc,
		rangeStart: start,
		rangeEnd:   end,
	})

	events := make([]model.Event, 0, len(instances))
	for _, in := range instances {
		if in.ev.AllDay {
			continue
		}
		if in.ev.Status == "CANCELLED" {
			continue
		}
		if in.end.Before(in.start) {
			// Malformed: drop rather than violate the End >= Start invariant.
			continue
		}
		events = append(events, model.Event{
			Title:    in.ev.Summary,
			Start:    in.start,
			End:      in.end,
			Notes:    in.ev.Description,
			URL:      in.ev.URL,
			Location: in.ev.Location,
			Calendar: f.name,
			ID:       eventID(in),
		})
	}

	SortEvents(events)
	return events, nil
}

// eventID derives the event identity: the iCalendar UID, with a start-time
// suffix to keep expanded recurring instances distinct.
func eventID(in instance) string {
	if !in.recurring {
		return in.ev.UID
	}
	return in.ev.UID + "/" + in.start.Format(time.RFC3339)
}

func isBirthdayCalendar(name string) bool {
	return strings.Contains(strings.ToLower(name), "birthday")
}
