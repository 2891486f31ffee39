package source

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calwidget/internal/log"
)

// parsedEvent is the normalized representation of one VEVENT before
// recurrence expansion.
type parsedEvent struct {
	UID string
	Seq int

	Summary     string
	Description string
	Location    string
	URL         string
	Status      string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule     string
	ExDates      []time.Time
	RecurrenceID *time.Time // RECURRENCE-ID in the event's own timezone
	IsOverride   bool
}

// parseICS parses a single ICS payload into parsed events. It relies on the
// library's VTIMEZONE/TZID handling for time values, detects all-day events
// from the DTSTART value form, and records RRULE/EXDATE/RECURRENCE-ID for
// the expansion step without expanding anything itself.
func parseICS(feedID string, body []byte) ([]parsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "feed", feedID)
		return nil, err
	}

	events := make([]parsedEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			// Skip the broken VEVENT, keep the rest of the feed.
			appLog.Error("vevent parse failed", perr, "feed", feedID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "feed", feedID, "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (parsedEvent, error) {
	var out parsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if seqProp := ve.GetProperty(ical.ComponentPropertySequence); seqProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(seqProp.Value)); err == nil {
			out.Seq = n
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentProperty("URL")); p != nil {
		out.URL = p.Value
	}
	if p := ve.GetProperty(ical.ComponentProperty("STATUS")); p != nil {
		out.Status = strings.ToUpper(strings.TrimSpace(p.Value))
	}

	start, _ := ve.GetStartAt()
	end, _ := ve.GetEndAt()
	out.Start = start
	out.End = end

	// All-day when DTSTART carries VALUE=DATE or a date-only value.
	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		if params := dtStartProp.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				out.AllDay = true
			}
		}
		if !strings.Contains(dtStartProp.Value, "T") {
			out.AllDay = true
		}
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	// EXDATE may appear multiple times, each with a comma-separated list.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if ridProp := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); ridProp != nil {
		if t, err := parseICSTime(ridProp.Value); err == nil {
			out.RecurrenceID = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// parseICSTime parses basic ICS date / date-time forms. Used for
// EXDATE/RECURRENCE-ID values where full parameter context is not needed.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g. 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	// Floating local date-time, e.g. 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	// Date-only (all-day), e.g. 20250101
	return time.ParseInLocation("20060102", v, time.Local)
}
