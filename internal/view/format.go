package view

import (
	"strconv"
	"time"

	"calwidget/internal/model"
)

// urgentWindow is how far ahead of its start time an event counts as
// "starting soon".
const urgentWindow = 5 * time.Minute

// FormatDuration converts a length in minutes into a compact label:
//
//	45  -> "45m"
//	60  -> "1h"
//	90  -> "1h 30m"
//
// Callers guarantee minutes >= 0 (derived from End - Start).
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return strconv.Itoa(minutes) + "m"
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return strconv.Itoa(hours) + "h"
	}
	return strconv.Itoa(hours) + "h " + strconv.Itoa(mins) + "m"
}

// FormatCountdown converts a number of seconds into a countdown display
// showing only the largest applicable unit, plus its label. Zero or
// negative input means the moment has arrived: ("Now", "").
//
// The seconds branch always labels with "seconds", never "second"; this
// matches the shipped display behavior and is pinned by tests.
func FormatCountdown(seconds int) (display, unit string) {
	if seconds <= 0 {
		return "Now", ""
	}
	if seconds >= 86400 {
		days := seconds / 86400
		if days == 1 {
			return strconv.Itoa(days), "day"
		}
		return strconv.Itoa(days), "days"
	}
	if seconds >= 3600 {
		hours := seconds / 3600
		if hours == 1 {
			return strconv.Itoa(hours), "hour"
		}
		return strconv.Itoa(hours), "hours"
	}
	if seconds >= 60 {
		mins := seconds / 60
		if mins == 1 {
			return strconv.Itoa(mins), "minute"
		}
		return strconv.Itoa(mins), "minutes"
	}
	return strconv.Itoa(seconds), "seconds"
}

// IsUrgent reports whether the event starts within the next five minutes
// (boundary inclusive, "now" itself exclusive) or is currently in progress
// (both boundaries inclusive).
func IsUrgent(e model.Event, now time.Time) bool {
	startsSoon := e.Start.After(now) && !e.Start.After(now.Add(urgentWindow))
	active := !e.Start.After(now) && !now.After(e.End)
	return startsSoon || active
}

// HasEnded reports whether the event's end time is strictly in the past.
// An event at its exact end instant has not ended.
func HasEnded(e model.Event, now time.Time) bool {
	return now.After(e.End)
}
