package model

import "time"

// Event represents a single calendar event as consumed by the display
// logic. Values are immutable once constructed by a source adapter; the
// view controller replaces whole event slices instead of mutating them.
//
// ID is the identity of the event (iCalendar UID, plus an instance suffix
// for expanded recurring instances). Calendar is the display name of the
// owning calendar and doubles as the color-assignment key.
type Event struct {
	Title string

	// Start / End are in the configured display timezone.
	// Invariant: End is never before Start; equal values denote a
	// zero-length event.
	Start time.Time
	End   time.Time

	Notes    string
	URL      string
	Location string

	Calendar string
	ID       string
}

// Duration returns the length of the event.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Minutes returns the event length in whole minutes. Non-negative under
// the Start/End invariant.
func (e Event) Minutes() int {
	return int(e.Duration() / time.Minute)
}

// StartsOn reports whether the event starts on the same calendar date as t,
// compared in t's location.
func (e Event) StartsOn(t time.Time) bool {
	y1, m1, d1 := e.Start.In(t.Location()).Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
