package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"calwidget/internal/model"
)

type fakeSource struct {
	events []model.Event
	err    error

	calls    int
	gotStart time.Time
	gotEnd   time.Time
}

func (f *fakeSource) FetchEvents(_ context.Context, start, end time.Time) ([]model.Event, error) {
	f.calls++
	f.gotStart, f.gotEnd = start, end
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

// fakeClock is a mutable time source for controller tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var testNow = time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)

// fixture: one ended, one active, one future tomorrow. Sorted by start, as
// the source contract requires.
func fixtureEvents() []model.Event {
	return []model.Event{
		{Title: "Morning sync", Start: testNow.Add(-3 * time.Hour), End: testNow.Add(-2 * time.Hour), Calendar: "Work", ID: "past"},
		{Title: "Design review", Start: testNow.Add(-30 * time.Minute), End: testNow.Add(30 * time.Minute), Calendar: "Work", ID: "active"},
		{Title: "Dentist", Start: testNow.Add(22 * time.Hour), End: testNow.Add(23 * time.Hour), Calendar: "Personal", ID: "future"},
	}
}

func newTestController(src Source, clock *fakeClock) *Controller {
	return NewController(src, WithDays(2), WithClock(clock.Now))
}

func TestControllerRefreshPartition(t *testing.T) {
	src := &fakeSource{events: fixtureEvents()}
	clock := &fakeClock{t: testNow}
	ctrl := newTestController(src, clock)

	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	wantStart := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	if !src.gotStart.Equal(wantStart) {
		t.Errorf("fetch window start = %v, want %v", src.gotStart, wantStart)
	}
	if !src.gotEnd.Equal(wantStart.AddDate(0, 0, 2)) {
		t.Errorf("fetch window end = %v, want %v", src.gotEnd, wantStart.AddDate(0, 0, 2))
	}

	snap := ctrl.Snapshot()
	if len(snap.Today) != 1 || snap.Today[0].ID != "active" {
		t.Fatalf("today = %+v, want exactly the active event", snap.Today)
	}
	if !snap.Today[0].Urgent {
		t.Error("active event must be flagged urgent")
	}
	if snap.Today[0].Duration != "1h" {
		t.Errorf("active duration = %q, want 1h", snap.Today[0].Duration)
	}
	if len(snap.Tomorrow) != 1 || snap.Tomorrow[0].ID != "future" {
		t.Fatalf("tomorrow = %+v, want exactly the future event", snap.Tomorrow)
	}

	if snap.Next == nil {
		t.Fatal("expected a next-event panel")
	}
	if snap.Next.Card.ID != "future" {
		t.Errorf("next event = %q, want future", snap.Next.Card.ID)
	}
	if snap.Next.Countdown != "22" || snap.Next.Unit != "hours" {
		t.Errorf("countdown = (%q, %q), want (22, hours)", snap.Next.Countdown, snap.Next.Unit)
	}
}

func TestControllerRefreshErrorKeepsPreviousSnapshot(t *testing.T) {
	src := &fakeSource{events: fixtureEvents()}
	clock := &fakeClock{t: testNow}
	ctrl := newTestController(src, clock)

	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := ctrl.Snapshot()

	src.err = errors.New("calendar store unavailable")
	clock.Advance(time.Minute)
	if err := ctrl.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	after := ctrl.Snapshot()
	if len(after.Today) != len(before.Today) || len(after.Tomorrow) != len(before.Tomorrow) {
		t.Error("failed refresh must not change the derived view")
	}
	if len(ctrl.Events()) != len(fixtureEvents()) {
		t.Error("failed refresh must keep the cached event list")
	}
}

func TestControllerTickRecomputesWithoutFetch(t *testing.T) {
	future := model.Event{
		Title: "1:1", Calendar: "Work", ID: "soon",
		Start: testNow.Add(10 * time.Minute),
		End:   testNow.Add(40 * time.Minute),
	}
	src := &fakeSource{events: []model.Event{future}}
	clock := &fakeClock{t: testNow}
	ctrl := newTestController(src, clock)

	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.Next == nil || snap.Next.Countdown != "10" || snap.Next.Unit != "minutes" {
		t.Fatalf("initial countdown = %+v, want 10 minutes", snap.Next)
	}
	if snap.Today[0].Urgent {
		t.Fatal("event 10 minutes out must not be urgent yet")
	}

	clock.Advance(9*time.Minute + 55*time.Second)
	ctrl.Tick()

	snap = ctrl.Snapshot()
	if snap.Next == nil || snap.Next.Countdown != "5" || snap.Next.Unit != "seconds" {
		t.Fatalf("ticked countdown = %+v, want 5 seconds", snap.Next)
	}
	if !snap.Today[0].Urgent {
		t.Error("event starting in 5 seconds must be urgent after tick")
	}
	if src.calls != 1 {
		t.Errorf("tick performed %d fetches, want none beyond the refresh", src.calls-1)
	}
}

func TestControllerTickBeforeRefresh(t *testing.T) {
	ctrl := newTestController(&fakeSource{}, &fakeClock{t: testNow})
	ctrl.Tick() // must not panic on an empty snapshot

	if snap := ctrl.Snapshot(); snap.Next != nil {
		t.Error("empty controller must have no next-event panel")
	}
}

func TestControllerNextEventTieOrder(t *testing.T) {
	start := testNow.Add(time.Hour)
	src := &fakeSource{events: []model.Event{
		{Title: "a", Start: start, End: start.Add(time.Hour), Calendar: "Work", ID: "a"},
		{Title: "b", Start: start, End: start.Add(2 * time.Hour), Calendar: "Work", ID: "b"},
	}}
	clock := &fakeClock{t: testNow}
	ctrl := newTestController(src, clock)

	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	e, ok := ctrl.NextEvent(testNow)
	if !ok || e.ID != "a" {
		t.Errorf("NextEvent = (%q, %v), want the first of the tied pair", e.ID, ok)
	}

	// An event starting exactly now is not "next": strictly after only.
	e, ok = ctrl.NextEvent(start)
	if ok {
		t.Errorf("NextEvent at the tied start = %q, want none", e.ID)
	}
}

func TestControllerNoUpcomingEvents(t *testing.T) {
	src := &fakeSource{events: []model.Event{
		{Title: "done", Start: testNow.Add(-2 * time.Hour), End: testNow.Add(-time.Hour), Calendar: "Work", ID: "done"},
	}}
	ctrl := newTestController(src, &fakeClock{t: testNow})

	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.Next != nil {
		t.Error("no future events: next panel must be nil")
	}
	if len(snap.Today) != 0 {
		t.Error("ended events must not appear in the today column")
	}
}
