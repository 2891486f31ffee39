package view

import (
	"context"
	"strings"
	"sync"
	"time"

	appLog "calwidget/internal/log"
	"calwidget/internal/model"
)

// Source is the calendar-source contract the controller consumes. The
// returned slice must be sorted ascending by start time and pre-filtered
// (no all-day, no cancelled, no birthday calendars).
type Source interface {
	FetchEvents(ctx context.Context, start, end time.Time) ([]model.Event, error)
}

// Defaults for the derived-view geometry. The title budget mirrors a card
// interior (card width minus side padding) under the fixed-advance measurer.
const (
	defaultDays         = 2
	defaultTitleLines   = 2
	defaultTitleWidthPx = 240
	defaultAdvancePx    = 10
)

// Card is the render-ready projection of one event.
type Card struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	TitleLines []string `json:"title_lines"`
	StartLabel string   `json:"start_label"`
	Duration   string   `json:"duration"`
	Color      string   `json:"color"`
	Urgent     bool     `json:"urgent"`
	Location   string   `json:"location,omitempty"`
}

// NextPanel is the countdown panel for the next upcoming event.
type NextPanel struct {
	Countdown string `json:"countdown"`
	Unit      string `json:"unit"`
	Card      Card   `json:"card"`
}

// Snapshot is the complete derived view handed to the rendering layer.
type Snapshot struct {
	GeneratedAt   time.Time  `json:"generated_at"`
	TodayLabel    string     `json:"today_label"`
	TomorrowLabel string     `json:"tomorrow_label"`
	Today         []Card     `json:"today"`
	Tomorrow      []Card     `json:"tomorrow"`
	Next          *NextPanel `json:"next,omitempty"`
}

// Controller owns the event snapshot and derives the widget view from it.
// Refresh (slow tick) is the only path that talks to the source; Tick (fast
// tick) recomputes the countdown and urgency flags from cached events only,
// so its latency is bounded by pure computation.
//
// All state is guarded by one mutex: the scheduler runs Refresh and Tick on
// separate goroutines and the web layer reads snapshots concurrently.
type Controller struct {
	src        Source
	days       int
	titleLines int
	titleWidth int
	measure    MeasureFunc
	now        func() time.Time

	mu             sync.Mutex
	allEvents      []model.Event
	todayEvents    []model.Event
	tomorrowEvents []model.Event
	colors         *ColorMap
	snap           Snapshot
}

// Option configures a Controller.
type Option func(*Controller)

// WithDays sets the event window length in days.
func WithDays(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.days = n
		}
	}
}

// WithClock injects a time source. Tests use this; production code keeps
// the time.Now default.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMeasurer injects the title width measurer and pixel budget used when
// wrapping card titles.
func WithMeasurer(m MeasureFunc, widthPx int) Option {
	return func(c *Controller) {
		if m != nil {
			c.measure = m
		}
		if widthPx > 0 {
			c.titleWidth = widthPx
		}
	}
}

// NewController returns a controller with an empty snapshot. Call Refresh
// to populate it.
func NewController(src Source, opts ...Option) *Controller {
	c := &Controller{
		src:        src,
		days:       defaultDays,
		titleLines: defaultTitleLines,
		titleWidth: defaultTitleWidthPx,
		measure:    RuneMeasurer(defaultAdvancePx),
		now:        time.Now,
		colors:     NewColorMap(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh fetches events for [today 00:00, today+days 00:00) and rebuilds
// the derived view. On fetch failure the previous snapshot is kept
// unchanged (stale but valid) and the error is returned for logging; the
// next refresh tick will try again.
func (c *Controller) Refresh(ctx context.Context) error {
	now := c.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, c.days)

	events, err := c.src.FetchEvents(ctx, start, end)
	if err != nil {
		appLog.Error("event fetch failed, keeping previous snapshot", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.allEvents = events
	c.rebuildLocked(now)
	return nil
}

// Tick recomputes the next-event panel and the urgency flags of the
// existing cards from the cached event list. It never fetches and never
// re-partitions the day columns; an event that ends between refreshes stays
// in its column until the next refresh drops it.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.snap.GeneratedAt = now
	c.snap.Next = c.buildNextLocked(now)
	for i, e := range c.todayEvents {
		c.snap.Today[i].Urgent = IsUrgent(e, now)
	}
	for i, e := range c.tomorrowEvents {
		c.snap.Tomorrow[i].Urgent = IsUrgent(e, now)
	}
}

// NextEvent returns the first event starting strictly after now, in slice
// order (the source sorts ascending by start; ties keep their original
// order). ok is false when nothing is upcoming.
func (c *Controller) NextEvent(now time.Time) (model.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextEventLocked(now)
}

// Snapshot returns a copy of the current derived view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snap
	snap.Today = append([]Card(nil), c.snap.Today...)
	snap.Tomorrow = append([]Card(nil), c.snap.Tomorrow...)
	if c.snap.Next != nil {
		next := *c.snap.Next
		snap.Next = &next
	}
	return snap
}

// Events returns a copy of the cached event list.
func (c *Controller) Events() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Event(nil), c.allEvents...)
}

// Color reports the display color assigned to a calendar name.
func (c *Controller) Color(calendar string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Hex(c.colors.Lookup(calendar))
}

func (c *Controller) nextEventLocked(now time.Time) (model.Event, bool) {
	for _, e := range c.allEvents {
		if e.Start.After(now) {
			return e, true
		}
	}
	return model.Event{}, false
}

// rebuildLocked re-derives the whole view from c.allEvents: drop ended
// events, partition by start date, grow the color map, build cards.
func (c *Controller) rebuildLocked(now time.Time) {
	tomorrow := now.AddDate(0, 0, 1)

	c.todayEvents = c.todayEvents[:0]
	c.tomorrowEvents = c.tomorrowEvents[:0]
	for _, e := range c.allEvents {
		if HasEnded(e, now) {
			continue
		}
		switch {
		case e.StartsOn(now):
			c.todayEvents = append(c.todayEvents, e)
		case e.StartsOn(tomorrow):
			c.tomorrowEvents = append(c.tomorrowEvents, e)
		}
	}

	c.colors.Update(c.todayEvents)
	c.colors.Update(c.tomorrowEvents)

	c.snap = Snapshot{
		GeneratedAt:   now,
		TodayLabel:    now.Format("Monday, January 2"),
		TomorrowLabel: tomorrow.Format("Monday, January 2"),
		Today:         c.buildCardsLocked(c.todayEvents, now),
		Tomorrow:      c.buildCardsLocked(c.tomorrowEvents, now),
		Next:          c.buildNextLocked(now),
	}
}

func (c *Controller) buildCardsLocked(events []model.Event, now time.Time) []Card {
	cards := make([]Card, 0, len(events))
	for _, e := range events {
		cards = append(cards, c.buildCardLocked(e, now))
	}
	return cards
}

func (c *Controller) buildCardLocked(e model.Event, now time.Time) Card {
	return Card{
		ID:         e.ID,
		Title:      e.Title,
		TitleLines: WrapText(e.Title, c.measure, c.titleWidth, c.titleLines),
		StartLabel: startLabel(e.Start),
		Duration:   FormatDuration(e.Minutes()),
		Color:      Hex(c.colors.Lookup(e.Calendar)),
		Urgent:     IsUrgent(e, now),
		Location:   e.Location,
	}
}

func (c *Controller) buildNextLocked(now time.Time) *NextPanel {
	e, ok := c.nextEventLocked(now)
	if !ok {
		return nil
	}
	seconds := int(e.Start.Sub(now) / time.Second)
	display, unit := FormatCountdown(seconds)
	return &NextPanel{
		Countdown: display,
		Unit:      unit,
		Card:      c.buildCardLocked(e, now),
	}
}

// startLabel renders a start time as e.g. "3:04 pm".
func startLabel(t time.Time) string {
	return strings.ToLower(t.Format("3:04 PM"))
}
