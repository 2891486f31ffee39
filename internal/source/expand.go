package source

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calwidget/internal/log"
)

// maxInstancesPerEvent caps recurrence expansion so a malformed RRULE
// cannot blow up memory.
const maxInstancesPerEvent = 5000

// instance is a single concrete occurrence of an event inside the
// requested window, before conversion to model.Event.
type instance struct {
	ev        parsedEvent // possibly the matching override
	start     time.Time
	end       time.Time
	recurring bool
}

type expandConfig struct {
	loc        *time.Location
	rangeStart time.Time
	rangeEnd   time.Time
}

// expandInstances turns parsed events into concrete instances within the
// window: plain events pass through when they overlap the range; recurring
// events are expanded via RRULE with EXDATE removal and RECURRENCE-ID
// overrides applied. All instants come out in cfg.loc.
func expandInstances(events []parsedEvent, cfg expandConfig) []instance {
	if cfg.loc == nil {
		cfg.loc = time.Local
	}

	baseByUID := make(map[string][]parsedEvent)
	overridesByUID := make(map[string][]parsedEvent)
	uidOrder := make([]string, 0, len(events))

	for _, ev := range events {
		if ev.IsOverride && ev.RecurrenceID != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			uidOrder = append(uidOrder, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	out := make([]instance, 0, len(events))
	for _, uid := range uidOrder {
		for _, ev := range baseByUID[uid] {
			if ev.RawRRule == "" {
				out = append(out, expandSingle(ev, overridesByUID[uid], cfg)...)
				continue
			}
			ins, hitCap := expandRecurring(ev, overridesByUID[uid], cfg)
			if hitCap {
				appLog.Error("recurrence expansion truncated",
					errors.New("max instances reached"), "uid", uid, "cap", maxInstancesPerEvent)
			}
			out = append(out, ins...)
		}
	}
	return out
}

func expandSingle(ev parsedEvent, overrides []parsedEvent, cfg expandConfig) []instance {
	if !rangesOverlap(ev.Start, ev.End, cfg.rangeStart, cfg.rangeEnd) {
		return nil
	}

	start, end := ev.Start, ev.End
	if o, ok := overrideForStart(overrides, start); ok {
		start, end = o.Start, o.End
		ev = o
	}

	return []instance{{
		ev:    ev,
		start: start.In(cfg.loc),
		end:   end.In(cfg.loc),
	}}
}

func expandRecurring(ev parsedEvent, overrides []parsedEvent, cfg expandConfig) ([]instance, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("rrule parse failed", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Between() compares in the event's own location.
	rangeStart := cfg.rangeStart.In(ev.Start.Location())
	rangeEnd := cfg.rangeEnd.In(ev.Start.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)

	hitCap := false
	if len(occTimes) > maxInstancesPerEvent {
		occTimes = occTimes[:maxInstancesPerEvent]
		hitCap = true
	}

	duration := ev.End.Sub(ev.Start)
	out := make([]instance, 0, len(occTimes))
	for _, occStart := range occTimes {
		occEnd := occStart.Add(duration)
		if ev.AllDay {
			// All-day occurrences span [date 00:00, next day 00:00).
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.Add(24 * time.Hour)
		}

		start, end, base := occStart, occEnd, ev
		if o, ok := overrideForStart(overrides, occStart); ok {
			start, end, base = o.Start, o.End, o
		}

		out = append(out, instance{
			ev:        base,
			start:     start.In(cfg.loc),
			end:       end.In(cfg.loc),
			recurring: true,
		})
	}
	return out, hitCap
}

// overrideForStart finds an override whose RECURRENCE-ID equals the given
// instance start.
func overrideForStart(overrides []parsedEvent, start time.Time) (parsedEvent, bool) {
	for _, ov := range overrides {
		if ov.RecurrenceID == nil {
			continue
		}
		if ov.RecurrenceID.In(start.Location()).Equal(start) {
			return ov, true
		}
	}
	return parsedEvent{}, false
}

func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
