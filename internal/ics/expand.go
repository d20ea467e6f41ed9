package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "porschevents/internal/log"
)

const defaultMaxOccurrences = 500

// Window bounds recurrence expansion.
type Window struct {
	Start time.Time
	End   time.Time

	// MaxOccurrences caps the instances produced per UID. Zero means
	// defaultMaxOccurrences.
	MaxOccurrences int
}

// Widen returns w grown by d on both sides.
func (w Window) Widen(d time.Duration) Window {
	w.Start = w.Start.Add(-d)
	w.End = w.End.Add(d)
	return w
}

// Occurrence is one concrete instance of a ParsedEvent.
type Occurrence struct {
	Event ParsedEvent
	Start time.Time
	End   time.Time
	// Recurring is set for instances produced from an RRULE. Instance is
	// then the start the rule generated, before any override moved it.
	Recurring bool
	Instance  time.Time
}

// Expand turns parsed events into occurrences that overlap w. RRULEs are
// expanded with EXDATE removal, and RECURRENCE-ID overrides replace the
// instance they name. The result is ordered by start time, then UID.
func Expand(events []ParsedEvent, w Window) ([]Occurrence, error) {
	if w.End.Before(w.Start) {
		return nil, errors.New("expand: window ends before it starts")
	}
	if w.MaxOccurrences <= 0 {
		w.MaxOccurrences = defaultMaxOccurrences
	}

	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		} else {
			bases[ev.UID] = append(bases[ev.UID], ev)
		}
	}

	out := make([]Occurrence, 0)
	for uid, evs := range bases {
		for _, ev := range evs {
			if ev.RawRRule == "" {
				if overlaps(ev.Start, ev.End, w.Start, w.End) {
					out = append(out, Occurrence{Event: ev, Start: ev.Start, End: ev.End})
				}
				continue
			}
			occ, truncated := expandRecurring(ev, overrides[uid], w)
			if truncated {
				appLog.Warn("recurrence truncated", "uid", uid, "cap", w.MaxOccurrences)
			}
			out = append(out, occ...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Event.UID < out[j].Event.UID
	})
	return out, nil
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, w Window) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("invalid RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	dur := ev.End.Sub(ev.Start)
	// Widen the lower bound by the duration so instances already under
	// way at w.Start are kept.
	starts := set.Between(w.Start.Add(-dur).In(loc), w.End.In(loc), true)

	truncated := false
	if len(starts) > w.MaxOccurrences {
		starts = starts[:w.MaxOccurrences]
		truncated = true
	}

	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		occ := Occurrence{Event: ev, Start: s, End: s.Add(dur), Recurring: true, Instance: s}
		if o, ok := overrideFor(overrides, s); ok {
			occ.Event = o
			occ.Start = o.Start
			occ.End = o.End
		}
		out = append(out, occ)
	}
	return out, truncated
}

func overrideFor(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
