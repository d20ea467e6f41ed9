// Package filter narrows an event collection by a SearchFilters value.
//
// Predicates run as a fixed chain of narrowing steps over one working set:
//
//	query → category → eventType → location → startDate → endDate → isFree
//
// Every step only ever removes events, so the result is always an
// order-preserving subset of the input regardless of how many filters
// are active. Apply never mutates its input.
package filter

import (
	"strings"

	"porschevents/internal/model"
)

// Step is a single named narrowing stage.
type Step struct {
	Name string
	// Active reports whether the step does anything for f.
	Active func(f model.SearchFilters) bool
	// Keep reports whether e survives the step.
	Keep func(e model.Event, f model.SearchFilters) bool
}

var steps = []Step{
	{
		Name: "query",
		Active: func(f model.SearchFilters) bool {
			return f.Query != nil && *f.Query != ""
		},
		Keep: func(e model.Event, f model.SearchFilters) bool {
			return MatchesQuery(e, *f.Query)
		},
	},
	{
		Name:   "category",
		Active: func(f model.SearchFilters) bool { return f.Category != nil },
		Keep: func(e model.Event, f model.SearchFilters) bool {
			return e.Category == *f.Category
		},
	},
	{
		Name:   "eventType",
		Active: func(f model.SearchFilters) bool { return f.EventType != nil },
		Keep: func(e model.Event, f model.SearchFilters) bool {
			return e.EventType == *f.EventType
		},
	},
	{
		Name: "location",
		Active: func(f model.SearchFilters) bool {
			return f.Location != nil && *f.Location != ""
		},
		Keep: func(e model.Event, f model.SearchFilters) bool {
			return containsFold(e.Location, *f.Location)
		},
	},
	{
		Name:   "startDate",
		Active: func(f model.SearchFilters) bool { return f.StartDate != nil },
		Keep: func(e model.Event, f model.SearchFilters) bool {
			return !e.StartDate.Before(*f.StartDate)
		},
	},
	{
		Name:   "endDate",
		Active: func(f model.SearchFilters) bool { return f.EndDate != nil },
		Keep: func(e model.Event, f model.SearchFilters) bool {
			return !e.EndDate.After(*f.EndDate)
		},
	},
	{
		Name:   "isFree",
		Active: func(f model.SearchFilters) bool { return f.IsFree != nil },
		Keep: func(e model.Event, f model.SearchFilters) bool {
			return e.IsFree == *f.IsFree
		},
	},
}

// Steps returns the pipeline stages in evaluation order.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Apply returns the events matching every active predicate of f, in
// their original order. The result is always a fresh slice.
func Apply(events []model.Event, f model.SearchFilters) []model.Event {
	out, _ := run(events, f, false)
	return out
}

// StepCount records how many events survived one stage.
type StepCount struct {
	Step      string
	Remaining int
}

// Explain runs the pipeline like Apply and additionally reports the
// survivor count after each active stage.
func Explain(events []model.Event, f model.SearchFilters) ([]model.Event, []StepCount) {
	return run(events, f, true)
}

func run(events []model.Event, f model.SearchFilters, trace bool) ([]model.Event, []StepCount) {
	working := make([]model.Event, len(events))
	copy(working, events)

	var counts []StepCount
	for _, s := range steps {
		if !s.Active(f) {
			continue
		}
		kept := working[:0:0]
		for _, e := range working {
			if s.Keep(e, f) {
				kept = append(kept, e)
			}
		}
		working = kept
		if trace {
			counts = append(counts, StepCount{Step: s.Name, Remaining: len(working)})
		}
	}
	return working, counts
}

// MatchesQuery reports whether q occurs, case-insensitively, in the
// title, the description or any tag of e. q is matched as given, so a
// query of spaces only matches text containing them. An empty query
// matches all.
func MatchesQuery(e model.Event, q string) bool {
	if q == "" {
		return true
	}
	if containsFold(e.Title, q) || containsFold(e.Description, q) {
		return true
	}
	for _, tag := range e.Tags {
		if containsFold(tag, q) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
