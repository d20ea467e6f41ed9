package ics

import (
	"context"
	"errors"
	"fmt"
	"time"

	appLog "porschevents/internal/log"
	"porschevents/internal/model"
	"porschevents/internal/source"
)

// ListerOptions bounds which occurrences a Lister reports.
type ListerOptions struct {
	// Horizon is how far ahead recurrences are expanded. Zero means 90 days.
	Horizon time.Duration
	// Lookback is how far back events are kept. Zero means 30 days.
	Lookback time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Lister is a source.EventLister reading iCalendar feeds.
type Lister struct {
	fetcher *Fetcher
	feeds   []Feed
	opts    ListerOptions
}

var _ source.EventLister = (*Lister)(nil)

func NewLister(fetcher *Fetcher, feeds []Feed, opts ListerOptions) *Lister {
	if opts.Horizon <= 0 {
		opts.Horizon = 90 * 24 * time.Hour
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 30 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Lister{fetcher: fetcher, feeds: feeds, opts: opts}
}

// ListEvents fetches every feed and returns the valid events found,
// ordered by start time. It fails only when no feed could be read.
func (l *Lister) ListEvents(ctx context.Context) ([]model.Event, error) {
	results, errs := l.fetcher.FetchAll(ctx, l.feeds)
	if len(results) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", source.ErrUnavailable, errors.Join(errs...))
	}

	var parsed []ParsedEvent
	for _, res := range results {
		evs, err := Parse(res.Feed, res.Body)
		if err != nil {
			appLog.Error("ics parse failed", err, "feed", res.Feed.ID)
			continue
		}
		parsed = append(parsed, evs...)
	}

	w := occurrenceWindow(l.opts.Now(), l.opts.Lookback, l.opts.Horizon)
	occs, err := Expand(parsed, w)
	if err != nil {
		return nil, err
	}

	out := make([]model.Event, 0, len(occs))
	seen := make(map[string]bool, len(occs))
	for _, o := range occs {
		e := ToEvent(o)
		if seen[e.ID] {
			continue
		}
		if err := e.Validate(); err != nil {
			appLog.Warn("dropping invalid feed event", "id", e.ID, "reason", err.Error())
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}

	appLog.Info("ics events listed", "feeds", len(results), "failed", len(errs), "events", len(out))
	return out, nil
}
