package store

import (
	"context"
	"fmt"
	"sync"

	"porschevents/internal/filter"
	"porschevents/internal/log"
	"porschevents/internal/model"
	"porschevents/internal/source"
)

const (
	msgFetchEventsFailed = "Failed to fetch events"
	msgFetchEventFailed  = "Failed to fetch event"
	msgEventNotFound     = "Event not found"
)

// EventsState is a snapshot of the event store.
type EventsState struct {
	Events         []model.Event       `json:"events"`
	FilteredEvents []model.Event       `json:"filteredEvents"`
	SelectedEvent  *model.Event        `json:"selectedEvent"`
	Filters        model.SearchFilters `json:"filters"`
	IsLoading      bool                `json:"isLoading"`
	Error          *Failure            `json:"error"`

	// FetchStatus and DetailStatus track FetchEvents and FetchEventByID.
	FetchStatus  Status `json:"fetchStatus"`
	DetailStatus Status `json:"detailStatus"`
}

func (s EventsState) clone() EventsState {
	out := s
	out.Events = model.CloneEvents(s.Events)
	out.FilteredEvents = model.CloneEvents(s.FilteredEvents)
	if s.SelectedEvent != nil {
		e := s.SelectedEvent.Clone()
		out.SelectedEvent = &e
	}
	out.Filters = s.Filters.Clone()
	out.Error = s.Error.clone()
	return out
}

type EventOptions struct {
	// PreserveFiltersOnRefresh re-applies the held filters after a
	// successful FetchEvents instead of clearing them.
	PreserveFiltersOnRefresh bool
}

// EventStore owns the full event collection and the filtered view
// derived from it. FilteredEvents is always filter.Apply(Events,
// Filters) after any filter, search or clear call.
type EventStore struct {
	src  source.EventLister
	opts EventOptions

	mu      sync.Mutex
	state   EventsState
	gen     uint64
	pending int

	obs observers[EventsState]
}

func NewEventStore(src source.EventLister, opts EventOptions) *EventStore {
	return &EventStore{
		src:  src,
		opts: opts,
		state: EventsState{
			Events:         []model.Event{},
			FilteredEvents: []model.Event{},
			FetchStatus:    StatusIdle,
			DetailStatus:   StatusIdle,
		},
	}
}

// State returns a deep copy of the current state.
func (s *EventStore) State() EventsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every mutation.
// The returned function removes the subscription.
func (s *EventStore) Subscribe(fn func(EventsState)) (unsubscribe func()) {
	return s.obs.subscribe(fn)
}

// update runs fn under the lock and then notifies subscribers.
func (s *EventStore) update(fn func(st *EventsState)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state.clone()
	s.mu.Unlock()
	s.obs.notify(snap)
}

func (s *EventStore) begin(st *EventsState) {
	s.pending++
	st.IsLoading = true
	st.Error = nil
}

func (s *EventStore) end(st *EventsState) {
	s.pending--
	st.IsLoading = s.pending > 0
}

// FetchEvents loads the full collection from the source. A fetch that
// started before another one never overwrites the later one's result,
// whatever order they finish in. On failure Events and FilteredEvents
// are left untouched. On success the held filters are cleared unless
// PreserveFiltersOnRefresh is set.
func (s *EventStore) FetchEvents(ctx context.Context) error {
	return s.fetch(ctx, s.opts.PreserveFiltersOnRefresh)
}

// Refresh reloads the collection like FetchEvents but always re-applies
// the held filters. Background and coalesced reloads use it so they
// never undo a filter the client set.
func (s *EventStore) Refresh(ctx context.Context) error {
	return s.fetch(ctx, true)
}

func (s *EventStore) fetch(ctx context.Context, preserve bool) error {
	var gen uint64
	s.update(func(st *EventsState) {
		s.gen++
		gen = s.gen
		s.begin(st)
		st.FetchStatus = StatusLoading
	})

	events, err := s.src.ListEvents(ctx)

	var result error
	s.update(func(st *EventsState) {
		s.end(st)
		if err != nil {
			result = newOpError(Failure{Kind: KindFetchFailed, Message: msgFetchEventsFailed}, err)
		}
		if gen != s.gen {
			log.Debug("discarding superseded fetch", "generation", gen, "latest", s.gen)
			return
		}
		if err != nil {
			st.Error = FailureOf(result)
			st.FetchStatus = StatusError
			return
		}

		st.Events = model.CloneEvents(events)
		if preserve {
			st.FilteredEvents = s.recompute(st)
		} else {
			st.Filters = model.SearchFilters{}
			st.FilteredEvents = model.CloneEvents(st.Events)
		}
		st.FetchStatus = StatusReady
	})

	if result != nil {
		log.Error("fetch events failed", result, "generation", gen)
		return result
	}
	log.Info("events fetched", "count", len(events), "generation", gen, "preserveFilters", preserve)
	return nil
}

// FetchEventByID selects the event with the given id and returns a copy
// of it. The already fetched collection is searched first; when it is
// empty the source is asked directly.
func (s *EventStore) FetchEventByID(ctx context.Context, id string) (*model.Event, error) {
	var events []model.Event
	s.update(func(st *EventsState) {
		s.begin(st)
		st.DetailStatus = StatusLoading
		// Events is only ever replaced, never mutated in place.
		events = st.Events
	})

	var err error
	if len(events) == 0 {
		events, err = s.src.ListEvents(ctx)
	}

	var (
		found  *model.Event
		result error
	)
	s.update(func(st *EventsState) {
		s.end(st)
		if err != nil {
			result = newOpError(Failure{Kind: KindFetchFailed, Message: msgFetchEventFailed},
				fmt.Errorf("event %s: %w", id, err))
			st.Error = FailureOf(result)
			st.DetailStatus = StatusError
			return
		}
		for _, e := range events {
			if e.ID == id {
				c := e.Clone()
				st.SelectedEvent = &c
				st.DetailStatus = StatusReady
				// The copy in state belongs to the store.
				out := e.Clone()
				found = &out
				return
			}
		}
		result = newOpError(Failure{Kind: KindNotFound, Message: msgEventNotFound},
			fmt.Errorf("event %s", id))
		st.Error = FailureOf(result)
		st.DetailStatus = StatusError
	})
	return found, result
}

// SearchEvents sets the query and recomputes the filtered view.
func (s *EventStore) SearchEvents(query string) {
	s.FilterEvents(model.SearchFilters{Query: &query})
}

// FilterEvents merges partial into the held filters and recomputes the
// filtered view from the full collection.
func (s *EventStore) FilterEvents(partial model.SearchFilters) {
	s.ApplyFilterPatch(model.FilterPatch{Set: partial})
}

// ApplyFilterPatch is FilterEvents with the ability to clear individual
// fields.
func (s *EventStore) ApplyFilterPatch(p model.FilterPatch) {
	s.update(func(st *EventsState) {
		st.Filters = st.Filters.Apply(p)
		st.FilteredEvents = s.recompute(st)
	})
}

// ClearFilters empties the filters and shows the full collection.
func (s *EventStore) ClearFilters() {
	s.update(func(st *EventsState) {
		st.Filters = model.SearchFilters{}
		st.FilteredEvents = model.CloneEvents(st.Events)
	})
}

// SetSelectedEvent replaces the selection. nil clears it.
func (s *EventStore) SetSelectedEvent(e *model.Event) {
	s.update(func(st *EventsState) {
		if e == nil {
			st.SelectedEvent = nil
			return
		}
		c := e.Clone()
		st.SelectedEvent = &c
	})
}

func (s *EventStore) ClearError() {
	s.update(func(st *EventsState) {
		st.Error = nil
	})
}

func (s *EventStore) recompute(st *EventsState) []model.Event {
	out, counts := filter.Explain(st.Events, st.Filters)
	log.Debug("filters applied", "total", len(st.Events), "remaining", len(out), "steps", counts)
	return out
}
