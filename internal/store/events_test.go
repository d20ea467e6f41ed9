package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porschevents/internal/model"
	"porschevents/internal/source"
	"porschevents/internal/store"
)

// fakeLister serves scripted results. Each call takes the next entry.
type fakeLister struct {
	mu      sync.Mutex
	results []listResult
	calls   int
}

type listResult struct {
	events []model.Event
	err    error
	// gate, when non-nil, blocks the call until closed.
	gate chan struct{}
}

func (f *fakeLister) ListEvents(ctx context.Context) ([]model.Event, error) {
	f.mu.Lock()
	r := f.results[f.calls%len(f.results)]
	f.calls++
	f.mu.Unlock()
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return model.CloneEvents(r.events), r.err
}

func (f *fakeLister) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fixtureStore(t *testing.T, opts store.EventOptions) *store.EventStore {
	t.Helper()
	fx, err := source.NewFixture()
	require.NoError(t, err)
	return store.NewEventStore(fx, opts)
}

func ids(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func Test_EventStore_InitialState(t *testing.T) {
	s := store.NewEventStore(&fakeLister{}, store.EventOptions{})
	st := s.State()

	assert.Empty(t, st.Events)
	assert.NotNil(t, st.Events)
	assert.Empty(t, st.FilteredEvents)
	assert.Nil(t, st.SelectedEvent)
	assert.True(t, st.Filters.IsEmpty())
	assert.False(t, st.IsLoading)
	assert.Nil(t, st.Error)
	assert.Equal(t, store.StatusIdle, st.FetchStatus)
	assert.Equal(t, store.StatusIdle, st.DetailStatus)
}

func Test_EventStore_FetchEvents(t *testing.T) {
	s := fixtureStore(t, store.EventOptions{})

	require.NoError(t, s.FetchEvents(context.Background()))

	st := s.State()
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, ids(st.Events))
	assert.Equal(t, ids(st.Events), ids(st.FilteredEvents))
	assert.False(t, st.IsLoading)
	assert.Nil(t, st.Error)
	assert.Equal(t, store.StatusReady, st.FetchStatus)
}

func Test_EventStore_FetchEvents_IsLoadingWhileInFlight(t *testing.T) {
	gate := make(chan struct{})
	lister := &fakeLister{results: []listResult{{events: source.FixtureEvents(), gate: gate}}}
	s := store.NewEventStore(lister, store.EventOptions{})

	done := make(chan error, 1)
	go func() { done <- s.FetchEvents(context.Background()) }()

	require.Eventually(t, func() bool { return s.State().IsLoading }, testWait, testTick)
	assert.Equal(t, store.StatusLoading, s.State().FetchStatus)

	close(gate)
	require.NoError(t, <-done)
	assert.False(t, s.State().IsLoading)
}

func Test_EventStore_FetchFailureKeepsPriorState(t *testing.T) {
	lister := &fakeLister{results: []listResult{
		{events: source.FixtureEvents()},
		{err: errors.New("boom")},
	}}
	s := store.NewEventStore(lister, store.EventOptions{})
	ctx := context.Background()

	require.NoError(t, s.FetchEvents(ctx))
	s.FilterEvents(model.SearchFilters{IsFree: model.Ptr(true)})

	err := s.FetchEvents(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrFetchFailed)
	assert.Equal(t, store.KindFetchFailed, store.KindOf(err))

	st := s.State()
	assert.Len(t, st.Events, 6)
	assert.Equal(t, []string{"1", "4"}, ids(st.FilteredEvents))
	require.NotNil(t, st.Error)
	assert.Equal(t, store.KindFetchFailed, st.Error.Kind)
	assert.Equal(t, "Failed to fetch events", st.Error.Message)
	assert.Equal(t, store.StatusError, st.FetchStatus)
	assert.False(t, st.IsLoading)

	s.ClearError()
	assert.Nil(t, s.State().Error)
}

func Test_EventStore_RefetchResetsFiltersByDefault(t *testing.T) {
	s := fixtureStore(t, store.EventOptions{})
	ctx := context.Background()

	require.NoError(t, s.FetchEvents(ctx))
	s.FilterEvents(model.SearchFilters{Category: model.Ptr(model.CategoryMeet)})
	require.Len(t, s.State().FilteredEvents, 2)

	require.NoError(t, s.FetchEvents(ctx))

	st := s.State()
	assert.True(t, st.Filters.IsEmpty())
	assert.Len(t, st.FilteredEvents, 6)
}

func Test_EventStore_RefetchCanPreserveFilters(t *testing.T) {
	s := fixtureStore(t, store.EventOptions{PreserveFiltersOnRefresh: true})
	ctx := context.Background()

	require.NoError(t, s.FetchEvents(ctx))
	s.FilterEvents(model.SearchFilters{Category: model.Ptr(model.CategoryMeet)})

	require.NoError(t, s.FetchEvents(ctx))

	st := s.State()
	require.NotNil(t, st.Filters.Category)
	assert.Equal(t, model.CategoryMeet, *st.Filters.Category)
	assert.Equal(t, []string{"1", "4"}, ids(st.FilteredEvents))
}

func Test_EventStore_RefreshKeepsFiltersWithDefaultOptions(t *testing.T) {
	s := fixtureStore(t, store.EventOptions{})
	ctx := context.Background()

	require.NoError(t, s.FetchEvents(ctx))
	s.FilterEvents(model.SearchFilters{Category: model.Ptr(model.CategoryMeet)})

	require.NoError(t, s.Refresh(ctx))

	st := s.State()
	require.NotNil(t, st.Filters.Category)
	assert.Equal(t, model.CategoryMeet, *st.Filters.Category)
	assert.Equal(t, []string{"1", "4"}, ids(st.FilteredEvents))
	assert.Len(t, st.Events, 6)

	// An explicit fetch still resets.
	require.NoError(t, s.FetchEvents(ctx))
	assert.True(t, s.State().Filters.IsEmpty())
}

func Test_EventStore_RefreshFailureCarriesFailure(t *testing.T) {
	lister := &fakeLister{results: []listResult{{err: errors.New("boom")}}}
	s := store.NewEventStore(lister, store.EventOptions{})

	err := s.Refresh(context.Background())
	require.Error(t, err)
	f := store.FailureOf(err)
	require.NotNil(t, f)
	assert.Equal(t, store.KindFetchFailed, f.Kind)
	assert.Equal(t, "Failed to fetch events", f.Message)
	assert.Contains(t, err.Error(), "boom")
}

func Test_EventStore_LaterFetchWins(t *testing.T) {
	slow := make(chan struct{})
	old := []model.Event{{ID: "old"}}
	fresh := []model.Event{{ID: "fresh"}}
	lister := &fakeLister{results: []listResult{
		{events: old, gate: slow},
		{events: fresh},
	}}
	s := store.NewEventStore(lister, store.EventOptions{})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- s.FetchEvents(ctx) }()
	require.Eventually(t, func() bool { return lister.Calls() == 1 }, testWait, testTick)

	// Started second, finishes first.
	require.NoError(t, s.FetchEvents(ctx))
	assert.True(t, s.State().IsLoading, "the first fetch is still in flight")

	close(slow)
	require.NoError(t, <-first)

	st := s.State()
	assert.Equal(t, []string{"fresh"}, ids(st.Events))
	assert.False(t, st.IsLoading)
}

func Test_EventStore_FetchEventByID(t *testing.T) {
	s := fixtureStore(t, store.EventOptions{})
	ctx := context.Background()
	require.NoError(t, s.FetchEvents(ctx))

	e, err := s.FetchEventByID(ctx, "3")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "Track Day - Porsche Only", e.Title)
	st := s.State()
	require.NotNil(t, st.SelectedEvent)
	assert.Equal(t, "Track Day - Porsche Only", st.SelectedEvent.Title)
	assert.Equal(t, store.StatusReady, st.DetailStatus)

	// The returned event is the caller's own copy.
	e.Title = "changed"
	assert.Equal(t, "Track Day - Porsche Only", s.State().SelectedEvent.Title)

	e, err = s.FetchEventByID(ctx, "999")
	assert.Nil(t, e)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, store.KindNotFound, store.KindOf(err))
	assert.Equal(t, &store.Failure{Kind: store.KindNotFound, Message: "Event not found"}, store.FailureOf(err))

	st = s.State()
	require.NotNil(t, st.Error)
	assert.Equal(t, store.KindNotFound, st.Error.Kind)
	assert.Equal(t, "Event not found", st.Error.Message)
	assert.Equal(t, store.StatusError, st.DetailStatus)
	// The previous selection survives a miss.
	require.NotNil(t, st.SelectedEvent)
	assert.Equal(t, "3", st.SelectedEvent.ID)
}

func Test_EventStore_FetchEventByID_AsksSourceWhenEmpty(t *testing.T) {
	lister := &fakeLister{results: []listResult{{events: source.FixtureEvents()}}}
	s := store.NewEventStore(lister, store.EventOptions{})

	e, err := s.FetchEventByID(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "5", e.ID)

	st := s.State()
	require.NotNil(t, st.SelectedEvent)
	assert.Equal(t, "5", st.SelectedEvent.ID)
	assert.Empty(t, st.Events, "a detail lookup does not populate the collection")
	assert.Equal(t, 1, lister.Calls())
}

func Test_EventStore_FetchEventByID_SourceFailure(t *testing.T) {
	lister := &fakeLister{results: []listResult{{err: errors.New("down")}}}
	s := store.NewEventStore(lister, store.EventOptions{})

	_, err := s.FetchEventByID(context.Background(), "1")
	assert.ErrorIs(t, err, store.ErrFetchFailed)
	assert.Equal(t, "Failed to fetch event", store.FailureOf(err).Message)
	assert.Equal(t, "Failed to fetch event", s.State().Error.Message)
}

func Test_EventStore_FiltersRederiveFromFullCollection(t *testing.T) {
	s := fixtureStore(t, store.EventOptions{})
	require.NoError(t, s.FetchEvents(context.Background()))

	s.FilterEvents(model.SearchFilters{Category: model.Ptr(model.CategoryMeet)})
	assert.Equal(t, []string{"1", "4"}, ids(s.State().FilteredEvents))

	// Replacing the category widens again instead of narrowing the
	// previous subset.
	s.FilterEvents(model.SearchFilters{Category: model.Ptr(model.CategoryRally)})
	assert.Equal(t, []string{"6"}, ids(s.State().FilteredEvents))

	s.SearchEvents("rally")
	st := s.State()
	require.NotNil(t, st.Filters.Query)
	assert.Equal(t, "rally", *st.Filters.Query)
	assert.Equal(t, []string{"6"}, ids(st.FilteredEvents))

	s.ApplyFilterPatch(model.FilterPatch{Unset: []model.FilterField{model.FieldCategory, model.FieldQuery}})
	assert.Len(t, s.State().FilteredEvents, 6)
}

func Test_EventStore_SearchKeepsOtherFilters(t *testing.T) {
	s := fixtureStore(t, store.EventOptions{})
	require.NoError(t, s.FetchEvents(context.Background()))

	s.FilterEvents(model.SearchFilters{IsFree: model.Ptr(true)})
	s.SearchEvents("coffee")

	assert.Equal(t, []string{"4"}, ids(s.State().FilteredEvents))
}

func Test_EventStore_ClearFilters(t *testing.T) {
	s := fixtureStore(t, store.EventOptions{})
	require.NoError(t, s.FetchEvents(context.Background()))

	s.FilterEvents(model.SearchFilters{Location: model.Ptr("Monterey")})
	require.Len(t, s.State().FilteredEvents, 1)

	s.ClearFilters()
	st := s.State()
	assert.True(t, st.Filters.IsEmpty())
	assert.Equal(t, ids(st.Events), ids(st.FilteredEvents))
}

func Test_EventStore_SetSelectedEvent(t *testing.T) {
	s := store.NewEventStore(&fakeLister{}, store.EventOptions{})

	e := model.Event{ID: "x", Tags: []string{"a"}}
	s.SetSelectedEvent(&e)
	e.Tags[0] = "changed"

	st := s.State()
	require.NotNil(t, st.SelectedEvent)
	assert.Equal(t, "a", st.SelectedEvent.Tags[0])

	s.SetSelectedEvent(nil)
	assert.Nil(t, s.State().SelectedEvent)
}

func Test_EventStore_StateIsACopy(t *testing.T) {
	s := fixtureStore(t, store.EventOptions{})
	require.NoError(t, s.FetchEvents(context.Background()))

	st := s.State()
	st.Events[0].Title = "changed"
	st.FilteredEvents = nil

	again := s.State()
	assert.Equal(t, "Porsche 911 Meet & Greet", again.Events[0].Title)
	assert.Len(t, again.FilteredEvents, 6)
}

func Test_EventStore_Subscribe(t *testing.T) {
	s := fixtureStore(t, store.EventOptions{})

	var mu sync.Mutex
	var seen []store.EventsState
	unsubscribe := s.Subscribe(func(st store.EventsState) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	require.NoError(t, s.FetchEvents(context.Background()))

	mu.Lock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsLoading)
	assert.False(t, seen[1].IsLoading)
	assert.Len(t, seen[1].FilteredEvents, 6)
	mu.Unlock()

	unsubscribe()
	unsubscribe()
	s.ClearFilters()

	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}
