package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porschevents/internal/config"
	"porschevents/internal/model"
	"porschevents/internal/session"
	"porschevents/internal/source"
	"porschevents/internal/store"
)

func TestBuildSource_Fixture(t *testing.T) {
	conf := config.DefaultConfig()

	src, closeFn, err := buildSource(context.Background(), conf)
	require.NoError(t, err)
	defer closeFn()

	events, err := src.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 6)

	_, ok := src.(source.UserRegistrar)
	assert.True(t, ok)
}

func TestBuildSource_SQLSeeded(t *testing.T) {
	conf := config.DefaultConfig()
	conf.Source.Kind = config.SourceSQL
	conf.Source.Driver = "sqlite3"
	conf.Source.DSN = "file:" + t.Name() + "?mode=memory&cache=shared"
	conf.Source.Seed = true

	src, closeFn, err := buildSource(context.Background(), conf)
	require.NoError(t, err)
	defer closeFn()

	events, err := src.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 6)

	u, err := src.FindUserByEmail(context.Background(), "mike.wilson@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "3", u.ID)
}

func TestBuildSource_ICSKeepsFixtureUsers(t *testing.T) {
	conf := config.DefaultConfig()
	conf.Source.Kind = config.SourceICS
	conf.Source.CacheDir = t.TempDir()

	src, closeFn, err := buildSource(context.Background(), conf)
	require.NoError(t, err)
	defer closeFn()

	u, err := src.FindUserByEmail(context.Background(), "john.doe@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	_, ok := src.(source.UserRegistrar)
	assert.True(t, ok)
}

func TestBuildSessions(t *testing.T) {
	conf := config.DefaultConfig()

	conf.Session.Kind = config.SessionMemory
	s, closeFn, err := buildSessions(context.Background(), conf)
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, &session.MemoryStore{}, s)

	conf.Session.Kind = config.SessionFile
	conf.Session.Path = filepath.Join(t.TempDir(), "session.json")
	s, closeFn, err = buildSessions(context.Background(), conf)
	require.NoError(t, err)
	closeFn()
	fs, ok := s.(*session.FileStore)
	require.True(t, ok)
	assert.Equal(t, conf.Session.Path, fs.Path())
}

func TestStartRefresh(t *testing.T) {
	conf := config.DefaultConfig()
	events := store.NewEventStore(&source.Fixture{}, store.EventOptions{})

	conf.RefreshCron = "-"
	c, err := startRefresh(context.Background(), conf, events)
	require.NoError(t, err)
	assert.Nil(t, c)

	conf.RefreshCron = "every tuesday"
	_, err = startRefresh(context.Background(), conf, events)
	assert.Error(t, err)

	conf.RefreshCron = "*/5 * * * *"
	c, err = startRefresh(context.Background(), conf, events)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}

func TestStartRefresh_KeepsFilters(t *testing.T) {
	conf := config.DefaultConfig()
	require.False(t, conf.Events.PreserveFiltersOnRefresh)
	fx, err := source.NewFixture()
	require.NoError(t, err)
	events := store.NewEventStore(fx, store.EventOptions{})
	ctx := context.Background()

	require.NoError(t, events.FetchEvents(ctx))
	events.FilterEvents(model.SearchFilters{Category: model.Ptr(model.CategoryMeet)})

	c, err := startRefresh(ctx, conf, events)
	require.NoError(t, err)
	defer func() { <-c.Stop().Done() }()
	entries := c.Entries()
	require.Len(t, entries, 1)

	entries[0].Job.Run()

	st := events.State()
	require.NotNil(t, st.Filters.Category)
	assert.Equal(t, model.CategoryMeet, *st.Filters.Category)
	assert.Len(t, st.FilteredEvents, 2)
	assert.Equal(t, store.StatusReady, st.FetchStatus)
}

func TestRunOnce(t *testing.T) {
	fx, err := source.NewFixture()
	require.NoError(t, err)
	events := store.NewEventStore(fx, store.EventOptions{})

	var buf bytes.Buffer
	require.NoError(t, runOnce(context.Background(), events, &buf))

	var out []model.Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out, 6)
}
