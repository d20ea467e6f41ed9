package source_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"porschevents/internal/model"
	"porschevents/internal/source"
)

func newFixture(t *testing.T) *source.Fixture {
	t.Helper()
	fx, err := source.NewFixture()
	require.NoError(t, err)
	return fx
}

func Test_FixtureEvents_AreValid(t *testing.T) {
	events := source.FixtureEvents()
	require.Len(t, events, 6)
	for _, e := range events {
		assert.NoError(t, e.Validate(), "event %s", e.ID)
	}
}

func Test_Fixture_ListEventsReturnsCopies(t *testing.T) {
	fx := newFixture(t)

	first, err := fx.ListEvents(context.Background())
	require.NoError(t, err)
	first[0].Title = "changed"
	first[0].Tags[0] = "changed"

	second, err := fx.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Porsche 911 Meet & Greet", second[0].Title)
	assert.Equal(t, "911", second[0].Tags[0])
}

func Test_Fixture_FindUserByEmail(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	u, err := fx.FindUserByEmail(ctx, "Sarah.Smith@Example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "2", u.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(source.FixturePassword)))

	missing, err := fx.FindUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func Test_Fixture_CreateUser(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.CreateUser(ctx, model.User{ID: "u-new", Email: "new@example.com"}))

	u, err := fx.FindUserByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u-new", u.ID)
	assert.Len(t, fx.Users(), 4)

	err = fx.CreateUser(ctx, model.User{ID: "u-dup", Email: "NEW@example.com"})
	assert.ErrorIs(t, err, source.ErrDuplicateEmail)
	assert.Len(t, fx.Users(), 4)
}

func Test_Fixture_LatencyHonoursContext(t *testing.T) {
	fx := newFixture(t)
	fx.ListLatency = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := fx.ListEvents(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

type staticEvents []model.Event

func (s staticEvents) ListEvents(context.Context) ([]model.Event, error) {
	return model.CloneEvents(s), nil
}

type finderOnly struct{ source.UserFinder }

func Test_Combine(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	src := source.Combine(staticEvents{{ID: "x"}}, fx)
	events, err := src.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	u, err := src.FindUserByEmail(ctx, "john.doe@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "1", u.ID)

	_, ok := src.(source.UserRegistrar)
	assert.True(t, ok, "registrar must be kept when the user source has one")

	plain := source.Combine(staticEvents{}, finderOnly{fx})
	_, ok = plain.(source.UserRegistrar)
	assert.False(t, ok)
}
