package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porschevents/internal/model"
)

func validEvent() model.Event {
	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	return model.Event{
		ID:               "2",
		Title:            "Vintage Porsche Show 2024",
		StartDate:        start,
		EndDate:          start.Add(7 * time.Hour),
		Category:         model.CategoryCarShow,
		EventType:        model.EventTypeVintage,
		MaxAttendees:     model.Ptr(200),
		CurrentAttendees: 156,
		TicketPrice:      model.Ptr(25.0),
		ImageURLs:        []string{"a.jpg", "b.jpg"},
		Tags:             []string{"vintage"},
		Status:           model.StatusActive,
	}
}

func Test_Event_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *model.Event)
		wantErr bool
	}{
		{name: "valid", mutate: func(*model.Event) {}},
		{name: "missing_id", mutate: func(e *model.Event) { e.ID = "" }, wantErr: true},
		{name: "end_before_start", mutate: func(e *model.Event) { e.EndDate = e.StartDate.Add(-time.Minute) }, wantErr: true},
		{name: "zero_length_is_fine", mutate: func(e *model.Event) { e.EndDate = e.StartDate }},
		{name: "negative_attendees", mutate: func(e *model.Event) { e.CurrentAttendees = -1 }, wantErr: true},
		{name: "over_capacity", mutate: func(e *model.Event) { e.CurrentAttendees = 201 }, wantErr: true},
		{name: "no_capacity_limit", mutate: func(e *model.Event) { e.MaxAttendees = nil; e.CurrentAttendees = 5000 }},
		{name: "paid_without_price", mutate: func(e *model.Event) { e.TicketPrice = nil }, wantErr: true},
		{name: "negative_price", mutate: func(e *model.Event) { e.TicketPrice = model.Ptr(-1.0) }, wantErr: true},
		{name: "free_without_price", mutate: func(e *model.Event) { e.IsFree = true; e.TicketPrice = nil }},
		{name: "unknown_category", mutate: func(e *model.Event) { e.Category = "drag-race" }, wantErr: true},
		{name: "unknown_type", mutate: func(e *model.Event) { e.EventType = "electric" }, wantErr: true},
		{name: "unknown_status", mutate: func(e *model.Event) { e.Status = "archived" }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := validEvent()
			tc.mutate(&e)
			err := e.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, model.ErrInvalidEvent)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_Event_CapacityAndImages(t *testing.T) {
	e := validEvent()

	assert.Equal(t, "a.jpg", e.PrimaryImage())
	n, limited := e.SpotsLeft()
	assert.True(t, limited)
	assert.Equal(t, 44, n)
	assert.True(t, e.HasCapacity())

	e.CurrentAttendees = 200
	assert.False(t, e.HasCapacity())

	e.MaxAttendees = nil
	e.ImageURLs = nil
	assert.True(t, e.HasCapacity())
	assert.Empty(t, e.PrimaryImage())
}

func Test_Event_Clone_DoesNotShareState(t *testing.T) {
	e := validEvent()
	c := e.Clone()

	c.Tags[0] = "changed"
	*c.TicketPrice = 99
	c.ImageURLs = append(c.ImageURLs, "c.jpg")

	assert.Equal(t, "vintage", e.Tags[0])
	assert.Equal(t, 25.0, *e.TicketPrice)
	assert.Len(t, e.ImageURLs, 2)
}

func Test_Event_DisplayStatusAt(t *testing.T) {
	e := validEvent()

	assert.Equal(t, model.DisplayUpcoming, e.DisplayStatusAt(e.StartDate.Add(-time.Hour)))
	assert.Equal(t, model.DisplayOngoing, e.DisplayStatusAt(e.StartDate))
	assert.Equal(t, model.DisplayOngoing, e.DisplayStatusAt(e.EndDate))
	assert.Equal(t, model.DisplayPast, e.DisplayStatusAt(e.EndDate.Add(time.Second)))

	e.Status = model.StatusCancelled
	assert.Equal(t, model.DisplayCancelled, e.DisplayStatusAt(e.StartDate))
	e.Status = model.StatusCompleted
	assert.Equal(t, model.DisplayCompleted, e.DisplayStatusAt(e.StartDate.Add(-time.Hour)))
}

func Test_DistanceMiles(t *testing.T) {
	// Santa Monica Pier to Golden Gate Park.
	d := model.DistanceMiles(34.0195, -118.4912, 37.7694, -122.4862)
	assert.InDelta(t, 342, d, 1)
	assert.InDelta(t, 0, model.DistanceMiles(10, 10, 10, 10), 1e-9)

	e := validEvent()
	_, ok := e.DistanceFrom(0, 0)
	assert.False(t, ok)
	e.Latitude, e.Longitude = model.Ptr(34.0195), model.Ptr(-118.4912)
	d, ok = e.DistanceFrom(34.0195, -118.4912)
	require.True(t, ok)
	assert.InDelta(t, 0, d, 1e-9)
}

func Test_Enums(t *testing.T) {
	assert.Len(t, model.Categories, 7)
	assert.Len(t, model.EventTypes, 6)

	c, err := model.ParseCategory("track-day")
	require.NoError(t, err)
	assert.Equal(t, "Track Day", c.Label())
	assert.Equal(t, "Meet & Greet", model.CategoryMeet.Label())
	assert.Equal(t, "Other", model.Category("nope").Label())

	_, err = model.ParseCategory("nope")
	assert.ErrorIs(t, err, model.ErrInvalidEnum)

	et, err := model.ParseEventType("porsche-only")
	require.NoError(t, err)
	assert.Equal(t, "Porsche Only", et.Label())
	_, err = model.ParseEventType("")
	assert.ErrorIs(t, err, model.ErrInvalidEnum)

	_, err = model.ParseStatus("draft")
	assert.NoError(t, err)
	_, err = model.ParseStatus("deleted")
	assert.ErrorIs(t, err, model.ErrInvalidEnum)
}

func Test_SearchFilters_MergeAndApply(t *testing.T) {
	meet := model.CategoryMeet
	base := model.SearchFilters{Query: model.Ptr("911"), Category: &meet}
	assert.False(t, base.IsEmpty())
	assert.True(t, model.SearchFilters{}.IsEmpty())

	merged := base.Merge(model.SearchFilters{IsFree: model.Ptr(true), Query: model.Ptr("coffee")})
	assert.Equal(t, "coffee", *merged.Query)
	assert.Equal(t, model.CategoryMeet, *merged.Category)
	assert.True(t, *merged.IsFree)
	assert.Equal(t, "911", *base.Query, "merge must not modify the receiver")

	cleared := merged.Apply(model.FilterPatch{
		Set:   model.SearchFilters{Location: model.Ptr("los angeles")},
		Unset: []model.FilterField{model.FieldCategory, model.FieldQuery},
	})
	assert.Nil(t, cleared.Category)
	assert.Nil(t, cleared.Query)
	assert.Equal(t, "los angeles", *cleared.Location)
	assert.True(t, *cleared.IsFree)
}

func Test_User_ApplyPatch(t *testing.T) {
	u := model.User{ID: "1", FirstName: "John", LastName: "Doe", Preferences: model.DefaultPreferences()}

	out := u.Apply(model.UserPatch{Bio: model.Ptr("911 owner"), FirstName: model.Ptr("Johnny")})

	assert.Equal(t, "Johnny", out.FirstName)
	assert.Equal(t, "Doe", out.LastName)
	assert.Equal(t, "911 owner", out.Bio)
	assert.Equal(t, "John", u.FirstName)
	assert.Equal(t, "JD", u.Initials())
}

func Test_DefaultPreferences(t *testing.T) {
	p := model.DefaultPreferences()
	assert.Empty(t, p.FavoriteModels)
	assert.NotNil(t, p.FavoriteModels)
	assert.True(t, p.Notifications.Email)
	assert.True(t, p.Notifications.Push)
	assert.Equal(t, 50, p.LocationRadius)
}

func Test_Validation_Helpers(t *testing.T) {
	assert.True(t, model.ValidEmail("sarah.smith@example.com"))
	assert.False(t, model.ValidEmail("sarah.smith@example"))
	assert.False(t, model.ValidEmail("sarah smith@example.com"))

	assert.Empty(t, model.PasswordProblems("Carrera911"))
	assert.Len(t, model.PasswordProblems("password"), 2)
	assert.Len(t, model.PasswordProblems("A1"), 2)
	assert.Len(t, model.PasswordProblems(""), 4)
}
