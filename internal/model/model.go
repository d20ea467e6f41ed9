package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidEvent = errors.New("invalid event")
	ErrInvalidEnum  = errors.New("invalid enum value")
)

// Event is a single schedulable gathering as held by the event store.
// Events are produced by a data source and never mutated by the store
// other than being replaced on refetch.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// StartDate / EndDate are absolute instants.
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`

	Category    Category  `json:"category"`
	EventType   EventType `json:"eventType"`
	OrganizerID string    `json:"organizerId"`

	MaxAttendees     *int `json:"maxAttendees,omitempty"`
	CurrentAttendees int  `json:"currentAttendees"`

	IsFree      bool     `json:"isFree"`
	TicketPrice *float64 `json:"ticketPrice,omitempty"`

	// ImageURLs is ordered; the first entry is the primary image.
	ImageURLs []string `json:"imageUrls"`
	Tags      []string `json:"tags"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the structural invariants of an event.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("%w: %s ends before it starts", ErrInvalidEvent, e.ID)
	}
	if e.CurrentAttendees < 0 {
		return fmt.Errorf("%w: %s has negative attendee count", ErrInvalidEvent, e.ID)
	}
	if e.MaxAttendees != nil && e.CurrentAttendees > *e.MaxAttendees {
		return fmt.Errorf("%w: %s is over capacity (%d > %d)", ErrInvalidEvent, e.ID, e.CurrentAttendees, *e.MaxAttendees)
	}
	if !e.IsFree {
		if e.TicketPrice == nil {
			return fmt.Errorf("%w: %s is paid but has no ticket price", ErrInvalidEvent, e.ID)
		}
		if *e.TicketPrice < 0 {
			return fmt.Errorf("%w: %s has negative ticket price", ErrInvalidEvent, e.ID)
		}
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %s: category %q", ErrInvalidEvent, e.ID, e.Category)
	}
	if !e.EventType.Valid() {
		return fmt.Errorf("%w: %s: event type %q", ErrInvalidEvent, e.ID, e.EventType)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: %s: status %q", ErrInvalidEvent, e.ID, e.Status)
	}
	return nil
}

// PrimaryImage returns the first image URL, or "" if the event has none.
func (e Event) PrimaryImage() string {
	if len(e.ImageURLs) == 0 {
		return ""
	}
	return e.ImageURLs[0]
}

// SpotsLeft reports remaining capacity. ok is false for events without
// an attendee limit.
func (e Event) SpotsLeft() (n int, ok bool) {
	if e.MaxAttendees == nil {
		return 0, false
	}
	n = *e.MaxAttendees - e.CurrentAttendees
	if n < 0 {
		n = 0
	}
	return n, true
}

// HasCapacity reports whether at least one more attendee fits.
func (e Event) HasCapacity() bool {
	n, limited := e.SpotsLeft()
	return !limited || n > 0
}

// DistanceFrom returns the distance in miles between the event and the
// given point. ok is false when the event has no coordinates.
func (e Event) DistanceFrom(lat, lon float64) (miles float64, ok bool) {
	if e.Latitude == nil || e.Longitude == nil {
		return 0, false
	}
	return DistanceMiles(*e.Latitude, *e.Longitude, lat, lon), true
}

// Clone returns a deep copy, so callers can hand events out of a store
// without sharing slices or pointers.
func (e Event) Clone() Event {
	out := e
	out.Latitude = clonePtr(e.Latitude)
	out.Longitude = clonePtr(e.Longitude)
	out.MaxAttendees = clonePtr(e.MaxAttendees)
	out.TicketPrice = clonePtr(e.TicketPrice)
	out.ImageURLs = cloneStrings(e.ImageURLs)
	out.Tags = cloneStrings(e.Tags)
	return out
}

// CloneEvents deep-copies a slice of events. A nil input yields an empty,
// non-nil slice so JSON callers always see [].
func CloneEvents(in []Event) []Event {
	out := make([]Event, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Ptr is a small helper for building optional fields in literals.
func Ptr[T any](v T) *T {
	return &v
}
