package model

import "fmt"

// Category classifies what kind of gathering an event is.
type Category string

const (
	CategoryCarShow    Category = "car-show"
	CategoryTrackDay   Category = "track-day"
	CategoryMeet       Category = "meet"
	CategoryAuction    Category = "auction"
	CategoryRally      Category = "rally"
	CategoryConference Category = "conference"
	CategoryOther      Category = "other"
)

// Categories lists all categories in display order.
var Categories = []Category{
	CategoryCarShow,
	CategoryTrackDay,
	CategoryMeet,
	CategoryAuction,
	CategoryRally,
	CategoryConference,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryCarShow:    "Car Show",
	CategoryTrackDay:   "Track Day",
	CategoryMeet:       "Meet & Greet",
	CategoryAuction:    "Auction",
	CategoryRally:      "Rally",
	CategoryConference: "Conference",
	CategoryOther:      "Other",
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human-readable name. Unknown values read as "Other".
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return "Other"
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: category %q", ErrInvalidEnum, s)
	}
	return c, nil
}

// EventType describes which cars or audience an event is aimed at.
type EventType string

const (
	EventTypePorscheOnly EventType = "porsche-only"
	EventTypeMixedBrands EventType = "mixed-brands"
	EventTypeVintage     EventType = "vintage"
	EventTypeModern      EventType = "modern"
	EventTypeRacing      EventType = "racing"
	EventTypeSocial      EventType = "social"
)

var EventTypes = []EventType{
	EventTypePorscheOnly,
	EventTypeMixedBrands,
	EventTypeVintage,
	EventTypeModern,
	EventTypeRacing,
	EventTypeSocial,
}

var eventTypeLabels = map[EventType]string{
	EventTypePorscheOnly: "Porsche Only",
	EventTypeMixedBrands: "Mixed Brands",
	EventTypeVintage:     "Vintage",
	EventTypeModern:      "Modern",
	EventTypeRacing:      "Racing",
	EventTypeSocial:      "Social",
}

func (t EventType) Valid() bool {
	_, ok := eventTypeLabels[t]
	return ok
}

func (t EventType) Label() string {
	if l, ok := eventTypeLabels[t]; ok {
		return l
	}
	return "Other"
}

func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: event type %q", ErrInvalidEnum, s)
	}
	return t, nil
}

// Status is the lifecycle state of an event.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: status %q", ErrInvalidEnum, s)
	}
	return st, nil
}
