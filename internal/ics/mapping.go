package ics

import (
	"strconv"
	"strings"
	"time"

	"porschevents/internal/model"
)

// ToEvent maps an occurrence to a catalogue event. Recurring instances
// get an id of the form "<uid>/<generated start in UTC>", which stays
// stable when an override moves the instance.
//
// Category and event type come from X-PORSCHE-CATEGORY and
// X-PORSCHE-EVENT-TYPE, or failing that from the first CATEGORIES entry
// naming one (by slug or label). Remaining categories become tags.
func ToEvent(o Occurrence) model.Event {
	p := o.Event

	id := p.UID
	if o.Recurring {
		id = p.UID + "/" + o.Instance.UTC().Format("20060102T150405Z")
	}

	e := model.Event{
		ID:          id,
		Title:       p.Summary,
		Description: p.Description,
		Location:    p.Location,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		StartDate:   o.Start.UTC(),
		EndDate:     o.End.UTC(),
		Category:    model.CategoryOther,
		EventType:   model.EventTypeMixedBrands,
		OrganizerID: p.x(propOrganizerID),
		IsFree:      true,
		ImageURLs:   append([]string{}, p.Images...),
		Tags:        []string{},
		Status:      mapStatus(p.Status),
		CreatedAt:   p.Created.UTC(),
		UpdatedAt:   p.Modified.UTC(),
	}
	if e.OrganizerID == "" {
		e.OrganizerID = p.Organizer
	}
	if p.Modified.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}

	catSet, typeSet := false, false
	if c, ok := matchCategory(p.x(propCategory)); ok {
		e.Category, catSet = c, true
	}
	if t, ok := matchEventType(p.x(propEventType)); ok {
		e.EventType, typeSet = t, true
	}
	for _, raw := range p.Categories {
		if !catSet {
			if c, ok := matchCategory(raw); ok {
				e.Category, catSet = c, true
				continue
			}
		}
		if !typeSet {
			if t, ok := matchEventType(raw); ok {
				e.EventType, typeSet = t, true
				continue
			}
		}
		e.Tags = append(e.Tags, slug(raw))
	}
	for _, t := range p.X[propTag] {
		if s := slug(t); s != "" {
			e.Tags = append(e.Tags, s)
		}
	}

	// Without X-PORSCHE-FREE a positive price marks the event paid. With
	// it, a paid event may carry a price of zero.
	var price float64
	hasPrice := false
	if v := p.x(propPrice); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			price, hasPrice = f, true
		}
	}
	free := !hasPrice || price == 0
	if v := p.x(propFree); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			free = b
		}
	}
	if !free && hasPrice {
		e.IsFree = false
		e.TicketPrice = &price
	}
	if v := p.x(propMaxAttendees); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			e.MaxAttendees = &n
		}
	}
	if v := p.x(propAttendees); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			e.CurrentAttendees = n
		}
	}
	if e.MaxAttendees != nil && e.CurrentAttendees > *e.MaxAttendees {
		e.CurrentAttendees = *e.MaxAttendees
	}

	return e
}

func mapStatus(s string) model.Status {
	switch s {
	case "CANCELLED":
		return model.StatusCancelled
	case "TENTATIVE":
		return model.StatusDraft
	default:
		return model.StatusActive
	}
}

func matchCategory(s string) (model.Category, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, c := range model.Categories {
		if strings.EqualFold(string(c), s) || strings.EqualFold(c.Label(), s) || string(c) == slug(s) {
			return c, true
		}
	}
	return "", false
}

func matchEventType(s string) (model.EventType, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, t := range model.EventTypes {
		if strings.EqualFold(string(t), s) || strings.EqualFold(t.Label(), s) || string(t) == slug(s) {
			return t, true
		}
	}
	return "", false
}

// slug lower-cases s and joins words with dashes.
func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

func occurrenceWindow(now time.Time, lookback, horizon time.Duration) Window {
	return Window{Start: now.Add(-lookback), End: now.Add(horizon)}
}
