package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"porschevents/internal/model"
)

// Encode renders events as an iCalendar document. The catalogue fields
// travel in X-PORSCHE-* properties so Parse and ToEvent read them back.
func Encode(events []model.Event, name string, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//porschevents//events//EN")
	if name != "" {
		cal.SetName(name)
	}

	for _, e := range events {
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(now.UTC())
		ve.SetStartAt(e.StartDate.UTC())
		ve.SetEndAt(e.EndDate.UTC())
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if !e.CreatedAt.IsZero() {
			ve.SetProperty(propCreated, e.CreatedAt.UTC().Format("20060102T150405Z"))
		}
		if !e.UpdatedAt.IsZero() {
			ve.SetProperty(propLastModified, e.UpdatedAt.UTC().Format("20060102T150405Z"))
		}
		if e.Latitude != nil && e.Longitude != nil {
			ve.SetProperty(propGeo, fmt.Sprintf("%f;%f", *e.Latitude, *e.Longitude))
		}
		switch e.Status {
		case model.StatusCancelled:
			ve.SetProperty(propStatus, "CANCELLED")
		case model.StatusDraft:
			ve.SetProperty(propStatus, "TENTATIVE")
		default:
			ve.SetProperty(propStatus, "CONFIRMED")
		}

		ve.SetProperty(ical.ComponentProperty(propCategory), string(e.Category))
		ve.SetProperty(ical.ComponentProperty(propEventType), string(e.EventType))
		if e.OrganizerID != "" {
			ve.SetProperty(ical.ComponentProperty(propOrganizerID), e.OrganizerID)
		}
		ve.SetProperty(ical.ComponentProperty(propFree), strings.ToUpper(strconv.FormatBool(e.IsFree)))
		if !e.IsFree && e.TicketPrice != nil {
			ve.SetProperty(ical.ComponentProperty(propPrice), strconv.FormatFloat(*e.TicketPrice, 'f', 2, 64))
		}
		if e.MaxAttendees != nil {
			ve.SetProperty(ical.ComponentProperty(propMaxAttendees), strconv.Itoa(*e.MaxAttendees))
		}
		ve.SetProperty(ical.ComponentProperty(propAttendees), strconv.Itoa(e.CurrentAttendees))
		for _, img := range e.ImageURLs {
			ve.AddProperty(ical.ComponentProperty(propImage), img)
		}
		for _, tag := range e.Tags {
			ve.AddProperty(ical.ComponentProperty(propTag), tag)
		}
	}

	return cal.Serialize()
}
