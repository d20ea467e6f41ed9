package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "porschevents/internal/log"
)

// Custom properties carrying catalogue fields iCalendar has no slot for.
const (
	propCategory     = "X-PORSCHE-CATEGORY"
	propEventType    = "X-PORSCHE-EVENT-TYPE"
	propPrice        = "X-PORSCHE-PRICE"
	propFree         = "X-PORSCHE-FREE"
	propMaxAttendees = "X-PORSCHE-MAX-ATTENDEES"
	propAttendees    = "X-PORSCHE-ATTENDEES"
	propOrganizerID  = "X-PORSCHE-ORGANIZER-ID"
	propImage        = "X-PORSCHE-IMAGE"
	propTag          = "X-PORSCHE-TAG"
)

// Spelled out to stay independent of which constants the ical package
// version exports.
const (
	propGeo          = ical.ComponentProperty("GEO")
	propCategories   = ical.ComponentProperty("CATEGORIES")
	propAttach       = ical.ComponentProperty("ATTACH")
	propCreated      = ical.ComponentProperty("CREATED")
	propLastModified = ical.ComponentProperty("LAST-MODIFIED")
	propDtstamp      = ical.ComponentProperty("DTSTAMP")
	propStatus       = ical.ComponentProperty("STATUS")
	propOrganizer    = ical.ComponentProperty("ORGANIZER")
	propRecurrenceID = ical.ComponentProperty("RECURRENCE-ID")
)

// ParsedEvent is one VEVENT before recurrence expansion.
type ParsedEvent struct {
	Feed Feed

	UID string
	Seq int

	Summary     string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64

	Start  time.Time
	End    time.Time
	AllDay bool

	Categories []string
	Status     string
	Organizer  string
	Images     []string
	Created    time.Time
	Modified   time.Time

	// X holds X-PORSCHE-* properties. Repeated properties keep every value.
	X map[string][]string

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time
	IsOverride bool
}

func (p ParsedEvent) x(name string) string {
	if vs := p.X[name]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

// Parse decodes one feed body. VEVENTs that cannot be decoded are logged
// and skipped.
func Parse(feed Feed, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(feed, ve)
		if err != nil {
			appLog.Warn("skipping vevent", "feed", feed.ID, "reason", err.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics feed parsed", "feed", feed.ID, "events", len(events))
	return events, nil
}

func parseVEvent(feed Feed, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Feed: feed, X: map[string][]string{}}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}

	out.Summary = textProp(ve, ical.ComponentPropertySummary)
	out.Description = textProp(ve, ical.ComponentPropertyDescription)
	out.Location = textProp(ve, ical.ComponentPropertyLocation)
	out.Status = strings.ToUpper(textProp(ve, propStatus))
	out.Organizer = strings.TrimPrefix(strings.TrimPrefix(textProp(ve, propOrganizer), "mailto:"), "MAILTO:")

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Start = start
	if end, err := ve.GetEndAt(); err == nil {
		out.End = end
	} else {
		out.End = start
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			out.AllDay = true
		}
	}
	if out.AllDay && !out.End.After(out.Start) {
		out.End = out.Start.Add(24 * time.Hour)
	}

	if p := ve.GetProperty(propGeo); p != nil {
		out.Latitude, out.Longitude = parseGeo(p.Value)
	}

	for _, p := range ve.GetProperties(propCategories) {
		out.Categories = append(out.Categories, splitList(p.Value)...)
	}

	for _, p := range ve.GetProperties(propAttach) {
		if fmtType := p.ICalParameters["FMTTYPE"]; len(fmtType) > 0 && strings.HasPrefix(strings.ToLower(fmtType[0]), "image/") {
			out.Images = append(out.Images, strings.TrimSpace(p.Value))
		}
	}

	if p := ve.GetProperty(propCreated); p != nil {
		out.Created, _ = parseICSTime(p.Value)
	}
	if p := ve.GetProperty(propLastModified); p != nil {
		out.Modified, _ = parseICSTime(p.Value)
	}
	if out.Created.IsZero() {
		if p := ve.GetProperty(propDtstamp); p != nil {
			out.Created, _ = parseICSTime(p.Value)
		}
	}

	for _, p := range ve.Properties {
		name := strings.ToUpper(p.IANAToken)
		if strings.HasPrefix(name, "X-PORSCHE-") {
			out.X[name] = append(out.X[name], unescapeText(p.Value))
		}
	}
	out.Images = append(out.Images, out.X[propImage]...)

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(propRecurrenceID); p != nil {
		if t, err := parseICSTime(p.Value); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

func textProp(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return unescapeText(p.Value)
	}
	return ""
}

// unescapeText reverses RFC 5545 TEXT escaping.
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// splitList splits a comma separated TEXT list, honouring escaped commas.
func splitList(s string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if v := strings.TrimSpace(unescapeText(cur.String())); v != "" {
			out = append(out, v)
		}
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			cur.WriteByte(s[i])
			cur.WriteByte(s[i+1])
			i++
		case s[i] == ',':
			flush()
		default:
			cur.WriteByte(s[i])
		}
	}
	flush()
	return out
}

func parseGeo(v string) (lat, lon *float64) {
	parts := strings.Split(v, ";")
	if len(parts) != 2 {
		return nil, nil
	}
	la, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lo, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return nil, nil
	}
	return &la, &lo
}

// parseICSTime handles the three basic DATE / DATE-TIME forms. Floating
// times are read as local time.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.Local)
	default:
		return time.ParseInLocation("20060102", v, time.Local)
	}
}
