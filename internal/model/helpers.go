package model

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// DisplayStatus is the user-facing state of an event relative to now.
type DisplayStatus string

const (
	DisplayUpcoming  DisplayStatus = "Upcoming"
	DisplayOngoing   DisplayStatus = "Ongoing"
	DisplayPast      DisplayStatus = "Past"
	DisplayCancelled DisplayStatus = "Cancelled"
	DisplayCompleted DisplayStatus = "Completed"
)

// DisplayStatusAt derives the display status. Lifecycle states win over
// the time window.
func (e Event) DisplayStatusAt(now time.Time) DisplayStatus {
	switch e.Status {
	case StatusCancelled:
		return DisplayCancelled
	case StatusCompleted:
		return DisplayCompleted
	}
	if now.Before(e.StartDate) {
		return DisplayUpcoming
	}
	if !now.After(e.EndDate) {
		return DisplayOngoing
	}
	return DisplayPast
}

const earthRadiusMiles = 3959

// DistanceMiles is the great-circle (haversine) distance between two
// coordinates in miles.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// PasswordProblems lists every rule the password breaks. An empty result
// means the password is acceptable.
func PasswordProblems(password string) []string {
	var problems []string
	if len([]rune(password)) < 8 {
		problems = append(problems, "Password must be at least 8 characters long")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if !lower {
		problems = append(problems, "Password must contain at least one lowercase letter")
	}
	if !digit {
		problems = append(problems, "Password must contain at least one number")
	}
	return problems
}

func initials(first, last string) string {
	var b strings.Builder
	for _, s := range []string{first, last} {
		for _, r := range s {
			b.WriteRune(r)
			break
		}
	}
	return strings.ToUpper(b.String())
}
