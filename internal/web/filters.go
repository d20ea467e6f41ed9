package web

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"porschevents/internal/model"
)

var errUnknownFilter = errors.New("unknown filter field")

// parseFilterPatch turns a JSON object of filter fields into a patch.
// A key mapped to null or "" clears that field; an absent key leaves it
// alone. Dates accept RFC 3339 or YYYY-MM-DD.
func parseFilterPatch(raw map[string]jsoniter.RawMessage) (model.FilterPatch, error) {
	var p model.FilterPatch
	for key, val := range raw {
		field := model.FilterField(key)
		if isClear(val) {
			if !knownField(field) {
				return p, fmt.Errorf("%w: %q", errUnknownFilter, key)
			}
			p.Unset = append(p.Unset, field)
			continue
		}

		switch field {
		case model.FieldQuery:
			s, err := decodeString(key, val)
			if err != nil {
				return p, err
			}
			p.Set.Query = &s
		case model.FieldLocation:
			s, err := decodeString(key, val)
			if err != nil {
				return p, err
			}
			p.Set.Location = &s
		case model.FieldCategory:
			s, err := decodeString(key, val)
			if err != nil {
				return p, err
			}
			c, err := model.ParseCategory(s)
			if err != nil {
				return p, err
			}
			p.Set.Category = &c
		case model.FieldEventType:
			s, err := decodeString(key, val)
			if err != nil {
				return p, err
			}
			t, err := model.ParseEventType(s)
			if err != nil {
				return p, err
			}
			p.Set.EventType = &t
		case model.FieldStartDate, model.FieldEndDate:
			s, err := decodeString(key, val)
			if err != nil {
				return p, err
			}
			t, err := parseDate(s)
			if err != nil {
				return p, fmt.Errorf("%s: %w", key, err)
			}
			if field == model.FieldStartDate {
				p.Set.StartDate = &t
			} else {
				p.Set.EndDate = &t
			}
		case model.FieldIsFree:
			var b bool
			if err := json.Unmarshal(val, &b); err != nil {
				return p, fmt.Errorf("%s: expected boolean", key)
			}
			p.Set.IsFree = &b
		default:
			return p, fmt.Errorf("%w: %q", errUnknownFilter, key)
		}
	}
	return p, nil
}

// isClear reports whether val asks for the field to be removed. A JSON
// null arrives as an empty RawMessage.
func isClear(val jsoniter.RawMessage) bool {
	v := strings.TrimSpace(string(val))
	return v == "" || v == "null" || v == `""`
}

func knownField(f model.FilterField) bool {
	switch f {
	case model.FieldQuery, model.FieldCategory, model.FieldEventType, model.FieldLocation,
		model.FieldStartDate, model.FieldEndDate, model.FieldIsFree:
		return true
	}
	return false
}

func decodeString(key string, val jsoniter.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		return "", fmt.Errorf("%s: expected string", key)
	}
	return s, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}
