package model

import "time"

// SearchFilters is the set of optional narrowing predicates held by the
// event store. A nil field means "not filtering on this".
type SearchFilters struct {
	Query     *string    `json:"query,omitempty" yaml:"query,omitempty"`
	Category  *Category  `json:"category,omitempty" yaml:"category,omitempty"`
	EventType *EventType `json:"eventType,omitempty" yaml:"event_type,omitempty"`
	Location  *string    `json:"location,omitempty" yaml:"location,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty" yaml:"start_date,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty" yaml:"end_date,omitempty"`
	IsFree    *bool      `json:"isFree,omitempty" yaml:"is_free,omitempty"`
}

// FilterPatch is a partial update to SearchFilters. Fields in Set
// override the held value; fields named in Unset are cleared. Unset is
// applied after Set.
type FilterPatch struct {
	Set   SearchFilters
	Unset []FilterField
}

// FilterField names a single SearchFilters field.
type FilterField string

const (
	FieldQuery     FilterField = "query"
	FieldCategory  FilterField = "category"
	FieldEventType FilterField = "eventType"
	FieldLocation  FilterField = "location"
	FieldStartDate FilterField = "startDate"
	FieldEndDate   FilterField = "endDate"
	FieldIsFree    FilterField = "isFree"
)

// IsEmpty reports whether no predicate is set.
func (f SearchFilters) IsEmpty() bool {
	return f.Query == nil &&
		f.Category == nil &&
		f.EventType == nil &&
		f.Location == nil &&
		f.StartDate == nil &&
		f.EndDate == nil &&
		f.IsFree == nil
}

// Merge returns a copy of f with every field set on partial overriding
// the corresponding field of f.
func (f SearchFilters) Merge(partial SearchFilters) SearchFilters {
	out := f.Clone()
	if partial.Query != nil {
		out.Query = clonePtr(partial.Query)
	}
	if partial.Category != nil {
		out.Category = clonePtr(partial.Category)
	}
	if partial.EventType != nil {
		out.EventType = clonePtr(partial.EventType)
	}
	if partial.Location != nil {
		out.Location = clonePtr(partial.Location)
	}
	if partial.StartDate != nil {
		out.StartDate = clonePtr(partial.StartDate)
	}
	if partial.EndDate != nil {
		out.EndDate = clonePtr(partial.EndDate)
	}
	if partial.IsFree != nil {
		out.IsFree = clonePtr(partial.IsFree)
	}
	return out
}

// Apply merges p.Set into f and then clears every field in p.Unset.
func (f SearchFilters) Apply(p FilterPatch) SearchFilters {
	out := f.Merge(p.Set)
	for _, field := range p.Unset {
		switch field {
		case FieldQuery:
			out.Query = nil
		case FieldCategory:
			out.Category = nil
		case FieldEventType:
			out.EventType = nil
		case FieldLocation:
			out.Location = nil
		case FieldStartDate:
			out.StartDate = nil
		case FieldEndDate:
			out.EndDate = nil
		case FieldIsFree:
			out.IsFree = nil
		}
	}
	return out
}

// Clone deep-copies the filter so the store never shares pointers with
// callers.
func (f SearchFilters) Clone() SearchFilters {
	return SearchFilters{
		Query:     clonePtr(f.Query),
		Category:  clonePtr(f.Category),
		EventType: clonePtr(f.EventType),
		Location:  clonePtr(f.Location),
		StartDate: clonePtr(f.StartDate),
		EndDate:   clonePtr(f.EndDate),
		IsFree:    clonePtr(f.IsFree),
	}
}
