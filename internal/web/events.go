package web

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"porschevents/internal/ics"
	"porschevents/internal/model"
	"porschevents/internal/store"
)

// eventMeta carries values derived per request for one filtered event.
type eventMeta struct {
	ID            string              `json:"id"`
	DisplayStatus model.DisplayStatus `json:"displayStatus"`
	// DistanceMiles is set when the request carried lat and lon and the
	// event has coordinates.
	DistanceMiles *float64 `json:"distanceMiles,omitempty"`
	SpotsLeft     *int     `json:"spotsLeft,omitempty"`
	HasCapacity   bool     `json:"hasCapacity"`
	PrimaryImage  string   `json:"primaryImage,omitempty"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	store.EventsState
	Meta []eventMeta `json:"meta"`
}

type eventResponse struct {
	Event *model.Event `json:"event"`
	Meta  eventMeta    `json:"meta"`
}

type labelDTO struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func (s *Server) eventsView(r *http.Request) eventsResponse {
	st := s.events.State()
	lat, lon, near := parseNear(r)
	now := s.now()

	meta := make([]eventMeta, 0, len(st.FilteredEvents))
	for _, e := range st.FilteredEvents {
		meta = append(meta, metaFor(e, now, lat, lon, near))
	}
	return eventsResponse{EventsState: st, Meta: meta}
}

func metaFor(e model.Event, now time.Time, lat, lon float64, near bool) eventMeta {
	m := eventMeta{
		ID:            e.ID,
		DisplayStatus: e.DisplayStatusAt(now),
		HasCapacity:   e.HasCapacity(),
		PrimaryImage:  e.PrimaryImage(),
	}
	if near {
		if d, ok := e.DistanceFrom(lat, lon); ok {
			m.DistanceMiles = &d
		}
	}
	if n, ok := e.SpotsLeft(); ok {
		m.SpotsLeft = &n
	}
	return m
}

// parseNear reads the optional lat/lon query parameters.
func parseNear(r *http.Request) (lat, lon float64, ok bool) {
	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lon") == "" {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eventsView(r))
}

// handleRefresh runs FetchEvents, which resets the filters unless
// preserve_filters_on_refresh is set. With ?async=1 a filter-keeping
// Refresh is coalesced with other async requests and 202 is returned
// immediately.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		s.refresh.Trigger()
		writeJSON(w, http.StatusAccepted, map[string]bool{"scheduled": s.refresh.Pending()})
		return
	}
	if err := s.events.FetchEvents(r.Context()); err != nil {
		writeFailure(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.eventsView(r))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	e, err := s.events.FetchEventByID(r.Context(), id)
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	lat, lon, near := parseNear(r)
	writeJSON(w, http.StatusOK, eventResponse{
		Event: e,
		Meta:  metaFor(*e, s.now(), lat, lon, near),
	})
}

func (s *Server) handleClearSelected(w http.ResponseWriter, _ *http.Request) {
	s.events.SetSelectedEvent(nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearEventsError(w http.ResponseWriter, _ *http.Request) {
	s.events.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

// handleEventsICS exports the filtered view as an iCalendar document.
func (s *Server) handleEventsICS(w http.ResponseWriter, _ *http.Request) {
	st := s.events.State()
	body := ics.Encode(st.FilteredEvents, "Porsche Events", s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="porsche-events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handlePatchFilters(w http.ResponseWriter, r *http.Request) {
	var raw map[string]jsoniter.RawMessage
	if err := decodeBody(w, r, &raw); err != nil {
		writeFailure(w, err, &store.Failure{Kind: store.KindValidationFailed, Message: err.Error()})
		return
	}
	patch, err := parseFilterPatch(raw)
	if err != nil {
		writeFailure(w, err, &store.Failure{Kind: store.KindValidationFailed, Message: err.Error()})
		return
	}
	s.events.ApplyFilterPatch(patch)
	writeJSON(w, http.StatusOK, s.eventsView(r))
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	s.events.ClearFilters()
	writeJSON(w, http.StatusOK, s.eventsView(r))
}

type searchRequest struct {
	Query string `json:"query"`
}

// handleSearch sets the free-text query. When search_debounce is set
// the call is coalesced and 202 is returned; the state settles once the
// wait elapses without another search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, err, &store.Failure{Kind: store.KindValidationFailed, Message: err.Error()})
		return
	}
	if s.search != nil {
		s.search.Call(req.Query)
		writeJSON(w, http.StatusAccepted, map[string]string{"query": req.Query})
		return
	}
	s.events.SearchEvents(req.Query)
	writeJSON(w, http.StatusOK, s.eventsView(r))
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	out := make([]labelDTO, 0, len(model.Categories))
	for _, c := range model.Categories {
		out = append(out, labelDTO{Value: string(c), Label: c.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEventTypes(w http.ResponseWriter, _ *http.Request) {
	out := make([]labelDTO, 0, len(model.EventTypes))
	for _, t := range model.EventTypes {
		out = append(out, labelDTO{Value: string(t), Label: t.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}
