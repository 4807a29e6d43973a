package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"tripreel/pkg/geo"
	"tripreel/pkg/itinerary"
	"tripreel/pkg/model"
	"tripreel/pkg/nearby"
	"tripreel/pkg/resolver"
	"tripreel/pkg/route"
)

// DaysHandler serves the itinerary and the map operations on it.
type DaysHandler struct {
	itinerary *itinerary.Itinerary
	overlay   *itinerary.Overlay
	resolver  *resolver.Resolver
	planner   *route.Planner
	ranker    *nearby.Ranker
}

func NewDaysHandler(it *itinerary.Itinerary, ov *itinerary.Overlay, res *resolver.Resolver, pl *route.Planner, rk *nearby.Ranker) *DaysHandler {
	return &DaysHandler{itinerary: it, overlay: ov, resolver: res, planner: pl, ranker: rk}
}

// DaySummary is one entry of the day list.
type DaySummary struct {
	Day         int    `json:"day"`
	Date        string `json:"date"`
	Title       string `json:"title"`
	SummaryLine string `json:"summaryLine"`
	BaseCity    string `json:"baseCity"`
	SpotCount   int    `json:"spotCount"`
}

// DayResponse is a day with resolved locations merged in.
type DayResponse struct {
	model.DayPlan
	Center model.LatLng `json:"center"`
	Bounds *geo.Bounds  `json:"bounds,omitempty"` // nil when nothing on the day is located
}

type RouteRequest struct {
	Mode string `json:"mode"`
}

type NearbyRequest struct {
	SpotID   string `json:"spotId"`
	Category string `json:"category"`
	Refresh  bool   `json:"refresh"`
}

type NearbyResponse struct {
	Center model.LatLng  `json:"center"`
	Places []model.Place `json:"places"`
}

// HandleList handles GET /api/days
func (h *DaysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	days := h.itinerary.Days()
	out := make([]DaySummary, len(days))
	for i, d := range days {
		out[i] = DaySummary{
			Day:         d.Day,
			Date:        d.Date,
			Title:       d.Title,
			SummaryLine: d.SummaryLine,
			BaseCity:    d.BaseCity,
			SpotCount:   len(d.Spots),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /api/days/{day}
func (h *DaysHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	day, err := h.day(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := DayResponse{
		DayPlan: day,
		Center:  itinerary.CenterOrDefault(day, r.URL.Query().Get("spot")),
	}
	if b, ok := geo.BoundsOf(geo.SpotPoints(day.Spots)); ok {
		resp.Bounds = &b
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleResolve handles POST /api/days/{day}/spots/{id}/resolve
func (h *DaysHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	day, err := h.day(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id := r.PathValue("id")
	spot, ok := day.Spot(id)
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", errSpotNotFound, id))
		return
	}
	if _, err := h.resolver.Resolve(r.Context(), spot); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.overlay.ApplySpot(spot))
}

// HandleRoute handles POST /api/days/{day}/route
func (h *DaysHandler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	day, err := h.day(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req RouteRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, err)
		return
	}
	mode := day.MoveModeDefault
	if req.Mode != "" {
		if mode, err = model.ParseTravelMode(req.Mode); err != nil {
			writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}
	}

	summary, err := h.planner.ComputeRoute(r.Context(), day.Day, day.Spots, mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleNearby handles POST /api/days/{day}/nearby
// The search centres on the chosen spot, resolving it first if needed, or on the whole day.
func (h *DaysHandler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	day, err := h.day(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req NearbyRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, err)
		return
	}

	center, ok := itinerary.Center(day, "")
	if req.SpotID != "" {
		spot, found := day.Spot(req.SpotID)
		if !found {
			writeError(w, fmt.Errorf("%w: %s", errSpotNotFound, req.SpotID))
			return
		}
		if !spot.HasCoords() {
			o, err := h.resolver.Resolve(r.Context(), spot)
			if err != nil {
				writeError(w, err)
				return
			}
			spot = spot.Apply(o)
		}
		center, ok = spot.Coords()
	}

	nreq := nearby.Request{
		DayNumber: day.Day,
		SpotID:    req.SpotID,
		Category:  req.Category,
		Refresh:   req.Refresh,
	}
	if ok {
		nreq.Center = &center
	}
	places, err := h.ranker.FindNearby(r.Context(), nreq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NearbyResponse{Center: center, Places: places})
}

// day loads the {day} path value with overrides applied.
func (h *DaysHandler) day(r *http.Request) (model.DayPlan, error) {
	n, err := strconv.Atoi(r.PathValue("day"))
	if err != nil {
		return model.DayPlan{}, fmt.Errorf("%w: invalid day %q", errBadRequest, r.PathValue("day"))
	}
	d, err := h.itinerary.Day(n)
	if err != nil {
		return model.DayPlan{}, err
	}
	return h.overlay.Apply(d), nil
}

// decodeOptional decodes a JSON body, accepting an empty one.
func decodeOptional(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
