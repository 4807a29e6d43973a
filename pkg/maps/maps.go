// Package maps is the geocoding, places and directions capability. The rest
// of the module talks to the Service interface; GoogleClient implements it
// against the Google Maps web-service JSON endpoints.
package maps

import (
	"context"

	"tripreel/pkg/model"
)

// Service is the external map capability.
type Service interface {
	PlaceDetails(ctx context.Context, placeID string) (PlaceResult, error)
	TextSearch(ctx context.Context, query string) ([]PlaceResult, error)
	NearbySearch(ctx context.Context, q NearbyQuery) ([]PlaceResult, error)
	Directions(ctx context.Context, req DirectionsRequest) (*DirectionsResult, error)
}

// PlaceResult is a place as returned by details, text and nearby searches.
type PlaceResult struct {
	PlaceID          string        `json:"place_id"`
	Name             string        `json:"name"`
	Location         *model.LatLng `json:"location,omitempty"`
	Rating           *float64      `json:"rating,omitempty"`
	UserRatingsTotal *int          `json:"user_ratings_total,omitempty"`
	PriceLevel       *int          `json:"price_level,omitempty"`
	Vicinity         string        `json:"vicinity,omitempty"`
	FormattedAddress string        `json:"formatted_address,omitempty"`
	OpenNow          *bool         `json:"open_now,omitempty"`
}

// NearbyQuery is a proximity search around Center.
type NearbyQuery struct {
	Center  model.LatLng
	Radius  float64 // meters
	Type    string
	OpenNow bool
}

// Location is a routing endpoint: a place id or a coordinate.
type Location struct {
	PlaceID string
	LatLng  *model.LatLng
}

// String renders the location in the directions query syntax.
func (l Location) String() string {
	if l.PlaceID != "" {
		return "place_id:" + l.PlaceID
	}
	if l.LatLng != nil {
		return l.LatLng.String()
	}
	return ""
}

// LocationOf picks the routing endpoint for a spot: the place id when
// coordinates are absent, otherwise the coordinates.
func LocationOf(s model.Spot) Location {
	if c, ok := s.Coords(); ok {
		return Location{LatLng: &c}
	}
	return Location{PlaceID: s.PlaceID}
}

// DirectionsRequest is a multi-stop route. Waypoints are stopovers visited in order.
type DirectionsRequest struct {
	Origin      Location
	Destination Location
	Waypoints   []Location
	Mode        model.TravelMode
}

// DirectionsResult mirrors the provider's JSON so it can be cached verbatim.
type DirectionsResult struct {
	Routes []Route `json:"routes"`
}

type Route struct {
	Summary          string   `json:"summary,omitempty"`
	Legs             []Leg    `json:"legs"`
	OverviewPolyline Polyline `json:"overview_polyline"`
}

type Polyline struct {
	Points string `json:"points"`
}

// TextValue is the provider's {text, value} pair.
type TextValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type Leg struct {
	StartAddress string     `json:"start_address"`
	EndAddress   string     `json:"end_address"`
	Distance     *TextValue `json:"distance,omitempty"`
	Duration     *TextValue `json:"duration,omitempty"`
	Steps        []Step     `json:"steps"`
}

type Step struct {
	TravelMode     string          `json:"travel_mode"`
	TransitDetails *TransitDetails `json:"transit_details,omitempty"`
}

type TransitDetails struct {
	Line *TransitLine `json:"line,omitempty"`
}

type TransitLine struct {
	Name      string   `json:"name,omitempty"`
	ShortName string   `json:"short_name,omitempty"`
	Vehicle   *Vehicle `json:"vehicle,omitempty"`
}

type Vehicle struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Status describes whether the capability is usable, for the UI banner.
type Status struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}
