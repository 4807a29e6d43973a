package model

import (
	"fmt"
	"strconv"
	"strings"
)

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// String renders "lat,lng" with the shortest exact decimal form, as used in cache keys.
func (p LatLng) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// SpotCategory classifies a stop on the itinerary.
type SpotCategory string

const (
	CategoryArrival  SpotCategory = "arrival"
	CategoryHotel    SpotCategory = "hotel"
	CategorySight    SpotCategory = "sight"
	CategoryFood     SpotCategory = "food"
	CategoryTransfer SpotCategory = "transfer"
	CategoryActivity SpotCategory = "activity"
)

// SpotContent is the descriptive copy shown for a spot.
type SpotContent struct {
	Summary    string   `json:"summary" yaml:"summary"`
	History    string   `json:"history,omitempty" yaml:"history"`
	Highlights []string `json:"highlights,omitempty" yaml:"highlights"`
	Tips       []string `json:"tips,omitempty" yaml:"tips"`
}

// Spot is one named stop on a day's plan. Lat, Lng and PlaceID are optional
// and may be filled in later by an override.
type Spot struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	City      string       `json:"city" yaml:"city"`
	Country   string       `json:"country" yaml:"country"`
	Category  SpotCategory `json:"category" yaml:"category"`
	TimeBlock string       `json:"timeBlock,omitempty" yaml:"time_block"`
	Note      string       `json:"note,omitempty" yaml:"note"`
	Content   SpotContent  `json:"content" yaml:"content"`
	Lat       *float64     `json:"lat,omitempty" yaml:"lat"`
	Lng       *float64     `json:"lng,omitempty" yaml:"lng"`
	PlaceID   string       `json:"placeId,omitempty" yaml:"place_id"`
}

// HasCoords reports whether both coordinates are known.
func (s Spot) HasCoords() bool {
	return s.Lat != nil && s.Lng != nil
}

// Coords returns the spot position when HasCoords is true.
func (s Spot) Coords() (LatLng, bool) {
	if !s.HasCoords() {
		return LatLng{}, false
	}
	return LatLng{Lat: *s.Lat, Lng: *s.Lng}, true
}

// Resolved reports whether the spot can be routed: it has a place id or both coordinates.
func (s Spot) Resolved() bool {
	return s.PlaceID != "" || s.HasCoords()
}

// Signature identifies the spot's location in route cache keys: the place id
// when present, otherwise "lat,lng".
func (s Spot) Signature() string {
	if s.PlaceID != "" {
		return s.PlaceID
	}
	if c, ok := s.Coords(); ok {
		return c.String()
	}
	return ""
}

// Apply returns a copy of s with the override merged in.
func (s Spot) Apply(o SpotOverride) Spot {
	if o.Lat != nil {
		v := *o.Lat
		s.Lat = &v
	}
	if o.Lng != nil {
		v := *o.Lng
		s.Lng = &v
	}
	if o.PlaceID != nil && *o.PlaceID != "" {
		s.PlaceID = *o.PlaceID
	}
	return s
}

// SpotOverride is a partial location patch for a spot.
type SpotOverride struct {
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	PlaceID *string  `json:"placeId,omitempty"`
}

// Merge returns o with later's non-nil fields applied. Nil fields never clear.
func (o SpotOverride) Merge(later SpotOverride) SpotOverride {
	if later.Lat != nil {
		o.Lat = later.Lat
	}
	if later.Lng != nil {
		o.Lng = later.Lng
	}
	if later.PlaceID != nil {
		o.PlaceID = later.PlaceID
	}
	return o
}

// Empty reports whether the override carries no fields.
func (o SpotOverride) Empty() bool {
	return o.Lat == nil && o.Lng == nil && o.PlaceID == nil
}

// NewOverride builds an override from a position and an optional place id.
func NewOverride(p LatLng, placeID string) SpotOverride {
	lat, lng := p.Lat, p.Lng
	o := SpotOverride{Lat: &lat, Lng: &lng}
	if placeID != "" {
		id := placeID
		o.PlaceID = &id
	}
	return o
}

// TravelMode is the routing profile requested from the directions service.
type TravelMode string

const (
	ModeTransit TravelMode = "TRANSIT"
	ModeDriving TravelMode = "DRIVING"
	ModeWalking TravelMode = "WALKING"
)

// ParseTravelMode accepts any case; empty means transit.
func ParseTravelMode(s string) (TravelMode, error) {
	switch m := TravelMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case "":
		return ModeTransit, nil
	case ModeTransit, ModeDriving, ModeWalking:
		return m, nil
	default:
		return "", fmt.Errorf("unknown travel mode %q", s)
	}
}

// DayPlan is one day of the itinerary.
type DayPlan struct {
	Day             int        `json:"day" yaml:"day"`
	Date            string     `json:"date" yaml:"date"`
	Title           string     `json:"title" yaml:"title"`
	SummaryLine     string     `json:"summaryLine" yaml:"summary_line"`
	HeroImage       string     `json:"heroImage,omitempty" yaml:"hero_image"`
	MotionLabel     string     `json:"motionLabel,omitempty" yaml:"motion_label"`
	BaseCity        string     `json:"baseCity" yaml:"base_city"`
	MoveModeDefault TravelMode `json:"moveModeDefault" yaml:"move_mode_default"`
	Spots           []Spot     `json:"spots" yaml:"spots"`
}

// Spot returns the spot with the given id.
func (d DayPlan) Spot(id string) (Spot, bool) {
	for _, s := range d.Spots {
		if s.ID == id {
			return s, true
		}
	}
	return Spot{}, false
}
