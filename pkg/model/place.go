package model

import (
	"net/url"
	"strings"
)

// Place is a nearby recommendation returned by the places service.
type Place struct {
	PlaceID          string   `json:"placeId,omitempty"`
	Name             string   `json:"name"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"userRatingsTotal,omitempty"`
	PriceLevel       *int     `json:"priceLevel,omitempty"`
	Vicinity         string   `json:"vicinity,omitempty"`
	FormattedAddress string   `json:"formattedAddress,omitempty"`
	Location         *LatLng  `json:"location,omitempty"`
	OpenNow          *bool    `json:"openNow,omitempty"`
	DistanceMeters   *float64 `json:"distanceMeters,omitempty"` // from the search centre
	Score            float64  `json:"score"`
	PriceLabel       string   `json:"priceLabel"`
	MapsURL          string   `json:"mapsUrl"`
	DirectionsURL    string   `json:"directionsUrl"`
}

// Address prefers the short vicinity over the full formatted address.
func (p Place) Address() string {
	if p.Vicinity != "" {
		return p.Vicinity
	}
	return p.FormattedAddress
}

// PriceLabel renders a price level as 1-4 won signs, or "-" when unknown.
func PriceLabel(level *int) string {
	if level == nil {
		return "-"
	}
	n := *level + 1
	if n < 1 {
		n = 1
	}
	if n > 4 {
		n = 4
	}
	return strings.Repeat("₩", n)
}

const mapsBase = "https://www.google.com/maps"

// MapsURL links to the place page, or to a name search when the id is unknown.
func MapsURL(placeID, name string) string {
	if placeID != "" {
		return mapsBase + "/search/?api=1&query_place_id=" + url.QueryEscape(placeID)
	}
	return mapsBase + "/search/?api=1&query=" + url.PathEscape(name)
}

// DirectionsURL links to turn-by-turn directions to the place.
func DirectionsURL(placeID, name string) string {
	if placeID != "" {
		return mapsBase + "/dir/?api=1&destination=place_id:" + url.QueryEscape(placeID)
	}
	return mapsBase + "/dir/?api=1&destination=" + url.PathEscape(name)
}
