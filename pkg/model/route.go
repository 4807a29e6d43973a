package model

import (
	"fmt"
	"strings"
)

// RouteLeg is one hop between consecutive stops.
type RouteLeg struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Distance string `json:"distance"`
	Duration string `json:"duration"`
	Mode     string `json:"mode"`
}

// RouteSummary is the human-readable digest of a directions result.
type RouteSummary struct {
	DistanceMeters  int        `json:"distanceMeters"`
	DistanceText    string     `json:"distanceText"`
	DurationSeconds int        `json:"durationSeconds"`
	DurationText    string     `json:"durationText"`
	Legs            []RouteLeg `json:"legs"`
	Polyline        string     `json:"polyline,omitempty"`
}

// FormatKilometers renders meters as "12.3 km".
func FormatKilometers(meters int) string {
	return fmt.Sprintf("%.1f km", float64(meters)/1000)
}

// FormatMinutes renders seconds as whole rounded minutes, "42 min".
func FormatMinutes(seconds int) string {
	return fmt.Sprintf("%d min", (seconds+30)/60)
}

// RouteCacheKey builds "directions:<day>:<mode>:<sig1>><sig2>>..." from the ordered spots.
func RouteCacheKey(day int, mode TravelMode, spots []Spot) string {
	sigs := make([]string, len(spots))
	for i, s := range spots {
		sigs[i] = s.Signature()
	}
	return fmt.Sprintf("directions:%d:%s:%s", day, mode, strings.Join(sigs, ">"))
}

// SpotCacheKey is the resolver's cache key for a spot.
func SpotCacheKey(spotID string) string {
	return "spot-location:" + spotID
}

// PlacesCacheKey is the nearby cache key: "places:<spotID or day-N>:<lat>,<lng>".
func PlacesCacheKey(day int, spotID string, center LatLng) string {
	scope := spotID
	if scope == "" {
		scope = fmt.Sprintf("day-%d", day)
	}
	return "places:" + scope + ":" + center.String()
}
