package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestSpotResolved(t *testing.T) {
	tests := []struct {
		name     string
		spot     Spot
		resolved bool
		sig      string
	}{
		{"PlaceIDOnly", Spot{PlaceID: "ChIJ1"}, true, "ChIJ1"},
		{"CoordsOnly", Spot{Lat: ptr(41.9028), Lng: ptr(12.4964)}, true, "41.9028,12.4964"},
		{"Both", Spot{PlaceID: "ChIJ2", Lat: ptr(1.0), Lng: ptr(2.0)}, true, "ChIJ2"},
		{"LatOnly", Spot{Lat: ptr(1.0)}, false, ""},
		{"Nothing", Spot{}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.resolved, tt.spot.Resolved())
			assert.Equal(t, tt.sig, tt.spot.Signature())
		})
	}
}

func TestOverrideMergeIsAdditive(t *testing.T) {
	first := SpotOverride{PlaceID: ptr("ChIJ-colosseum")}
	second := SpotOverride{Lat: ptr(41.8902), Lng: ptr(12.4922)}

	merged := first.Merge(second)
	require.NotNil(t, merged.PlaceID)
	assert.Equal(t, "ChIJ-colosseum", *merged.PlaceID, "later nil field must not clear earlier value")
	assert.Equal(t, 41.8902, *merged.Lat)

	// Later non-nil wins.
	merged = merged.Merge(SpotOverride{Lat: ptr(41.0)})
	assert.Equal(t, 41.0, *merged.Lat)
	assert.Equal(t, 12.4922, *merged.Lng)

	assert.True(t, SpotOverride{}.Empty())
	assert.False(t, merged.Empty())
}

func TestSpotApply(t *testing.T) {
	s := Spot{ID: "d2-colosseum", Name: "Colosseum", PlaceID: "keep"}
	out := s.Apply(NewOverride(LatLng{41.8902, 12.4922}, ""))
	assert.Equal(t, "keep", out.PlaceID)
	assert.True(t, out.HasCoords())
	assert.False(t, s.HasCoords(), "Apply must not mutate the receiver")
}

func TestRouteCacheKey(t *testing.T) {
	spots := []Spot{
		{PlaceID: "ChIJa"},
		{Lat: ptr(41.9), Lng: ptr(12.5)},
		{PlaceID: "ChIJc"},
	}
	assert.Equal(t, "directions:2:TRANSIT:ChIJa>41.9,12.5>ChIJc", RouteCacheKey(2, ModeTransit, spots))
	assert.NotEqual(t, RouteCacheKey(2, ModeTransit, spots), RouteCacheKey(2, ModeWalking, spots))
	reversed := []Spot{spots[2], spots[1], spots[0]}
	assert.NotEqual(t, RouteCacheKey(2, ModeTransit, spots), RouteCacheKey(2, ModeTransit, reversed))
}

func TestPlacesCacheKey(t *testing.T) {
	c := LatLng{41.8902, 12.4922}
	assert.Equal(t, "places:d2-colosseum:41.8902,12.4922", PlacesCacheKey(2, "d2-colosseum", c))
	assert.Equal(t, "places:day-2:41.8902,12.4922", PlacesCacheKey(2, "", c))
	assert.Equal(t, "spot-location:d1-fco", SpotCacheKey("d1-fco"))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "12.3 km", FormatKilometers(12345))
	assert.Equal(t, "0.0 km", FormatKilometers(0))
	assert.Equal(t, "42 min", FormatMinutes(42*60+29))
	assert.Equal(t, "43 min", FormatMinutes(42*60+30))
}

func TestParseTravelMode(t *testing.T) {
	m, err := ParseTravelMode("walking")
	require.NoError(t, err)
	assert.Equal(t, ModeWalking, m)

	m, err = ParseTravelMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeTransit, m)

	_, err = ParseTravelMode("BICYCLING")
	assert.Error(t, err)
}

func TestPriceLabel(t *testing.T) {
	assert.Equal(t, "-", PriceLabel(nil))
	assert.Equal(t, "₩", PriceLabel(ptr(0)))
	assert.Equal(t, "₩₩₩", PriceLabel(ptr(2)))
	assert.Equal(t, "₩₩₩₩", PriceLabel(ptr(9)))
	assert.Equal(t, "₩", PriceLabel(ptr(-3)))
}

func TestLinks(t *testing.T) {
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query_place_id=abc", MapsURL("abc", "Roscioli"))
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=Da%20Enzo", MapsURL("", "Da Enzo"))
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=place_id:abc", DirectionsURL("abc", "x"))
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=Da%20Enzo", DirectionsURL("", "Da Enzo"))
}

func TestLayer(t *testing.T) {
	assert.Equal(t, 0, LayerA.Index())
	assert.Equal(t, 1, LayerB.Index())
	assert.Equal(t, LayerB, LayerAt(1))
	assert.Equal(t, LayerA, LayerAt(0))
}

func TestSpotJSON(t *testing.T) {
	data, err := json.Marshal(Spot{ID: "x", Name: "Roma Termini"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "lat")
	assert.NotContains(t, string(data), "placeId")
}
