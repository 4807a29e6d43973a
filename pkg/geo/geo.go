package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"tripreel/pkg/model"
)

// DefaultCenter is where the map opens when a day has no located spots (Zürich).
var DefaultCenter = model.LatLng{Lat: 47.3769, Lng: 8.5417}

// Bounds is a south-west / north-east box used to fit the map to a day.
type Bounds struct {
	SouthWest model.LatLng `json:"sw"`
	NorthEast model.LatLng `json:"ne"`
}

func toPoint(p model.LatLng) orb.Point {
	// orb uses [lon, lat] order
	return orb.Point{p.Lng, p.Lat}
}

func fromPoint(p orb.Point) model.LatLng {
	return model.LatLng{Lat: p.Lat(), Lng: p.Lon()}
}

// Distance returns the great-circle distance between two points in meters.
func Distance(a, b model.LatLng) float64 {
	return geo.DistanceHaversine(toPoint(a), toPoint(b))
}

// Centroid returns the arithmetic mean of the points. ok is false for an empty set.
func Centroid(points []model.LatLng) (model.LatLng, bool) {
	if len(points) == 0 {
		return model.LatLng{}, false
	}
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = toPoint(p)
	}
	c, _ := planar.CentroidArea(mp)
	return fromPoint(c), true
}

// BoundsOf returns the bounding box of the points. ok is false for an empty set.
func BoundsOf(points []model.LatLng) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = toPoint(p)
	}
	b := mp.Bound()
	return Bounds{SouthWest: fromPoint(b.Min), NorthEast: fromPoint(b.Max)}, true
}

// Valid reports whether p is a plausible WGS84 coordinate.
func Valid(p model.LatLng) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// SpotPoints collects the coordinates of the spots that have them, in order.
func SpotPoints(spots []model.Spot) []model.LatLng {
	var out []model.LatLng
	for _, s := range spots {
		if c, ok := s.Coords(); ok {
			out = append(out, c)
		}
	}
	return out
}
