package itinerary

import (
	"sync"

	"tripreel/pkg/geo"
	"tripreel/pkg/model"
)

// Overlay collects location overrides for spots. Overrides merge additively:
// a later nil field never clears an earlier value. Safe for concurrent use.
type Overlay struct {
	mu        sync.RWMutex
	overrides map[string]model.SpotOverride
}

// NewOverlay creates an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{overrides: make(map[string]model.SpotOverride)}
}

// Set merges o into the override stored for spotID. It matches resolver.Callback.
func (ov *Overlay) Set(spotID string, o model.SpotOverride) {
	ov.mu.Lock()
	defer ov.mu.Unlock()
	ov.overrides[spotID] = ov.overrides[spotID].Merge(o)
}

// Get returns the override for spotID.
func (ov *Overlay) Get(spotID string) (model.SpotOverride, bool) {
	ov.mu.RLock()
	defer ov.mu.RUnlock()
	o, ok := ov.overrides[spotID]
	return o, ok
}

// Len returns the number of spots with overrides.
func (ov *Overlay) Len() int {
	ov.mu.RLock()
	defer ov.mu.RUnlock()
	return len(ov.overrides)
}

// ApplySpot returns s with its override merged in.
func (ov *Overlay) ApplySpot(s model.Spot) model.Spot {
	if o, ok := ov.Get(s.ID); ok {
		return s.Apply(o)
	}
	return s
}

// Apply returns a copy of day with every override merged into its spots.
func (ov *Overlay) Apply(day model.DayPlan) model.DayPlan {
	spots := make([]model.Spot, len(day.Spots))
	for i, s := range day.Spots {
		spots[i] = ov.ApplySpot(s)
	}
	day.Spots = spots
	return day
}

// Center picks the map centre for a day: the selected spot when it has
// coordinates, else the centroid of the spots that do. ok is false when
// nothing on the day is located; callers then fall back to geo.DefaultCenter.
func Center(day model.DayPlan, selectedID string) (model.LatLng, bool) {
	if selectedID != "" {
		if s, ok := day.Spot(selectedID); ok {
			if c, ok := s.Coords(); ok {
				return c, true
			}
		}
	}
	return geo.Centroid(geo.SpotPoints(day.Spots))
}

// CenterOrDefault is Center with the default map centre as fallback.
func CenterOrDefault(day model.DayPlan, selectedID string) model.LatLng {
	if c, ok := Center(day, selectedID); ok {
		return c
	}
	return geo.DefaultCenter
}
