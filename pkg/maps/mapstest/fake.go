// Package mapstest provides a scriptable maps.Service for tests.
package mapstest

import (
	"context"
	"sync"

	"tripreel/pkg/maps"
)

// Fake is an in-memory maps.Service. Unset handlers return maps.ErrNotFound.
type Fake struct {
	mu sync.Mutex

	DetailsFunc    func(placeID string) (maps.PlaceResult, error)
	TextFunc       func(query string) ([]maps.PlaceResult, error)
	NearbyFunc     func(q maps.NearbyQuery) ([]maps.PlaceResult, error)
	DirectionsFunc func(req maps.DirectionsRequest) (*maps.DirectionsResult, error)

	Details        []string
	Texts          []string
	Nearby         []maps.NearbyQuery
	DirectionsReqs []maps.DirectionsRequest
}

var _ maps.Service = (*Fake)(nil)

// Calls returns the total number of upstream calls seen.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Details) + len(f.Texts) + len(f.Nearby) + len(f.DirectionsReqs)
}

func (f *Fake) PlaceDetails(_ context.Context, placeID string) (maps.PlaceResult, error) {
	f.mu.Lock()
	f.Details = append(f.Details, placeID)
	fn := f.DetailsFunc
	f.mu.Unlock()
	if fn == nil {
		return maps.PlaceResult{}, maps.ErrNotFound
	}
	return fn(placeID)
}

func (f *Fake) TextSearch(_ context.Context, query string) ([]maps.PlaceResult, error) {
	f.mu.Lock()
	f.Texts = append(f.Texts, query)
	fn := f.TextFunc
	f.mu.Unlock()
	if fn == nil {
		return nil, maps.ErrNotFound
	}
	return fn(query)
}

func (f *Fake) NearbySearch(_ context.Context, q maps.NearbyQuery) ([]maps.PlaceResult, error) {
	f.mu.Lock()
	f.Nearby = append(f.Nearby, q)
	fn := f.NearbyFunc
	f.mu.Unlock()
	if fn == nil {
		return nil, maps.ErrNotFound
	}
	return fn(q)
}

func (f *Fake) Directions(_ context.Context, req maps.DirectionsRequest) (*maps.DirectionsResult, error) {
	f.mu.Lock()
	f.DirectionsReqs = append(f.DirectionsReqs, req)
	fn := f.DirectionsFunc
	f.mu.Unlock()
	if fn == nil {
		return nil, maps.ErrNotFound
	}
	return fn(req)
}
