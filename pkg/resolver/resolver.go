// Package resolver turns itinerary spots that lack coordinates into concrete
// locations using the maps service, caching the answer per spot.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tripreel/pkg/cache"
	"tripreel/pkg/maps"
	"tripreel/pkg/model"
)

// ErrResolutionFailed means the spot could not be located. The cause is wrapped.
var ErrResolutionFailed = errors.New("spot could not be located")

// Callback receives every successful resolution, cached or fresh.
type Callback func(spotID string, o model.SpotOverride)

// Resolver locates spots. Concurrent Resolve calls for the same spot are not
// de-duplicated; both may query upstream and both report the result.
type Resolver struct {
	svc        maps.Service
	cache      *cache.Tiered
	ttl        time.Duration
	onResolved Callback
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL sets the cache TTL for resolved locations. Zero uses the cache default.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

// OnResolved registers the callback invoked after each successful resolution.
func OnResolved(cb Callback) Option {
	return func(r *Resolver) { r.onResolved = cb }
}

// New creates a Resolver.
func New(svc maps.Service, c *cache.Tiered, opts ...Option) *Resolver {
	r := &Resolver{svc: svc, cache: c}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Query builds the free-text search for a spot: "<name> <city> <country>".
func Query(s model.Spot) string {
	return strings.TrimSpace(strings.Join([]string{s.Name, s.City, s.Country}, " "))
}

// Resolve returns the location of spot. A cached answer is returned without
// touching the network. Place ids are looked up directly; everything else goes
// through text search and takes the first result.
func (r *Resolver) Resolve(ctx context.Context, spot model.Spot) (model.SpotOverride, error) {
	key := model.SpotCacheKey(spot.ID)
	if o, ok := cache.Get[model.SpotOverride](ctx, r.cache, key); ok {
		r.notify(spot.ID, o)
		return o, nil
	}

	var (
		o   model.SpotOverride
		err error
	)
	if spot.PlaceID != "" {
		o, err = r.byPlaceID(ctx, spot)
	} else {
		o, err = r.byText(ctx, spot)
	}
	if err != nil {
		slog.Debug("Spot resolution failed", "spot", spot.ID, "error", err)
		return model.SpotOverride{}, err
	}

	cache.Set(ctx, r.cache, key, o, r.ttl)
	slog.Debug("Spot resolved", "spot", spot.ID, "lat", *o.Lat, "lng", *o.Lng)
	r.notify(spot.ID, o)
	return o, nil
}

func (r *Resolver) byPlaceID(ctx context.Context, spot model.Spot) (model.SpotOverride, error) {
	p, err := r.svc.PlaceDetails(ctx, spot.PlaceID)
	if err != nil {
		return model.SpotOverride{}, wrap(spot, err)
	}
	if p.Location == nil {
		return model.SpotOverride{}, fmt.Errorf("%w: %s: place has no location", ErrResolutionFailed, spot.ID)
	}
	id := p.PlaceID
	if id == "" {
		id = spot.PlaceID
	}
	return model.NewOverride(*p.Location, id), nil
}

func (r *Resolver) byText(ctx context.Context, spot model.Spot) (model.SpotOverride, error) {
	results, err := r.svc.TextSearch(ctx, Query(spot))
	if err != nil {
		return model.SpotOverride{}, wrap(spot, err)
	}
	if len(results) == 0 {
		return model.SpotOverride{}, fmt.Errorf("%w: %s: no results", ErrResolutionFailed, spot.ID)
	}
	first := results[0]
	if first.Location == nil {
		return model.SpotOverride{}, fmt.Errorf("%w: %s: result has no location", ErrResolutionFailed, spot.ID)
	}
	return model.NewOverride(*first.Location, first.PlaceID), nil
}

func (r *Resolver) notify(spotID string, o model.SpotOverride) {
	if r.onResolved != nil {
		r.onResolved(spotID, o)
	}
}

// wrap keeps credential and quota errors matchable alongside ErrResolutionFailed.
func wrap(spot model.Spot, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrResolutionFailed, spot.ID, err)
}
