// Package route computes multi-stop routes for a day's spots and summarises
// them for display.
package route

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"tripreel/pkg/cache"
	"tripreel/pkg/maps"
	"tripreel/pkg/model"
)

var (
	// ErrInsufficientSpots is returned for fewer than two spots. No request is made.
	ErrInsufficientSpots = errors.New("at least two spots are needed for a route")
	// ErrIncompleteRoute means some spots could not be located.
	ErrIncompleteRoute = errors.New("some spots could not be located")
	// ErrNoRoute means the directions service returned no usable route.
	ErrNoRoute = errors.New("no route found")
)

// Resolver locates spots that have neither a place id nor coordinates.
type Resolver interface {
	Resolve(ctx context.Context, spot model.Spot) (model.SpotOverride, error)
}

// Planner computes routes through a day's spots in order.
type Planner struct {
	svc      maps.Service
	resolver Resolver
	cache    *cache.Tiered
	ttl      time.Duration
	group    singleflight.Group
}

// NewPlanner creates a Planner. ttl <= 0 uses the cache default.
func NewPlanner(svc maps.Service, r Resolver, c *cache.Tiered, ttl time.Duration) *Planner {
	return &Planner{svc: svc, resolver: r, cache: c, ttl: ttl}
}

// ComputeRoute routes through spots in the given order and returns the summary.
// Identical concurrent requests share a single upstream call.
func (p *Planner) ComputeRoute(ctx context.Context, day int, spots []model.Spot, mode model.TravelMode) (model.RouteSummary, error) {
	if len(spots) < 2 {
		return model.RouteSummary{}, ErrInsufficientSpots
	}
	if mode == "" {
		mode = model.ModeTransit
	}

	stops, err := p.locate(ctx, spots)
	if err != nil {
		return model.RouteSummary{}, err
	}

	key := model.RouteCacheKey(day, mode, stops)
	if res, ok := cache.Get[maps.DirectionsResult](ctx, p.cache, key); ok {
		slog.Debug("Route served from cache", "day", day, "mode", mode)
		return BuildSummary(&res, mode), nil
	}

	// The shared call outlives any one caller; each caller still stops waiting on its own ctx.
	flight := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		return p.fetch(flight, key, stops, mode)
	})
	select {
	case <-ctx.Done():
		return model.RouteSummary{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return model.RouteSummary{}, r.Err
		}
		if r.Shared {
			slog.Debug("Route request shared", "key", key)
		}
		return BuildSummary(r.Val.(*maps.DirectionsResult), mode), nil
	}
}

// keptCauses survive the incomplete-route wrap so banners and cancellation still match.
var keptCauses = []error{
	maps.ErrMissingCredential, maps.ErrQuotaExceeded, maps.ErrRequestDenied,
	context.Canceled, context.DeadlineExceeded,
}

// locate returns the spots with any missing locations filled in, resolving sequentially.
func (p *Planner) locate(ctx context.Context, spots []model.Spot) ([]model.Spot, error) {
	out := make([]model.Spot, len(spots))
	for i, s := range spots {
		if s.Resolved() {
			out[i] = s
			continue
		}
		o, err := p.resolver.Resolve(ctx, s)
		if err != nil {
			// The response names no culprit; the spot id stays in the log.
			slog.Debug("Route stop could not be located", "spot", s.ID, "error", err)
			for _, b := range keptCauses {
				if errors.Is(err, b) {
					return nil, fmt.Errorf("%w: %w", ErrIncompleteRoute, b)
				}
			}
			return nil, ErrIncompleteRoute
		}
		out[i] = s.Apply(o)
	}
	return out, nil
}

func (p *Planner) fetch(ctx context.Context, key string, stops []model.Spot, mode model.TravelMode) (*maps.DirectionsResult, error) {
	// A flight that finished between our cache check and Do already stored it.
	if res, ok := cache.Get[maps.DirectionsResult](ctx, p.cache, key); ok {
		return &res, nil
	}

	req := maps.DirectionsRequest{
		Origin:      maps.LocationOf(stops[0]),
		Destination: maps.LocationOf(stops[len(stops)-1]),
		Mode:        mode,
	}
	for _, s := range stops[1 : len(stops)-1] {
		req.Waypoints = append(req.Waypoints, maps.LocationOf(s))
	}

	res, err := p.svc.Directions(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, maps.ErrQuotaExceeded), errors.Is(err, maps.ErrMissingCredential), errors.Is(err, maps.ErrRequestDenied):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %w", ErrNoRoute, err)
		}
	}
	if res == nil || len(res.Routes) == 0 {
		return nil, ErrNoRoute
	}

	cache.Set(ctx, p.cache, key, *res, p.ttl)
	return res, nil
}
