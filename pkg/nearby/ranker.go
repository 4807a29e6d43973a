// Package nearby finds and ranks places (restaurants by default) around a
// spot or a day's centre.
package nearby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"tripreel/pkg/cache"
	"tripreel/pkg/geo"
	"tripreel/pkg/maps"
	"tripreel/pkg/model"
)

const (
	DefaultRadius = 1500 // meters
	DefaultType   = "restaurant"
	// Limit is the number of places returned.
	Limit = 5
)

var (
	// ErrNoResults means neither the open-now nor the unfiltered search found anything.
	ErrNoResults = errors.New("no nearby places found")
	// ErrNoCenter means there is no location to search around.
	ErrNoCenter = errors.New("no location to search around")
)

// Request describes a nearby search. SpotID is empty for a whole-day search.
type Request struct {
	DayNumber int
	SpotID    string
	Center    *model.LatLng
	Category  string
	Refresh   bool
}

// Options configures a Ranker.
type Options struct {
	Radius float64 // meters
	Type   string
	TTL    time.Duration
}

// Ranker searches the maps service and ranks the results.
type Ranker struct {
	svc   maps.Service
	cache *cache.Tiered
	opts  Options
}

// NewRanker creates a Ranker. Zero options take the package defaults.
func NewRanker(svc maps.Service, c *cache.Tiered, opts Options) *Ranker {
	if opts.Radius <= 0 {
		opts.Radius = DefaultRadius
	}
	if opts.Type == "" {
		opts.Type = DefaultType
	}
	return &Ranker{svc: svc, cache: c, opts: opts}
}

// CacheKey returns the key a request is cached under. Searches for the default
// category keep the plain "places:<scope>:<lat>,<lng>" form.
func (r *Ranker) CacheKey(req Request) string {
	key := model.PlacesCacheKey(req.DayNumber, req.SpotID, *req.Center)
	if cat := req.Category; cat != "" && cat != r.opts.Type {
		key += ":" + cat
	}
	return key
}

// FindNearby returns up to Limit places around req.Center, best first.
// Open places are searched first; an empty answer retries once without the filter.
func (r *Ranker) FindNearby(ctx context.Context, req Request) ([]model.Place, error) {
	if req.Center == nil {
		return nil, ErrNoCenter
	}
	key := r.CacheKey(req)
	if !req.Refresh {
		if places, ok := cache.Get[[]model.Place](ctx, r.cache, key); ok {
			return places, nil
		}
	}

	q := maps.NearbyQuery{
		Center:  *req.Center,
		Radius:  r.opts.Radius,
		Type:    req.Category,
		OpenNow: true,
	}
	if q.Type == "" {
		q.Type = r.opts.Type
	}

	results, err := r.svc.NearbySearch(ctx, q)
	if fatal(err) {
		return nil, err
	}
	if err != nil || len(results) == 0 {
		slog.Debug("No open places, retrying without filter", "key", key, "error", err)
		q.OpenNow = false
		results, err = r.svc.NearbySearch(ctx, q)
		if fatal(err) {
			return nil, err
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoResults, err)
	}

	places := Rank(results)
	if len(places) == 0 {
		return nil, ErrNoResults
	}
	for i := range places {
		if loc := places[i].Location; loc != nil {
			d := math.Round(geo.Distance(*req.Center, *loc))
			places[i].DistanceMeters = &d
		}
	}
	cache.Set(ctx, r.cache, key, places, r.opts.TTL)
	return places, nil
}

// fatal errors are returned as-is without the unfiltered retry.
func fatal(err error) bool {
	return errors.Is(err, maps.ErrQuotaExceeded) || errors.Is(err, maps.ErrMissingCredential) ||
		errors.Is(err, maps.ErrRequestDenied) || errors.Is(err, context.Canceled)
}

// Score ranks a place: rating*10 + log10(reviews+1)*5, or -1 when either is missing or zero.
func Score(rating *float64, reviews *int) float64 {
	if rating == nil || *rating == 0 || reviews == nil || *reviews == 0 {
		return -1
	}
	return *rating*10 + math.Log10(float64(*reviews)+1)*5
}

// Rank drops nameless results, scores the rest and returns the top Limit,
// stable by input order on equal scores.
func Rank(results []maps.PlaceResult) []model.Place {
	places := make([]model.Place, 0, len(results))
	for _, res := range results {
		if res.Name == "" {
			continue
		}
		places = append(places, toPlace(res))
	}
	sort.SliceStable(places, func(i, j int) bool { return places[i].Score > places[j].Score })
	if len(places) > Limit {
		places = places[:Limit]
	}
	return places
}

func toPlace(res maps.PlaceResult) model.Place {
	return model.Place{
		PlaceID:          res.PlaceID,
		Name:             res.Name,
		Rating:           res.Rating,
		UserRatingsTotal: res.UserRatingsTotal,
		PriceLevel:       res.PriceLevel,
		Vicinity:         res.Vicinity,
		FormattedAddress: res.FormattedAddress,
		Location:         res.Location,
		OpenNow:          res.OpenNow,
		Score:            Score(res.Rating, res.UserRatingsTotal),
		PriceLabel:       model.PriceLabel(res.PriceLevel),
		MapsURL:          model.MapsURL(res.PlaceID, res.Name),
		DirectionsURL:    model.DirectionsURL(res.PlaceID, res.Name),
	}
}
