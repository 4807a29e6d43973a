package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tripreel/pkg/model"
	"tripreel/pkg/request"
	"tripreel/pkg/tracker"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// GoogleOptions configures a GoogleClient.
type GoogleOptions struct {
	Key      string
	BaseURL  string // defaults to the public endpoint
	Language string
	Tracker  *tracker.Tracker // optional, counts ZERO_RESULTS answers
}

// GoogleClient implements Service against the Google Maps web services.
type GoogleClient struct {
	request  *request.Client
	tracker  *tracker.Tracker
	key      string
	baseURL  string
	language string
}

// NewGoogleClient creates a client. An empty key is allowed: every call then
// fails with ErrMissingCredential without touching the network.
func NewGoogleClient(r *request.Client, opts GoogleOptions) *GoogleClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	return &GoogleClient{
		request:  r,
		tracker:  opts.Tracker,
		key:      strings.TrimSpace(opts.Key),
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		language: opts.Language,
	}
}

// Status reports whether the client can be used at all.
func (c *GoogleClient) Status() Status {
	if c.key == "" {
		return Status{Available: false, Message: Message(ErrMissingCredential)}
	}
	return Status{Available: true}
}

type apiPlace struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Geometry *struct {
		Location *model.LatLng `json:"location"`
	} `json:"geometry"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal *int     `json:"user_ratings_total"`
	PriceLevel       *int     `json:"price_level"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	OpeningHours     *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours"`
}

func (p apiPlace) toResult() PlaceResult {
	r := PlaceResult{
		PlaceID:          p.PlaceID,
		Name:             p.Name,
		Rating:           p.Rating,
		UserRatingsTotal: p.UserRatingsTotal,
		PriceLevel:       p.PriceLevel,
		Vicinity:         p.Vicinity,
		FormattedAddress: p.FormattedAddress,
	}
	if p.Geometry != nil && p.Geometry.Location != nil {
		loc := *p.Geometry.Location
		r.Location = &loc
	}
	if p.OpeningHours != nil {
		r.OpenNow = p.OpeningHours.OpenNow
	}
	return r
}

type envelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type detailsResponse struct {
	envelope
	Result *apiPlace `json:"result"`
}

type searchResponse struct {
	envelope
	Results []apiPlace `json:"results"`
}

type directionsResponse struct {
	envelope
	DirectionsResult
}

// PlaceDetails looks up a single place by id.
func (c *GoogleClient) PlaceDetails(ctx context.Context, placeID string) (PlaceResult, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "place_id,name,geometry,rating,user_ratings_total,price_level,vicinity,formatted_address")

	var resp detailsResponse
	if err := c.call(ctx, "place/details", q, &resp, &resp.envelope); err != nil {
		return PlaceResult{}, err
	}
	if resp.Result == nil {
		return PlaceResult{}, ErrNotFound
	}
	return resp.Result.toResult(), nil
}

// TextSearch runs a free-text place query.
func (c *GoogleClient) TextSearch(ctx context.Context, query string) ([]PlaceResult, error) {
	q := url.Values{}
	q.Set("query", query)

	var resp searchResponse
	if err := c.call(ctx, "place/textsearch", q, &resp, &resp.envelope); err != nil {
		return nil, err
	}
	return toResults(resp.Results), nil
}

// NearbySearch finds places of a type within a radius.
func (c *GoogleClient) NearbySearch(ctx context.Context, nq NearbyQuery) ([]PlaceResult, error) {
	q := url.Values{}
	q.Set("location", nq.Center.String())
	q.Set("radius", strconv.FormatFloat(nq.Radius, 'f', 0, 64))
	if nq.Type != "" {
		q.Set("type", nq.Type)
	}
	if nq.OpenNow {
		q.Set("opennow", "true")
	}

	var resp searchResponse
	if err := c.call(ctx, "place/nearbysearch", q, &resp, &resp.envelope); err != nil {
		return nil, err
	}
	return toResults(resp.Results), nil
}

// Directions computes a route through the waypoints in the given order.
func (c *GoogleClient) Directions(ctx context.Context, req DirectionsRequest) (*DirectionsResult, error) {
	q := url.Values{}
	q.Set("origin", req.Origin.String())
	q.Set("destination", req.Destination.String())
	if len(req.Waypoints) > 0 {
		wps := make([]string, len(req.Waypoints))
		for i, w := range req.Waypoints {
			wps[i] = w.String()
		}
		q.Set("waypoints", strings.Join(wps, "|"))
	}
	mode := req.Mode
	if mode == "" {
		mode = model.ModeTransit
	}
	q.Set("mode", strings.ToLower(string(mode)))

	var resp directionsResponse
	if err := c.call(ctx, "directions", q, &resp, &resp.envelope); err != nil {
		return nil, err
	}
	if len(resp.Routes) == 0 {
		return nil, ErrNotFound
	}
	out := resp.DirectionsResult
	return &out, nil
}

func toResults(in []apiPlace) []PlaceResult {
	out := make([]PlaceResult, 0, len(in))
	for _, p := range in {
		out = append(out, p.toResult())
	}
	return out
}

// call performs the request, decodes into dst and maps the provider status.
func (c *GoogleClient) call(ctx context.Context, endpoint string, q url.Values, dst any, env *envelope) error {
	if c.key == "" {
		return ErrMissingCredential
	}
	q.Set("key", c.key)
	if c.language != "" {
		q.Set("language", c.language)
	}
	u := fmt.Sprintf("%s/%s/json?%s", c.baseURL, endpoint, q.Encode())

	body, err := c.request.Get(ctx, u)
	if err != nil {
		return mapTransportError(endpoint, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrUpstream, endpoint, err)
	}
	err = mapStatus(endpoint, env.Status, env.ErrorMessage)
	if errors.Is(err, ErrNotFound) && c.tracker != nil {
		c.tracker.TrackAPIZero("maps")
	}
	return err
}

func mapTransportError(endpoint string, err error) error {
	if errors.Is(err, request.ErrRateLimited) {
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, endpoint)
	}
	var se *request.StatusError
	if errors.As(err, &se) && se.Code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrRequestDenied, endpoint)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstream, endpoint, err)
}

func mapStatus(endpoint, status, msg string) error {
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, endpoint)
	case "REQUEST_DENIED":
		slog.Warn("Maps request denied", "endpoint", endpoint, "message", msg)
		return fmt.Errorf("%w: %s: %s", ErrRequestDenied, endpoint, msg)
	default:
		if msg != "" {
			return fmt.Errorf("%w: %s: %s (%s)", ErrUpstream, endpoint, status, msg)
		}
		return fmt.Errorf("%w: %s: status %q", ErrUpstream, endpoint, status)
	}
}
