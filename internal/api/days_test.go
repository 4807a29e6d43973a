package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripreel/pkg/cache"
	"tripreel/pkg/itinerary"
	"tripreel/pkg/maps"
	"tripreel/pkg/maps/mapstest"
	"tripreel/pkg/model"
	"tripreel/pkg/nearby"
	"tripreel/pkg/resolver"
	"tripreel/pkg/route"
	"tripreel/pkg/store"
)

const testItinerary = `
- day: 2
  title: "Rome highlights"
  base_city: Rome
  move_mode_default: WALKING
  spots:
    - id: colosseum
      name: Colosseum
      city: Rome
      country: Italy
    - id: pantheon
      name: Pantheon
      city: Rome
      country: Italy
      lat: 41.8986
      lng: 12.4769
- day: 3
  title: "Day trip"
  spots:
    - id: pompeii
      name: Pompeii
      city: Pompeii
      country: Italy
`

type testEnv struct {
	fake    *mapstest.Fake
	overlay *itinerary.Overlay
	cache   *cache.Tiered
	handler http.Handler
}

func ptr[T any](v T) *T { return &v }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	it, err := itinerary.Parse([]byte(testItinerary))
	require.NoError(t, err)

	fake := &mapstest.Fake{}
	c := cache.New(store.NewMemoryStore())
	ov := itinerary.NewOverlay()
	res := resolver.New(fake, c, resolver.OnResolved(ov.Set))
	pl := route.NewPlanner(fake, res, c, 0)
	rk := nearby.NewRanker(fake, c, nearby.Options{})

	days := NewDaysHandler(it, ov, res, pl, rk)
	srv := NewServer(":0", "", days, nil, nil, nil, nil, func() {})
	return &testEnv{fake: fake, overlay: ov, cache: c, handler: srv.Handler}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func colosseumFound(string) ([]maps.PlaceResult, error) {
	return []maps.PlaceResult{{PlaceID: "ChIJcol", Name: "Colosseum", Location: &model.LatLng{Lat: 41.89, Lng: 12.49}}}, nil
}

func TestListAndGetDays(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/days", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]DaySummary](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Day)
	assert.Equal(t, 2, list[0].SpotCount)

	rec = env.do(t, http.MethodGet, "/api/days/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	day := decode[DayResponse](t, rec)
	assert.Equal(t, "Rome highlights", day.Title)
	assert.Equal(t, model.LatLng{Lat: 41.8986, Lng: 12.4769}, day.Center, "only the pantheon is located")
	require.NotNil(t, day.Bounds)
	assert.Equal(t, day.Center, day.Bounds.SouthWest)

	day3 := decode[DayResponse](t, env.do(t, http.MethodGet, "/api/days/3", ""))
	assert.Nil(t, day3.Bounds)

	rec = env.do(t, http.MethodGet, "/api/days/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "day_not_found", decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/days/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveSpotUpdatesOverlay(t *testing.T) {
	env := newTestEnv(t)
	env.fake.TextFunc = colosseumFound

	rec := env.do(t, http.MethodPost, "/api/days/2/spots/colosseum/resolve", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	spot := decode[model.Spot](t, rec)
	require.NotNil(t, spot.Lat)
	assert.Equal(t, 41.89, *spot.Lat)
	assert.Equal(t, "ChIJcol", spot.PlaceID)
	assert.Equal(t, []string{"Colosseum Rome Italy"}, env.fake.Texts)

	o, ok := env.overlay.Get("colosseum")
	require.True(t, ok)
	assert.Equal(t, 12.49, *o.Lng)

	// The day view now carries the resolved spot.
	day := decode[DayResponse](t, env.do(t, http.MethodGet, "/api/days/2", ""))
	assert.True(t, day.Spots[0].HasCoords())

	rec = env.do(t, http.MethodPost, "/api/days/2/spots/nope/resolve", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveFailureStatus(t *testing.T) {
	env := newTestEnv(t)
	env.fake.TextFunc = func(string) ([]maps.PlaceResult, error) { return nil, nil }

	rec := env.do(t, http.MethodPost, "/api/days/3/spots/pompeii/resolve", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "resolution_failed", decode[ErrorResponse](t, rec).Code)
}

func TestRouteEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.fake.TextFunc = colosseumFound
	env.fake.DirectionsFunc = func(req maps.DirectionsRequest) (*maps.DirectionsResult, error) {
		return &maps.DirectionsResult{Routes: []maps.Route{{Legs: []maps.Leg{{
			Distance: &maps.TextValue{Text: "1.4 km", Value: 1400},
			Duration: &maps.TextValue{Text: "18 mins", Value: 1080},
			Steps:    []maps.Step{{TravelMode: "WALKING"}},
		}}}}}, nil
	}

	rec := env.do(t, http.MethodPost, "/api/days/2/route", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decode[model.RouteSummary](t, rec)
	require.Len(t, sum.Legs, 1)
	assert.Equal(t, "1.4 km", sum.DistanceText)
	assert.Equal(t, "18 min", sum.DurationText)

	require.Len(t, env.fake.DirectionsReqs, 1)
	assert.Equal(t, model.ModeWalking, env.fake.DirectionsReqs[0].Mode, "day default mode")

	rec = env.do(t, http.MethodPost, "/api/days/2/route", `{"mode":"DRIVING"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ModeDriving, env.fake.DirectionsReqs[1].Mode)

	rec = env.do(t, http.MethodPost, "/api/days/2/route", `{"mode":"FLYING"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/days/3/route", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_spots", decode[ErrorResponse](t, rec).Code)
}

func TestIncompleteRouteHidesSpot(t *testing.T) {
	env := newTestEnv(t)
	env.fake.TextFunc = func(string) ([]maps.PlaceResult, error) { return nil, nil }

	rec := env.do(t, http.MethodPost, "/api/days/2/route", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotContains(t, rec.Body.String(), "colosseum")
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "incomplete_route", resp.Code)
	assert.Equal(t, route.ErrIncompleteRoute.Error(), resp.Error)
	assert.False(t, resp.Banner)
	assert.Empty(t, env.fake.DirectionsReqs)
}

func TestMissingCredentialIsBanner(t *testing.T) {
	env := newTestEnv(t)
	env.fake.TextFunc = func(string) ([]maps.PlaceResult, error) { return nil, maps.ErrMissingCredential }

	rec := env.do(t, http.MethodPost, "/api/days/2/route", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.True(t, resp.Banner)
	assert.Equal(t, "missing_credential", resp.Code)
	assert.Equal(t, maps.Message(maps.ErrMissingCredential), resp.Error)
}

func TestQuotaIsBanner(t *testing.T) {
	env := newTestEnv(t)
	env.fake.NearbyFunc = func(maps.NearbyQuery) ([]maps.PlaceResult, error) { return nil, maps.ErrQuotaExceeded }

	rec := env.do(t, http.MethodPost, "/api/days/2/nearby", `{"spotId":"pantheon"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, decode[ErrorResponse](t, rec).Banner)
	assert.Len(t, env.fake.Nearby, 1, "quota is not retried")
}

func TestNearbyEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.fake.TextFunc = colosseumFound
	env.fake.NearbyFunc = func(q maps.NearbyQuery) ([]maps.PlaceResult, error) {
		return []maps.PlaceResult{
			{PlaceID: "a", Name: "Trattoria", Rating: ptr(4.2), UserRatingsTotal: ptr(120)},
			{PlaceID: "b", Name: "Unrated"},
			{PlaceID: "c", Name: "Osteria", Rating: ptr(4.7), UserRatingsTotal: ptr(900)},
		}, nil
	}

	rec := env.do(t, http.MethodPost, "/api/days/2/nearby", `{"spotId":"colosseum"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[NearbyResponse](t, rec)
	assert.Equal(t, model.LatLng{Lat: 41.89, Lng: 12.49}, resp.Center, "unlocated spot is resolved first")
	require.Len(t, resp.Places, 3)
	assert.Equal(t, "Osteria", resp.Places[0].Name)
	assert.Equal(t, "Unrated", resp.Places[2].Name)

	require.Len(t, env.fake.Nearby, 1)
	assert.True(t, env.fake.Nearby[0].OpenNow)
	assert.Equal(t, nearby.DefaultType, env.fake.Nearby[0].Type)

	// Cached on the second call.
	rec = env.do(t, http.MethodPost, "/api/days/2/nearby", `{"spotId":"colosseum"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.fake.Nearby, 1)

	rec = env.do(t, http.MethodPost, "/api/days/2/nearby", `{"spotId":"colosseum","refresh":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.fake.Nearby, 2)
}

func TestNearbyWithoutLocation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/days/3/nearby", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "no_center", decode[ErrorResponse](t, rec).Code)
	assert.Zero(t, env.fake.Calls())
}

func TestMapsStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/maps/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[maps.Status](t, rec)
	assert.False(t, st.Available)
	assert.NotEmpty(t, st.Message)
}

func TestHealthAndVersion(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/version", "")
	assert.Contains(t, decode[map[string]string](t, rec), "version")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{route.ErrIncompleteRoute, http.StatusUnprocessableEntity},
		{route.ErrNoRoute, http.StatusNotFound},
		{nearby.ErrNoResults, http.StatusNotFound},
		{maps.ErrUpstream, http.StatusBadGateway},
		{maps.ErrRequestDenied, http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := statusFor(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}
}
