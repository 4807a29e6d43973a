package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tripreel/pkg/itinerary"
	"tripreel/pkg/maps"
	"tripreel/pkg/nearby"
	"tripreel/pkg/player"
	"tripreel/pkg/resolver"
	"tripreel/pkg/route"
)

var (
	errBadRequest   = errors.New("bad request")
	errSpotNotFound = errors.New("spot not found")
)

// ErrorResponse is the JSON body of every failed API call.
// Banner marks errors the UI keeps on screen until the next success.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Banner bool   `json:"banner,omitempty"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{maps.ErrMissingCredential, http.StatusServiceUnavailable, "missing_credential"},
	{maps.ErrQuotaExceeded, http.StatusTooManyRequests, "quota_exceeded"},
	{maps.ErrRequestDenied, http.StatusServiceUnavailable, "request_denied"},
	{errBadRequest, http.StatusBadRequest, "bad_request"},
	{errUnknownAction, http.StatusBadRequest, "unknown_action"},
	{player.ErrInvalidIndex, http.StatusBadRequest, "invalid_index"},
	{route.ErrInsufficientSpots, http.StatusBadRequest, "insufficient_spots"},
	{itinerary.ErrDayNotFound, http.StatusNotFound, "day_not_found"},
	{errSpotNotFound, http.StatusNotFound, "spot_not_found"},
	{route.ErrIncompleteRoute, http.StatusUnprocessableEntity, "incomplete_route"},
	{resolver.ErrResolutionFailed, http.StatusUnprocessableEntity, "resolution_failed"},
	{nearby.ErrNoCenter, http.StatusUnprocessableEntity, "no_center"},
	{route.ErrNoRoute, http.StatusNotFound, "no_route"},
	{nearby.ErrNoResults, http.StatusNotFound, "no_results"},
	{maps.ErrNotFound, http.StatusNotFound, "not_found"},
	{maps.ErrUpstream, http.StatusBadGateway, "upstream"},
}

// statusFor maps a domain error onto an HTTP status and stable code.
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	banner := maps.IsBanner(err)
	switch {
	case banner:
		msg = maps.Message(err)
	case code == "incomplete_route":
		msg = route.ErrIncompleteRoute.Error()
	}
	if status >= http.StatusInternalServerError {
		slog.Warn("API request failed", "code", code, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code, Banner: banner})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
