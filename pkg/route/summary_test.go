package route

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tripreel/pkg/maps"
	"tripreel/pkg/model"
)

func TestLegMode(t *testing.T) {
	line := func(short, name, vehicle string) *maps.TransitDetails {
		l := &maps.TransitLine{ShortName: short, Name: name}
		if vehicle != "" {
			l.Vehicle = &maps.Vehicle{Type: vehicle}
		}
		return &maps.TransitDetails{Line: l}
	}

	tests := []struct {
		name  string
		steps []maps.Step
		want  string
	}{
		{"NoSteps", nil, "TRANSIT"},
		{"ShortName", []maps.Step{{TravelMode: "TRANSIT", TransitDetails: line("U1", "Line One", "SUBWAY")}}, "TRANSIT (U1)"},
		{"LineName", []maps.Step{{TravelMode: "TRANSIT", TransitDetails: line("", "Frecciarossa", "HIGH_SPEED_TRAIN")}}, "TRANSIT (Frecciarossa)"},
		{"VehicleType", []maps.Step{{TravelMode: "TRANSIT", TransitDetails: line("", "", "BUS")}}, "TRANSIT (BUS)"},
		{"BareTransit", []maps.Step{{TravelMode: "TRANSIT"}}, "TRANSIT"},
		{
			"DistinctInOrder",
			[]maps.Step{
				{TravelMode: "WALKING"},
				{TravelMode: "TRANSIT", TransitDetails: line("FR", "", "")},
				{TravelMode: "WALKING"},
				{TravelMode: "TRANSIT", TransitDetails: line("FR", "", "")},
			},
			"WALKING, TRANSIT (FR)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, legMode(tt.steps, model.ModeTransit))
		})
	}
}

func TestBuildSummaryMissingFields(t *testing.T) {
	res := &maps.DirectionsResult{Routes: []maps.Route{{Legs: []maps.Leg{{}}}}}
	sum := BuildSummary(res, model.ModeDriving)
	assert.Equal(t, "0.0 km", sum.DistanceText)
	assert.Equal(t, "0 min", sum.DurationText)
	assert.Equal(t, model.RouteLeg{From: "Stop 1", To: "Stop 2", Distance: "-", Duration: "-", Mode: "DRIVING"}, sum.Legs[0])

	empty := BuildSummary(nil, model.ModeDriving)
	assert.Empty(t, empty.Legs)
}
