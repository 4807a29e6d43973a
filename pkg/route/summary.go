package route

import (
	"fmt"
	"strings"

	"tripreel/pkg/maps"
	"tripreel/pkg/model"
)

// BuildSummary digests the first route of a directions result.
func BuildSummary(res *maps.DirectionsResult, mode model.TravelMode) model.RouteSummary {
	var sum model.RouteSummary
	if res == nil || len(res.Routes) == 0 {
		sum.DistanceText = model.FormatKilometers(0)
		sum.DurationText = model.FormatMinutes(0)
		return sum
	}
	r := res.Routes[0]
	sum.Polyline = r.OverviewPolyline.Points
	sum.Legs = make([]model.RouteLeg, 0, len(r.Legs))

	for i, leg := range r.Legs {
		if leg.Distance != nil {
			sum.DistanceMeters += leg.Distance.Value
		}
		if leg.Duration != nil {
			sum.DurationSeconds += leg.Duration.Value
		}
		sum.Legs = append(sum.Legs, summarizeLeg(i, leg, mode))
	}
	sum.DistanceText = model.FormatKilometers(sum.DistanceMeters)
	sum.DurationText = model.FormatMinutes(sum.DurationSeconds)
	return sum
}

func summarizeLeg(i int, leg maps.Leg, mode model.TravelMode) model.RouteLeg {
	out := model.RouteLeg{
		From:     leg.StartAddress,
		To:       leg.EndAddress,
		Distance: "-",
		Duration: "-",
		Mode:     legMode(leg.Steps, mode),
	}
	if out.From == "" {
		out.From = fmt.Sprintf("Stop %d", i+1)
	}
	if out.To == "" {
		out.To = fmt.Sprintf("Stop %d", i+2)
	}
	if leg.Distance != nil && leg.Distance.Text != "" {
		out.Distance = leg.Distance.Text
	}
	if leg.Duration != nil && leg.Duration.Text != "" {
		out.Duration = leg.Duration.Text
	}
	return out
}

// legMode joins the distinct step modes in first-seen order.
func legMode(steps []maps.Step, fallback model.TravelMode) string {
	var modes []string
	seen := make(map[string]bool)
	for _, st := range steps {
		m := stepMode(st)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		modes = append(modes, m)
	}
	if len(modes) == 0 {
		return string(fallback)
	}
	return strings.Join(modes, ", ")
}

func stepMode(st maps.Step) string {
	if st.TravelMode != string(model.ModeTransit) {
		return st.TravelMode
	}
	if td := st.TransitDetails; td != nil && td.Line != nil {
		if name := td.Line.ShortName; name != "" {
			return "TRANSIT (" + name + ")"
		}
		if name := td.Line.Name; name != "" {
			return "TRANSIT (" + name + ")"
		}
		if v := td.Line.Vehicle; v != nil && v.Type != "" {
			return "TRANSIT (" + v.Type + ")"
		}
	}
	return "TRANSIT"
}
