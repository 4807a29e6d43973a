// Package itinerary holds the trip plan and the runtime location overlay that
// resolved spots are merged into.
package itinerary

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"tripreel/pkg/geo"
	"tripreel/pkg/model"
)

//go:embed data/itinerary.yaml
var embeddedItinerary []byte

var ErrDayNotFound = errors.New("day not found")

// Itinerary is an immutable, day-ordered trip plan.
type Itinerary struct {
	days  []model.DayPlan
	index map[int]int
}

// LoadEmbedded parses the itinerary compiled into the binary.
func LoadEmbedded() (*Itinerary, error) {
	return Parse(embeddedItinerary)
}

// LoadFile parses an itinerary from a YAML file.
func LoadFile(path string) (*Itinerary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read itinerary: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML list of days.
func Parse(data []byte) (*Itinerary, error) {
	var days []model.DayPlan
	if err := yaml.Unmarshal(data, &days); err != nil {
		return nil, fmt.Errorf("failed to parse itinerary: %w", err)
	}
	if err := validate(days); err != nil {
		return nil, err
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	it := &Itinerary{days: days, index: make(map[int]int, len(days))}
	for i, d := range days {
		it.index[d.Day] = i
	}
	return it, nil
}

func validate(days []model.DayPlan) error {
	seenDays := make(map[int]bool)
	seenSpots := make(map[string]bool)
	for i := range days {
		d := &days[i]
		if d.Day <= 0 {
			return fmt.Errorf("itinerary: day %d: day number must be positive", i)
		}
		if seenDays[d.Day] {
			return fmt.Errorf("itinerary: duplicate day %d", d.Day)
		}
		seenDays[d.Day] = true

		mode, err := model.ParseTravelMode(string(d.MoveModeDefault))
		if err != nil {
			return fmt.Errorf("itinerary: day %d: %w", d.Day, err)
		}
		d.MoveModeDefault = mode

		for _, s := range d.Spots {
			if s.ID == "" || s.Name == "" {
				return fmt.Errorf("itinerary: day %d: spot needs id and name", d.Day)
			}
			if seenSpots[s.ID] {
				return fmt.Errorf("itinerary: duplicate spot id %q", s.ID)
			}
			seenSpots[s.ID] = true
			if (s.Lat == nil) != (s.Lng == nil) {
				return fmt.Errorf("itinerary: spot %q: lat and lng must be given together", s.ID)
			}
			if c, ok := s.Coords(); ok && !geo.Valid(c) {
				return fmt.Errorf("itinerary: spot %q: coordinates out of range", s.ID)
			}
		}
	}
	return nil
}

// Days returns a copy of all days in order.
func (it *Itinerary) Days() []model.DayPlan {
	out := make([]model.DayPlan, len(it.days))
	for i, d := range it.days {
		out[i] = copyDay(d)
	}
	return out
}

// Day returns a copy of the given day.
func (it *Itinerary) Day(n int) (model.DayPlan, error) {
	i, ok := it.index[n]
	if !ok {
		return model.DayPlan{}, fmt.Errorf("%w: %d", ErrDayNotFound, n)
	}
	return copyDay(it.days[i]), nil
}

// Len returns the number of days.
func (it *Itinerary) Len() int { return len(it.days) }

func copyDay(d model.DayPlan) model.DayPlan {
	d.Spots = append([]model.Spot(nil), d.Spots...)
	return d
}
