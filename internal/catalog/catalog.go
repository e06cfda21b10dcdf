// Package catalog loads and validates the line/stop/bus configuration
// document described in spec.md §6, producing the read-only-after-init
// Route and BusState catalog every feeder shares.
//
// This mirrors the original Python ConfigLoader's lines.yaml shape field
// for field, but is resolved through viper (like the teacher's config
// package) instead of a bare yaml.safe_load.
package catalog

import (
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"github.com/shiva/transit-simulator/internal/geo"
	"github.com/shiva/transit-simulator/internal/model"
)

// DefaultBusSpeedKmph is applied to a bus whose config entry omits speed,
// matching the original ConfigLoader's default.
const DefaultBusSpeedKmph = 30.0

type stopDoc struct {
	StopID          string  `mapstructure:"stop_id"`
	Name            string  `mapstructure:"name"`
	Latitude        float64 `mapstructure:"latitude"`
	Longitude       float64 `mapstructure:"longitude"`
	IsTerminal      bool    `mapstructure:"is_terminal"`
	BaseArrivalRate float64 `mapstructure:"base_arrival_rate"`
}

type busDoc struct {
	BusID           string  `mapstructure:"bus_id"`
	Capacity        int     `mapstructure:"capacity"`
	InitialPosition float64 `mapstructure:"initial_position"`
	SpeedKmph       float64 `mapstructure:"speed_kmph"`
}

type lineDoc struct {
	LineID string    `mapstructure:"line_id"`
	Name   string    `mapstructure:"name"`
	Stops  []stopDoc `mapstructure:"stops"`
	Buses  []busDoc  `mapstructure:"buses"`
}

type routesDoc struct {
	Lines []lineDoc `mapstructure:"routes"`
}

// Catalog is the read-only-after-init set of routes and buses a feeder
// process operates on.
type Catalog struct {
	Routes map[string]*geo.Route
	Buses  map[string]*model.BusState
}

// Load reads path (a YAML document) and builds a validated Catalog.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("catalog: failed to read %s: %w", path, err)
	}

	var doc routesDoc
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("catalog: failed to parse %s: %w", path, err)
	}
	return build(doc)
}

func build(doc routesDoc) (*Catalog, error) {
	if len(doc.Lines) == 0 {
		return nil, fmt.Errorf("catalog: must contain at least one line")
	}

	routes := make(map[string]*geo.Route, len(doc.Lines))
	buses := make(map[string]*model.BusState)
	seenLines := make(map[string]struct{}, len(doc.Lines))
	busesPerLine := make(map[string]int, len(doc.Lines))

	for _, line := range doc.Lines {
		if line.LineID == "" {
			return nil, fmt.Errorf("catalog: line missing line_id")
		}
		if _, dup := seenLines[line.LineID]; dup {
			return nil, fmt.Errorf("catalog: duplicate line_id %s", line.LineID)
		}
		seenLines[line.LineID] = struct{}{}

		stops := make([]model.Stop, 0, len(line.Stops))
		for _, sd := range line.Stops {
			stops = append(stops, model.Stop{
				StopID:          sd.StopID,
				Name:            sd.Name,
				Latitude:        sd.Latitude,
				Longitude:       sd.Longitude,
				IsTerminal:      sd.IsTerminal,
				BaseArrivalRate: sd.BaseArrivalRate,
			})
		}
		route, err := geo.NewRoute(line.LineID, stops)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		routes[line.LineID] = route

		if len(line.Buses) == 0 {
			return nil, fmt.Errorf("catalog: line %s must have at least one bus", line.LineID)
		}
		for _, bd := range line.Buses {
			if bd.BusID == "" {
				return nil, fmt.Errorf("catalog: line %s has a bus with no bus_id", line.LineID)
			}
			if _, dup := buses[bd.BusID]; dup {
				return nil, fmt.Errorf("catalog: duplicate bus_id %s", bd.BusID)
			}
			speed := bd.SpeedKmph
			if speed == 0 {
				speed = DefaultBusSpeedKmph
			}
			bus := &model.BusState{
				BusID:           bd.BusID,
				LineID:          line.LineID,
				Capacity:        bd.Capacity,
				PassengerCount:  0,
				PositionOnRoute: bd.InitialPosition,
				SpeedKmph:       speed,
				AtStop:          false,
				Direction:       model.Outbound,
			}
			if err := bus.Validate(); err != nil {
				return nil, fmt.Errorf("catalog: %w", err)
			}
			buses[bd.BusID] = bus
			busesPerLine[line.LineID]++
		}
	}

	for lineID := range routes {
		if busesPerLine[lineID] == 0 {
			return nil, fmt.Errorf("catalog: line %s has no buses assigned", lineID)
		}
	}

	return &Catalog{Routes: routes, Buses: buses}, nil
}

// LineIDsServing returns every line_id whose route contains stopID, used by
// the People-Count feeder to populate PeopleCount.LineIDs.
func (c *Catalog) LineIDsServing(stopID string) []string {
	var lines []string
	for lineID, route := range c.Routes {
		for _, s := range route.Stops {
			if s.StopID == stopID {
				lines = append(lines, lineID)
				break
			}
		}
	}
	return lines
}

// AllStops returns the union of stops across every route, deduplicated by
// stop_id, in a stable order (by stop_id).
func (c *Catalog) AllStops() []model.Stop {
	seen := make(map[string]model.Stop)
	for _, route := range c.Routes {
		for _, s := range route.Stops {
			seen[s.StopID] = s
		}
	}
	stops := make([]model.Stop, 0, len(seen))
	for _, s := range seen {
		stops = append(stops, s)
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].StopID < stops[j].StopID })
	return stops
}
