// Package model contains the domain entities shared by every simulator
// component: stops, routes, bus state, and the observation records written
// to the time-series store.
package model

import (
	"fmt"
	"time"
)

// ─── Config-time entities ───────────────────────────────────

// Stop is immutable after the catalog loads.
type Stop struct {
	StopID          string
	Name            string
	Latitude        float64
	Longitude       float64
	IsTerminal      bool
	BaseArrivalRate float64 // people per minute
}

func (s Stop) Validate() error {
	if s.StopID == "" {
		return fmt.Errorf("stop_id cannot be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("stop %s: name cannot be empty", s.StopID)
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("stop %s: latitude must be in [-90,90], got %v", s.StopID, s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("stop %s: longitude must be in [-180,180], got %v", s.StopID, s.Longitude)
	}
	if s.BaseArrivalRate < 0 {
		return fmt.Errorf("stop %s: base_arrival_rate must be >= 0, got %v", s.StopID, s.BaseArrivalRate)
	}
	return nil
}

// Direction of travel along a Route.
type Direction int

const (
	Outbound Direction = 0
	Inbound  Direction = 1
)

func (d Direction) Valid() bool { return d == Outbound || d == Inbound }

// Toggle flips outbound<->inbound.
func (d Direction) Toggle() Direction {
	if d == Outbound {
		return Inbound
	}
	return Outbound
}

// BusState is owned exclusively by the Bus-Position feeder process.
type BusState struct {
	BusID            string
	LineID           string
	Capacity         int
	PassengerCount   int
	PositionOnRoute  float64
	SpeedKmph        float64
	AtStop           bool
	Direction        Direction
}

func (b BusState) Validate() error {
	if b.BusID == "" {
		return fmt.Errorf("bus_id cannot be empty")
	}
	if b.LineID == "" {
		return fmt.Errorf("bus %s: line_id cannot be empty", b.BusID)
	}
	if b.Capacity <= 0 {
		return fmt.Errorf("bus %s: capacity must be positive, got %d", b.BusID, b.Capacity)
	}
	if b.PassengerCount < 0 || b.PassengerCount > b.Capacity {
		return fmt.Errorf("bus %s: passenger_count %d out of [0,%d]", b.BusID, b.PassengerCount, b.Capacity)
	}
	if b.PositionOnRoute < 0 || b.PositionOnRoute > 1 {
		return fmt.Errorf("bus %s: position_on_route must be in [0,1], got %v", b.BusID, b.PositionOnRoute)
	}
	if b.SpeedKmph < 0 {
		return fmt.Errorf("bus %s: speed must be >= 0, got %v", b.BusID, b.SpeedKmph)
	}
	if !b.Direction.Valid() {
		return fmt.Errorf("bus %s: direction must be 0 or 1, got %d", b.BusID, b.Direction)
	}
	return nil
}

// ─── Observation records (written to X1) ───────────────────

// PeopleCount is written by the People-Count feeder.
type PeopleCount struct {
	StopID  string
	Time    time.Time
	Count   int
	LineIDs []string
}

func (p PeopleCount) Validate() error {
	if p.StopID == "" {
		return fmt.Errorf("stop_id cannot be empty")
	}
	if p.Count < 0 {
		return fmt.Errorf("count must be >= 0, got %d", p.Count)
	}
	if len(p.LineIDs) == 0 {
		return fmt.Errorf("line_ids cannot be empty")
	}
	return nil
}

// EntityType distinguishes bus and stop sensor readings.
type EntityType string

const (
	EntityBus  EntityType = "bus"
	EntityStop EntityType = "stop"
)

// SensorReading is a tagged variant: CO2/door status are present iff
// EntityType is EntityBus, per spec.md §3 and §9 ("Inheritance in data
// classes -> tagged variant").
type SensorReading struct {
	EntityID    string
	EntityType  EntityType
	Time        time.Time
	TemperatureC float64
	HumidityPct  float64
	CO2PPM      *int
	DoorStatus  *string
}

func (s SensorReading) Validate() error {
	if s.EntityID == "" {
		return fmt.Errorf("entity_id cannot be empty")
	}
	if s.EntityType != EntityBus && s.EntityType != EntityStop {
		return fmt.Errorf("entity_type must be bus or stop, got %q", s.EntityType)
	}
	if s.TemperatureC < -50 || s.TemperatureC > 60 {
		return fmt.Errorf("temperature must be in [-50,60], got %v", s.TemperatureC)
	}
	if s.HumidityPct < 0 || s.HumidityPct > 100 {
		return fmt.Errorf("humidity must be in [0,100], got %v", s.HumidityPct)
	}
	if s.EntityType == EntityStop {
		if s.CO2PPM != nil {
			return fmt.Errorf("co2_ppm must be absent for stop entities")
		}
		if s.DoorStatus != nil {
			return fmt.Errorf("door_status must be absent for stop entities")
		}
	}
	if s.EntityType == EntityBus {
		if s.CO2PPM != nil && *s.CO2PPM < 0 {
			return fmt.Errorf("co2_ppm must be >= 0, got %d", *s.CO2PPM)
		}
		if s.DoorStatus != nil && *s.DoorStatus != "open" && *s.DoorStatus != "closed" {
			return fmt.Errorf("door_status must be open or closed, got %q", *s.DoorStatus)
		}
	}
	return nil
}

// BusPosition is written by the Bus-Position feeder each tick.
type BusPosition struct {
	BusID                string
	LineID               string
	Time                 time.Time
	Latitude             float64
	Longitude            float64
	PassengerCount       int
	NextStopID           string
	DistanceToNextStopM  float64
	SpeedKmph            float64
	Direction            Direction
}

func (p BusPosition) Validate() error {
	if p.BusID == "" || p.LineID == "" {
		return fmt.Errorf("bus_id and line_id cannot be empty")
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude must be in [-90,90], got %v", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude must be in [-180,180], got %v", p.Longitude)
	}
	if p.PassengerCount < 0 {
		return fmt.Errorf("passenger_count must be >= 0, got %d", p.PassengerCount)
	}
	if p.DistanceToNextStopM < 0 {
		return fmt.Errorf("distance_to_next_stop_m must be >= 0, got %v", p.DistanceToNextStopM)
	}
	if p.SpeedKmph < 0 {
		return fmt.Errorf("speed must be >= 0, got %v", p.SpeedKmph)
	}
	if !p.Direction.Valid() {
		return fmt.Errorf("direction must be 0 or 1, got %d", p.Direction)
	}
	return nil
}

// BusArrival is ephemeral: held in memory for the tick and mirrored onto
// the X2 wire as an event payload, never persisted to the store directly.
type BusArrival struct {
	BusID                 string
	LineID                string
	StopID                string
	Time                  time.Time
	PassengersBoarding    int
	PassengersAlighting   int
	BusPassengerCountAfter  int
	StopPeopleCountAfter    int
}

func (a BusArrival) Validate() error {
	if a.BusID == "" || a.StopID == "" {
		return fmt.Errorf("bus_id and stop_id cannot be empty")
	}
	if a.PassengersBoarding < 0 {
		return fmt.Errorf("passengers_boarding must be >= 0, got %d", a.PassengersBoarding)
	}
	if a.PassengersAlighting < 0 {
		return fmt.Errorf("passengers_alighting must be >= 0, got %d", a.PassengersAlighting)
	}
	return nil
}
