package feeder

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/shiva/transit-simulator/internal/catalog"
	"github.com/shiva/transit-simulator/internal/model"
	"github.com/shiva/transit-simulator/internal/sensor"
	"github.com/shiva/transit-simulator/internal/store"
)

// SensorDataFeeder generates a SensorReading for every bus and every stop
// each tick, per spec.md §4.5.
type SensorDataFeeder struct {
	cat   *catalog.Catalog
	store *store.Store
	rng   *rand.Rand
}

// NewSensorDataFeeder constructs a SensorDataFeeder over the given catalog.
func NewSensorDataFeeder(cat *catalog.Catalog, st *store.Store, rng *rand.Rand) *SensorDataFeeder {
	return &SensorDataFeeder{cat: cat, store: st, rng: rng}
}

// Tick writes one SensorReading per bus and per stop.
func (f *SensorDataFeeder) Tick(ctx context.Context, now time.Time) error {
	var records []model.SensorReading

	for busID, bus := range f.cat.Buses {
		state := f.resolveBusState(ctx, busID, bus)
		reading, err := sensor.GenerateReading(f.rng, busID, model.EntityBus, now, state)
		if err != nil {
			log.Printf("[sensor-data] bus %s: generation error, skipped: %v", busID, err)
			continue
		}
		records = append(records, reading)
	}

	for _, stop := range f.cat.AllStops() {
		reading, err := sensor.GenerateReading(f.rng, stop.StopID, model.EntityStop, now, nil)
		if err != nil {
			log.Printf("[sensor-data] stop %s: generation error, skipped: %v", stop.StopID, err)
			continue
		}
		records = append(records, reading)
	}

	if err := f.store.WriteSensorReadings(ctx, records); err != nil {
		log.Printf("[sensor-data] store write failed, dropping tick batch: %v", err)
	}
	return nil
}

// resolveBusState reads the bus's latest persisted position to approximate
// its live passenger_count, falling back to the catalog's seed state if no
// observation exists yet (e.g. before the Bus-Position feeder's first
// tick). The Sensor-Data feeder does not own BusState — only the
// Bus-Position feeder does, per spec.md §5 — so the store is the
// sanctioned cross-process channel.
//
// at_stop is not persisted on BusPosition (it is a momentary condition
// inside the Bus-Position feeder's own tick), so it is approximated as
// false here; a cross-process reader can only ever observe a bus in
// transit or freshly departed.
func (f *SensorDataFeeder) resolveBusState(ctx context.Context, busID string, fallback *model.BusState) *model.BusState {
	latest, err := f.store.QueryLatestBusPosition(ctx, map[string]any{"bus_id": busID})
	if err != nil || latest == nil {
		return fallback
	}
	return &model.BusState{
		BusID:           latest.BusID,
		LineID:          latest.LineID,
		Capacity:        fallback.Capacity,
		PassengerCount:  latest.PassengerCount,
		PositionOnRoute: fallback.PositionOnRoute,
		SpeedKmph:       latest.SpeedKmph,
		AtStop:          false,
		Direction:       latest.Direction,
	}
}
