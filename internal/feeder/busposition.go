package feeder

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shiva/transit-simulator/internal/catalog"
	"github.com/shiva/transit-simulator/internal/dynamics"
	"github.com/shiva/transit-simulator/internal/eventbus"
	"github.com/shiva/transit-simulator/internal/geo"
	"github.com/shiva/transit-simulator/internal/model"
	"github.com/shiva/transit-simulator/internal/store"
)

// BusPositionFeeder is the concurrency and correctness hotspot described in
// spec.md §4.5: per-bus movement, terminal reversal, and coordinated
// boarding/alighting.
type BusPositionFeeder struct {
	cat         *catalog.Catalog
	store       *store.Store
	bus         *eventbus.Bus
	rng         *rand.Rand
	tickSeconds float64
}

// NewBusPositionFeeder constructs a BusPositionFeeder. tickSeconds is the
// feeder's Δt used in the `speed · 1000/3600 · Δt` distance formula.
func NewBusPositionFeeder(cat *catalog.Catalog, st *store.Store, bus *eventbus.Bus, rng *rand.Rand, tickSeconds float64) *BusPositionFeeder {
	return &BusPositionFeeder{cat: cat, store: st, bus: bus, rng: rng, tickSeconds: tickSeconds}
}

type busTickResult struct {
	position *model.BusPosition
	arrivals []model.BusArrival
}

// Tick advances every bus concurrently (one goroutine per bus, run and
// awaited through golang.org/x/sync/errgroup with no concurrency limit set),
// batches all resulting observations into a
// single store write, then publishes position and arrival events in
// per-bus order. A per-bus generation error is logged and that bus is
// skipped; it never affects the others, per spec.md §4.5/§7.
func (f *BusPositionFeeder) Tick(ctx context.Context, now time.Time) error {
	busIDs := make([]string, 0, len(f.cat.Buses))
	for id := range f.cat.Buses {
		busIDs = append(busIDs, id)
	}

	results := make([]busTickResult, len(busIDs))
	g, _ := errgroup.WithContext(ctx)
	for i, busID := range busIDs {
		i, busID := i, busID
		g.Go(func() error {
			bus := f.cat.Buses[busID]
			route := f.cat.Routes[bus.LineID]
			pos, arrivals, err := f.tickBus(ctx, bus, route, now)
			if err != nil {
				log.Printf("[bus-position] bus %s: generation error, skipped: %v", busID, err)
				return nil
			}
			results[i] = busTickResult{position: &pos, arrivals: arrivals}
			return nil
		})
	}
	_ = g.Wait() // goroutines never return a non-nil error — per-bus isolation is handled inline

	var positions []model.BusPosition
	var allArrivals []model.BusArrival
	for _, r := range results {
		if r.position == nil {
			continue
		}
		positions = append(positions, *r.position)
		allArrivals = append(allArrivals, r.arrivals...)
	}

	// All observations within the tick are batched into a single store
	// write call, per spec.md §4.5.2.
	if err := f.store.WriteBusPositions(ctx, positions); err != nil {
		log.Printf("[bus-position] store write failed, dropping tick batch: %v", err)
	}

	for _, pos := range positions {
		if err := f.bus.PublishPositionUpdate(ctx, pos); err != nil {
			log.Printf("[bus-position] publish position update failed for bus %s: %v", pos.BusID, err)
		}
	}
	// Arrival events for one bus publish in the order the stops were
	// passed, per spec.md §5's ordering guarantee.
	for _, arr := range allArrivals {
		if err := f.bus.PublishArrival(ctx, arr); err != nil {
			log.Printf("[bus-position] publish arrival failed for bus %s at stop %s: %v", arr.BusID, arr.StopID, err)
		}
	}

	return nil
}

// tickBus implements spec.md §4.5.1 for a single bus: advance position,
// process every stop passed in order (alight then board, with terminal
// reversal truncating the remainder of the tick), and produce the tick's
// BusPosition observation.
func (f *BusPositionFeeder) tickBus(ctx context.Context, bus *model.BusState, route *geo.Route, now time.Time) (model.BusPosition, []model.BusArrival, error) {
	if route == nil {
		return model.BusPosition{}, nil, fmt.Errorf("no route found for line %s", bus.LineID)
	}

	distanceM := bus.SpeedKmph * 1000.0 / 3600.0 * f.tickSeconds
	oldP := bus.PositionOnRoute
	newP := route.Advance(oldP, distanceM, bus.Direction)
	passed := route.StopsBetween(oldP, newP, bus.Direction)

	var arrivals []model.BusArrival

	for _, stop := range passed {
		alighted, err := dynamics.Alighting(f.rng, bus.PassengerCount, stop.IsTerminal)
		if err != nil {
			return model.BusPosition{}, nil, fmt.Errorf("bus %s at stop %s: %w", bus.BusID, stop.StopID, err)
		}
		remainingAfterAlight := bus.PassengerCount - alighted
		availableCapacity := bus.Capacity - remainingAfterAlight

		waiting := f.estimateWaiting(ctx, stop.StopID)
		boarded, err := dynamics.Boarding(waiting, availableCapacity)
		if err != nil {
			return model.BusPosition{}, nil, fmt.Errorf("bus %s at stop %s: %w", bus.BusID, stop.StopID, err)
		}

		bus.PassengerCount = remainingAfterAlight + boarded
		stopCountAfter := waiting - boarded
		if stopCountAfter < 0 {
			stopCountAfter = 0
		}

		arrival := model.BusArrival{
			BusID:                  bus.BusID,
			LineID:                 bus.LineID,
			StopID:                 stop.StopID,
			Time:                   now,
			PassengersBoarding:     boarded,
			PassengersAlighting:    alighted,
			BusPassengerCountAfter: bus.PassengerCount,
			StopPeopleCountAfter:   stopCountAfter,
		}
		if err := arrival.Validate(); err != nil {
			return model.BusPosition{}, nil, fmt.Errorf("bus %s at stop %s: %w", bus.BusID, stop.StopID, err)
		}
		arrivals = append(arrivals, arrival)

		if stop.IsTerminal {
			// Terminal reversal: toggle direction, reset position, and
			// truncate the remainder of this tick's motion — if two
			// terminals would be reached in one tick, only the first is
			// processed, per spec.md §4.5.1.d.
			bus.Direction = bus.Direction.Toggle()
			newP = 0
			break
		}
	}

	bus.PositionOnRoute = newP
	lat, lon := route.Coordinates(newP, bus.Direction)
	next, hasNext := route.NextStop(newP, bus.Direction)

	nextStopID := ""
	dist := 0.0
	if hasNext {
		nextStopID = next.StopID
		if d := route.DistanceToStop(newP, next, bus.Direction); d >= 0 {
			dist = d
		}
	}

	pos := model.BusPosition{
		BusID:               bus.BusID,
		LineID:               bus.LineID,
		Time:                 now,
		Latitude:             lat,
		Longitude:            lon,
		PassengerCount:       bus.PassengerCount,
		NextStopID:           nextStopID,
		DistanceToNextStopM:  dist,
		SpeedKmph:            bus.SpeedKmph,
		Direction:            bus.Direction,
	}
	if err := pos.Validate(); err != nil {
		return model.BusPosition{}, nil, err
	}
	return pos, arrivals, nil
}

// estimateWaiting reads the stop's latest persisted people-count to learn
// how many passengers are waiting. StopCountState is owned exclusively by
// the People-Count feeder (§3, §5); the store is the sanctioned
// cross-process channel for a read-only snapshot. A missing observation
// (feeder not yet started, or transient query failure) is treated as zero
// waiting passengers.
func (f *BusPositionFeeder) estimateWaiting(ctx context.Context, stopID string) int {
	latest, err := f.store.QueryLatestPeopleCount(ctx, map[string]any{"stop_id": stopID})
	if err != nil || latest == nil {
		return 0
	}
	return latest.Count
}
