package feeder

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/shiva/transit-simulator/internal/catalog"
	"github.com/shiva/transit-simulator/internal/dynamics"
	"github.com/shiva/transit-simulator/internal/eventbus"
	"github.com/shiva/transit-simulator/internal/model"
	"github.com/shiva/transit-simulator/internal/store"
)

// PeopleCountFeeder owns StopCountState (§3) and emits one PeopleCount
// observation per stop per tick.
type PeopleCountFeeder struct {
	cat                *catalog.Catalog
	store              *store.Store
	bus                *eventbus.Bus
	rng                *rand.Rand
	intervalMinutes    float64
	syntheticDrainFrac float64

	mu                 sync.Mutex
	counts             map[string]int
	boardingsSinceTick map[string]int
}

// NewPeopleCountFeeder seeds every stop's count to zero, per spec.md §4.5
// ("seed initial stop-counts").
func NewPeopleCountFeeder(cat *catalog.Catalog, st *store.Store, bus *eventbus.Bus, rng *rand.Rand, intervalMinutes, syntheticDrainFrac float64) *PeopleCountFeeder {
	counts := make(map[string]int)
	for _, s := range cat.AllStops() {
		counts[s.StopID] = 0
	}
	return &PeopleCountFeeder{
		cat:                cat,
		store:              st,
		bus:                bus,
		rng:                rng,
		intervalMinutes:    intervalMinutes,
		syntheticDrainFrac: syntheticDrainFrac,
		counts:             counts,
		boardingsSinceTick: make(map[string]int),
	}
}

// ListenArrivals subscribes to bus.arrival events published by a
// Bus-Position feeder sharing this deployment's event bus, accumulating
// real per-stop boarding counts for the next tick to fold in. This
// resolves spec.md §9's "people-count feeder and buses" open question by
// consuming arrival events rather than running fully independently; see
// SPEC_FULL.md.
func (f *PeopleCountFeeder) ListenArrivals(ctx context.Context) {
	events, closeFn, err := f.bus.Subscribe(ctx)
	if err != nil {
		log.Printf("[people-count] WARN: could not subscribe to arrivals, falling back to synthetic drain only: %v", err)
		return
	}
	defer closeFn()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			f.mu.Lock()
			f.boardingsSinceTick[ev.StopID] += ev.PassengersBoarding
			f.mu.Unlock()
		}
	}
}

// Tick generates and persists one PeopleCount observation per stop.
func (f *PeopleCountFeeder) Tick(ctx context.Context, now time.Time) error {
	f.mu.Lock()
	boardings := f.boardingsSinceTick
	f.boardingsSinceTick = make(map[string]int)
	f.mu.Unlock()

	var records []model.PeopleCount
	for _, stop := range f.cat.AllStops() {
		boardingList := f.boardingFor(stop.StopID, boardings)

		f.mu.Lock()
		prev := f.counts[stop.StopID]
		f.mu.Unlock()

		newCount, err := dynamics.GenerateStopCount(f.rng, prev, now, stop.BaseArrivalRate, f.intervalMinutes, boardingList)
		if err != nil {
			log.Printf("[people-count] stop %s: generation error, skipped: %v", stop.StopID, err)
			continue
		}

		f.mu.Lock()
		f.counts[stop.StopID] = newCount
		f.mu.Unlock()

		rec := model.PeopleCount{
			StopID:  stop.StopID,
			Time:    now,
			Count:   newCount,
			LineIDs: f.cat.LineIDsServing(stop.StopID),
		}
		if err := rec.Validate(); err != nil {
			log.Printf("[people-count] stop %s: invalid record, skipped: %v", stop.StopID, err)
			continue
		}
		records = append(records, rec)
	}

	if err := f.store.WritePeopleCount(ctx, records); err != nil {
		log.Printf("[people-count] store write failed, dropping tick batch: %v", err)
	}
	return nil
}

// boardingFor returns the boarding figures to subtract for stopID: the
// boardings observed via arrival events this interval if any arrived,
// otherwise a synthetic drain proportional to the current count — see
// SPEC_FULL.md's FEEDER_SYNTHETIC_DRAIN_FRACTION.
func (f *PeopleCountFeeder) boardingFor(stopID string, boardings map[string]int) []int {
	if b, ok := boardings[stopID]; ok {
		return []int{b}
	}
	if f.syntheticDrainFrac <= 0 {
		return nil
	}
	f.mu.Lock()
	cur := f.counts[stopID]
	f.mu.Unlock()
	return []int{int(float64(cur) * f.syntheticDrainFrac)}
}
