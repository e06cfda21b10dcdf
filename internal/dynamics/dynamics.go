// Package dynamics implements the passenger boarding/alighting rules and
// the stop-count update, per spec.md §4.3.
package dynamics

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/shiva/transit-simulator/internal/pattern"
)

// Alighting returns how many passengers get off at a stop. At a terminal
// stop everyone disembarks; otherwise a uniform random fraction in
// [0.20, 0.40] alights.
func Alighting(rng *rand.Rand, passengersOnBus int, isTerminal bool) (int, error) {
	if passengersOnBus < 0 {
		return 0, fmt.Errorf("passengers_on_bus must be >= 0, got %d", passengersOnBus)
	}
	if isTerminal {
		return passengersOnBus, nil
	}
	frac := 0.20 + rng.Float64()*0.20
	return int(math.Floor(float64(passengersOnBus) * frac)), nil
}

// Boarding caps the number of waiting passengers who can board at the
// bus's available capacity.
func Boarding(waitingAtStop, availableCapacity int) (int, error) {
	if waitingAtStop < 0 {
		return 0, fmt.Errorf("waiting_at_stop must be >= 0, got %d", waitingAtStop)
	}
	if availableCapacity < 0 {
		return 0, fmt.Errorf("available_capacity must be >= 0, got %d", availableCapacity)
	}
	if waitingAtStop < availableCapacity {
		return waitingAtStop, nil
	}
	return availableCapacity, nil
}

// GenerateStopCount folds natural Poisson arrivals and boarding departures
// into a new non-negative stop count, per spec.md §4.3.
//
//	new = max(0, prev + poisson(base_rate * multiplier(hour) * interval_minutes) - sum(boardings))
func GenerateStopCount(
	rng *rand.Rand,
	prevCount int,
	currentTime time.Time,
	baseRate float64,
	intervalMinutes float64,
	boardingsInInterval []int,
) (int, error) {
	if prevCount < 0 {
		return 0, fmt.Errorf("prev_count must be >= 0, got %d", prevCount)
	}
	if intervalMinutes <= 0 {
		return 0, fmt.Errorf("interval_minutes must be > 0, got %v", intervalMinutes)
	}

	multiplier, err := pattern.TimeMultiplier(currentTime.Hour())
	if err != nil {
		return 0, err
	}
	mu := baseRate * multiplier * intervalMinutes
	arrivals := pattern.Poisson(rng, mu)

	boarded := 0
	for _, b := range boardingsInInterval {
		boarded += b
	}

	newCount := prevCount + arrivals - boarded
	if newCount < 0 {
		newCount = 0
	}
	return newCount, nil
}
