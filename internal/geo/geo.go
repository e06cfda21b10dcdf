// Package geo provides the route geometry model: great-circle segment
// distances, position-along-route mapping, and direction-aware traversal
// queries. All functions here are pure and non-blocking, per spec.md §5.
package geo

import (
	"fmt"
	"math"
	"sync"

	"github.com/shiva/transit-simulator/internal/model"
)

// Earth radius in meters, matching the value the distilled spec pins down
// in §3 and the teacher's pkg/geo.go constant of the same name.
const EarthRadiusM = 6_371_000.0

func degToRad(d float64) float64 { return d * math.Pi / 180 }

// HaversineM returns the great-circle distance between two WGS-84 points
// in meters.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	lat1R, lat2R := degToRad(lat1), degToRad(lat2)
	dLat := degToRad(lat2 - lat1)
	dLon := degToRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1R)*math.Cos(lat2R)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// Route is an ordered sequence of stops with memoised segment distances.
// Once built, a Route is read-only — safe for concurrent reads from every
// feeder goroutine, per spec.md §5's shared-resource policy.
type Route struct {
	LineID string
	Stops  []model.Stop

	once              sync.Once
	segmentDistancesM []float64
	cumulativeM       []float64 // cumulativeM[i] = distance from stop 0 to stop i
	totalDistanceM    float64
}

// NewRoute validates and constructs a Route. Stop IDs must be unique and at
// least one stop must be terminal, per spec.md §3.
func NewRoute(lineID string, stops []model.Stop) (*Route, error) {
	if lineID == "" {
		return nil, fmt.Errorf("line_id cannot be empty")
	}
	if len(stops) < 2 {
		return nil, fmt.Errorf("route %s: must have at least 2 stops, got %d", lineID, len(stops))
	}
	seen := make(map[string]struct{}, len(stops))
	hasTerminal := false
	for _, s := range stops {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("route %s: %w", lineID, err)
		}
		if _, dup := seen[s.StopID]; dup {
			return nil, fmt.Errorf("route %s: duplicate stop_id %s", lineID, s.StopID)
		}
		seen[s.StopID] = struct{}{}
		if s.IsTerminal {
			hasTerminal = true
		}
	}
	if !hasTerminal {
		return nil, fmt.Errorf("route %s: must have at least one terminal stop", lineID)
	}
	r := &Route{LineID: lineID, Stops: stops}
	r.ensureDistances()
	return r, nil
}

func (r *Route) ensureDistances() {
	r.once.Do(func() {
		r.segmentDistancesM = make([]float64, len(r.Stops)-1)
		r.cumulativeM = make([]float64, len(r.Stops))
		acc := 0.0
		for i := 0; i < len(r.Stops)-1; i++ {
			d := HaversineM(r.Stops[i].Latitude, r.Stops[i].Longitude, r.Stops[i+1].Latitude, r.Stops[i+1].Longitude)
			r.segmentDistancesM[i] = d
			r.cumulativeM[i] = acc
			acc += d
		}
		r.cumulativeM[len(r.Stops)-1] = acc
		r.totalDistanceM = acc
	})
}

// TotalDistanceM is the sum of Haversine segment distances, computed once.
func (r *Route) TotalDistanceM() float64 {
	r.ensureDistances()
	return r.totalDistanceM
}

// Advance returns the new position after moving dMeters forward in the
// given direction. Distance is always additive in p; direction changes the
// meaning of p, not the arithmetic, per spec.md §4.1.
func (r *Route) Advance(p float64, dMeters float64, _ model.Direction) float64 {
	total := r.TotalDistanceM()
	if total <= 0 {
		return p
	}
	newP := p + dMeters/total
	if newP > 1.0 {
		newP = 1.0
	}
	return newP
}

// Coordinates maps a route position to a (lat, lon) pair. Endpoints return
// exact stop coordinates; interior positions are linearly interpolated
// within the containing segment.
func (r *Route) Coordinates(p float64, direction model.Direction) (lat, lon float64) {
	r.ensureDistances()
	effectiveP := p
	if direction == model.Inbound {
		effectiveP = 1.0 - p
	}
	if effectiveP <= 0 {
		first := r.Stops[0]
		return first.Latitude, first.Longitude
	}
	if effectiveP >= 1.0 {
		last := r.Stops[len(r.Stops)-1]
		return last.Latitude, last.Longitude
	}

	target := effectiveP * r.totalDistanceM
	acc := 0.0
	for i, seg := range r.segmentDistancesM {
		if acc+seg >= target {
			frac := 0.0
			if seg > 0 {
				frac = (target - acc) / seg
			}
			a, b := r.Stops[i], r.Stops[i+1]
			lat = a.Latitude + (b.Latitude-a.Latitude)*frac
			lon = a.Longitude + (b.Longitude-a.Longitude)*frac
			return lat, lon
		}
		acc += seg
	}
	last := r.Stops[len(r.Stops)-1]
	return last.Latitude, last.Longitude
}

// StopsBetween returns the stops whose cumulative distance d satisfies
// pStart*total < d <= pEnd*total, in route order, reversed if direction is
// inbound, per spec.md §4.1.
func (r *Route) StopsBetween(pStart, pEnd float64, direction model.Direction) []model.Stop {
	r.ensureDistances()
	startD := pStart * r.totalDistanceM
	endD := pEnd * r.totalDistanceM

	var reached []model.Stop
	for i, stop := range r.Stops {
		d := r.cumulativeM[i]
		if d > startD && d <= endD {
			reached = append(reached, stop)
		}
	}
	if direction == model.Inbound {
		for i, j := 0, len(reached)-1; i < j; i, j = i+1, j-1 {
			reached[i], reached[j] = reached[j], reached[i]
		}
	}
	return reached
}

// NextStop returns the first stop whose cumulative distance strictly
// exceeds p*total, walking forward in direction 0 or backward in
// direction 1. Returns (model.Stop{}, false) if p is past every stop.
func (r *Route) NextStop(p float64, direction model.Direction) (model.Stop, bool) {
	r.ensureDistances()
	current := p * r.totalDistanceM

	if direction == model.Outbound {
		for i, stop := range r.Stops {
			if r.cumulativeM[i] > current {
				return stop, true
			}
		}
		return model.Stop{}, false
	}

	// Inbound: walk the stop list backward, distance-from-end accumulates.
	n := len(r.Stops)
	accFromEnd := 0.0
	for i := n - 1; i >= 0; i-- {
		if accFromEnd > current {
			return r.Stops[i], true
		}
		if i > 0 {
			accFromEnd += r.segmentDistancesM[i-1]
		}
	}
	return model.Stop{}, false
}

// DistanceToStop returns the positive forward distance (in the current
// direction) from p to stop, or -1 if the stop is behind p or not on the
// route.
func (r *Route) DistanceToStop(p float64, stop model.Stop, direction model.Direction) float64 {
	r.ensureDistances()
	idx := -1
	for i, s := range r.Stops {
		if s.StopID == stop.StopID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return -1
	}
	current := p * r.totalDistanceM

	if direction == model.Outbound {
		stopD := r.cumulativeM[idx]
		if stopD <= current {
			return -1
		}
		return stopD - current
	}

	// Inbound: accumulate distance-from-end up to idx.
	accFromEnd := 0.0
	for i := len(r.Stops) - 1; i > idx; i-- {
		accFromEnd += r.segmentDistancesM[i-1]
	}
	if accFromEnd <= current {
		return -1
	}
	return accFromEnd - current
}
