package geo

import (
	"math"
	"testing"

	"github.com/shiva/transit-simulator/internal/model"
)

func stop(id string, lat, lon float64, terminal bool) model.Stop {
	return model.Stop{StopID: id, Name: id, Latitude: lat, Longitude: lon, IsTerminal: terminal, BaseArrivalRate: 1.0}
}

func TestHaversineM_SamePoint(t *testing.T) {
	d := HaversineM(40.0, -3.0, 40.0, -3.0)
	if d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestHaversineM_KnownDistance(t *testing.T) {
	// Madrid (40.4168,-3.7038) to Barcelona (41.3851,2.1734) is ~504km.
	d := HaversineM(40.4168, -3.7038, 41.3851, 2.1734)
	km := d / 1000
	if km < 490 || km > 520 {
		t.Fatalf("expected ~504km, got %vkm", km)
	}
}

func TestNewRoute_RequiresTwoStopsAndTerminal(t *testing.T) {
	_, err := NewRoute("L1", []model.Stop{stop("A", 40.0, -3.0, true)})
	if err == nil {
		t.Fatal("expected error for single-stop route")
	}
	_, err = NewRoute("L1", []model.Stop{stop("A", 40.0, -3.0, false), stop("B", 40.1, -3.1, false)})
	if err == nil {
		t.Fatal("expected error for route without a terminal")
	}
}

func TestNewRoute_RejectsDuplicateStopIDs(t *testing.T) {
	_, err := NewRoute("L1", []model.Stop{stop("A", 40.0, -3.0, true), stop("A", 40.1, -3.1, true)})
	if err == nil {
		t.Fatal("expected error for duplicate stop_id")
	}
}

func TestRoute_TotalDistanceM_MatchesSumOfSegments(t *testing.T) {
	r, err := NewRoute("L1", []model.Stop{
		stop("A", 40.00, -3.00, true),
		stop("B", 40.05, -3.05, false),
		stop("C", 40.10, -3.10, true),
	})
	if err != nil {
		t.Fatal(err)
	}
	ab := HaversineM(40.00, -3.00, 40.05, -3.05)
	bc := HaversineM(40.05, -3.05, 40.10, -3.10)
	if math.Abs(r.TotalDistanceM()-(ab+bc)) > 1e-6 {
		t.Fatalf("expected %v, got %v", ab+bc, r.TotalDistanceM())
	}
}

func TestRoute_Coordinates_Endpoints(t *testing.T) {
	r, _ := NewRoute("L1", []model.Stop{
		stop("A", 40.00, -3.00, true),
		stop("B", 40.10, -3.10, true),
	})
	lat, lon := r.Coordinates(0, model.Outbound)
	if lat != 40.00 || lon != -3.00 {
		t.Fatalf("coordinates(0,0) should be first stop, got (%v,%v)", lat, lon)
	}
	lat, lon = r.Coordinates(1, model.Outbound)
	if lat != 40.10 || lon != -3.10 {
		t.Fatalf("coordinates(1,0) should be last stop, got (%v,%v)", lat, lon)
	}
	lat, lon = r.Coordinates(0, model.Inbound)
	if lat != 40.10 || lon != -3.10 {
		t.Fatalf("coordinates(0,1) should be last stop, got (%v,%v)", lat, lon)
	}
}

func TestRoute_Coordinates_WithinToleranceOfSegment(t *testing.T) {
	r, _ := NewRoute("L1", []model.Stop{
		stop("A", 40.00, -3.00, true),
		stop("B", 40.10, -3.10, true),
	})
	for p := 0.0; p <= 1.0; p += 0.1 {
		lat, lon := r.Coordinates(p, model.Outbound)
		// A linear interpolation of lat/lon should stay within 50m of the
		// straight-line segment for this short, near-diagonal route.
		expectedLat := 40.00 + (40.10-40.00)*p
		expectedLon := -3.00 + (-3.10-(-3.00))*p
		d := HaversineM(lat, lon, expectedLat, expectedLon)
		if d > 50 {
			t.Fatalf("p=%v: coordinates drifted %vm from expected segment point", p, d)
		}
	}
}

func TestRoute_Advance_CapsAtOne(t *testing.T) {
	r, _ := NewRoute("L1", []model.Stop{
		stop("A", 40.00, -3.00, true),
		stop("B", 40.10, -3.10, true),
	})
	total := r.TotalDistanceM()
	p := r.Advance(0.9, total*2, model.Outbound)
	if p != 1.0 {
		t.Fatalf("expected capped at 1.0, got %v", p)
	}
}

func TestRoute_Advance_IsAdditive(t *testing.T) {
	r, _ := NewRoute("L1", []model.Stop{
		stop("A", 40.00, -3.00, true),
		stop("B", 40.10, -3.10, true),
	})
	total := r.TotalDistanceM()
	d1, d2 := total*0.2, total*0.15
	onePass := r.Advance(0.1, d1+d2, model.Outbound)
	twoPass := r.Advance(r.Advance(0.1, d1, model.Outbound), d2, model.Outbound)
	if math.Abs(onePass-twoPass) > 1e-9 {
		t.Fatalf("advancing d1+d2 should equal advancing d1 then d2, got %v vs %v", onePass, twoPass)
	}
}

func TestRoute_StopsBetween_MiddleStopReached(t *testing.T) {
	r, _ := NewRoute("L1", []model.Stop{
		stop("A", 40.00, -3.00, true),
		stop("B", 40.05, -3.05, false),
		stop("C", 40.10, -3.10, true),
	})
	reached := r.StopsBetween(0.45, 0.55, model.Outbound)
	if len(reached) != 1 || reached[0].StopID != "B" {
		t.Fatalf("expected [B], got %v", reached)
	}
}

func TestRoute_StopsBetween_ReversedForInbound(t *testing.T) {
	r, _ := NewRoute("L1", []model.Stop{
		stop("A", 40.00, -3.00, true),
		stop("B", 40.05, -3.05, false),
		stop("C", 40.10, -3.10, false),
		stop("D", 40.15, -3.15, true),
	})
	// In direction 0, both B and C would be crossed by a full traversal.
	reached := r.StopsBetween(0.0, 1.0, model.Inbound)
	if len(reached) < 2 || reached[0].StopID != "D" {
		t.Fatalf("expected reversed order starting at D, got %v", reached)
	}
}

func TestRoute_NextStop_OutboundAndInbound(t *testing.T) {
	r, _ := NewRoute("L1", []model.Stop{
		stop("A", 40.00, -3.00, true),
		stop("B", 40.05, -3.05, false),
		stop("C", 40.10, -3.10, true),
	})
	next, ok := r.NextStop(0.1, model.Outbound)
	if !ok || next.StopID != "B" {
		t.Fatalf("expected B, got %v ok=%v", next, ok)
	}
	next, ok = r.NextStop(1.0, model.Outbound)
	if ok {
		t.Fatalf("expected no next stop past the end, got %v", next)
	}
	next, ok = r.NextStop(0.1, model.Inbound)
	if !ok || next.StopID != "B" {
		t.Fatalf("expected B inbound, got %v ok=%v", next, ok)
	}
}

func TestRoute_DistanceToStop_NegativeWhenBehind(t *testing.T) {
	r, _ := NewRoute("L1", []model.Stop{
		stop("A", 40.00, -3.00, true),
		stop("B", 40.05, -3.05, false),
		stop("C", 40.10, -3.10, true),
	})
	d := r.DistanceToStop(0.9, r.Stops[1], model.Outbound)
	if d != -1 {
		t.Fatalf("expected -1 for a stop behind current position, got %v", d)
	}
	d = r.DistanceToStop(0.1, r.Stops[1], model.Outbound)
	if d <= 0 {
		t.Fatalf("expected positive forward distance, got %v", d)
	}
}
