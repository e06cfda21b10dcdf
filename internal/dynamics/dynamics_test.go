package dynamics

import (
	"math/rand"
	"testing"
	"time"
)

func TestAlighting_TerminalDisembarksEveryone(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got, err := Alighting(rng, 25, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
}

func TestAlighting_NonTerminalWithinBand(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		got, err := Alighting(rng, 25, false)
		if err != nil {
			t.Fatal(err)
		}
		if got < int(25*0.20) || got > int(25*0.40) {
			t.Fatalf("alighting %d out of [%v,%v] band", got, 25*0.20, 25*0.40)
		}
	}
}

func TestAlighting_RejectsNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := Alighting(rng, -1, false); err == nil {
		t.Fatal("expected error for negative passenger count")
	}
}

func TestBoarding_CapsAtAvailableCapacity(t *testing.T) {
	got, err := Boarding(50, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
}

func TestBoarding_LimitedByWaiting(t *testing.T) {
	got, err := Boarding(3, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestGenerateStopCount_NeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ts := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC) // night hour, low rate
	for i := 0; i < 50; i++ {
		got, err := GenerateStopCount(rng, 0, ts, 0.5, 1.0, []int{5})
		if err != nil {
			t.Fatal(err)
		}
		if got < 0 {
			t.Fatalf("stop count must never be negative, got %d", got)
		}
	}
}

func TestGenerateStopCount_NightHourNeverDecreasesWithoutBoarding(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	ts := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		got, err := GenerateStopCount(rng, 10, ts, 0.2, 1.0, nil)
		if err != nil {
			t.Fatal(err)
		}
		if got < 10 {
			t.Fatalf("expected count to never decrease without boardings, got %d", got)
		}
	}
}

func TestGenerateStopCount_RushHourDominatesLull(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	rush := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	lull := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	const reps = 12
	rushTotal, lullTotal := 0, 0
	for i := 0; i < reps; i++ {
		r, _ := GenerateStopCount(rng, 0, rush, 2.5, 5.0, nil)
		l, _ := GenerateStopCount(rng, 0, lull, 2.5, 5.0, nil)
		rushTotal += r
		lullTotal += l
	}
	if rushTotal <= lullTotal {
		t.Fatalf("expected rush-hour total (%d) > lull total (%d)", rushTotal, lullTotal)
	}
}

func TestGenerateStopCount_RejectsBadInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	ts := time.Now()
	if _, err := GenerateStopCount(rng, -1, ts, 1.0, 1.0, nil); err == nil {
		t.Fatal("expected error for negative prev_count")
	}
	if _, err := GenerateStopCount(rng, 0, ts, 1.0, 0, nil); err == nil {
		t.Fatal("expected error for non-positive interval_minutes")
	}
}
