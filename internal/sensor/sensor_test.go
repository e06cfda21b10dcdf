package sensor

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shiva/transit-simulator/internal/model"
)

func TestAmbientTemperature_PeakAt15h(t *testing.T) {
	got := AmbientTemperature(15.0)
	if math.Abs(got-28.0) > 0.01 {
		t.Fatalf("expected ~28 at 15:00, got %v", got)
	}
}

func TestAmbientTemperature_TroughNear3h(t *testing.T) {
	got := AmbientTemperature(3.0)
	if math.Abs(got-15.0) > 0.01 {
		t.Fatalf("expected ~15 at 03:00, got %v", got)
	}
}

func TestGenerateReading_StopHasNoCO2OrDoor(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	reading, err := GenerateReading(rng, "S001", model.EntityStop, ts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if reading.CO2PPM != nil || reading.DoorStatus != nil {
		t.Fatalf("stop reading must not carry co2/door fields, got %+v", reading)
	}
}

func TestGenerateReading_BusRequiresState(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ts := time.Now()
	if _, err := GenerateReading(rng, "B001", model.EntityBus, ts, nil); err == nil {
		t.Fatal("expected error when bus_state is nil for entity_type bus")
	}
}

func TestGenerateReading_DoorStatusMatchesAtStop(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	atStop := &model.BusState{BusID: "B1", LineID: "L1", Capacity: 80, PassengerCount: 30, AtStop: true}
	reading, err := GenerateReading(rng, "B1", model.EntityBus, ts, atStop)
	if err != nil {
		t.Fatal(err)
	}
	if reading.DoorStatus == nil || *reading.DoorStatus != "open" {
		t.Fatalf("expected door open when at_stop, got %v", reading.DoorStatus)
	}

	enRoute := &model.BusState{BusID: "B1", LineID: "L1", Capacity: 80, PassengerCount: 30, AtStop: false}
	reading, err = GenerateReading(rng, "B1", model.EntityBus, ts, enRoute)
	if err != nil {
		t.Fatal(err)
	}
	if reading.DoorStatus == nil || *reading.DoorStatus != "closed" {
		t.Fatalf("expected door closed when not at_stop, got %v", reading.DoorStatus)
	}
}

func TestGenerateReading_HumidityClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ts := time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)
	for i := 0; i < 500; i++ {
		r, err := GenerateReading(rng, "S1", model.EntityStop, ts, nil)
		if err != nil {
			t.Fatal(err)
		}
		if r.HumidityPct < 20 || r.HumidityPct > 90 {
			t.Fatalf("humidity %v out of clamp range", r.HumidityPct)
		}
	}
}

func TestGenerateReading_BusCO2IncreasesWithLoad(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	empty := &model.BusState{BusID: "B1", LineID: "L1", Capacity: 80, PassengerCount: 0}
	full := &model.BusState{BusID: "B1", LineID: "L1", Capacity: 80, PassengerCount: 80}

	sumEmpty, sumFull := 0, 0
	const n = 50
	for i := 0; i < n; i++ {
		e, _ := GenerateReading(rng, "B1", model.EntityBus, ts, empty)
		f, _ := GenerateReading(rng, "B1", model.EntityBus, ts, full)
		sumEmpty += *e.CO2PPM
		sumFull += *f.CO2PPM
	}
	if sumFull <= sumEmpty {
		t.Fatalf("expected full-bus CO2 total (%d) > empty-bus total (%d)", sumFull, sumEmpty)
	}
}
