// Package sensor synthesizes temperature, humidity, CO2, and door-status
// readings for buses and stops, per spec.md §4.4.
package sensor

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/shiva/transit-simulator/internal/model"
)

// AmbientTemperature implements the cosine curve spec.md §4.4 and §9 adopt:
// peak ~28°C at 15:00, trough ~15°C around 03:00. This is the resolved
// form of the Open Question in spec.md §9 — the alternative "06:00 trough"
// intent documented in the original source is not implemented.
func AmbientTemperature(hourWithMinutes float64) float64 {
	const avg = 21.5
	const amplitude = 6.5
	return avg + amplitude*math.Cos(2*math.Pi*(hourWithMinutes-15)/24)
}

func hourWithMinutes(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0
}

// GenerateReading produces a SensorReading for a bus or stop entity.
// busState is required when entityType is model.EntityBus.
func GenerateReading(
	rng *rand.Rand,
	entityID string,
	entityType model.EntityType,
	currentTime time.Time,
	busState *model.BusState,
) (model.SensorReading, error) {
	if entityType != model.EntityBus && entityType != model.EntityStop {
		return model.SensorReading{}, fmt.Errorf("entity_type must be bus or stop, got %q", entityType)
	}
	if entityType == model.EntityBus && busState == nil {
		return model.SensorReading{}, fmt.Errorf("bus_state is required when entity_type is bus")
	}

	baseTemp := AmbientTemperature(hourWithMinutes(currentTime))
	temperature := baseTemp + rng.NormFloat64()*1.5

	baseHumidity := 70 - 2*(temperature-20)
	humidity := baseHumidity + rng.NormFloat64()*5
	humidity = clamp(humidity, 20, 90)

	reading := model.SensorReading{
		EntityID:     entityID,
		EntityType:   entityType,
		Time:         currentTime,
		TemperatureC: temperature,
		HumidityPct:  humidity,
	}

	if entityType == model.EntityBus {
		co2 := 400 + 50*float64(busState.PassengerCount) + rng.NormFloat64()*50
		co2Rounded := int(math.Round(co2))
		if co2Rounded < 0 {
			co2Rounded = 0
		}
		doorStatus := "closed"
		if busState.AtStop {
			doorStatus = "open"
		}
		reading.CO2PPM = &co2Rounded
		reading.DoorStatus = &doorStatus
	}

	return reading, reading.Validate()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
