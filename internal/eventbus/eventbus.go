// Package eventbus is the event bus adapter (X2): best-effort publication
// of bus position and arrival events over Redis pub/sub, plus the
// subscription the People-Count feeder uses to learn of real arrivals (see
// SPEC_FULL.md's resolution of spec.md §9's people-count/bus coupling
// open question).
//
// Grounded on the teacher's pkg/cache (redis/go-redis/v9 client shape) and
// the Python EventBridgeClient's retry loop and wire contract
// (source="bus-simulator", detail_type, ISO-8601 time) — see
// original_source/src/common/eventbridge_client.py.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shiva/transit-simulator/internal/model"
	"github.com/shiva/transit-simulator/internal/retry"
)

const (
	// ChannelBusPosition carries bus.position.updated events.
	ChannelBusPosition = "bus.position.updated"
	// ChannelBusArrival carries bus.arrival events.
	ChannelBusArrival = "bus.arrival"

	source = "bus-simulator"
)

// envelope is the stable wire contract described in spec §6.
type envelope struct {
	EventID    string          `json:"event_id"`
	Source     string          `json:"source"`
	DetailType string          `json:"detail_type"`
	Time       string          `json:"time"`
	Detail     json.RawMessage `json:"detail"`
}

// Bus is the X2 adapter backed by Redis pub/sub.
type Bus struct {
	client      *redis.Client
	maxRetries  int
	callTimeout time.Duration
}

// New creates a Bus. maxRetries and callTimeout come from FeederConfig
// (FEEDER_EVENT_MAX_RETRIES, FEEDER_CALL_TIMEOUT).
func New(client *redis.Client, maxRetries int, callTimeout time.Duration) *Bus {
	return &Bus{client: client, maxRetries: maxRetries, callTimeout: callTimeout}
}

type positionDetail struct {
	BusID               string  `json:"bus_id"`
	LineID              string  `json:"line_id"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	PassengerCount      int     `json:"passenger_count"`
	NextStopID          string  `json:"next_stop_id"`
	DistanceToNextStopM float64 `json:"distance_to_next_stop"`
	SpeedKmph           float64 `json:"speed"`
}

type arrivalDetail struct {
	BusID               string `json:"bus_id"`
	LineID              string `json:"line_id"`
	StopID              string `json:"stop_id"`
	PassengersBoarding  int    `json:"passengers_boarding"`
	PassengersAlighting int    `json:"passengers_alighting"`
	BusPassengerCount   int    `json:"bus_passenger_count"`
	StopPeopleCount     int    `json:"stop_people_count"`
}

// PublishPositionUpdate publishes a bus.position.updated event. Best-effort:
// on retry exhaustion it logs a warning and returns nil — the tick
// continues, per spec §7.
func (b *Bus) PublishPositionUpdate(ctx context.Context, pos model.BusPosition) error {
	detail := positionDetail{
		BusID:               pos.BusID,
		LineID:              pos.LineID,
		Latitude:            pos.Latitude,
		Longitude:           pos.Longitude,
		PassengerCount:      pos.PassengerCount,
		NextStopID:          pos.NextStopID,
		DistanceToNextStopM: pos.DistanceToNextStopM,
		SpeedKmph:           pos.SpeedKmph,
	}
	return b.publish(ctx, ChannelBusPosition, pos.Time, detail)
}

// PublishArrival publishes a bus.arrival event.
func (b *Bus) PublishArrival(ctx context.Context, arr model.BusArrival) error {
	detail := arrivalDetail{
		BusID:               arr.BusID,
		LineID:              arr.LineID,
		StopID:              arr.StopID,
		PassengersBoarding:  arr.PassengersBoarding,
		PassengersAlighting: arr.PassengersAlighting,
		BusPassengerCount:   arr.BusPassengerCountAfter,
		StopPeopleCount:     arr.StopPeopleCountAfter,
	}
	return b.publish(ctx, ChannelBusArrival, arr.Time, detail)
}

func (b *Bus) publish(ctx context.Context, channel string, ts time.Time, detail any) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("eventbus: marshal detail: %w", err)
	}
	env := envelope{
		EventID:    uuid.NewString(),
		Source:     source,
		DetailType: channel,
		Time:       ts.UTC().Format(time.RFC3339Nano),
		Detail:     raw,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("eventbus: marshal envelope: %w", err)
	}

	outcome, retryErr := retry.Do(ctx, b.maxRetries, func(attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
		defer cancel()
		return b.client.Publish(callCtx, channel, payload).Err()
	})
	if outcome == retry.OutcomeExhausted {
		log.Printf("[eventbus] WARN: publish to %s exhausted retries, dropping event: %v", channel, retryErr)
	}
	return nil
}

// Subscribe returns a channel of decoded arrival events on ChannelBusArrival,
// used by the People-Count feeder to learn of real boardings. The returned
// function closes the underlying subscription.
func (b *Bus) Subscribe(ctx context.Context) (<-chan ArrivalEvent, func(), error) {
	sub := b.client.Subscribe(ctx, ChannelBusArrival)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("eventbus: subscribe to %s: %w", ChannelBusArrival, err)
	}

	out := make(chan ArrivalEvent, 64)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("[eventbus] WARN: malformed arrival event: %v", err)
				continue
			}
			var d arrivalDetail
			if err := json.Unmarshal(env.Detail, &d); err != nil {
				log.Printf("[eventbus] WARN: malformed arrival detail: %v", err)
				continue
			}
			out <- ArrivalEvent{
				StopID:             d.StopID,
				LineID:             d.LineID,
				PassengersBoarding: d.PassengersBoarding,
			}
		}
	}()

	return out, func() { _ = sub.Close() }, nil
}

// ArrivalEvent is the decoded subset of a bus.arrival event the
// People-Count feeder needs to drain its stop counts accurately.
type ArrivalEvent struct {
	StopID             string
	LineID             string
	PassengersBoarding int
}
