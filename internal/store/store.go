// Package store is the time-series store adapter (X1): batched writes of
// PeopleCount, SensorReading, and BusPosition observations, plus the
// point-in-time query contract (latest / at-or-before / range) consumed by
// the out-of-scope query gateways.
//
// Writes are retried with the shared internal/retry backoff schedule and
// raise after exhaustion — the store is the required persistence path.
// This mirrors the teacher's internal/repository pattern (pgxpool, explicit
// SQL, Scan into struct fields) and the Python TimestreamClient's retry
// loop and WHERE-clause construction (see original_source/src/common/timestream_client.py).
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiva/transit-simulator/internal/model"
	"github.com/shiva/transit-simulator/internal/retry"
)

// Table names match spec's write(table, records) contract.
type Table string

const (
	TablePeopleCount Table = "people_count"
	TableSensorData  Table = "sensor_data"
	TableBusPosition Table = "bus_position"
)

// Store is the X1 adapter backed by PostgreSQL.
type Store struct {
	pool        *pgxpool.Pool
	maxRetries  int
	callTimeout time.Duration
}

// New creates a Store. maxRetries and callTimeout come from FeederConfig
// (FEEDER_STORE_MAX_RETRIES, FEEDER_CALL_TIMEOUT).
func New(pool *pgxpool.Pool, maxRetries int, callTimeout time.Duration) *Store {
	return &Store{pool: pool, maxRetries: maxRetries, callTimeout: callTimeout}
}

// ─── Writes ─────────────────────────────────────────────────

// WritePeopleCount sends records as one pgx batch per call (one INSERT per
// record, one round trip), retrying
// transient failures with 2^attempt second backoff. Raises after exhaustion,
// per spec §6/§7 — the caller is expected to drop the tick's batch and log.
func (s *Store) WritePeopleCount(ctx context.Context, records []model.PeopleCount) error {
	if len(records) == 0 {
		return nil
	}
	outcome, err := retry.Do(ctx, s.maxRetries, func(attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()

		batch := &pgx.Batch{}
		for _, r := range records {
			batch.Queue(`
				INSERT INTO people_count (stop_id, observed_at, count, line_ids)
				VALUES ($1, $2, $3, $4)
			`, r.StopID, r.Time, r.Count, r.LineIDs)
		}
		br := s.pool.SendBatch(callCtx, batch)
		defer br.Close()
		for range records {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("store: write people_count: %w", err)
			}
		}
		return nil
	})
	if outcome == retry.OutcomeExhausted {
		return fmt.Errorf("store: write people_count exhausted retries: %w", err)
	}
	return nil
}

// WriteSensorReadings sends sensor readings (bus and stop alike) as one pgx
// batch per call, one INSERT per record.
func (s *Store) WriteSensorReadings(ctx context.Context, records []model.SensorReading) error {
	if len(records) == 0 {
		return nil
	}
	outcome, err := retry.Do(ctx, s.maxRetries, func(attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()

		batch := &pgx.Batch{}
		for _, r := range records {
			batch.Queue(`
				INSERT INTO sensor_data (entity_id, entity_type, observed_at, temperature_c, humidity_pct, co2_ppm, door_status)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, r.EntityID, string(r.EntityType), r.Time, r.TemperatureC, r.HumidityPct, r.CO2PPM, r.DoorStatus)
		}
		br := s.pool.SendBatch(callCtx, batch)
		defer br.Close()
		for range records {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("store: write sensor_data: %w", err)
			}
		}
		return nil
	})
	if outcome == retry.OutcomeExhausted {
		return fmt.Errorf("store: write sensor_data exhausted retries: %w", err)
	}
	return nil
}

// WriteBusPositions sends one tick's bus-position observations across all
// buses as a single pgx batch (one INSERT per record), per spec §4.5.2 ("all
// observations within one tick are batched into a single store write call").
func (s *Store) WriteBusPositions(ctx context.Context, records []model.BusPosition) error {
	if len(records) == 0 {
		return nil
	}
	outcome, err := retry.Do(ctx, s.maxRetries, func(attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()

		batch := &pgx.Batch{}
		for _, r := range records {
			batch.Queue(`
				INSERT INTO bus_position (bus_id, line_id, observed_at, latitude, longitude, passenger_count, next_stop_id, distance_to_next_stop_m, speed_kmph, direction)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, r.BusID, r.LineID, r.Time, r.Latitude, r.Longitude, r.PassengerCount, r.NextStopID, r.DistanceToNextStopM, r.SpeedKmph, int(r.Direction))
		}
		br := s.pool.SendBatch(callCtx, batch)
		defer br.Close()
		for range records {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("store: write bus_position: %w", err)
			}
		}
		return nil
	})
	if outcome == retry.OutcomeExhausted {
		return fmt.Errorf("store: write bus_position exhausted retries: %w", err)
	}
	return nil
}

// ─── Query contract (§4.6) ──────────────────────────────────

// buildWhere is the shared dimension-equality builder: every entry of dims is combined
// with logical-AND, matching spec §4.6. Placeholders start at $1.
func buildWhere(dims map[string]any) (string, []any) {
	if len(dims) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(dims))
	args := make([]any, 0, len(dims))
	i := 1
	for col, val := range dims {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// QueryLatestPeopleCount returns the most recent row matching dims, or nil
// if there is no data (never an error — §7 "Query-no-data").
func (s *Store) QueryLatestPeopleCount(ctx context.Context, dims map[string]any) (*model.PeopleCount, error) {
	where, args := buildWhere(dims)
	query := fmt.Sprintf(`
		SELECT stop_id, observed_at, count, line_ids
		FROM people_count
		%s
		ORDER BY observed_at DESC
		LIMIT 1
	`, where)
	var r model.PeopleCount
	err := s.pool.QueryRow(ctx, query, args...).Scan(&r.StopID, &r.Time, &r.Count, &r.LineIDs)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: query latest people_count: %w", err)
	}
	return &r, nil
}

// QueryAtOrBeforePeopleCount returns the row with the greatest observed_at
// <= ts matching dims, or nil if none exists.
func (s *Store) QueryAtOrBeforePeopleCount(ctx context.Context, dims map[string]any, ts time.Time) (*model.PeopleCount, error) {
	where, args := buildWhere(dims)
	timeClause := "observed_at <= $" + fmt.Sprint(len(args)+1)
	if where == "" {
		where = "WHERE " + timeClause
	} else {
		where += " AND " + timeClause
	}
	args = append(args, ts)

	query := fmt.Sprintf(`
		SELECT stop_id, observed_at, count, line_ids
		FROM people_count
		%s
		ORDER BY observed_at DESC
		LIMIT 1
	`, where)
	var r model.PeopleCount
	err := s.pool.QueryRow(ctx, query, args...).Scan(&r.StopID, &r.Time, &r.Count, &r.LineIDs)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: query at-or-before people_count: %w", err)
	}
	return &r, nil
}

// QueryRangePeopleCount returns rows in [start,end], ordered by time,
// capped at limit (0 means unbounded).
func (s *Store) QueryRangePeopleCount(ctx context.Context, dims map[string]any, start, end time.Time, limit int) ([]model.PeopleCount, error) {
	where, args := buildWhere(dims)
	rangeClause := fmt.Sprintf("observed_at >= $%d AND observed_at <= $%d", len(args)+1, len(args)+2)
	if where == "" {
		where = "WHERE " + rangeClause
	} else {
		where += " AND " + rangeClause
	}
	args = append(args, start, end)

	limitClause := ""
	if limit > 0 {
		limitClause = fmt.Sprintf("LIMIT %d", limit)
	}

	query := fmt.Sprintf(`
		SELECT stop_id, observed_at, count, line_ids
		FROM people_count
		%s
		ORDER BY observed_at ASC
		%s
	`, where, limitClause)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query range people_count: %w", err)
	}
	defer rows.Close()

	var results []model.PeopleCount
	for rows.Next() {
		var r model.PeopleCount
		if err := rows.Scan(&r.StopID, &r.Time, &r.Count, &r.LineIDs); err != nil {
			return nil, fmt.Errorf("store: scan people_count row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// QueryLatestSensorReading returns the most recent sensor reading matching
// dims (typically {"entity_id": ..., "entity_type": ...}).
func (s *Store) QueryLatestSensorReading(ctx context.Context, dims map[string]any) (*model.SensorReading, error) {
	where, args := buildWhere(dims)
	query := fmt.Sprintf(`
		SELECT entity_id, entity_type, observed_at, temperature_c, humidity_pct, co2_ppm, door_status
		FROM sensor_data
		%s
		ORDER BY observed_at DESC
		LIMIT 1
	`, where)
	var r model.SensorReading
	var entityType string
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&r.EntityID, &entityType, &r.Time, &r.TemperatureC, &r.HumidityPct, &r.CO2PPM, &r.DoorStatus,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: query latest sensor_data: %w", err)
	}
	r.EntityType = model.EntityType(entityType)
	return &r, nil
}

// QueryAtOrBeforeSensorReading mirrors QueryAtOrBeforePeopleCount for the
// sensor_data table.
func (s *Store) QueryAtOrBeforeSensorReading(ctx context.Context, dims map[string]any, ts time.Time) (*model.SensorReading, error) {
	where, args := buildWhere(dims)
	timeClause := "observed_at <= $" + fmt.Sprint(len(args)+1)
	if where == "" {
		where = "WHERE " + timeClause
	} else {
		where += " AND " + timeClause
	}
	args = append(args, ts)

	query := fmt.Sprintf(`
		SELECT entity_id, entity_type, observed_at, temperature_c, humidity_pct, co2_ppm, door_status
		FROM sensor_data
		%s
		ORDER BY observed_at DESC
		LIMIT 1
	`, where)
	var r model.SensorReading
	var entityType string
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&r.EntityID, &entityType, &r.Time, &r.TemperatureC, &r.HumidityPct, &r.CO2PPM, &r.DoorStatus,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: query at-or-before sensor_data: %w", err)
	}
	r.EntityType = model.EntityType(entityType)
	return &r, nil
}

// QueryRangeSensorReading mirrors QueryRangePeopleCount for the sensor_data
// table.
func (s *Store) QueryRangeSensorReading(ctx context.Context, dims map[string]any, start, end time.Time, limit int) ([]model.SensorReading, error) {
	where, args := buildWhere(dims)
	rangeClause := fmt.Sprintf("observed_at >= $%d AND observed_at <= $%d", len(args)+1, len(args)+2)
	if where == "" {
		where = "WHERE " + rangeClause
	} else {
		where += " AND " + rangeClause
	}
	args = append(args, start, end)

	limitClause := ""
	if limit > 0 {
		limitClause = fmt.Sprintf("LIMIT %d", limit)
	}

	query := fmt.Sprintf(`
		SELECT entity_id, entity_type, observed_at, temperature_c, humidity_pct, co2_ppm, door_status
		FROM sensor_data
		%s
		ORDER BY observed_at ASC
		%s
	`, where, limitClause)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query range sensor_data: %w", err)
	}
	defer rows.Close()

	var results []model.SensorReading
	for rows.Next() {
		var r model.SensorReading
		var entityType string
		if err := rows.Scan(&r.EntityID, &entityType, &r.Time, &r.TemperatureC, &r.HumidityPct, &r.CO2PPM, &r.DoorStatus); err != nil {
			return nil, fmt.Errorf("store: scan sensor_data row: %w", err)
		}
		r.EntityType = model.EntityType(entityType)
		results = append(results, r)
	}
	return results, rows.Err()
}

// QueryLatestBusPosition returns the most recent position matching dims
// (typically {"bus_id": ...} or {"line_id": ...}).
func (s *Store) QueryLatestBusPosition(ctx context.Context, dims map[string]any) (*model.BusPosition, error) {
	where, args := buildWhere(dims)
	query := fmt.Sprintf(`
		SELECT bus_id, line_id, observed_at, latitude, longitude, passenger_count, next_stop_id, distance_to_next_stop_m, speed_kmph, direction
		FROM bus_position
		%s
		ORDER BY observed_at DESC
		LIMIT 1
	`, where)
	var r model.BusPosition
	var direction int
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&r.BusID, &r.LineID, &r.Time, &r.Latitude, &r.Longitude, &r.PassengerCount, &r.NextStopID, &r.DistanceToNextStopM, &r.SpeedKmph, &direction,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: query latest bus_position: %w", err)
	}
	r.Direction = model.Direction(direction)
	return &r, nil
}

// QueryAtOrBeforeBusPosition mirrors QueryAtOrBeforePeopleCount for the
// bus_position table.
func (s *Store) QueryAtOrBeforeBusPosition(ctx context.Context, dims map[string]any, ts time.Time) (*model.BusPosition, error) {
	where, args := buildWhere(dims)
	timeClause := "observed_at <= $" + fmt.Sprint(len(args)+1)
	if where == "" {
		where = "WHERE " + timeClause
	} else {
		where += " AND " + timeClause
	}
	args = append(args, ts)

	query := fmt.Sprintf(`
		SELECT bus_id, line_id, observed_at, latitude, longitude, passenger_count, next_stop_id, distance_to_next_stop_m, speed_kmph, direction
		FROM bus_position
		%s
		ORDER BY observed_at DESC
		LIMIT 1
	`, where)
	var r model.BusPosition
	var direction int
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&r.BusID, &r.LineID, &r.Time, &r.Latitude, &r.Longitude, &r.PassengerCount, &r.NextStopID, &r.DistanceToNextStopM, &r.SpeedKmph, &direction,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: query at-or-before bus_position: %w", err)
	}
	r.Direction = model.Direction(direction)
	return &r, nil
}

// QueryRangeBusPosition mirrors QueryRangePeopleCount for the bus_position
// table.
func (s *Store) QueryRangeBusPosition(ctx context.Context, dims map[string]any, start, end time.Time, limit int) ([]model.BusPosition, error) {
	where, args := buildWhere(dims)
	rangeClause := fmt.Sprintf("observed_at >= $%d AND observed_at <= $%d", len(args)+1, len(args)+2)
	if where == "" {
		where = "WHERE " + rangeClause
	} else {
		where += " AND " + rangeClause
	}
	args = append(args, start, end)

	limitClause := ""
	if limit > 0 {
		limitClause = fmt.Sprintf("LIMIT %d", limit)
	}

	query := fmt.Sprintf(`
		SELECT bus_id, line_id, observed_at, latitude, longitude, passenger_count, next_stop_id, distance_to_next_stop_m, speed_kmph, direction
		FROM bus_position
		%s
		ORDER BY observed_at ASC
		%s
	`, where, limitClause)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query range bus_position: %w", err)
	}
	defer rows.Close()

	var results []model.BusPosition
	for rows.Next() {
		var r model.BusPosition
		var direction int
		if err := rows.Scan(&r.BusID, &r.LineID, &r.Time, &r.Latitude, &r.Longitude, &r.PassengerCount, &r.NextStopID, &r.DistanceToNextStopM, &r.SpeedKmph, &direction); err != nil {
			return nil, fmt.Errorf("store: scan bus_position row: %w", err)
		}
		r.Direction = model.Direction(direction)
		results = append(results, r)
	}
	return results, rows.Err()
}
