package history

import (
	"context"
	"errors"

	"backend-petsancheck/internal/db"
	"backend-petsancheck/internal/walk"

	"github.com/jackc/pgx/v5"
)

// PostgresStore writes walks into PostGIS-enabled Postgres, one transaction per walk.
type PostgresStore struct {
	db db.Querier
}

func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{db: q}
}

func (s *PostgresStore) Save(ctx context.Context, session walk.Session) error {
	rec, err := recordFromSession(session)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := insertWalk(ctx, tx, rec, session.Points); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func insertWalk(ctx context.Context, tx pgx.Tx, rec Record, points []walk.RoutePoint) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO walk_sessions (id, walker_id, started_at, ended_at, distance_m, duration_sec,
		                           average_speed_kmh, average_pace_min_per_km, calories, elevation_gain_m,
		                           point_count, note, weather)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, rec.ID, rec.WalkerID, rec.StartedAt, rec.EndedAt, rec.DistanceM, rec.DurationSec,
		rec.AverageSpeedKmh, rec.AveragePaceMinKm, rec.Calories, rec.ElevationGainM,
		rec.PointCount, rec.Note, weatherArg(rec.Weather))
	if err != nil {
		return err
	}

	for _, p := range points {
		_, err := tx.Exec(ctx, `
			INSERT INTO walk_points (walk_id, seq, location, altitude_m, horizontal_accuracy_m, recorded_at, speed_mps, cumulative_m)
			VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3,$4), 4326)::geography, $5, $6, $7, $8, $9)
		`, rec.ID, p.Seq, p.Lng, p.Lat, p.AltitudeM, p.HorizontalAccuracy, p.RecordedAt, p.SpeedMps, p.CumulativeM)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, walkerID string, limit int) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, walker_id, started_at, ended_at, distance_m, duration_sec, average_speed_kmh,
		       average_pace_min_per_km, calories, elevation_gain_m, point_count, COALESCE(note,''), weather
		FROM walk_sessions WHERE walker_id=$1
		ORDER BY started_at DESC
		LIMIT $2
	`, walkerID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, walker_id, started_at, ended_at, distance_m, duration_sec, average_speed_kmh,
		       average_pace_min_per_km, calories, elevation_gain_m, point_count, COALESCE(note,''), weather
		FROM walk_sessions WHERE id=$1
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) Points(ctx context.Context, id string) ([]walk.RoutePoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT seq, ST_Y(location::geometry), ST_X(location::geometry), altitude_m, horizontal_accuracy_m,
		       recorded_at, COALESCE(speed_mps,-1), cumulative_m
		FROM walk_points WHERE walk_id=$1
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []walk.RoutePoint
	for rows.Next() {
		var p walk.RoutePoint
		if err := rows.Scan(&p.Seq, &p.Lat, &p.Lng, &p.AltitudeM, &p.HorizontalAccuracy, &p.RecordedAt, &p.SpeedMps, &p.CumulativeM); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var weather []byte
	err := row.Scan(&rec.ID, &rec.WalkerID, &rec.StartedAt, &rec.EndedAt, &rec.DistanceM, &rec.DurationSec,
		&rec.AverageSpeedKmh, &rec.AveragePaceMinKm, &rec.Calories, &rec.ElevationGainM, &rec.PointCount,
		&rec.Note, &weather)
	if err != nil {
		return Record{}, err
	}
	if len(weather) > 0 {
		rec.Weather = weather
	}
	return rec, nil
}
