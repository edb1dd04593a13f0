package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"backend-petsancheck/internal/walk"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS walk_sessions (
	id TEXT PRIMARY KEY,
	walker_id TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT NOT NULL,
	distance_m REAL NOT NULL,
	duration_sec REAL NOT NULL,
	average_speed_kmh REAL NOT NULL,
	average_pace_min_per_km REAL NOT NULL,
	calories INTEGER NOT NULL,
	elevation_gain_m REAL NOT NULL,
	point_count INTEGER NOT NULL,
	note TEXT,
	weather TEXT
);

CREATE INDEX IF NOT EXISTS idx_walk_sessions_walker ON walk_sessions(walker_id, started_at);

CREATE TABLE IF NOT EXISTS walk_points (
	walk_id TEXT NOT NULL REFERENCES walk_sessions(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	lat REAL NOT NULL,
	lng REAL NOT NULL,
	altitude_m REAL,
	horizontal_accuracy_m REAL NOT NULL,
	recorded_at TEXT NOT NULL,
	speed_mps REAL NOT NULL,
	cumulative_m REAL NOT NULL,
	PRIMARY KEY (walk_id, seq)
);
`

// SQLiteStore keeps walk history in an embedded database for deployments without Postgres.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, conn *sql.DB) (*SQLiteStore, error) {
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: conn}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, session walk.Session) error {
	rec, err := recordFromSession(session)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.insert(ctx, tx, rec, session.Points); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) insert(ctx context.Context, tx *sql.Tx, rec Record, points []walk.RoutePoint) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO walk_sessions (id, walker_id, started_at, ended_at, distance_m, duration_sec,
		                           average_speed_kmh, average_pace_min_per_km, calories, elevation_gain_m,
		                           point_count, note, weather)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.WalkerID, formatTime(rec.StartedAt), formatTime(rec.EndedAt), rec.DistanceM, rec.DurationSec,
		rec.AverageSpeedKmh, rec.AveragePaceMinKm, rec.Calories, rec.ElevationGainM,
		rec.PointCount, rec.Note, weatherArg(rec.Weather))
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO walk_points (walk_id, seq, lat, lng, altitude_m, horizontal_accuracy_m, recorded_at, speed_mps, cumulative_m)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		var altitude sql.NullFloat64
		if p.AltitudeM != nil {
			altitude = sql.NullFloat64{Float64: *p.AltitudeM, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, p.Seq, p.Lat, p.Lng, altitude, p.HorizontalAccuracy,
			formatTime(p.RecordedAt), p.SpeedMps, p.CumulativeM); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, walkerID string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, walker_id, started_at, ended_at, distance_m, duration_sec, average_speed_kmh,
		       average_pace_min_per_km, calories, elevation_gain_m, point_count, COALESCE(note,''), weather
		FROM walk_sessions WHERE walker_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, walkerID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, walker_id, started_at, ended_at, distance_m, duration_sec, average_speed_kmh,
		       average_pace_min_per_km, calories, elevation_gain_m, point_count, COALESCE(note,''), weather
		FROM walk_sessions WHERE id = ?
	`, id)
	rec, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) Points(ctx context.Context, id string) ([]walk.RoutePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, lat, lng, altitude_m, horizontal_accuracy_m, recorded_at, speed_mps, cumulative_m
		FROM walk_points WHERE walk_id = ?
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []walk.RoutePoint
	for rows.Next() {
		var p walk.RoutePoint
		var altitude sql.NullFloat64
		var recordedAt string
		if err := rows.Scan(&p.Seq, &p.Lat, &p.Lng, &altitude, &p.HorizontalAccuracy, &recordedAt, &p.SpeedMps, &p.CumulativeM); err != nil {
			return nil, err
		}
		if altitude.Valid {
			alt := altitude.Float64
			p.AltitudeM = &alt
		}
		if p.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row sqlScanner) (Record, error) {
	var rec Record
	var startedAt, endedAt string
	var weather sql.NullString
	err := row.Scan(&rec.ID, &rec.WalkerID, &startedAt, &endedAt, &rec.DistanceM, &rec.DurationSec,
		&rec.AverageSpeedKmh, &rec.AveragePaceMinKm, &rec.Calories, &rec.ElevationGainM, &rec.PointCount,
		&rec.Note, &weather)
	if err != nil {
		return Record{}, err
	}
	if rec.StartedAt, err = parseTime(startedAt); err != nil {
		return Record{}, err
	}
	if rec.EndedAt, err = parseTime(endedAt); err != nil {
		return Record{}, err
	}
	if weather.Valid && weather.String != "" {
		rec.Weather = []byte(weather.String)
	}
	return rec, nil
}

// Timestamps are stored as fixed-width UTC text so lexical order matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}
