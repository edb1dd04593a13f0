package history

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend-petsancheck/internal/walk"
)

var (
	ErrNotFound     = errors.New("walk not found")
	ErrNotCompleted = errors.New("walk not completed")
)

// Record is the stored summary of a completed walk.
type Record struct {
	ID               string          `json:"id"`
	WalkerID         string          `json:"walker_id"`
	StartedAt        time.Time       `json:"started_at"`
	EndedAt          time.Time       `json:"ended_at"`
	DistanceM        float64         `json:"distance_m"`
	DurationSec      float64         `json:"duration_sec"`
	AverageSpeedKmh  float64         `json:"average_speed_kmh"`
	AveragePaceMinKm float64         `json:"average_pace_min_per_km"`
	Calories         int             `json:"calories"`
	ElevationGainM   float64         `json:"elevation_gain_m"`
	PointCount       int             `json:"point_count"`
	Note             string          `json:"note,omitempty"`
	Weather          json.RawMessage `json:"weather,omitempty"`
}

// Store takes ownership of completed walks. Nothing in the tracking path reads back
// from it; reads serve the history endpoints only.
type Store interface {
	Save(ctx context.Context, session walk.Session) error
	List(ctx context.Context, walkerID string, limit int) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Points(ctx context.Context, id string) ([]walk.RoutePoint, error)
}

func recordFromSession(s walk.Session) (Record, error) {
	if s.EndedAt == nil {
		return Record{}, ErrNotCompleted
	}
	return Record{
		ID:               s.ID,
		WalkerID:         s.WalkerID,
		StartedAt:        s.StartedAt,
		EndedAt:          *s.EndedAt,
		DistanceM:        s.Stats.DistanceM,
		DurationSec:      s.Stats.DurationSec,
		AverageSpeedKmh:  s.Stats.AverageSpeedKmh,
		AveragePaceMinKm: s.Stats.AveragePaceMinKm,
		Calories:         s.Stats.Calories,
		ElevationGainM:   s.Stats.ElevationGainM,
		PointCount:       len(s.Points),
		Note:             s.Note,
		Weather:          s.Weather,
	}, nil
}

func weatherArg(w json.RawMessage) any {
	if len(w) == 0 {
		return nil
	}
	return string(w)
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}
