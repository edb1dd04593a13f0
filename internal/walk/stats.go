package walk

import (
	"math"
	"time"
)

const (
	// AssumedWeightKg stands in for a per-dog weight until profiles carry one.
	AssumedWeightKg = 60.0
	// caloriesPerKgMinute is the flat walking burn rate used by the app.
	caloriesPerKgMinute = 0.05
)

type State string

const (
	StateIdle      State = "idle"
	StateActive    State = "active"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// Stats is a point-in-time snapshot of a walk's derived metrics in raw units.
type Stats struct {
	State            State    `json:"state"`
	DistanceM        float64  `json:"distance_m"`
	DurationSec      float64  `json:"duration_sec"`
	AverageSpeedKmh  float64  `json:"average_speed_kmh"`
	AveragePaceMinKm float64  `json:"average_pace_min_per_km"`
	Calories         int      `json:"calories"`
	ElevationGainM   float64  `json:"elevation_gain_m"`
	PointCount       int      `json:"point_count"`
	CenterLat        *float64 `json:"center_lat,omitempty"`
	CenterLng        *float64 `json:"center_lng,omitempty"`
}

func (s Stats) Duration() time.Duration {
	return time.Duration(s.DurationSec * float64(time.Second))
}

// ComputeStats derives speed, pace and calories from distance and active duration.
func ComputeStats(distanceM float64, duration time.Duration) Stats {
	st := Stats{
		DistanceM:   distanceM,
		DurationSec: duration.Seconds(),
	}
	hours := duration.Hours()
	if hours > 0 {
		st.AverageSpeedKmh = (distanceM / 1000) / hours
	}
	if st.AverageSpeedKmh > 0 {
		st.AveragePaceMinKm = 60 / st.AverageSpeedKmh
	}
	st.Calories = Calories(duration)
	return st
}

// Calories depends on duration only.
func Calories(duration time.Duration) int {
	if duration <= 0 {
		return 0
	}
	kcal := duration.Minutes() * caloriesPerKgMinute * AssumedWeightKg
	// absorb float error so whole-kcal boundaries do not floor down
	return int(math.Floor(kcal + 1e-9))
}
