package history

import (
	"errors"
	"time"

	"backend-petsancheck/internal/walk"
)

var errStore = errors.New("store error")

func completedSession() walk.Session {
	started := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)
	ended := started.Add(20 * time.Minute)
	alt := 31.5
	return walk.Session{
		ID:        "walk-1",
		WalkerID:  "walker-1",
		StartedAt: started,
		EndedAt:   &ended,
		Note:      "river loop",
		Weather:   []byte(`{"temp_c":18}`),
		Points: []walk.RoutePoint{
			{Fix: walk.Fix{Lat: 37.5665, Lng: 126.9780, AltitudeM: &alt, HorizontalAccuracy: 5, RecordedAt: started, SpeedMps: 1.2}, Seq: 0},
			{Fix: walk.Fix{Lat: 37.5675, Lng: 126.9790, HorizontalAccuracy: 4, RecordedAt: started.Add(time.Minute), SpeedMps: -1}, Seq: 1, CumulativeM: 141.9},
		},
		Stats: walk.Stats{
			State:            walk.StateCompleted,
			DistanceM:        141.9,
			DurationSec:      1200,
			AverageSpeedKmh:  0.4257,
			AveragePaceMinKm: 140.9,
			Calories:         60,
			PointCount:       2,
		},
	}
}
