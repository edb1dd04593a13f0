package walk

import (
	"math"
	"testing"
	"time"
)

func TestComputeStats(t *testing.T) {
	st := ComputeStats(1500, 30*time.Minute)
	if math.Abs(st.AverageSpeedKmh-3.0) > 1e-9 {
		t.Fatalf("speed = %v want 3", st.AverageSpeedKmh)
	}
	if math.Abs(st.AveragePaceMinKm-20.0) > 1e-9 {
		t.Fatalf("pace = %v want 20", st.AveragePaceMinKm)
	}
	if st.Calories != 90 {
		t.Fatalf("calories = %d want 90", st.Calories)
	}
}

func TestComputeStatsZeroes(t *testing.T) {
	st := ComputeStats(250, 0)
	if st.AverageSpeedKmh != 0 || st.AveragePaceMinKm != 0 || st.Calories != 0 {
		t.Fatalf("expected zero derived stats for zero duration, got %+v", st)
	}

	st = ComputeStats(0, 10*time.Minute)
	if st.AverageSpeedKmh != 0 || st.AveragePaceMinKm != 0 {
		t.Fatalf("expected zero speed and pace for zero distance, got %+v", st)
	}
	if st.Calories != 30 {
		t.Fatalf("calories depend on duration only, got %d", st.Calories)
	}
}

func TestCaloriesFloor(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{20 * time.Second, 1},
		{19 * time.Second, 0},
		{90 * time.Second, 4},
		{time.Hour, 180},
	}
	for _, tt := range tests {
		if got := Calories(tt.d); got != tt.want {
			t.Fatalf("Calories(%v) = %d want %d", tt.d, got, tt.want)
		}
	}
}
