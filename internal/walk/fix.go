package walk

import "time"

// Fix is one raw position sample as delivered by the location source.
type Fix struct {
	Lat                float64   `json:"lat"`
	Lng                float64   `json:"lng"`
	AltitudeM          *float64  `json:"altitude_m,omitempty"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy_m"`
	RecordedAt         time.Time `json:"recorded_at"`
	// SpeedMps is the source's instantaneous speed; negative means unknown.
	SpeedMps float64 `json:"speed_mps"`
}

// HasSpeed is false for negative and NaN speeds.
func (f Fix) HasSpeed() bool {
	return f.SpeedMps >= 0
}

// RoutePoint is a fix that made it onto the route.
type RoutePoint struct {
	Fix
	Seq int `json:"seq"`
	// CumulativeM is the route distance up to and including this point.
	CumulativeM float64 `json:"cumulative_m"`
}

// Authorization is the location permission the caller holds when starting a walk.
type Authorization string

const (
	AuthNotDetermined Authorization = "not_determined"
	AuthDenied        Authorization = "denied"
	AuthRestricted    Authorization = "restricted"
	AuthWhenInUse     Authorization = "when_in_use"
	AuthAlways        Authorization = "always"
)

func (a Authorization) Granted() bool {
	return a == AuthWhenInUse || a == AuthAlways
}
