package walk

import (
	"math"

	"backend-petsancheck/internal/shared/geo"
)

// MinStepM is the de-jitter gate: a fix closer than this to the last route point is not stored.
const MinStepM = 2.0

// Route is the append-only path of one walk. Distance is kept incrementally and only ever
// measured between stored points, so sub-step jitter cannot add phantom distance.
// Not safe for concurrent use.
type Route struct {
	points         []RoutePoint
	distanceM      float64
	elevationGainM float64
}

func NewRoute() *Route {
	return &Route{}
}

// Append stores fix when it is the first point or at least MinStepM away from the last one.
// An unknown or NaN speed is stored as -1 and a non-finite altitude is dropped.
func (r *Route) Append(fix Fix) (RoutePoint, bool) {
	if !fix.HasSpeed() {
		fix.SpeedMps = -1
	}
	if fix.AltitudeM != nil && (math.IsNaN(*fix.AltitudeM) || math.IsInf(*fix.AltitudeM, 0)) {
		fix.AltitudeM = nil
	}

	last, ok := r.Last()
	if !ok {
		p := RoutePoint{Fix: fix, Seq: 0}
		r.points = append(r.points, p)
		return p, true
	}

	step := geo.HaversineM(last.Lat, last.Lng, fix.Lat, fix.Lng)
	if step < MinStepM {
		return RoutePoint{}, false
	}

	r.distanceM += step
	if last.AltitudeM != nil && fix.AltitudeM != nil && *fix.AltitudeM > *last.AltitudeM {
		r.elevationGainM += *fix.AltitudeM - *last.AltitudeM
	}

	p := RoutePoint{Fix: fix, Seq: len(r.points), CumulativeM: r.distanceM}
	r.points = append(r.points, p)
	return p, true
}

// TotalDistance is the sum of great-circle steps between consecutive points, in meters.
func (r *Route) TotalDistance() float64 {
	return r.distanceM
}

func (r *Route) ElevationGain() float64 {
	return r.elevationGainM
}

func (r *Route) Len() int {
	return len(r.points)
}

func (r *Route) Last() (RoutePoint, bool) {
	if len(r.points) == 0 {
		return RoutePoint{}, false
	}
	return r.points[len(r.points)-1], true
}

func (r *Route) Points() []RoutePoint {
	out := make([]RoutePoint, len(r.points))
	copy(out, r.points)
	return out
}

// Center is the arithmetic mean of the route's coordinates.
func (r *Route) Center() (float64, float64, bool) {
	lats := make([]float64, len(r.points))
	lngs := make([]float64, len(r.points))
	for i, p := range r.points {
		lats[i] = p.Lat
		lngs[i] = p.Lng
	}
	return geo.Centroid(lats, lngs)
}
