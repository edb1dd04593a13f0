package walk

import (
	"log/slog"
	"math"
	"time"

	"backend-petsancheck/internal/shared/geo"
)

const (
	InitialMaxAccuracyM = 100.0
	InitialMaxAge       = 30 * time.Second

	ActiveMaxAccuracyM = 20.0
	ActiveMaxAge       = 10 * time.Second

	// MaxImpliedSpeedMps is roughly 50 km/h; anything faster between two fixes is a GPS jump.
	MaxImpliedSpeedMps = 13.9
)

type Mode int

const (
	// ModeInitialDisplay is the lenient policy for a quick "where am I" fix before tracking.
	ModeInitialDisplay Mode = iota
	// ModeActiveTracking is the strict policy used while a walk is recording.
	ModeActiveTracking
)

func (m Mode) String() string {
	if m == ModeActiveTracking {
		return "active_tracking"
	}
	return "initial_display"
}

type RejectReason string

const (
	ReasonNone              RejectReason = ""
	ReasonInvalidCoordinate RejectReason = "invalid_coordinate"
	ReasonPoorAccuracy      RejectReason = "poor_accuracy"
	ReasonStale             RejectReason = "stale"
	ReasonSpeedSpike        RejectReason = "speed_spike"
	ReasonNotTracking       RejectReason = "not_tracking"
	ReasonEmptyBatch        RejectReason = "empty_batch"
)

type Verdict struct {
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`
	// ImpliedSpeedMps is set when a speed check against the previous fix ran.
	ImpliedSpeedMps float64 `json:"implied_speed_mps,omitempty"`
}

// Validator decides whether a raw fix is usable. A rejection is routine filtering,
// never an error.
type Validator struct {
	now    func() time.Time
	logger *slog.Logger
}

func NewValidator(now func() time.Time, logger *slog.Logger) *Validator {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{now: now, logger: logger}
}

// Accept screens fix under mode. prev is the last accepted fix and is only consulted
// in active-tracking mode.
func (v *Validator) Accept(fix Fix, prev *Fix, mode Mode) Verdict {
	verdict := v.check(fix, prev, mode)
	if !verdict.Accepted {
		v.logger.Debug("fix rejected",
			"mode", mode.String(),
			"reason", string(verdict.Reason),
			"accuracy_m", fix.HorizontalAccuracy,
			"recorded_at", fix.RecordedAt,
			"implied_speed_mps", verdict.ImpliedSpeedMps,
		)
	}
	return verdict
}

func (v *Validator) check(fix Fix, prev *Fix, mode Mode) Verdict {
	if !geo.ValidCoordinate(fix.Lat, fix.Lng) {
		return Verdict{Reason: ReasonInvalidCoordinate}
	}

	maxAccuracy, maxAge := InitialMaxAccuracyM, InitialMaxAge
	if mode == ModeActiveTracking {
		maxAccuracy, maxAge = ActiveMaxAccuracyM, ActiveMaxAge
	}

	if !usableAccuracy(fix.HorizontalAccuracy, maxAccuracy) {
		return Verdict{Reason: ReasonPoorAccuracy}
	}
	if v.now().Sub(fix.RecordedAt) > maxAge {
		return Verdict{Reason: ReasonStale}
	}
	if mode != ModeActiveTracking || prev == nil {
		return Verdict{Accepted: true}
	}

	// Simultaneous or out-of-order timestamps cannot yield a speed; let them through.
	dt := fix.RecordedAt.Sub(prev.RecordedAt).Seconds()
	if dt <= 0 {
		return Verdict{Accepted: true}
	}
	speed := geo.HaversineM(prev.Lat, prev.Lng, fix.Lat, fix.Lng) / dt
	if speed > MaxImpliedSpeedMps {
		return Verdict{Reason: ReasonSpeedSpike, ImpliedSpeedMps: speed}
	}
	return Verdict{Accepted: true, ImpliedSpeedMps: speed}
}

// Locate picks the best fix of a batch and screens it with the lenient initial-display
// policy. It never touches a route.
func (v *Validator) Locate(fixes []Fix) (Fix, Verdict) {
	best, ok := BestOfBatch(fixes)
	if !ok {
		return Fix{}, Verdict{Reason: ReasonEmptyBatch}
	}
	return best, v.Accept(best, nil, ModeInitialDisplay)
}

// usableAccuracy is written so that NaN fails it.
func usableAccuracy(acc, limit float64) bool {
	return acc >= 0 && acc <= limit
}

// BestOfBatch reduces one delivery batch to its most accurate fix. Fixes reporting a
// negative or NaN accuracy only win when nothing else is available; ties keep the
// earliest fix in delivery order.
func BestOfBatch(fixes []Fix) (Fix, bool) {
	if len(fixes) == 0 {
		return Fix{}, false
	}
	best := -1
	for i, f := range fixes {
		if f.HorizontalAccuracy < 0 || math.IsNaN(f.HorizontalAccuracy) {
			continue
		}
		if best < 0 || f.HorizontalAccuracy < fixes[best].HorizontalAccuracy {
			best = i
		}
	}
	if best < 0 {
		return fixes[0], true
	}
	return fixes[best], true
}
