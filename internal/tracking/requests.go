package tracking

import (
	"errors"
	"fmt"
	"time"

	"backend-petsancheck/internal/walk"
)

var errBadFix = errors.New("invalid fix")

// FixRequest is the wire form of a position fix. Pointers tell a missing field apart
// from a zero value.
type FixRequest struct {
	Lat                 *float64  `json:"lat"`
	Lng                 *float64  `json:"lng"`
	AltitudeM           *float64  `json:"altitude_m"`
	HorizontalAccuracyM *float64  `json:"horizontal_accuracy_m"`
	RecordedAt          time.Time `json:"recorded_at"`
	SpeedMps            *float64  `json:"speed_mps"`
}

type FixBatchRequest struct {
	Fixes []FixRequest `json:"fixes"`
}

func (r FixRequest) toFix() (walk.Fix, error) {
	switch {
	case r.Lat == nil || r.Lng == nil:
		return walk.Fix{}, fmt.Errorf("%w: lat and lng required", errBadFix)
	case r.HorizontalAccuracyM == nil:
		return walk.Fix{}, fmt.Errorf("%w: horizontal_accuracy_m required", errBadFix)
	case r.RecordedAt.IsZero():
		return walk.Fix{}, fmt.Errorf("%w: recorded_at required", errBadFix)
	}
	fix := walk.Fix{
		Lat:                *r.Lat,
		Lng:                *r.Lng,
		AltitudeM:          r.AltitudeM,
		HorizontalAccuracy: *r.HorizontalAccuracyM,
		RecordedAt:         r.RecordedAt,
		SpeedMps:           -1,
	}
	if r.SpeedMps != nil {
		fix.SpeedMps = *r.SpeedMps
	}
	return fix, nil
}

func (b FixBatchRequest) toFixes() ([]walk.Fix, error) {
	if len(b.Fixes) == 0 {
		return nil, fmt.Errorf("%w: fixes required", errBadFix)
	}
	fixes := make([]walk.Fix, 0, len(b.Fixes))
	for i, r := range b.Fixes {
		fix, err := r.toFix()
		if err != nil {
			return nil, fmt.Errorf("fix %d: %w", i, err)
		}
		fixes = append(fixes, fix)
	}
	return fixes, nil
}
