package attendance

import (
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/utils"
)

// ValidationInput is what the geofence and timing checks look at for one event
type ValidationInput struct {
	Kind        attendance.Kind
	At          time.Time
	Coordinates *attendance.Coordinates
	WorkCenters []schedule.WorkCenter
	Shift       *schedule.Shift
	Location    *time.Location
}

// Validator computes advisory warnings. It never fails: missing inputs yield no warning.
type Validator struct {
	EarlyEntryGrace time.Duration
}

func NewValidator(earlyEntryGrace time.Duration) Validator {
	if earlyEntryGrace < 0 {
		earlyEntryGrace = 0
	}
	return Validator{EarlyEntryGrace: earlyEntryGrace}
}

func (v Validator) Validate(in ValidationInput) attendance.Warnings {
	var w attendance.Warnings

	if in.Coordinates != nil && len(in.WorkCenters) > 0 {
		nearest := math.Inf(1)
		inside := false
		for _, c := range in.WorkCenters {
			d := utils.CalculateHaversineDistance(in.Coordinates.Latitude, in.Coordinates.Longitude, c.Latitude, c.Longitude)
			if d < nearest {
				nearest = d
			}
			if utils.WithinRadius(in.Coordinates.Latitude, in.Coordinates.Longitude, c.Latitude, c.Longitude, float64(c.RadiusMeters)) {
				inside = true
			}
		}
		rounded := math.Round(nearest*10) / 10
		w.DistanceMeters = &rounded
		w.LocationWarning = !inside
	}

	if in.Kind == attendance.KindClockIn && in.Shift != nil && !in.At.IsZero() {
		w.EarlyEntryWarning = v.isEarly(in.At, *in.Shift, in.Location)
	}

	return w
}

// isEarly compares at with the shift start on the same local calendar day, minus the grace window
func (v Validator) isEarly(at time.Time, shift schedule.Shift, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	local := at.In(loc)
	start := shift.StartTime
	threshold := time.Date(local.Year(), local.Month(), local.Day(), start.Hour(), start.Minute(), start.Second(), 0, loc).
		Add(-v.EarlyEntryGrace)
	return local.Before(threshold)
}
