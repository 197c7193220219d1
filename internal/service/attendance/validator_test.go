package attendance

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	headOffice = schedule.WorkCenter{ID: "wc-1", Name: "Head office", Latitude: -6.2088, Longitude: 106.8456, RadiusMeters: 100}
	warehouse  = schedule.WorkCenter{ID: "wc-2", Name: "Warehouse", Latitude: -6.1751, Longitude: 106.8650, RadiusMeters: 200}
)

func nineOClockShift() *schedule.Shift {
	return &schedule.Shift{
		ID:        "shift-1",
		StartTime: time.Date(0, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(0, 1, 1, 17, 0, 0, 0, time.UTC),
	}
}

func TestValidator_Location(t *testing.T) {
	v := NewValidator(0)

	tests := []struct {
		name        string
		coords      *attendance.Coordinates
		centers     []schedule.WorkCenter
		wantWarning bool
		wantDist    bool
	}{
		{
			name:    "inside the only center",
			coords:  &attendance.Coordinates{Latitude: -6.2088, Longitude: 106.8457},
			centers: []schedule.WorkCenter{headOffice},
			// about 11 m away
			wantDist: true,
		},
		{
			name:        "outside every center",
			coords:      &attendance.Coordinates{Latitude: -6.3000, Longitude: 106.9000},
			centers:     []schedule.WorkCenter{headOffice, warehouse},
			wantWarning: true,
			wantDist:    true,
		},
		{
			name:     "inside the second center",
			coords:   &attendance.Coordinates{Latitude: -6.1752, Longitude: 106.8650},
			centers:  []schedule.WorkCenter{headOffice, warehouse},
			wantDist: true,
		},
		{
			name:    "no coordinates fails open",
			centers: []schedule.WorkCenter{headOffice},
		},
		{
			name:   "no centers assigned fails open",
			coords: &attendance.Coordinates{Latitude: 0, Longitude: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := v.Validate(ValidationInput{
				Kind:        attendance.KindPauseStart,
				At:          time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
				Coordinates: tt.coords,
				WorkCenters: tt.centers,
			})
			assert.Equal(t, tt.wantWarning, w.LocationWarning)
			assert.Equal(t, tt.wantDist, w.DistanceMeters != nil)
			assert.False(t, w.EarlyEntryWarning)
		})
	}
}

func TestValidator_ReportsNearestDistance(t *testing.T) {
	w := NewValidator(0).Validate(ValidationInput{
		Kind:        attendance.KindClockIn,
		Coordinates: &attendance.Coordinates{Latitude: -6.1751, Longitude: 106.8700},
		WorkCenters: []schedule.WorkCenter{headOffice, warehouse},
	})

	require.NotNil(t, w.DistanceMeters)
	assert.True(t, w.LocationWarning)
	// ~552 m east of the warehouse, far closer than the head office
	assert.InDelta(t, 552, *w.DistanceMeters, 10)
}

func TestValidator_EarlyEntry(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	tests := []struct {
		name  string
		grace time.Duration
		kind  attendance.Kind
		at    time.Time
		want  bool
	}{
		{"before start without grace", 0, attendance.KindClockIn, time.Date(2024, 3, 4, 8, 59, 0, 0, jakarta), true},
		{"exactly at start", 0, attendance.KindClockIn, time.Date(2024, 3, 4, 9, 0, 0, 0, jakarta), false},
		{"within grace", 15 * time.Minute, attendance.KindClockIn, time.Date(2024, 3, 4, 8, 50, 0, 0, jakarta), false},
		{"before grace", 15 * time.Minute, attendance.KindClockIn, time.Date(2024, 3, 4, 8, 40, 0, 0, jakarta), true},
		{"late arrival", 0, attendance.KindClockIn, time.Date(2024, 3, 4, 9, 30, 0, 0, jakarta), false},
		{"only clock in is checked", 0, attendance.KindPauseEnd, time.Date(2024, 3, 4, 7, 0, 0, 0, jakarta), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewValidator(tt.grace).Validate(ValidationInput{
				Kind:     tt.kind,
				At:       tt.at.UTC(),
				Shift:    nineOClockShift(),
				Location: jakarta,
			})
			assert.Equal(t, tt.want, w.EarlyEntryWarning)
		})
	}
}

func TestValidator_EarlyEntryOnDaylightSavingChange(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-03-10 is 23 hours long in New York
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"on time after the clocks moved", time.Date(2024, 3, 10, 9, 30, 0, 0, newYork), false},
		{"exactly at start", time.Date(2024, 3, 10, 9, 0, 0, 0, newYork), false},
		{"early", time.Date(2024, 3, 10, 8, 55, 0, 0, newYork), true},
		{"fall back day", time.Date(2024, 11, 3, 8, 30, 0, 0, newYork), true},
		{"fall back day on time", time.Date(2024, 11, 3, 9, 0, 0, 0, newYork), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewValidator(0).Validate(ValidationInput{
				Kind:     attendance.KindClockIn,
				At:       tt.at.UTC(),
				Shift:    nineOClockShift(),
				Location: newYork,
			})
			assert.Equal(t, tt.want, w.EarlyEntryWarning)
		})
	}
}

func TestValidator_NoShiftNoWarning(t *testing.T) {
	w := NewValidator(0).Validate(ValidationInput{
		Kind: attendance.KindClockIn,
		At:   time.Date(2024, 3, 4, 3, 0, 0, 0, time.UTC),
	})
	assert.False(t, w.Any())
}
