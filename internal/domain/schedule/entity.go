package schedule

import "time"

// WorkCenter is a geofenced site an employee may clock in at
type WorkCenter struct {
	ID           string
	CompanyID    string
	Name         string
	Latitude     float64
	Longitude    float64
	RadiusMeters int
}

// Shift is the time-of-day window an employee is expected to work.
// StartTime and EndTime only carry a clock time.
type Shift struct {
	ID        string
	CompanyID string
	Name      string
	StartTime time.Time
	EndTime   time.Time
}

// Assignment is everything the geofence and timing checks need for one employee on one date
type Assignment struct {
	EmployeeID  string
	WorkCenters []WorkCenter
	Shift       *Shift
}
