package attendance

import (
	"time"
)

// Kind is the type of a clock event
type Kind string

const (
	KindClockIn    Kind = "CLOCK_IN"
	KindClockOut   Kind = "CLOCK_OUT"
	KindPauseStart Kind = "PAUSE_START"
	KindPauseEnd   Kind = "PAUSE_END"
)

// Kinds lists every event kind in ledger order of a full cycle
var Kinds = []Kind{KindClockIn, KindPauseStart, KindPauseEnd, KindClockOut}

func (k Kind) IsValid() bool {
	switch k {
	case KindClockIn, KindClockOut, KindPauseStart, KindPauseEnd:
		return true
	}
	return false
}

// AcceptanceState tracks admin review of an event
type AcceptanceState string

const (
	AcceptanceAccepted AcceptanceState = "ACCEPTED"
	AcceptancePending  AcceptanceState = "PENDING"
	AcceptanceRejected AcceptanceState = "REJECTED"
)

func (s AcceptanceState) IsValid() bool {
	switch s {
	case AcceptanceAccepted, AcceptancePending, AcceptanceRejected:
		return true
	}
	return false
}

// Status is the projection of an employee's ledger tail
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusWorking    Status = "WORKING"
	StatusOnBreak    Status = "ON_BREAK"
	StatusFinished   Status = "FINISHED"
)

// Statuses lists every status value
var Statuses = []Status{StatusNotStarted, StatusWorking, StatusOnBreak, StatusFinished}

// Coordinates is a WGS84 position reported by the client
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Event is one row of the append-only attendance ledger.
// Ledger order is (CreatedAt, ID) ascending.
type Event struct {
	ID                string
	CompanyID         string
	EmployeeID        string
	Kind              Kind
	CreatedAt         time.Time
	Latitude          *float64
	Longitude         *float64
	Observation       *string
	AcceptanceState   AcceptanceState
	LocationWarning   bool
	EarlyEntryWarning bool
	Justification     *string
	OriginalCreatedAt *time.Time
	UpdatedAt         time.Time
}

// Coordinates returns the event position, or nil when none was reported
func (e Event) Coordinates() *Coordinates {
	if e.Latitude == nil || e.Longitude == nil {
		return nil
	}
	return &Coordinates{Latitude: *e.Latitude, Longitude: *e.Longitude}
}

// Counts reports whether the event takes part in status and cycle projections
func (e Event) Counts() bool {
	return e.AcceptanceState != AcceptanceRejected
}

// Before reports whether e sorts before other in ledger order
func (e Event) Before(other Event) bool {
	if !e.CreatedAt.Equal(other.CreatedAt) {
		return e.CreatedAt.Before(other.CreatedAt)
	}
	return e.ID < other.ID
}

// Pause is one break inside a cycle. End is nil while the break is still open.
// When the cycle exit closed the break, End is the exit event and ClosedByExit is set.
type Pause struct {
	Start        Event
	End          *Event
	ClosedByExit bool
}

// WorkCycle is one entry-to-exit session derived from the ledger. It is never persisted.
type WorkCycle struct {
	Entry            Event
	Pauses           []Pause
	Exit             *Event
	ElapsedMinutes   int
	PauseMinutes     int
	EffectiveMinutes int
	// MissingExit marks a cycle closed implicitly by a later CLOCK_IN.
	MissingExit bool
}

// Open reports whether the cycle is still in progress
func (c WorkCycle) Open() bool {
	return c.Exit == nil && !c.MissingExit
}

// OpenPause returns the index of the pause still running, or -1
func (c WorkCycle) OpenPause() int {
	if n := len(c.Pauses); n > 0 && c.Pauses[n-1].End == nil {
		return n - 1
	}
	return -1
}

// Reconciliation is the full projection of an event window
type Reconciliation struct {
	Cycles  []WorkCycle
	Orphans []Event
}

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock
var SystemClock Clock = ClockFunc(time.Now)
