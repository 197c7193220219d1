package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const (
	maxTextLength = 500
	// MaxRangeDays bounds cycle and ledger queries
	MaxRangeDays = 93
)

// ========================================
// CLOCK ACTION DTOs
// ========================================

type RecordEventRequest struct {
	CompanyID      string   `json:"-"`
	EmployeeID     string   `json:"-"`
	IdempotencyKey string   `json:"-"`
	Kind           Kind     `json:"kind"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Observation    *string  `json:"observation,omitempty"`
	Justification  *string  `json:"justification,omitempty"`
}

func (r *RecordEventRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{
			Field:   "company_id",
			Message: "company_id is required",
		})
	}

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if r.Kind == "" {
		errs = append(errs, validator.ValidationError{
			Field:   "kind",
			Message: "kind is required",
		})
	} else if !r.Kind.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "kind",
			Message: "kind must be one of CLOCK_IN, CLOCK_OUT, PAUSE_START, PAUSE_END",
		})
	}

	errs = append(errs, validateCoordinates(r.Latitude, r.Longitude)...)

	if r.Observation != nil && len(*r.Observation) > maxTextLength {
		errs = append(errs, validator.ValidationError{
			Field:   "observation",
			Message: "observation must not exceed 500 characters",
		})
	}

	if r.Justification != nil && len(*r.Justification) > maxTextLength {
		errs = append(errs, validator.ValidationError{
			Field:   "justification",
			Message: "justification must not exceed 500 characters",
		})
	}

	if len(r.IdempotencyKey) > 128 {
		errs = append(errs, validator.ValidationError{
			Field:   "idempotency_key",
			Message: "Idempotency-Key must not exceed 128 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Coordinates returns the reported position, or nil when none was sent
func (r *RecordEventRequest) Coordinates() *Coordinates {
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	return &Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

func validateCoordinates(lat, lon *float64) validator.ValidationErrors {
	var errs validator.ValidationErrors

	if (lat == nil) != (lon == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "coordinates",
			Message: "latitude and longitude must be sent together",
		})
		return errs
	}

	if lat != nil && !validator.IsValidLatitude(*lat) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if lon != nil && !validator.IsValidLongitude(*lon) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	return errs
}

// Warnings are the advisory flags computed when an event is recorded
type Warnings struct {
	LocationWarning   bool     `json:"location_warning"`
	EarlyEntryWarning bool     `json:"early_entry_warning"`
	DistanceMeters    *float64 `json:"distance_meters,omitempty"`
}

// Any reports whether at least one flag is raised
func (w Warnings) Any() bool {
	return w.LocationWarning || w.EarlyEntryWarning
}

type RecordEventResponse struct {
	Event                 EventResponse `json:"event"`
	StatusAfter           Status        `json:"status_after"`
	Warnings              Warnings      `json:"warnings"`
	JustificationRequired bool          `json:"justification_required"`
	Replayed              bool          `json:"replayed"`
}

type EventResponse struct {
	ID                string          `json:"id"`
	EmployeeID        string          `json:"employee_id"`
	Kind              Kind            `json:"kind"`
	CreatedAt         time.Time       `json:"created_at"`
	Latitude          *float64        `json:"latitude,omitempty"`
	Longitude         *float64        `json:"longitude,omitempty"`
	Observation       *string         `json:"observation,omitempty"`
	AcceptanceState   AcceptanceState `json:"acceptance_state"`
	LocationWarning   bool            `json:"location_warning"`
	EarlyEntryWarning bool            `json:"early_entry_warning"`
	Justification     *string         `json:"justification,omitempty"`
	OriginalCreatedAt *time.Time      `json:"original_created_at,omitempty"`
}

// ========================================
// STATUS DTOs
// ========================================

type StatusResponse struct {
	EmployeeID   string         `json:"employee_id"`
	Status       Status         `json:"status"`
	AllowedKinds []Kind         `json:"allowed_kinds"`
	LastEvent    *EventResponse `json:"last_event,omitempty"`
	CurrentCycle *CycleResponse `json:"current_cycle,omitempty"`
	AsOf         time.Time      `json:"as_of"`
}

type BoardEntry struct {
	EmployeeID  string     `json:"employee_id"`
	FullName    string     `json:"full_name"`
	Status      Status     `json:"status"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}

type BoardResponse struct {
	AsOf      time.Time      `json:"as_of"`
	Employees []BoardEntry   `json:"employees"`
	Counts    map[Status]int `json:"counts"`
}

// ========================================
// CYCLE DTOs
// ========================================

// RangeFilter selects local calendar days [StartDate, EndDate] of one employee.
// Empty dates default to the employee's current day.
type RangeFilter struct {
	CompanyID  string `json:"-"`
	EmployeeID string `json:"-"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

func (f *RangeFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.CompanyID) {
		errs = append(errs, validator.ValidationError{
			Field:   "company_id",
			Message: "company_id is required",
		})
	}

	if validator.IsEmpty(f.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	var start, end time.Time
	var startOK, endOK bool
	if f.StartDate != "" {
		if start, startOK = validator.IsValidDate(f.StartDate); !startOK {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.EndDate != "" {
		if end, endOK = validator.IsValidDate(f.EndDate); !endOK {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}

	if startOK && endOK {
		if end.Before(start) {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must not be before start_date",
			})
		} else if int(end.Sub(start).Hours()/24)+1 > MaxRangeDays {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "date range must not exceed 93 days",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type PauseResponse struct {
	Start        EventResponse  `json:"start"`
	End          *EventResponse `json:"end,omitempty"`
	ClosedByExit bool           `json:"closed_by_exit"`
}

type CycleResponse struct {
	Entry            EventResponse   `json:"entry"`
	Pauses           []PauseResponse `json:"pauses"`
	Exit             *EventResponse  `json:"exit,omitempty"`
	ElapsedMinutes   int             `json:"elapsed_minutes"`
	PauseMinutes     int             `json:"pause_minutes"`
	EffectiveMinutes int             `json:"effective_minutes"`
	Open             bool            `json:"open"`
	MissingExit      bool            `json:"missing_exit"`
	// Live durations are only set for an open cycle, measured up to the response time.
	LiveEffectiveMinutes *int `json:"live_effective_minutes,omitempty"`
	LivePauseMinutes     *int `json:"live_pause_minutes,omitempty"`
}

type CycleSummary struct {
	CycleCount       int             `json:"cycle_count"`
	ElapsedMinutes   int             `json:"elapsed_minutes"`
	PauseMinutes     int             `json:"pause_minutes"`
	EffectiveMinutes int             `json:"effective_minutes"`
	EffectiveHours   decimal.Decimal `json:"effective_hours"`
	PauseHours       decimal.Decimal `json:"pause_hours"`
	MissingExitCount int             `json:"missing_exit_count"`
	OrphanCount      int             `json:"orphan_count"`
	HasOpenCycle     bool            `json:"has_open_cycle"`
}

type CyclesResponse struct {
	EmployeeID string          `json:"employee_id"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	Timezone   string          `json:"timezone"`
	Cycles     []CycleResponse `json:"cycles"`
	Orphans    []EventResponse `json:"orphans"`
	Summary    CycleSummary    `json:"summary"`
}

type EventsResponse struct {
	EmployeeID string          `json:"employee_id"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	Timezone   string          `json:"timezone"`
	Events     []EventResponse `json:"events"`
}

// ========================================
// ADMIN EDIT DTOs
// ========================================

type EditEventRequest struct {
	CompanyID       string           `json:"-"`
	EventID         string           `json:"-"`
	EditorID        string           `json:"-"`
	CreatedAt       *string          `json:"created_at,omitempty"`
	Kind            *Kind            `json:"kind,omitempty"`
	Latitude        *float64         `json:"latitude,omitempty"`
	Longitude       *float64         `json:"longitude,omitempty"`
	Observation     *string          `json:"observation,omitempty"`
	AcceptanceState *AcceptanceState `json:"acceptance_state,omitempty"`
	Justification   *string          `json:"justification,omitempty"`
	Comment         string           `json:"comment"`
}

func (r *EditEventRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.EventID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id must be a valid UUID",
		})
	}

	if validator.IsEmpty(r.EditorID) {
		errs = append(errs, validator.ValidationError{
			Field:   "editor_id",
			Message: "editor_id is required",
		})
	}

	if r.CreatedAt == nil && r.Kind == nil && r.Latitude == nil && r.Longitude == nil &&
		r.Observation == nil && r.AcceptanceState == nil && r.Justification == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "body",
			Message: "at least one field must be provided",
		})
	}

	if r.CreatedAt != nil {
		if _, ok := validator.IsValidDateTime(*r.CreatedAt); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "created_at",
				Message: "created_at must be an RFC3339 timestamp",
			})
		}
	}

	if r.Kind != nil && !r.Kind.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "kind",
			Message: "kind must be one of CLOCK_IN, CLOCK_OUT, PAUSE_START, PAUSE_END",
		})
	}

	if r.AcceptanceState != nil && !r.AcceptanceState.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "acceptance_state",
			Message: "acceptance_state must be one of ACCEPTED, PENDING, REJECTED",
		})
	}

	errs = append(errs, validateCoordinates(r.Latitude, r.Longitude)...)

	if len(r.Comment) > maxTextLength {
		errs = append(errs, validator.ValidationError{
			Field:   "comment",
			Message: "comment must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DeleteEventRequest struct {
	CompanyID string `json:"-"`
	EventID   string `json:"-"`
	EditorID  string `json:"-"`
	Comment   string `json:"comment"`
}

func (r *DeleteEventRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.EventID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id must be a valid UUID",
		})
	}

	if validator.IsEmpty(r.EditorID) {
		errs = append(errs, validator.ValidationError{
			Field:   "editor_id",
			Message: "editor_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type EditEventResponse struct {
	Event         EventResponse `json:"event"`
	ChangedFields []string      `json:"changed_fields"`
}
